package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperr "github.com/itemlabs/go-items-api/internal/errors"
	"github.com/itemlabs/go-items-api/internal/middleware"
	"github.com/itemlabs/go-items-api/internal/repos"
)

type Items struct{ Repo *repos.Items }

func (h Items) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(rr chi.Router) {
		rr.Get("/", h.get)
		rr.Put("/", h.update)
		rr.Delete("/", h.delete)
	})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type itemCreate struct {
	Name string `json:"name" validate:"required,max=200"`
	// A null or absent description is written as "" so the column never
	// gains new NULLs.
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type itemUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return fields
}

func dbTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 3*time.Second)
}

func (h Items) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbTimeout(r)
	defer cancel()

	items, err := h.Repo.List(ctx)
	if err != nil {
		apperr.Write(w, r, apperr.E(500, "db_error", "db error", err, nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (h Items) get(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apperr.Write(w, r, apperr.BadRequest)
		return
	}

	ctx, cancel := dbTimeout(r)
	defer cancel()

	it, err := h.Repo.Get(ctx, id64)
	if err == sql.ErrNoRows {
		apperr.Write(w, r, apperr.NotFound)
		return
	}
	if err != nil {
		apperr.Write(w, r, apperr.E(500, "db_error", "db error", err, nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(it)
}

func (h Items) create(w http.ResponseWriter, r *http.Request) {
	var in itemCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.Write(w, r, apperr.BadRequest)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		apperr.Write(w, r, apperr.Validation(validationFields(err)))
		return
	}
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}

	ctx, cancel := dbTimeout(r)
	defer cancel()

	it, err := h.Repo.Create(ctx, in.Name, desc)
	if err != nil {
		apperr.Write(w, r, apperr.E(500, "db_error", "db error", err, nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(it)
}

// claimIdem runs the idempotency handshake for mutating verbs. The bool
// reports whether the request is already answered.
func (h Items) claimIdem(w http.ResponseWriter, r *http.Request, key, path, bodyHash string) bool {
	subject, _ := middleware.Subject(r.Context())
	idem := repos.Idem{DB: h.Repo.DB}
	res, err := idem.Claim(r.Context(), key, subject, r.Method, path, bodyHash)
	if err != nil {
		switch err {
		case repos.ErrMismatch:
			apperr.Write(w, r, apperr.Conflict)
		case repos.ErrInProgress:
			w.Header().Set("Retry-After", "2")
			apperr.Write(w, r, apperr.Conflict)
		default:
			apperr.Write(w, r, apperr.E(500, "idem_error", "idempotency error", err, nil))
		}
		return true
	}
	if res != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(*res))
		return true
	}
	return false
}

func (h Items) completeIdem(r *http.Request, key string, resp []byte) {
	subject, _ := middleware.Subject(r.Context())
	idem := repos.Idem{DB: h.Repo.DB}
	_ = idem.Complete(r.Context(), key, subject, string(resp))
}

func (h Items) update(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apperr.Write(w, r, apperr.BadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	var raw []byte
	if key != "" {
		raw, _ = io.ReadAll(io.LimitReader(r.Body, 1<<20))
		r.Body = io.NopCloser(bytes.NewReader(raw))
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var in itemUpdate
	if err := dec.Decode(&in); err != nil {
		apperr.Write(w, r, apperr.BadRequest)
		return
	}
	if err := validate.Struct(in); err != nil {
		apperr.Write(w, r, apperr.Validation(validationFields(err)))
		return
	}

	if key != "" {
		sum := sha256.Sum256(raw)
		if h.claimIdem(w, r, key, "/items/"+strconv.FormatInt(id64, 10), hex.EncodeToString(sum[:])) {
			return
		}
	}

	ctx, cancel := dbTimeout(r)
	defer cancel()

	it, err := h.Repo.Update(ctx, id64, in.Name, in.Description)
	if err == sql.ErrNoRows {
		apperr.Write(w, r, apperr.NotFound)
		return
	}
	if err != nil {
		apperr.Write(w, r, apperr.E(500, "db_error", "db error", err, nil))
		return
	}

	resp, _ := json.Marshal(it)
	if key != "" {
		h.completeIdem(r, key, resp)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func (h Items) delete(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apperr.Write(w, r, apperr.BadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if h.claimIdem(w, r, key, "/items/"+strconv.FormatInt(id64, 10), "delete") {
			return
		}
	}

	ctx, cancel := dbTimeout(r)
	defer cancel()

	it, err := h.Repo.Delete(ctx, id64)
	if err == sql.ErrNoRows {
		apperr.Write(w, r, apperr.NotFound)
		return
	}
	if err != nil {
		apperr.Write(w, r, apperr.E(500, "db_error", "db error", err, nil))
		return
	}

	resp, _ := json.Marshal(it)
	if key != "" {
		h.completeIdem(r, key, resp)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}
