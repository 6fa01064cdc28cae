package repos

import (
	"context"
	"database/sql"
	"time"

	"github.com/itemlabs/go-items-api/internal/metrics"
)

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Items struct {
	DB *sql.DB
	Mx *metrics.Registry
}

func (r *Items) observe(op string, start time.Time, err error) {
	if r.Mx == nil {
		return
	}
	r.Mx.ObserveDB(op, time.Since(start))
	if err != nil && err != sql.ErrNoRows {
		r.Mx.CountDBError(op)
	}
}

// Legacy rows may still carry NULL descriptions; reads coerce them to "".
const itemCols = `id, name, COALESCE(description,''), created_at, updated_at`

func (r *Items) List(ctx context.Context) ([]Item, error) {
	start := time.Now()
	var err error
	defer func() { r.observe("items_list", start, err) }()

	rows, err := r.DB.QueryContext(ctx, `SELECT `+itemCols+` FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0, 16)
	for rows.Next() {
		var it Item
		if err = rows.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	err = rows.Err()
	return out, err
}

func (r *Items) Get(ctx context.Context, id int64) (Item, error) {
	start := time.Now()
	var err error
	defer func() { r.observe("items_get", start, err) }()

	var it Item
	err = r.DB.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id=?`, id).
		Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *Items) Create(ctx context.Context, name, description string) (Item, error) {
	start := time.Now()
	var err error
	defer func() { r.observe("items_create", start, err) }()

	res, err := r.DB.ExecContext(ctx, `INSERT INTO items(name,description) VALUES(?,?)`, name, description)
	if err != nil {
		return Item{}, err
	}
	id, _ := res.LastInsertId()
	return r.Get(ctx, id)
}

// Update applies a partial update: nil means leave the column alone.
// Returns sql.ErrNoRows when the id does not exist, so callers can tell
// "absent" from "operation failed".
func (r *Items) Update(ctx context.Context, id int64, name, description *string) (Item, error) {
	start := time.Now()
	var err error
	defer func() { r.observe("items_update", start, err) }()

	cur, err := r.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if name != nil {
		cur.Name = *name
	}
	if description != nil {
		cur.Description = *description
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE items SET name=?, description=? WHERE id=?`,
		cur.Name, cur.Description, id)
	if err != nil {
		return Item{}, err
	}
	return r.Get(ctx, id)
}

func (r *Items) Delete(ctx context.Context, id int64) (Item, error) {
	start := time.Now()
	var err error
	defer func() { r.observe("items_delete", start, err) }()

	it, err := r.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	_, err = r.DB.ExecContext(ctx, `DELETE FROM items WHERE id=?`, id)
	if err != nil {
		return Item{}, err
	}
	return it, nil
}
