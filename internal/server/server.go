package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/itemlabs/go-items-api/internal/auth"
	"github.com/itemlabs/go-items-api/internal/config"
	"github.com/itemlabs/go-items-api/internal/handlers"
	"github.com/itemlabs/go-items-api/internal/logging"
	"github.com/itemlabs/go-items-api/internal/metrics"
	"github.com/itemlabs/go-items-api/internal/middleware"
	"github.com/itemlabs/go-items-api/internal/openapi"
	"github.com/itemlabs/go-items-api/internal/repos"
	otelsetup "github.com/itemlabs/go-items-api/internal/trace"

	"github.com/go-chi/chi/v5"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg      config.Config
	db       *sql.DB
	mx       *metrics.Registry
	log      *slog.Logger
	verifier *auth.Verifier
}

func New(cfg config.Config, db *sql.DB) *Server {
	_, _ = otelsetup.Setup(context.Background(), cfg.OTELEndpoint, cfg.OTELSample)

	keys := auth.NewKeysetCache(cfg.Auth0Domain)
	return &Server{
		cfg:      cfg,
		db:       db,
		mx:       metrics.New(),
		log:      logging.New(),
		verifier: auth.NewVerifier(keys, cfg.Auth0Domain, cfg.Auth0Audience),
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	rl := middleware.NewLimiter(rate.Limit(s.cfg.RateRPS), s.cfg.RateBurst, 5*time.Minute)

	r.Use(
		otelhttp.NewMiddleware("items-api"),
		middleware.RequestID,
		chimw.RealIP,
		middleware.SecurityHeaders,
		middleware.CORS(s.cfg.CorsOrigins),
		middleware.BodyLimit(s.cfg.MaxBodyBytes),
		middleware.RecoverJSON(s.log),
		rl.Middleware,
		s.mx.MW,
		middleware.Logger(s.log),
	)

	hh := handlers.Health{DB: s.db}
	r.Get("/", hh.Root)
	r.Get("/health", hh.Status)
	r.Get("/healthz", hh.Live)
	r.Get("/readyz", hh.Ready)

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.AllowCIDR(s.cfg.MetricsAllowCIDR))
		gr.Handle("/metrics", s.mx.Handler())
	})

	if s.cfg.Env != "prod" {
		r.Handle("/openapi.yaml", openapi.Spec())
		r.Handle("/docs", openapi.UI())
	}

	it := handlers.Items{Repo: &repos.Items{DB: s.db, Mx: s.mx}}
	r.Route("/items", func(pr chi.Router) {
		pr.Use(
			middleware.Auth(s.verifier, s.mx),
			middleware.Audit{DB: s.db}.Middleware,
		)
		pr.Use(middleware.RequireScopeOn(
			s.cfg.ItemsWriteScope,
			http.MethodPost, http.MethodPut, http.MethodDelete,
		))
		it.Routes(pr)
	})

	aa := handlers.Audit{Cfg: s.cfg, Audit: &repos.Audit{DB: s.db}}
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.Auth(s.verifier, s.mx), middleware.RequireScope(s.cfg.AuditReadScope))
		ar.Get("/audit", aa.List)
	})

	return r
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}
