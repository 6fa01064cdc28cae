package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg      *prometheus.Registry
	HttpDur  *prometheus.HistogramVec
	DbDur    *prometheus.HistogramVec
	DbErr    *prometheus.CounterVec
	AuthFail *prometheus.CounterVec
}

func New() *Registry {
	r := prometheus.NewRegistry()
	httpDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	dbDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_op_duration_seconds",
			Help:    "DB operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	dbErr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "DB errors by operation",
		},
		[]string{"op"},
	)
	authFail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Token verification failures by reason",
		},
		[]string{"reason"},
	)

	r.MustRegister(
		httpDur, dbDur, dbErr, authFail,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Registry{reg: r, HttpDur: httpDur, DbDur: dbDur, DbErr: dbErr, AuthFail: authFail}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveDB(op string, d time.Duration) {
	r.DbDur.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Registry) CountDBError(op string) {
	r.DbErr.WithLabelValues(op).Inc()
}

func (r *Registry) CountAuthFailure(reason string) {
	r.AuthFail.WithLabelValues(reason).Inc()
}

func (r *Registry) MW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := &wrap{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, req)
		r.HttpDur.WithLabelValues(req.URL.Path, req.Method, strconv.Itoa(ww.status)).
			Observe(time.Since(start).Seconds())
	})
}

func (r *Registry) Reg() *prometheus.Registry { return r.reg }

type wrap struct {
	http.ResponseWriter
	status int
}

func (w *wrap) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
