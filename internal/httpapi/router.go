package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"feestplanner/internal/planner"
)

type Config struct {
	Planner     *planner.Service
	LedgerTitle string
	Logger      zerolog.Logger

	HealthPath  string
	MetricsPath string
	// Metrics defaults to the process-wide prometheus handler.
	Metrics http.Handler
	// Ping reports readiness of the backing stores; nil means always ready.
	Ping func(ctx context.Context) error

	WebhookPath string
	Webhook     http.Handler

	APIEnabled bool
}

// NewRouter mounts the health, metrics and webhook endpoints and, when
// enabled, the client API under /api/v1.
func NewRouter(cfg Config) *chi.Mux {
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/healthz"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	r.Get(cfg.HealthPath, health(cfg.Ping))
	r.Handle(cfg.MetricsPath, cfg.Metrics)
	if cfg.Webhook != nil && cfg.WebhookPath != "" {
		r.Handle(cfg.WebhookPath, cfg.Webhook)
	}

	if cfg.APIEnabled && cfg.Planner != nil {
		h := &apiHandler{planner: cfg.Planner, ledgerTitle: cfg.LedgerTitle, logger: cfg.Logger}
		h.RegisterRoutes(r)
	}
	return r
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
