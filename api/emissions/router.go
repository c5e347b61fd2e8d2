package emissions

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string
	// Metrics serves /metrics. Defaults to the default Prometheus registry.
	Metrics http.Handler
}

// NewRouter mounts the handler's routes.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics)
	r.Get("/api/report", h.GetReport)
	r.Get("/api/series", h.GetSeries)
	r.Get("/api/extremes", h.GetExtremes)
	r.Get("/api/categories/{category}/daily", h.GetDaily)
	return r
}
