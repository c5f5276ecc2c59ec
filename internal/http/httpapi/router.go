package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
	"studio/internal/providers/did"
)

// NewRouter wires the API surface. lookup may be nil when no GeoIP database
// is configured; locale detection then relies on request headers alone.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)
	if len(app.Config.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(app.Config.AllowedOrigins))
	}
	r.Use(middleware.Locale("en-US", did.SupportedLocales(), lookup))

	r.Get("/", app.Index)
	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/talks", func(r chi.Router) {
		if app.Config.RateLimitPerMin > 0 {
			r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).Post("/", app.TalksCreate)
		} else {
			r.Post("/", app.TalksCreate)
		}
		r.Get("/{job_id}", app.TalkStatus)
		r.Get("/{job_id}/events", app.TalkEvents)
	})
	r.Get("/v1/voices", app.VoicesList)

	return r
}
