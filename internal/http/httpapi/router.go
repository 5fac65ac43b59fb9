package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"roomworks/server/internal/http/handlers"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/middleware"
)

// Options carries the router knobs that come from configuration.
type Options struct {
	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int

	// StaticDir, when set, serves stored images under /static/ for the
	// filesystem storage driver. MinIO serves its own URLs.
	StaticDir string
}

func NewRouter(app *handlers.App, logger infra.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/redesigns", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/", app.RedesignsCreate)
	})

	r.Route("/v1/results", func(r chi.Router) {
		r.Get("/", app.ResultsGet)
		r.Post("/feedback", app.FeedbackCreate)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
