package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/middleware"
	"roomworks/server/internal/redesign"
)

// RedesignSubmitter accepts a validated upload and queues it.
type RedesignSubmitter interface {
	Submit(ctx context.Context, up redesign.Upload) (*domain.RedesignRequest, error)
}

// ResultResolver turns access tokens into results and records feedback.
type ResultResolver interface {
	Resolve(ctx context.Context, token string) (redesign.Resolution, error)
	SubmitFeedback(ctx context.Context, token string, rating int, comment string) error
}

// BackendHealth reports whether the generation backend is reachable.
type BackendHealth interface {
	Health(ctx context.Context) bool
}

type App struct {
	Redesigns      RedesignSubmitter
	Results        ResultResolver
	Backend        BackendHealth
	MaxUploadBytes int64
	Logger         infra.Logger
}

func NewApp(redesigns RedesignSubmitter, results ResultResolver, backend BackendHealth, maxUploadBytes int64, logger infra.Logger) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = redesign.DefaultMaxUploadBytes
	}
	return &App{
		Redesigns:      redesigns,
		Results:        results,
		Backend:        backend,
		MaxUploadBytes: maxUploadBytes,
		Logger:         logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, status, map[string]string{
		"error":   code,
		"message": localizedMessage(locale, code),
	})
}
