package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	backend := false
	if a.Backend != nil {
		backend = a.Backend.Health(r.Context())
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": backend,
	})
}
