package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/redesign"
)

type resultResponse struct {
	Status          string     `json:"status"`
	OriginalURL     string     `json:"original_url,omitempty"`
	RedesignURL     string     `json:"redesign_url,omitempty"`
	RoomType        string     `json:"room_type,omitempty"`
	Style           string     `json:"style,omitempty"`
	Model           string     `json:"model,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	Views           int        `json:"views,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// ResultsGet resolves the access token from the query string. Each of the
// five outcomes gets its own body so the frontend can render a specific
// page rather than a generic error.
func (a *App) ResultsGet(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	res, err := a.Results.Resolve(r.Context(), token)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: result resolve failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}

	switch res.Status {
	case redesign.StatusNotFound:
		a.error(w, r, http.StatusNotFound, "not_found")
	case redesign.StatusExpired:
		a.error(w, r, http.StatusGone, "token_expired")
	case redesign.StatusProcessing:
		a.json(w, http.StatusAccepted, resultResponse{
			Status:  string(res.Status),
			Message: "Your redesign is still being generated. Check back in a few minutes.",
		})
	case redesign.StatusFailed:
		a.json(w, http.StatusOK, resultResponse{
			Status:  string(res.Status),
			Message: "Generation failed for this request. Please submit a new one.",
		})
	default:
		a.json(w, http.StatusOK, resultResponse{
			Status:          string(res.Status),
			OriginalURL:     res.Redesign.SourceURL,
			RedesignURL:     res.Redesign.OutputURL,
			RoomType:        string(res.Redesign.RoomType),
			Style:           string(res.Redesign.Style),
			Model:           res.Redesign.Model,
			DurationSeconds: res.Redesign.DurationSeconds,
			Views:           res.Views,
			CompletedAt:     res.Redesign.CompletedAt,
		})
	}
}

type feedbackRequest struct {
	Token   string `json:"token"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// FeedbackCreate records a 1-5 rating against the result behind the token.
func (a *App) FeedbackCreate(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	if req.Token == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	err := a.Results.SubmitFeedback(r.Context(), req.Token, req.Rating, req.Comment)
	switch {
	case err == nil:
		a.json(w, http.StatusCreated, map[string]string{"status": "recorded"})
	case errors.Is(err, domain.ErrInvalidRating):
		a.error(w, r, http.StatusBadRequest, "invalid_rating")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found")
	case errors.Is(err, domain.ErrTokenExpired):
		a.error(w, r, http.StatusGone, "token_expired")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, r, http.StatusConflict, "not_ready")
	default:
		a.Logger.Error().Err(err).Msg("handlers: feedback failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
	}
}
