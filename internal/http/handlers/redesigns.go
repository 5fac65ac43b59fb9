package handlers

import (
	"errors"
	"io"
	"net/http"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/redesign"
)

type redesignResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RedesignsCreate accepts a multipart submission: the room photo plus
// email, room_type, style and an optional prompt. On success the request is
// queued and the visitor is told to wait for the email.
func (a *App) RedesignsCreate(w http.ResponseWriter, r *http.Request) {
	// Leave headroom over the image cap for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(a.MaxUploadBytes + 1<<20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "file_too_large")
			return
		}
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	req, err := a.Redesigns.Submit(r.Context(), redesign.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Email:       r.FormValue("email"),
		RoomType:    r.FormValue("room_type"),
		Style:       r.FormValue("style"),
		Prompt:      r.FormValue("prompt"),
	})
	if err != nil {
		a.submitError(w, r, err)
		return
	}

	a.json(w, http.StatusAccepted, redesignResponse{
		ID:      req.ID,
		Status:  string(req.State),
		Message: "Your redesign is queued. We will email you a link when it is ready.",
	})
}

func (a *App) submitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFileType):
		a.error(w, r, http.StatusUnsupportedMediaType, "invalid_file_type")
	case errors.Is(err, domain.ErrFileTooLarge):
		a.error(w, r, http.StatusRequestEntityTooLarge, "file_too_large")
	case errors.Is(err, domain.ErrInvalidEmail):
		a.error(w, r, http.StatusBadRequest, "invalid_email")
	case errors.Is(err, domain.ErrInvalidRoomType):
		a.error(w, r, http.StatusBadRequest, "invalid_room_type")
	case errors.Is(err, domain.ErrInvalidStyle):
		a.error(w, r, http.StatusBadRequest, "invalid_style")
	default:
		a.Logger.Error().Err(err).Msg("handlers: redesign submit failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
	}
}
