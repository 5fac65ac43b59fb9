package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/middleware"
	"roomworks/server/internal/redesign"
)

type fakeSubmitter struct {
	req *domain.RedesignRequest
	err error
	got redesign.Upload
}

func (f *fakeSubmitter) Submit(_ context.Context, up redesign.Upload) (*domain.RedesignRequest, error) {
	f.got = up
	if f.err != nil {
		return nil, f.err
	}
	return f.req, nil
}

type fakeResolver struct {
	res         redesign.Resolution
	resolveErr  error
	feedbackErr error
	lastToken   string
	lastRating  int
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (redesign.Resolution, error) {
	f.lastToken = token
	return f.res, f.resolveErr
}

func (f *fakeResolver) SubmitFeedback(_ context.Context, token string, rating int, _ string) error {
	f.lastToken = token
	f.lastRating = rating
	return f.feedbackErr
}

type fakeBackend struct{ up bool }

func (f fakeBackend) Health(context.Context) bool { return f.up }

func newTestApp(submitter RedesignSubmitter, resolver ResultResolver, backend BackendHealth) *App {
	return NewApp(submitter, resolver, backend, redesign.DefaultMaxUploadBytes, zerolog.Nop())
}

func multipartUpload(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "room.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestRedesignsCreateAccepted(t *testing.T) {
	submitter := &fakeSubmitter{req: &domain.RedesignRequest{ID: "req-1", State: domain.StatePending}}
	app := newTestApp(submitter, &fakeResolver{}, fakeBackend{})

	body, contentType := multipartUpload(t, map[string]string{
		"email":     "visitor@example.com",
		"room_type": "bedroom",
		"style":     "modern",
		"prompt":    "more plants",
	}, []byte("\x89PNG\r\n\x1a\nimagedata"))

	req := httptest.NewRequest(http.MethodPost, "/v1/redesigns", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.RedesignsCreate(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["id"] != "req-1" || resp["status"] != "pending" {
		t.Fatalf("body = %v", resp)
	}
	if submitter.got.Email != "visitor@example.com" || submitter.got.RoomType != "bedroom" {
		t.Fatalf("upload passed to service = %+v", submitter.got)
	}
}

func TestRedesignsCreateMissingImage(t *testing.T) {
	app := newTestApp(&fakeSubmitter{}, &fakeResolver{}, fakeBackend{})

	body, contentType := multipartUpload(t, map[string]string{"email": "visitor@example.com"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/redesigns", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.RedesignsCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRedesignsCreateErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{domain.ErrInvalidFileType, http.StatusUnsupportedMediaType, "invalid_file_type"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
		{domain.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
		{domain.ErrInvalidRoomType, http.StatusBadRequest, "invalid_room_type"},
		{domain.ErrInvalidStyle, http.StatusBadRequest, "invalid_style"},
	}
	for _, tc := range tests {
		app := newTestApp(&fakeSubmitter{err: tc.err}, &fakeResolver{}, fakeBackend{})
		body, contentType := multipartUpload(t, map[string]string{"email": "x@example.com"}, []byte("\x89PNG\r\n\x1a\n"))
		req := httptest.NewRequest(http.MethodPost, "/v1/redesigns", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		app.RedesignsCreate(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if resp := decodeBody(t, rec); resp["error"] != tc.code {
			t.Fatalf("%v: error code = %v, want %s", tc.err, resp["error"], tc.code)
		}
	}
}

func TestResultsGetOutcomes(t *testing.T) {
	completed := &domain.RedesignRequest{
		ID:        "req-1",
		SourceURL: "http://files.test/original.png",
		OutputURL: "http://files.test/redesign.png",
		RoomType:  domain.RoomLivingRoom,
		Style:     domain.StyleModern,
		State:     domain.StateCompleted,
	}
	tests := []struct {
		name       string
		res        redesign.Resolution
		wantStatus int
		wantBody   string
	}{
		{"ready", redesign.Resolution{Status: redesign.StatusReady, Redesign: completed, Views: 3}, http.StatusOK, "ready"},
		{"processing", redesign.Resolution{Status: redesign.StatusProcessing}, http.StatusAccepted, "processing"},
		{"failed", redesign.Resolution{Status: redesign.StatusFailed}, http.StatusOK, "failed"},
		{"not found", redesign.Resolution{Status: redesign.StatusNotFound}, http.StatusNotFound, "not_found"},
		{"expired", redesign.Resolution{Status: redesign.StatusExpired}, http.StatusGone, "token_expired"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&fakeSubmitter{}, &fakeResolver{res: tc.res}, fakeBackend{})
			req := httptest.NewRequest(http.MethodGet, "/v1/results?token=abc", nil)
			rec := httptest.NewRecorder()
			app.ResultsGet(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body %q missing %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestResultsGetReadyBody(t *testing.T) {
	res := redesign.Resolution{
		Status: redesign.StatusReady,
		Redesign: &domain.RedesignRequest{
			SourceURL:       "http://files.test/original.png",
			OutputURL:       "http://files.test/redesign.png",
			RoomType:        domain.RoomOffice,
			Style:           domain.StyleIndustrial,
			Model:           "sd_xl_base_1.0.safetensors",
			DurationSeconds: 42,
		},
		Views: 7,
	}
	app := newTestApp(&fakeSubmitter{}, &fakeResolver{res: res}, fakeBackend{})
	req := httptest.NewRequest(http.MethodGet, "/v1/results?token=abc", nil)
	rec := httptest.NewRecorder()
	app.ResultsGet(rec, req)

	body := decodeBody(t, rec)
	if body["original_url"] != "http://files.test/original.png" {
		t.Fatalf("original_url = %v", body["original_url"])
	}
	if body["redesign_url"] != "http://files.test/redesign.png" {
		t.Fatalf("redesign_url = %v", body["redesign_url"])
	}
	if body["views"] != float64(7) {
		t.Fatalf("views = %v", body["views"])
	}
	if body["duration_seconds"] != float64(42) {
		t.Fatalf("duration_seconds = %v, want 42", body["duration_seconds"])
	}
	if body["model"] != "sd_xl_base_1.0.safetensors" {
		t.Fatalf("model = %v", body["model"])
	}
}

func TestResultsGetMissingToken(t *testing.T) {
	app := newTestApp(&fakeSubmitter{}, &fakeResolver{}, fakeBackend{})
	req := httptest.NewRequest(http.MethodGet, "/v1/results", nil)
	rec := httptest.NewRecorder()
	app.ResultsGet(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFeedbackCreateMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusCreated},
		{domain.ErrInvalidRating, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrTokenExpired, http.StatusGone},
		{domain.ErrInvalidState, http.StatusConflict},
	}
	for _, tc := range tests {
		resolver := &fakeResolver{feedbackErr: tc.err}
		app := newTestApp(&fakeSubmitter{}, resolver, fakeBackend{})

		payload, _ := json.Marshal(map[string]any{"token": "abc", "rating": 4, "comment": "nice"})
		req := httptest.NewRequest(http.MethodPost, "/v1/results/feedback", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		app.FeedbackCreate(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if resolver.lastToken != "abc" || resolver.lastRating != 4 {
			t.Fatalf("%v: resolver saw token=%q rating=%d", tc.err, resolver.lastToken, resolver.lastRating)
		}
	}
}

func TestErrorMessagesLocalized(t *testing.T) {
	app := newTestApp(&fakeSubmitter{}, &fakeResolver{res: redesign.Resolution{Status: redesign.StatusNotFound}}, fakeBackend{})

	req := httptest.NewRequest(http.MethodGet, "/v1/results?token=abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.LocaleKey, "ar"))
	rec := httptest.NewRecorder()
	app.ResultsGet(rec, req)

	body := decodeBody(t, rec)
	if body["message"] != errorMessages["ar"]["not_found"] {
		t.Fatalf("message = %v, want arabic not_found copy", body["message"])
	}
}

func TestHealthReportsBackend(t *testing.T) {
	for _, up := range []bool{true, false} {
		app := newTestApp(&fakeSubmitter{}, &fakeResolver{}, fakeBackend{up: up})
		req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
		rec := httptest.NewRecorder()
		app.Health(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := decodeBody(t, rec); body["backend"] != up {
			t.Fatalf("backend = %v, want %v", body["backend"], up)
		}
	}
}
