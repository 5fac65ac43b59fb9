package redesign

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/storage"
)

// DefaultMaxUploadBytes caps uploaded room photos at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Upload is one visitor submission as received by the HTTP layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Email       string
	RoomType    string
	Style       string
	Prompt      string
}

// Service validates submissions and persists them in pending state. The
// actual generation happens later in the worker; Submit returns as soon as
// the record is queued.
type Service struct {
	repo           domain.RedesignRepository
	store          storage.ObjectStore
	maxUploadBytes int64
	logger         infra.Logger
}

// NewService wires the submission use case.
func NewService(repo domain.RedesignRepository, store storage.ObjectStore, maxUploadBytes int64, logger infra.Logger) *Service {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{repo: repo, store: store, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Submit validates the upload and creates a pending redesign request.
// Validation failures are rejected before anything is persisted.
func (s *Service) Submit(ctx context.Context, up Upload) (*domain.RedesignRequest, error) {
	contentType, err := s.validateImage(up)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(up.Email)
	if err != nil {
		return nil, err
	}
	room, err := domain.ParseRoomType(strings.TrimSpace(up.RoomType))
	if err != nil {
		return nil, err
	}
	style, err := domain.ParseDesignStyle(strings.TrimSpace(up.Style))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("redesigns/%s/original%s", id, extensionForContentType(contentType))
	url, err := s.store.Put(ctx, key, up.Data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store source image: %w", err)
	}

	req := &domain.RedesignRequest{
		ID:        id,
		Email:     email,
		SourceKey: key,
		SourceURL: url,
		RoomType:  room,
		Style:     style,
		Prompt:    strings.TrimSpace(up.Prompt),
		State:     domain.StatePending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("persist request: %w", err)
	}
	s.logger.Info().
		Str("request_id", id).
		Str("room", string(room)).
		Str("style", string(style)).
		Msg("redesign: submission queued")
	return req, nil
}

func (s *Service) validateImage(up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", domain.ErrInvalidFileType
	}
	// Sniffed type wins over the declared header; browsers lie.
	contentType := http.DetectContentType(up.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", domain.ErrInvalidFileType
	}
	if int64(len(up.Data)) > s.maxUploadBytes {
		return "", domain.ErrFileTooLarge
	}
	return contentType, nil
}

func validateEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", domain.ErrInvalidEmail
	}
	return trimmed, nil
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}
