package comfy

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates the polling budget ran out before the backend
// reported a terminal status. The job may still finish server-side.
var ErrTimeout = errors.New("comfy: wait budget exhausted")

// UploadError wraps failures while pushing image bytes to the backend.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("comfy: upload: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// DownloadError wraps failures while fetching a generated output.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("comfy: download: %v", e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// SubmissionError wraps a rejected or unreachable queue endpoint.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("comfy: submit: %v", e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// GenerationError carries the backend's failure message verbatim so it can
// be surfaced for diagnostics.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string { return "comfy: generation failed: " + e.Message }
