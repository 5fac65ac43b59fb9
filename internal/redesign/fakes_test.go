package redesign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomworks/server/internal/comfy"
	"roomworks/server/internal/domain"
)

type fakeRedesignRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.RedesignRequest
	completed int
	failed    int
}

func newFakeRedesignRepo() *fakeRedesignRepo {
	return &fakeRedesignRepo{records: map[string]*domain.RedesignRequest{}}
}

func (f *fakeRedesignRepo) Create(_ context.Context, req *domain.RedesignRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	f.records[req.ID] = &cp
	return nil
}

func (f *fakeRedesignRepo) GetByID(_ context.Context, id string) (*domain.RedesignRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRedesignRepo) ClaimPending(_ context.Context) (*domain.RedesignRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.records {
		if req.State == domain.StatePending {
			req.State = domain.StateRunning
			cp := *req
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRedesignRepo) MarkCompleted(_ context.Context, id, outputKey, outputURL, model string, durationSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if req.State != domain.StateRunning {
		return domain.ErrInvalidState
	}
	now := time.Now()
	req.State = domain.StateCompleted
	req.OutputKey = outputKey
	req.OutputURL = outputURL
	req.Model = model
	req.DurationSeconds = durationSeconds
	req.CompletedAt = &now
	f.completed++
	return nil
}

func (f *fakeRedesignRepo) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if req.State != domain.StatePending && req.State != domain.StateRunning {
		return domain.ErrInvalidState
	}
	req.State = domain.StateFailed
	req.ErrorMessage = reason
	f.failed++
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.AccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*domain.AccessToken{}}
}

func (f *fakeTokenRepo) Create(_ context.Context, t *domain.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeTokenRepo) GetByToken(_ context.Context, token string) (*domain.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenRepo) IncrementViews(_ context.Context, token string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return 0, domain.ErrNotFound
	}
	t.Views++
	return t.Views, nil
}

func (f *fakeTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key, t := range f.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(f.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeTokenRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func (f *fakeTokenRepo) single() *domain.AccessToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		cp := *t
		return &cp
	}
	return nil
}

type fakeFeedbackRepo struct {
	mu      sync.Mutex
	entries []domain.Feedback
}

func (f *fakeFeedbackRepo) Append(_ context.Context, fb *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *fb)
	return nil
}

func (f *fakeFeedbackRepo) ListByRequestID(_ context.Context, requestID string) ([]domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Feedback
	for _, fb := range f.entries {
		if fb.RequestID == requestID {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	return "http://files.test/" + key, nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return append([]byte(nil), data...), nil
}

type fakeUploader struct {
	name string
	err  error
}

func (f *fakeUploader) UploadImage(context.Context, []byte, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

type fakeRunner struct {
	output []byte
	err    error
	graphs []comfy.Graph
}

func (f *fakeRunner) RunToCompletion(_ context.Context, g comfy.Graph, _ time.Duration) ([]byte, error) {
	f.graphs = append(f.graphs, g)
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeNotifier) ResultReady(_ context.Context, email, resultURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, email+" "+resultURL)
	return f.err
}
