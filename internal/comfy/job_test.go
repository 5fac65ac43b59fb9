package comfy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBackend emulates the queue/history/view surface of the generation
// backend with a scripted sequence of history responses.
type fakeBackend struct {
	mu       sync.Mutex
	polls    int
	history  func(poll int) string
	images   map[string][]byte
	promptID string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"prompt_id":%q}`, f.promptID)
	})
	mux.HandleFunc("/history/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.polls++
		poll := f.polls
		f.mu.Unlock()
		io.WriteString(w, f.history(poll))
	})
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		data, ok := f.images[r.URL.Query().Get("filename")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	return mux
}

func testGraph(t *testing.T) Graph {
	t.Helper()
	g, err := SimpleBuilder{}.Build(GraphParams{Prompt: "modern dining room", Seed: 9})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func newTestEngine(t *testing.T, backend *fakeBackend) (*Engine, func()) {
	t.Helper()
	server := httptest.NewServer(backend.handler(t))
	client := NewClient(Options{BaseURL: server.URL})
	engine := NewEngine(client, EngineOptions{PollInterval: 5 * time.Millisecond})
	return engine, server.Close
}

func TestRunToCompletionReturnsFirstOutput(t *testing.T) {
	backend := &fakeBackend{
		promptID: "p-1",
		images: map[string][]byte{
			"first.png":  []byte("first-bytes"),
			"second.png": []byte("second-bytes"),
		},
		history: func(poll int) string {
			if poll < 2 {
				return `{}`
			}
			// Two output nodes; node 8 must win numeric ordering over node 10.
			return `{"p-1":{"status":{"completed":true},"outputs":{
				"10":{"images":[{"filename":"second.png"}]},
				"8":{"images":[{"filename":"first.png"}]}
			}}}`
		},
	}
	engine, done := newTestEngine(t, backend)
	defer done()

	data, err := engine.RunToCompletion(context.Background(), testGraph(t), time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if string(data) != "first-bytes" {
		t.Fatalf("data = %q, want the first output deterministically", data)
	}
}

func TestRunToCompletionFailurePropagatesBackendMessage(t *testing.T) {
	backend := &fakeBackend{
		promptID: "p-2",
		history: func(poll int) string {
			return `{"p-2":{"status":{"completed":false,"error":"CUDA out of memory"}}}`
		},
	}
	engine, done := newTestEngine(t, backend)
	defer done()

	_, err := engine.RunToCompletion(context.Background(), testGraph(t), time.Second)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if !strings.Contains(genErr.Message, "CUDA out of memory") {
		t.Fatalf("message = %q, want backend message verbatim", genErr.Message)
	}
}

func TestRunToCompletionTimesOut(t *testing.T) {
	backend := &fakeBackend{
		promptID: "p-3",
		history:  func(poll int) string { return `{}` },
	}
	engine, done := newTestEngine(t, backend)
	defer done()

	data, err := engine.RunToCompletion(context.Background(), testGraph(t), 25*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if data != nil {
		t.Fatalf("expected no image bytes on timeout")
	}
}

func TestEngineBudgetSelection(t *testing.T) {
	engine := NewEngine(nil, EngineOptions{
		Text2ImgWait: 2 * time.Minute,
		Img2ImgWait:  5 * time.Minute,
	})

	text2img := testGraph(t)
	if got := engine.budgetFor(text2img); got != 2*time.Minute {
		t.Fatalf("text2img budget = %s, want 2m", got)
	}

	img2img, err := SimpleBuilder{}.Build(GraphParams{Prompt: "cozy bedroom", SourceImage: "room.png", Seed: 9})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if got := engine.budgetFor(img2img); got != 5*time.Minute {
		t.Fatalf("img2img budget = %s, want 5m", got)
	}

	defaults := NewEngine(nil, EngineOptions{})
	if got := defaults.budgetFor(text2img); got != DefaultText2ImgWait {
		t.Fatalf("default text2img budget = %s, want %s", got, DefaultText2ImgWait)
	}
	if got := defaults.budgetFor(img2img); got != DefaultImg2ImgWait {
		t.Fatalf("default img2img budget = %s, want %s", got, DefaultImg2ImgWait)
	}
}

func TestRunToCompletionUsesConfiguredBudgetWhenUnset(t *testing.T) {
	backend := &fakeBackend{
		promptID: "p-5",
		history:  func(poll int) string { return `{}` },
	}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	engine := NewEngine(NewClient(Options{BaseURL: server.URL}), EngineOptions{
		PollInterval: 5 * time.Millisecond,
		Img2ImgWait:  25 * time.Millisecond,
	})

	img2img, err := SimpleBuilder{}.Build(GraphParams{Prompt: "cozy bedroom", SourceImage: "room.png", Seed: 9})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}

	start := time.Now()
	if _, err := engine.RunToCompletion(context.Background(), img2img, 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("run took %s, configured budget not honored", elapsed)
	}
}

func TestPollOnceStates(t *testing.T) {
	backend := &fakeBackend{
		promptID: "p-4",
		history: func(poll int) string {
			switch poll {
			case 1:
				return `{}`
			case 2:
				return `{"p-4":{"status":{"completed":false}}}`
			default:
				return `{"p-4":{"status":{"completed":true},"outputs":{"9":{"images":[{"filename":"out.png"}]}}}}`
			}
		},
	}
	engine, done := newTestEngine(t, backend)
	defer done()

	for i, want := range []JobState{JobPending, JobRunning, JobCompleted} {
		job, err := engine.PollOnce(context.Background(), "p-4")
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if job.State != want {
			t.Fatalf("poll %d: state = %q, want %q", i, job.State, want)
		}
	}
}

func TestSubmitRejectionIsSubmissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid prompt graph"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	engine := NewEngine(NewClient(Options{BaseURL: server.URL}), EngineOptions{})
	_, err := engine.Submit(context.Background(), testGraph(t))
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want *SubmissionError", err)
	}
}
