package comfy

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"roomworks/server/internal/infra"
)

// Default polling cadence and wait budgets. Image-to-image runs get a longer
// budget because latent encoding makes them slower.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultText2ImgWait = 120 * time.Second
	DefaultImg2ImgWait  = 180 * time.Second
)

// JobState enumerates the backend job lifecycle as seen by the engine.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Job is a point-in-time status snapshot of an in-flight generation.
// Progress is advisory only and never required for correctness.
type Job struct {
	PromptID string
	State    JobState
	Progress float64
	Outputs  []string
	Error    string
}

// EngineOptions tunes the engine; zero values fall back to defaults.
// Text2ImgWait and Img2ImgWait are the budgets applied when RunToCompletion
// is called with maxWait <= 0.
type EngineOptions struct {
	PollInterval time.Duration
	Text2ImgWait time.Duration
	Img2ImgWait  time.Duration
	Logger       *infra.Logger
}

// Engine drives a workflow graph to completion or failure within a bounded
// time budget: submit, then poll at a fixed interval.
type Engine struct {
	client       *Client
	interval     time.Duration
	text2imgWait time.Duration
	img2imgWait  time.Duration
	logger       *infra.Logger
}

// NewEngine wires an engine around a backend client.
func NewEngine(client *Client, opts EngineOptions) *Engine {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	text2imgWait := opts.Text2ImgWait
	if text2imgWait <= 0 {
		text2imgWait = DefaultText2ImgWait
	}
	img2imgWait := opts.Img2ImgWait
	if img2imgWait <= 0 {
		img2imgWait = DefaultImg2ImgWait
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Engine{
		client:       client,
		interval:     interval,
		text2imgWait: text2imgWait,
		img2imgWait:  img2imgWait,
		logger:       logger,
	}
}

// Submit queues the graph and returns the backend's prompt identifier.
func (e *Engine) Submit(ctx context.Context, g Graph) (string, error) {
	id, err := e.client.QueuePrompt(ctx, g)
	if err != nil {
		return "", &SubmissionError{Err: err}
	}
	e.logger.Debug().Str("prompt_id", id).Msg("comfy: submitted workflow")
	return id, nil
}

// PollOnce takes a status snapshot. A job that has not appeared in the
// backend's history yet is pending, which is the normal pre-start state.
func (e *Engine) PollOnce(ctx context.Context, promptID string) (*Job, error) {
	entry, found, err := e.client.History(ctx, promptID)
	if err != nil {
		return nil, err
	}
	job := &Job{PromptID: promptID, State: JobPending}
	if !found {
		return job, nil
	}
	switch {
	case entry.Status.Error != "":
		job.State = JobFailed
		job.Error = entry.Status.Error
	case entry.Status.Completed:
		job.State = JobCompleted
		job.Progress = 1
		job.Outputs = orderedOutputs(entry)
	default:
		job.State = JobRunning
	}
	return job, nil
}

// RunToCompletion submits the graph and polls until a terminal status or
// the wait budget runs out. On success it downloads and returns the bytes
// of the FIRST output image; remaining batch outputs are discarded by
// convention. Expect multi-minute latency, this call blocks for the whole
// generation.
func (e *Engine) RunToCompletion(ctx context.Context, g Graph, maxWait time.Duration) ([]byte, error) {
	if maxWait <= 0 {
		maxWait = e.budgetFor(g)
	}
	deadline := time.Now().Add(maxWait)

	promptID, err := e.Submit(ctx, g)
	if err != nil {
		return nil, err
	}

	for {
		job, err := e.PollOnce(ctx, promptID)
		if err != nil {
			return nil, err
		}
		switch job.State {
		case JobCompleted:
			if len(job.Outputs) == 0 {
				return nil, &GenerationError{Message: "completed without outputs"}
			}
			e.logger.Info().
				Str("prompt_id", promptID).
				Int("outputs", len(job.Outputs)).
				Msg("comfy: generation completed")
			return e.client.DownloadImage(ctx, job.Outputs[0])
		case JobFailed:
			return nil, &GenerationError{Message: job.Error}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s (prompt %s)", ErrTimeout, maxWait, promptID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.interval):
		}
	}
}

// budgetFor picks the wait budget for a graph. Image-to-image workflows
// carry a LoadImage node and get the longer budget.
func (e *Engine) budgetFor(g Graph) time.Duration {
	for _, node := range g {
		if node.ClassType == "LoadImage" {
			return e.img2imgWait
		}
	}
	return e.text2imgWait
}

// orderedOutputs flattens output filenames deterministically: nodes in
// numeric id order, images in backend order within each node.
func orderedOutputs(entry *HistoryEntry) []string {
	ids := make([]string, 0, len(entry.Outputs))
	for id := range entry.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	var files []string
	for _, id := range ids {
		for _, img := range entry.Outputs[id].Images {
			if img.Filename != "" {
				files = append(files, img.Filename)
			}
		}
	}
	return files
}
