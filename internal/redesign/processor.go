package redesign

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"roomworks/server/internal/comfy"
	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/notify"
	"roomworks/server/internal/storage"
)

// imageUploader pushes source bytes to the generation backend. Satisfied by
// *comfy.Client.
type imageUploader interface {
	UploadImage(ctx context.Context, data []byte, filename string) (string, error)
}

// generationRunner drives a graph to completion. Satisfied by *comfy.Engine.
type generationRunner interface {
	RunToCompletion(ctx context.Context, g comfy.Graph, maxWait time.Duration) ([]byte, error)
}

// ProcessorConfig tunes the worker-side pipeline.
type ProcessorConfig struct {
	Checkpoint    string
	Img2ImgWait   time.Duration
	TokenTTL      time.Duration
	ResultBaseURL string
}

// Processor runs one claimed redesign request through the generation
// pipeline and writes the terminal state. It is the single place that marks
// requests completed or failed; lower layers only report errors.
type Processor struct {
	repo     domain.RedesignRepository
	tokens   domain.TokenRepository
	store    storage.ObjectStore
	uploader imageUploader
	runner   generationRunner
	builder  comfy.Builder
	notifier notify.Notifier
	cfg      ProcessorConfig
	logger   infra.Logger
	now      func() time.Time
}

// NewProcessor wires the pipeline. A nil notifier disables result emails.
func NewProcessor(
	repo domain.RedesignRepository,
	tokens domain.TokenRepository,
	store storage.ObjectStore,
	uploader imageUploader,
	runner generationRunner,
	builder comfy.Builder,
	notifier notify.Notifier,
	cfg ProcessorConfig,
	logger infra.Logger,
) *Processor {
	if cfg.Img2ImgWait <= 0 {
		cfg.Img2ImgWait = comfy.DefaultImg2ImgWait
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 720 * time.Hour
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Processor{
		repo:     repo,
		tokens:   tokens,
		store:    store,
		uploader: uploader,
		runner:   runner,
		builder:  builder,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Process takes a request already in running state through generation.
// Expect multi-minute latency; the poll loop inside the runner dominates.
func (p *Processor) Process(ctx context.Context, req *domain.RedesignRequest) error {
	start := p.now()

	data, err := p.store.Get(ctx, req.SourceKey)
	if err != nil {
		return p.fail(ctx, req.ID, fmt.Errorf("load source image: %w", err))
	}

	backendName, err := p.uploader.UploadImage(ctx, data, path.Base(req.SourceKey))
	if err != nil {
		return p.fail(ctx, req.ID, err)
	}

	graph, err := p.builder.Build(comfy.GraphParams{
		Prompt:      BuildRedesignPrompt(req.RoomType, req.Style, req.Prompt),
		SourceImage: backendName,
		Seed:        comfy.SeedRandom,
		Checkpoint:  p.cfg.Checkpoint,
	})
	if err != nil {
		return p.fail(ctx, req.ID, fmt.Errorf("build workflow: %w", err))
	}

	output, err := p.runner.RunToCompletion(ctx, graph, p.cfg.Img2ImgWait)
	if err != nil {
		return p.fail(ctx, req.ID, err)
	}

	outputKey := fmt.Sprintf("redesigns/%s/redesign.png", req.ID)
	outputURL, err := p.store.Put(ctx, outputKey, output, "image/png")
	if err != nil {
		return p.fail(ctx, req.ID, fmt.Errorf("store output image: %w", err))
	}

	duration := int(p.now().Sub(start).Seconds())
	if err := p.repo.MarkCompleted(ctx, req.ID, outputKey, outputURL, p.cfg.Checkpoint, duration); err != nil {
		// Completion did not land; minting a token here would leak access
		// to a record that never reached completed state.
		return fmt.Errorf("mark completed: %w", err)
	}

	token, err := mintToken(req.ID, p.now(), p.cfg.TokenTTL)
	if err != nil {
		return err
	}
	if err := p.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	resultURL := p.cfg.ResultBaseURL + "?token=" + token.Token
	if err := p.notifier.ResultReady(ctx, req.Email, resultURL); err != nil {
		// Delivery email is best-effort; the token already exists.
		p.logger.Warn().Err(err).Str("request_id", req.ID).Msg("redesign: result email failed")
	}

	p.logger.Info().
		Str("request_id", req.ID).
		Int("duration_seconds", duration).
		Msg("redesign: completed")
	return nil
}

// fail records the terminal failed state with a reason the presentation
// layer can distinguish (timeout vs. generation vs. transfer).
func (p *Processor) fail(ctx context.Context, id string, cause error) error {
	reason := failureReason(cause)
	if err := p.repo.MarkFailed(ctx, id, reason); err != nil {
		p.logger.Error().Err(err).Str("request_id", id).Msg("redesign: mark failed errored")
	}
	p.logger.Error().Err(cause).Str("request_id", id).Msg("redesign: failed")
	return cause
}

func failureReason(err error) string {
	var genErr *comfy.GenerationError
	switch {
	case errors.Is(err, comfy.ErrTimeout):
		return "timeout: generation did not finish in time"
	case errors.As(err, &genErr):
		return "generation: " + genErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Worker shutdown mid-job. The state machine has no path back to
		// pending, so the record still goes terminal, but with a reason
		// that tells support this was an interruption, not a bad input.
		return "canceled: worker interrupted before the backend finished"
	default:
		return err.Error()
	}
}
