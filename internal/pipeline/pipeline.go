// Package pipeline drives a single document through the extraction stage
// machine: idle → upload → extraction → analysis → validation → complete,
// with error reachable from any non-idle stage and cancellation returning to
// idle. Each run probes the remote service once and either delegates to it or
// falls back to a deterministic simulation, producing the same result shape
// either way.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/common"
	"github.com/dev112317/stryker-assessment/internal/entity"
	"github.com/dev112317/stryker-assessment/internal/remote"
)

// Snapshot is one observable state transition of a run. Snapshots are
// emitted synchronously and in causal order; at most one is in flight per
// run at any moment.
type Snapshot struct {
	Stage              constants.Stage `json:"stage"`
	Progress           int             `json:"progress"`
	Message            string          `json:"message"`
	EstimatedRemaining time.Duration   `json:"estimated_remaining"`
	DemoMode           bool            `json:"demo_mode"`
}

// EmitFunc receives state snapshots for display. Must not block for long;
// the run does not advance while the callback executes.
type EmitFunc func(Snapshot)

// Runner executes single-document runs. It is reusable and safe for
// concurrent runs: all per-run state lives in the run, never on the Runner.
type Runner struct {
	client          *remote.Client
	logger          *slog.Logger
	script          Script
	extractionPause time.Duration
	validationPause time.Duration
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithScript overrides the simulated path's stage/delay table.
func WithScript(s Script) Option {
	return func(r *Runner) {
		if len(s) > 0 {
			r.script = s
		}
	}
}

// WithStagePauses overrides the remote path's local pauses: the settle pause
// between upload and the processing call, and the validation sanity pause.
func WithStagePauses(extraction, validation time.Duration) Option {
	return func(r *Runner) {
		r.extractionPause = extraction
		r.validationPause = validation
	}
}

func NewRunner(client *remote.Client, opts ...Option) *Runner {
	r := &Runner{
		client:          client,
		logger:          slog.Default(),
		script:          DefaultScript(),
		extractionPause: 1500 * time.Millisecond,
		validationPause: time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// run holds the transient state of one invocation. Created fresh per Run,
// never shared across concurrent runs.
type run struct {
	runner    *Runner
	emit      EmitFunc
	startedAt time.Time
	last      Snapshot
	demo      bool
}

// Run executes one document. It returns the normalized extraction result on
// success; common.ErrCancelled when the context was cancelled before a
// terminal stage; any other error is a terminal failure for this run, with
// the cause preserved. Failures are never retried here.
func (rn *Runner) Run(ctx context.Context, src entity.SourceFile, declared constants.DocType, emit EmitFunc) (*entity.ExtractionResult, error) {
	if emit == nil {
		emit = func(Snapshot) {}
	}
	r := &run{runner: rn, emit: emit, startedAt: time.Now()}

	r.transition(constants.StageUpload, 0, "Checking service availability...", 8*time.Second)

	live := rn.client.Health(ctx)
	if err := ctx.Err(); err != nil {
		return nil, r.cancelled()
	}

	var (
		res *entity.ExtractionResult
		err error
	)
	if live {
		res, err = r.runRemote(ctx, src, declared)
	} else {
		r.demo = true
		res, err = r.runSimulated(ctx, src, declared)
	}

	switch {
	case err == nil:
		rn.logger.Info("pipeline.run.ok",
			"file", src.Name,
			"document_type", declared,
			"demo_mode", r.demo,
			"confidence", res.Confidence,
			"elapsed_ms", res.ProcessingTime.Milliseconds(),
		)
		return res, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, common.ErrCancelled):
		return nil, r.cancelled()
	default:
		return nil, r.failed(src, err)
	}
}

// transition advances the visible stage and publishes a snapshot. Progress
// never regresses between transitions of a live run.
func (r *run) transition(stage constants.Stage, progress int, message string, remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	r.last = Snapshot{
		Stage:              stage,
		Progress:           progress,
		Message:            message,
		EstimatedRemaining: remaining,
		DemoMode:           r.demo,
	}
	r.emit(r.last)
}

// cancelled resets the run to idle. No complete or error event is ever
// emitted for a cancelled run.
func (r *run) cancelled() error {
	r.transition(constants.StageIdle, 0, "Processing cancelled", 0)
	r.runner.logger.Info("pipeline.run.cancelled")
	return common.ErrCancelled
}

// failed parks the run in the error stage, preserving the last progress
// value for diagnostics.
func (r *run) failed(src entity.SourceFile, err error) error {
	r.transition(constants.StageError, r.last.Progress, err.Error(), 0)
	r.runner.logger.Error("pipeline.run.failed", "file", src.Name, "error", err)
	return err
}

// pause sleeps cooperatively; cancellation interrupts it immediately.
func (r *run) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *run) runRemote(ctx context.Context, src entity.SourceFile, declared constants.DocType) (*entity.ExtractionResult, error) {
	r.transition(constants.StageUpload, 10, "Uploading document to server...", 8*time.Second)
	up, err := r.runner.client.Upload(ctx, src, string(declared))
	if err != nil {
		return nil, err
	}

	r.transition(constants.StageExtraction, 30, "Extracting text content...", 6*time.Second)
	if err := r.pause(ctx, r.runner.extractionPause); err != nil {
		return nil, err
	}

	r.transition(constants.StageAnalysis, 60, "AI is analyzing the document...", 3*time.Second)
	proc, err := r.runner.client.Process(ctx, up.DocumentID)
	if err != nil {
		return nil, err
	}

	r.transition(constants.StageValidation, 90, "Validating extracted data...", time.Second)
	if err := r.pause(ctx, r.runner.validationPause); err != nil {
		return nil, err
	}
	needsReview := r.checkShape(declared, proc.Data)

	res := &entity.ExtractionResult{
		ID:             up.DocumentID,
		Fields:         proc.Data,
		Confidence:     proc.ConfidenceScore,
		ProcessingTime: time.Since(r.startedAt),
		CreatedAt:      time.Now().UTC(),
		Metadata: map[string]any{
			"document_type": string(declared),
			"file_name":     src.Name,
			"file_size":     src.Size,
			"detected_type": up.DetectedType,
			"type_mismatch": up.TypeMismatch,
		},
	}
	if needsReview {
		res.Metadata["needs_review"] = true
	}

	r.transition(constants.StageComplete, 100, "Processing completed successfully!", 0)
	return res, nil
}

func (r *run) runSimulated(ctx context.Context, src entity.SourceFile, declared constants.DocType) (*entity.ExtractionResult, error) {
	script := r.runner.script
	for i, step := range script {
		r.transition(step.Stage, step.Progress, step.Message, script.remainingFrom(i))
		if err := r.pause(ctx, step.Delay); err != nil {
			return nil, err
		}
	}

	fields := demoFields(declared, src)
	detected, _ := constants.DetectType(src.Name)
	needsReview := r.checkShape(declared, fields)

	res := &entity.ExtractionResult{
		ID:             uuid.New().String(),
		Fields:         fields,
		Confidence:     demoConfidence(),
		ProcessingTime: time.Since(r.startedAt),
		CreatedAt:      time.Now().UTC(),
		Metadata: map[string]any{
			"document_type": string(declared),
			"file_name":     src.Name,
			"file_size":     src.Size,
			"detected_type": string(detected),
			"type_mismatch": detected != declared,
			"demo_mode":     true,
		},
	}
	if needsReview {
		res.Metadata["needs_review"] = true
	}

	r.transition(constants.StageComplete, 100, "Processing completed successfully!", 0)
	return res, nil
}

// checkShape validates the payload against the category's schema. Advisory
// only: an odd shape flags the result for review, it never fails the run.
func (r *run) checkShape(declared constants.DocType, fields map[string]any) bool {
	if err := validateFields(declared, fields); err != nil {
		r.runner.logger.Warn("pipeline.validation.anomaly",
			"document_type", declared,
			"error", err,
		)
		return true
	}
	return false
}

// Probe re-checks service availability. Exposed for callers that want to
// display live/demo mode before starting a run; each run still probes again.
func (rn *Runner) Probe(ctx context.Context) bool {
	return rn.client.Health(ctx)
}
