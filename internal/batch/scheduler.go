// Package batch runs the single-document pipeline over a queue of jobs in
// consecutive waves bounded by a concurrency cap. Waves trade throughput for
// a simple checkpoint: aggregate counters move exactly once per wave, and a
// job's failure never aborts the batch.
package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/common"
	"github.com/dev112317/stryker-assessment/internal/entity"
	"github.com/dev112317/stryker-assessment/internal/pipeline"
)

// DefaultConcurrency bounds simultaneous outstanding pipeline runs.
const DefaultConcurrency = 3

// WaveHook observes the batch state after each wave settles.
type WaveHook func(entity.BatchState)

// Scheduler drives batches. Reusable; all per-batch state is local to Run.
type Scheduler struct {
	runner      *pipeline.Runner
	logger      *slog.Logger
	concurrency int
	onWave      WaveHook
}

type Option func(*Scheduler)

func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWaveHook registers a callback invoked after every wave settles.
func WithWaveHook(h WaveHook) Option {
	return func(s *Scheduler) { s.onWave = h }
}

func NewScheduler(runner *pipeline.Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:      runner,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run partitions the pending subset of jobs into waves of the configured
// concurrency, runs each wave to settlement, and updates counters, overall
// progress, and the time estimate at each wave boundary. Jobs already
// processing or settled are skipped, so re-invoking Run on a partially
// processed set is idempotent. Jobs are mutated in place as they settle.
//
// Context cancellation stops the batch between waves: unstarted jobs stay
// pending, jobs whose runs were interrupted revert to pending, and Run
// returns ctx.Err(). Per-job failures never surface as an error here.
func (s *Scheduler) Run(ctx context.Context, jobs []*entity.ProcessingJob) (entity.BatchState, error) {
	var pending []*entity.ProcessingJob
	for _, j := range jobs {
		if j.Status == constants.JobPending {
			pending = append(pending, j)
		}
	}

	state := entity.BatchState{
		Total:           len(pending),
		StartedAt:       time.Now(),
		OverallProgress: 100,
	}
	if len(pending) == 0 {
		s.logger.Info("batch.run.noop")
		return state, nil
	}

	state.OverallProgress = 0
	state.IsProcessing = true
	s.logger.Info("batch.run.start", "total", state.Total, "concurrency", s.concurrency)

	for offset := 0; offset < len(pending); offset += s.concurrency {
		if err := ctx.Err(); err != nil {
			state.IsProcessing = false
			s.logger.Warn("batch.run.cancelled", "settled", state.Settled(), "total", state.Total)
			return state, err
		}

		end := offset + s.concurrency
		if end > len(pending) {
			end = len(pending)
		}
		wave := pending[offset:end]

		var g errgroup.Group
		for _, job := range wave {
			g.Go(func() error {
				s.processJob(ctx, job)
				return nil
			})
		}
		// Outcomes are recorded on the jobs themselves; nothing to collect.
		_ = g.Wait()

		state.Completed, state.Failed = tally(pending)
		state.OverallProgress = 100 * float64(state.Settled()) / float64(state.Total)
		state.EstimatedRemaining = estimateRemaining(state)

		s.logger.Info("batch.wave.settled",
			"completed", state.Completed,
			"failed", state.Failed,
			"total", state.Total,
			"progress", state.OverallProgress,
		)
		if s.onWave != nil {
			s.onWave(state)
		}
	}

	if err := ctx.Err(); err != nil {
		state.IsProcessing = false
		return state, err
	}

	state.IsProcessing = false
	state.OverallProgress = 100
	state.EstimatedRemaining = 0
	s.logger.Info("batch.run.done", "completed", state.Completed, "failed", state.Failed)
	return state, nil
}

// processJob runs one job to a terminal outcome. Every failure is captured
// into the job; cancellation reverts it to pending for a later batch.
func (s *Scheduler) processJob(ctx context.Context, job *entity.ProcessingJob) {
	job.MarkProcessing()

	res, err := s.runner.Run(ctx, job.Source, job.DeclaredType, func(snap pipeline.Snapshot) {
		job.StageProgress = snap.Progress
	})
	switch {
	case err == nil:
		job.MarkCompleted(res)
	case common.IsCancelled(err):
		job.Reset()
	default:
		job.MarkFailed(err.Error())
	}
}

func tally(jobs []*entity.ProcessingJob) (completed, failed int) {
	for _, j := range jobs {
		switch j.Status {
		case constants.JobCompleted:
			completed++
		case constants.JobError:
			failed++
		}
	}
	return completed, failed
}

// estimateRemaining extrapolates from elapsed time per settled job. Advisory
// only, never negative.
func estimateRemaining(state entity.BatchState) time.Duration {
	settled := state.Settled()
	if settled == 0 || settled >= state.Total {
		return 0
	}
	elapsed := time.Since(state.StartedAt)
	est := time.Duration(float64(elapsed) / float64(settled) * float64(state.Total-settled))
	if est < 0 {
		return 0
	}
	return est
}
