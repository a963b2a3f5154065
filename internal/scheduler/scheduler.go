// Package scheduler runs the ingestion pipeline once or on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-skill-pipeline/internal/ledger"
	"job-skill-pipeline/internal/models"
	"job-skill-pipeline/internal/pipeline"
	"job-skill-pipeline/internal/telemetry"
)

// sleepSlice bounds each daemon sleep so shutdown is noticed promptly even
// with day-long intervals.
const sleepSlice = time.Minute

// CandidateSource lists postings to consider for ingestion.
type CandidateSource interface {
	ListCandidates(ctx context.Context, limit int) ([]models.Candidate, error)
}

// Options tunes a run.
type Options struct {
	Interval    time.Duration // daemon pause between runs, default 24h
	BatchSize   int           // candidates per sequential batch
	MaxJobs     int           // cap on new candidates per run, 0 = unlimited
	RetryFailed bool          // ignore failure history when filtering
}

// Scheduler owns the run loop: list, filter against the ledger, process.
type Scheduler struct {
	source    CandidateSource
	ledger    *ledger.Ledger
	processor *pipeline.Processor
	opts      Options
	log       *zap.Logger

	mu      sync.Mutex
	lastRun *models.RunStats
}

// New constructs a Scheduler.
func New(source CandidateSource, led *ledger.Ledger, proc *pipeline.Processor, opts Options, log *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Scheduler{source: source, ledger: led, processor: proc, opts: opts, log: log}
}

// RunOnce executes a single ingestion run and always returns stats. Errors
// are folded into the stats rather than returned: in daemon mode a failed run
// must never take the loop down.
func (s *Scheduler) RunOnce(ctx context.Context) models.RunStats {
	stats := s.runOnce(ctx)
	s.mu.Lock()
	s.lastRun = &stats
	s.mu.Unlock()
	return stats
}

// LastRun returns the stats of the most recent run, if any.
func (s *Scheduler) LastRun() (models.RunStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return models.RunStats{}, false
	}
	return *s.lastRun, true
}

func (s *Scheduler) runOnce(ctx context.Context) models.RunStats {
	stats := models.RunStats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := s.log.With(zap.String("run_id", stats.RunID))
	log.Info("run starting",
		zap.Int("batch_size", s.opts.BatchSize),
		zap.Int("max_jobs", s.opts.MaxJobs),
		zap.Bool("retry_failed", s.opts.RetryFailed),
	)
	telemetry.RunsTotal.Inc()

	candidates, err := s.source.ListCandidates(ctx, 0)
	if err != nil {
		return s.failRun(log, stats, "list candidates", err)
	}
	log.Info("candidates discovered", zap.Int("count", len(candidates)))

	filtered, err := s.ledger.FilterNew(ctx, candidates, s.opts.RetryFailed)
	if err != nil {
		return s.failRun(log, stats, "filter candidates", err)
	}

	fresh := filtered.New
	if s.opts.MaxJobs > 0 && len(fresh) > s.opts.MaxJobs {
		fresh = fresh[:s.opts.MaxJobs]
	}
	if len(fresh) == 0 {
		log.Info("no new candidates, run complete")
		stats.Success = true
		stats.Elapsed = time.Since(stats.StartedAt)
		return stats
	}

	results, err := s.processor.ProcessAll(ctx, fresh, s.opts.BatchSize)
	// Counts come from this run's results, not the processor's lifetime
	// counters, so consecutive daemon runs report independent stats.
	for _, r := range results {
		stats.Processed++
		if r.Success {
			stats.Succeeded++
			if r.Skipped {
				stats.Skipped++
			}
		} else {
			stats.Failed++
		}
	}
	if err != nil {
		return s.failRun(log, stats, "process candidates", err)
	}

	stats.Success = true
	stats.Elapsed = time.Since(stats.StartedAt)
	log.Info("run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats
}

func (s *Scheduler) failRun(log *zap.Logger, stats models.RunStats, stage string, err error) models.RunStats {
	stats.Success = false
	stats.Error = stage + ": " + err.Error()
	stats.Elapsed = time.Since(stats.StartedAt)
	log.Error("run failed", zap.String("stage", stage), zap.Error(err))
	return stats
}

// RunDaemon runs until ctx is cancelled, pausing Interval between runs. A
// run already in progress finishes before shutdown takes effect.
func (s *Scheduler) RunDaemon(ctx context.Context) error {
	s.log.Info("daemon starting", zap.Duration("interval", s.opts.Interval))
	for {
		stats := s.RunOnce(ctx)
		if !stats.Success {
			s.log.Warn("run ended with error, daemon continues", zap.String("error", stats.Error))
		}

		s.log.Info("next run scheduled",
			zap.Time("at", time.Now().Add(s.opts.Interval)),
		)
		if err := s.sleep(ctx, s.opts.Interval); err != nil {
			s.log.Info("daemon stopping")
			return err
		}
	}
}

// sleep waits for d in bounded slices so cancellation never waits longer
// than sleepSlice.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining > sleepSlice {
			remaining = sleepSlice
		}
		select {
		case <-time.After(remaining):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
