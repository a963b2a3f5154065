// Package pipeline runs the concurrency-bounded batch orchestration over
// candidate postings: fetch, extract, enrich, normalize, persist.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"job-skill-pipeline/internal/ledger"
	"job-skill-pipeline/internal/models"
	"job-skill-pipeline/internal/store"
	"job-skill-pipeline/internal/taxonomy"
	"job-skill-pipeline/internal/telemetry"
)

// Fetcher retrieves raw posting content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns raw content into structured skill data.
type Extractor interface {
	Extract(ctx context.Context, content string) (*models.ExtractionResult, error)
}

// JobStore persists one posting with its normalized skills.
type JobStore interface {
	SaveJob(ctx context.Context, p store.SaveJobParams) error
}

// Archiver keeps a copy of the raw fetched content. Optional.
type Archiver interface {
	Archive(ctx context.Context, url, content string) error
}

// Options tunes the orchestration.
type Options struct {
	MaxConcurrent    int           // admission gate width, default 5
	BatchDelay       time.Duration // pause between batches, default 2s
	MinContentLength int           // fetched content below this is a soft failure, default 500
}

// Processor drives candidates through the pipeline. The buffered gate channel
// is the single concurrency control point: at most MaxConcurrent candidates
// are past Fetching at any moment, independent of batch size.
type Processor struct {
	fetcher     Fetcher
	extractor   Extractor
	store       JobStore
	ledger      *ledger.Ledger
	normalizer  *taxonomy.Normalizer
	categorizer *taxonomy.Categorizer
	archiver    Archiver
	log         *zap.Logger

	gate       chan struct{}
	batchDelay time.Duration
	minContent int

	mu        sync.Mutex
	processed int
	succeeded int
	failed    int
	skipped   int
}

// New constructs a Processor. archiver may be nil.
func New(
	fetcher Fetcher,
	extractor Extractor,
	st JobStore,
	led *ledger.Ledger,
	normalizer *taxonomy.Normalizer,
	categorizer *taxonomy.Categorizer,
	archiver Archiver,
	opts Options,
	log *zap.Logger,
) *Processor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.BatchDelay == 0 {
		opts.BatchDelay = 2 * time.Second
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = 500
	}
	return &Processor{
		fetcher:     fetcher,
		extractor:   extractor,
		store:       st,
		ledger:      led,
		normalizer:  normalizer,
		categorizer: categorizer,
		archiver:    archiver,
		log:         log,
		gate:        make(chan struct{}, opts.MaxConcurrent),
		batchDelay:  opts.BatchDelay,
		minContent:  opts.MinContentLength,
	}
}

// failure builds a FAILED result and records it in the ledger. A ledger
// write error is fatal to the whole run, not just this candidate.
func (p *Processor) failure(ctx context.Context, c models.Candidate, msg string) (models.ProcessResult, error) {
	if err := p.ledger.RecordFailure(ctx, c.URL, msg); err != nil {
		return models.ProcessResult{}, err
	}
	return models.ProcessResult{Candidate: c, Success: false, Error: msg}, nil
}

// processOne runs a single candidate through fetch, extract, enrich,
// normalize and persist. It blocks at the admission gate until a slot frees.
func (p *Processor) processOne(ctx context.Context, c models.Candidate) (models.ProcessResult, error) {
	p.gate <- struct{}{}
	defer func() { <-p.gate }()

	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	content, err := p.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return p.failure(ctx, c, fmt.Sprintf("fetch failed: %v", err))
	}
	if len(content) < p.minContent {
		return p.failure(ctx, c, fmt.Sprintf("content too short (%d chars)", len(content)))
	}

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, c.URL, content); err != nil {
			p.log.Warn("raw content archive failed", zap.String("url", c.URL), zap.Error(err))
		}
	}

	ext, err := p.extractor.Extract(ctx, content)
	if err != nil {
		return p.failure(ctx, c, fmt.Sprintf("extraction failed: %v", err))
	}

	// Backfill title and company from the listing when the extraction came
	// back empty or with the model's null sentinel. Extraction output never
	// overwrites a value that is present.
	if ext.JobTitle == "" || ext.JobTitle == "null" {
		ext.JobTitle = c.Role
	}
	if ext.Company == "" || ext.Company == "null" {
		ext.Company = c.Company
	}

	// Non-tech postings are dropped silently: no persist, no failure entry.
	if !p.categorizer.IsTechRelated(ext.JobTitle) {
		p.log.Info("skipping non-tech posting", zap.String("title", ext.JobTitle), zap.String("url", c.URL))
		return models.ProcessResult{Candidate: c, Success: true, Skipped: true, Extraction: ext}, nil
	}

	var skills []store.SkillEntry
	for category, rawSkills := range ext.Skills {
		for _, raw := range rawSkills {
			for _, name := range p.normalizer.NormalizeSkill(raw) {
				skills = append(skills, store.SkillEntry{Name: name, Category: category})
			}
		}
	}

	params := store.SaveJobParams{
		Title:    ext.JobTitle,
		Company:  ext.Company,
		URL:      c.URL,
		Category: p.categorizer.Categorize(ext.JobTitle),
		Payload: models.JobPayload{
			JobTitle: ext.JobTitle,
			Company:  ext.Company,
			URL:      c.URL,
			Location: c.Location,
			Skills:   ext.Skills,
		},
		Skills: skills,
	}
	if err := p.store.SaveJob(ctx, params); err != nil {
		p.log.Error("persist failed", zap.String("url", c.URL), zap.Error(err))
		return p.failure(ctx, c, fmt.Sprintf("persist failed: %v", err))
	}

	p.ledger.MarkProcessed(ctx, c.URL)

	return models.ProcessResult{Candidate: c, Success: true, Extraction: ext}, nil
}

// ProcessBatch submits every candidate concurrently (subject to the gate) and
// collects one result per candidate in input order. A panic or error in one
// candidate's pipeline never aborts its siblings; only a ledger write failure
// is propagated, because continuing without dedup state risks duplicate
// external spend.
func (p *Processor) ProcessBatch(ctx context.Context, candidates []models.Candidate) ([]models.ProcessResult, error) {
	p.log.Info("processing batch",
		zap.Int("size", len(candidates)),
		zap.Int("max_concurrent", cap(p.gate)),
	)
	start := time.Now()

	// Candidate pipelines are never cancelled mid-flight; shutdown takes
	// effect between batches.
	workCtx := context.WithoutCancel(ctx)

	results := make([]models.ProcessResult, len(candidates))
	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)

	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c models.Candidate) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = models.ProcessResult{
						Candidate: c,
						Success:   false,
						Error:     fmt.Sprintf("panic: %v", r),
					}
				}
			}()

			res, err := p.processOne(workCtx, c)
			if err != nil {
				fatalMu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				fatalMu.Unlock()
				res = models.ProcessResult{Candidate: c, Success: false, Error: err.Error()}
			}
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	var batchSucceeded int
	p.mu.Lock()
	for _, r := range results {
		p.processed++
		if r.Success {
			p.succeeded++
			batchSucceeded++
			if r.Skipped {
				p.skipped++
			}
		} else {
			p.failed++
		}
	}
	p.mu.Unlock()

	for _, r := range results {
		telemetry.CandidatesProcessed.Inc()
		switch {
		case r.Skipped:
			telemetry.CandidatesSucceeded.Inc()
			telemetry.CandidatesSkipped.Inc()
		case r.Success:
			telemetry.CandidatesSucceeded.Inc()
		default:
			telemetry.CandidatesFailed.Inc()
		}
	}

	elapsed := time.Since(start)
	telemetry.BatchDuration.Observe(elapsed.Seconds())
	p.log.Info("batch complete",
		zap.Duration("elapsed", elapsed),
		zap.Int("succeeded", batchSucceeded),
		zap.Int("size", len(candidates)),
	)

	if fatalErr != nil {
		return results, fmt.Errorf("ledger write failed, aborting run: %w", fatalErr)
	}
	return results, nil
}

// ProcessAll partitions candidates into sequential batches of batchSize,
// pausing batchDelay between batches (never after the last) to smooth load on
// the fetcher and the extraction service. Batch N+1 never starts before all
// of batch N's results are collected. Cancellation is honored between
// batches only.
func (p *Processor) ProcessAll(ctx context.Context, candidates []models.Candidate, batchSize int) ([]models.ProcessResult, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	totalBatches := (len(candidates) + batchSize - 1) / batchSize
	p.log.Info("starting batch processing",
		zap.Int("candidates", len(candidates)),
		zap.Int("batch_size", batchSize),
		zap.Int("batches", totalBatches),
	)

	all := make([]models.ProcessResult, 0, len(candidates))
	for i := 0; i < len(candidates); i += batchSize {
		end := i + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		p.log.Info("batch", zap.Int("number", i/batchSize+1), zap.Int("total", totalBatches))

		results, err := p.ProcessBatch(ctx, candidates[i:end])
		all = append(all, results...)
		if err != nil {
			return all, err
		}

		if end < len(candidates) && p.batchDelay > 0 {
			select {
			case <-time.After(p.batchDelay):
			case <-ctx.Done():
				p.log.Info("run interrupted between batches")
				return all, ctx.Err()
			}
		}
	}

	p.logSummary(all)
	return all, nil
}

// Totals returns the running counters. processed == succeeded + failed
// always holds; skipped counts the subset of succeeded that was dropped as
// non-technical.
func (p *Processor) Totals() (processed, succeeded, failed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.succeeded, p.failed, p.skipped
}

// logSummary reports the outcome of one ProcessAll call. It works off the
// call's own results so daemon runs sharing a Processor log independent
// summaries.
func (p *Processor) logSummary(results []models.ProcessResult) {
	var processed, succeeded, failed, skipped int
	for _, r := range results {
		processed++
		if r.Success {
			succeeded++
			if r.Skipped {
				skipped++
			}
		} else {
			failed++
		}
	}

	rate := "n/a"
	if processed > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(succeeded)/float64(processed)*100)
	}
	p.log.Info("final results",
		zap.Int("processed", processed),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped_non_tech", skipped),
		zap.String("success_rate", rate),
	)
}
