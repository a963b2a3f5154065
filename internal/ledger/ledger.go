// Package ledger tracks which source URLs have already produced a persisted
// record or have previously failed, so external fetch/extraction spend is
// never repeated for known URLs.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"job-skill-pipeline/internal/models"
)

// Store is the slice of the persistence layer the ledger depends on.
type Store interface {
	ProcessedURLs(ctx context.Context) (map[string]struct{}, error)
	FailedURLs(ctx context.Context) (map[string]struct{}, error)
	RecordFailure(ctx context.Context, url, errMsg string) error
	ClearFailures(ctx context.Context) (int64, error)
}

// FilterResult partitions a candidate list.
type FilterResult struct {
	New              []models.Candidate
	SkippedProcessed int
	SkippedFailed    int
	SkippedCached    int // known via the cache, processed/failed indistinct
}

// Ledger combines the durable dedup/failure state with an optional Redis
// known-URL cache. The store is authoritative; the cache only short-circuits
// repeat lookups.
type Ledger struct {
	store Store
	cache *Cache
	log   *zap.Logger
}

// New constructs a Ledger. cache may be nil.
func New(store Store, cache *Cache, log *zap.Logger) *Ledger {
	return &Ledger{store: store, cache: cache, log: log}
}

// stripQuery removes the query-string suffix so tracking links with differing
// UTM parameters dedupe to the same posting.
func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// IsKnown reports whether the URL (exact or query-stripped) is already a
// persisted job or a recorded failure.
func (l *Ledger) IsKnown(ctx context.Context, url string) (bool, error) {
	if l.cache != nil {
		if hit, err := l.cache.Contains(ctx, url); err == nil && hit {
			return true, nil
		}
	}

	processed, err := l.store.ProcessedURLs(ctx)
	if err != nil {
		return false, fmt.Errorf("load processed urls: %w", err)
	}
	failed, err := l.store.FailedURLs(ctx)
	if err != nil {
		return false, fmt.Errorf("load failed urls: %w", err)
	}

	known := inSet(processed, url) || inSet(failed, url)
	if known && l.cache != nil {
		if err := l.cache.Add(ctx, url); err != nil {
			l.log.Warn("ledger cache write failed", zap.Error(err))
		}
	}
	return known, nil
}

// FilterNew partitions candidates into unseen ones and already-known ones,
// preserving input order among survivors. When retryFailed is set, failure
// history is ignored for this call only; the ledger itself is untouched, so
// a repeat failure still increments its attempt counter.
func (l *Ledger) FilterNew(ctx context.Context, candidates []models.Candidate, retryFailed bool) (FilterResult, error) {
	var res FilterResult

	// The store sets are loaded lazily: a sweep whose candidates all hit
	// the cache never pays for the full-table loads.
	var processed, failed map[string]struct{}
	loaded := false
	load := func() error {
		var err error
		if processed, err = l.store.ProcessedURLs(ctx); err != nil {
			return fmt.Errorf("load processed urls: %w", err)
		}
		if !retryFailed {
			if failed, err = l.store.FailedURLs(ctx); err != nil {
				return fmt.Errorf("load failed urls: %w", err)
			}
		}
		loaded = true
		return nil
	}

	for _, c := range candidates {
		// The cache holds processed and failed URLs without distinction,
		// so it can only answer when failure history counts as known.
		// Cache errors fall through to the authoritative store.
		if !retryFailed && l.cache != nil {
			if hit, err := l.cache.Contains(ctx, c.URL); err == nil && hit {
				res.SkippedCached++
				continue
			}
		}
		if !loaded {
			if err := load(); err != nil {
				return res, err
			}
		}
		switch {
		case inSet(processed, c.URL):
			res.SkippedProcessed++
		case inSet(failed, c.URL):
			res.SkippedFailed++
		default:
			res.New = append(res.New, c)
		}
	}

	l.log.Info("filtered candidates",
		zap.Int("new", len(res.New)),
		zap.Int("skipped_processed", res.SkippedProcessed),
		zap.Int("skipped_failed", res.SkippedFailed),
		zap.Int("skipped_cached", res.SkippedCached),
	)
	return res, nil
}

// inSet checks the URL both exactly and with the query string stripped.
func inSet(set map[string]struct{}, url string) bool {
	if set == nil {
		return false
	}
	if _, ok := set[url]; ok {
		return true
	}
	_, ok := set[stripQuery(url)]
	return ok
}

// RecordFailure upserts a failure entry. An error here is fatal to the
// calling operation: losing dedup state risks unbounded duplicate spend
// against the external services.
func (l *Ledger) RecordFailure(ctx context.Context, url, errMsg string) error {
	if err := l.store.RecordFailure(ctx, url, errMsg); err != nil {
		return fmt.Errorf("ledger failure write for %s: %w", url, err)
	}
	if l.cache != nil {
		if err := l.cache.Add(ctx, url); err != nil {
			l.log.Warn("ledger cache write failed", zap.Error(err))
		}
	}
	return nil
}

// MarkProcessed records a successfully persisted URL in the cache. The
// durable state already lives in the jobs table, so cache errors are only
// logged.
func (l *Ledger) MarkProcessed(ctx context.Context, url string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Add(ctx, url); err != nil {
		l.log.Warn("ledger cache write failed", zap.Error(err))
	}
}

// ClearFailures removes all failure history. Operator escape hatch used to
// force a full retry sweep.
func (l *Ledger) ClearFailures(ctx context.Context) (int64, error) {
	n, err := l.store.ClearFailures(ctx)
	if err != nil {
		return 0, err
	}
	if l.cache != nil {
		if err := l.cache.Flush(ctx); err != nil {
			l.log.Warn("ledger cache flush failed", zap.Error(err))
		}
	}
	return n, nil
}
