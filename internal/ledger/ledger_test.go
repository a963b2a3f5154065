package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"job-skill-pipeline/internal/models"
)

type fakeStore struct {
	processed map[string]struct{}
	failed    map[string]struct{}
	failures  map[string]int
	writeErr  error
	loads     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		failures:  make(map[string]int),
	}
}

func (f *fakeStore) ProcessedURLs(context.Context) (map[string]struct{}, error) {
	f.loads++
	return f.processed, nil
}

func (f *fakeStore) FailedURLs(context.Context) (map[string]struct{}, error) {
	f.loads++
	return f.failed, nil
}

func (f *fakeStore) RecordFailure(_ context.Context, url, _ string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.failed[url] = struct{}{}
	f.failures[url]++
	return nil
}

func (f *fakeStore) ClearFailures(context.Context) (int64, error) {
	n := int64(len(f.failed))
	f.failed = make(map[string]struct{})
	f.failures = make(map[string]int)
	return n, nil
}

func cand(url string) models.Candidate {
	return models.Candidate{Company: "Acme", Role: "SWE Intern", URL: url}
}

func TestFilterNew_Dedup(t *testing.T) {
	st := newFakeStore()
	st.processed["https://a.example.com/job"] = struct{}{}
	st.failed["https://b.example.com/job"] = struct{}{}

	l := New(st, nil, zap.NewNop())

	res, err := l.FilterNew(context.Background(), []models.Candidate{
		cand("https://a.example.com/job"),
		cand("https://a.example.com/job?utm=tracking"), // query-stripped match
		cand("https://b.example.com/job"),
		cand("https://c.example.com/job"),
		cand("https://d.example.com/job"),
	}, false)
	require.NoError(t, err)

	require.Equal(t, 2, res.SkippedProcessed)
	require.Equal(t, 1, res.SkippedFailed)
	require.Len(t, res.New, 2)
	// Survivor order matches input order.
	require.Equal(t, "https://c.example.com/job", res.New[0].URL)
	require.Equal(t, "https://d.example.com/job", res.New[1].URL)
}

func TestFilterNew_RetryFailed(t *testing.T) {
	st := newFakeStore()
	st.failed["https://b.example.com/job"] = struct{}{}

	l := New(st, nil, zap.NewNop())

	res, err := l.FilterNew(context.Background(), []models.Candidate{
		cand("https://b.example.com/job"),
	}, true)
	require.NoError(t, err)
	require.Len(t, res.New, 1, "retry mode ignores failure history")
	require.Zero(t, res.SkippedFailed)

	// The ledger itself is untouched: a repeat failure still increments.
	require.NoError(t, l.RecordFailure(context.Background(), "https://b.example.com/job", "boom"))
	require.Equal(t, 1, st.failures["https://b.example.com/job"])
}

func TestIsKnown(t *testing.T) {
	st := newFakeStore()
	st.processed["https://a.example.com/job"] = struct{}{}

	l := New(st, nil, zap.NewNop())

	known, err := l.IsKnown(context.Background(), "https://a.example.com/job?ref=x")
	require.NoError(t, err)
	require.True(t, known)

	known, err = l.IsKnown(context.Background(), "https://z.example.com/job")
	require.NoError(t, err)
	require.False(t, known)
}

func TestRecordFailure_WriteErrorIsFatal(t *testing.T) {
	st := newFakeStore()
	st.writeErr = errors.New("connection reset")

	l := New(st, nil, zap.NewNop())
	err := l.RecordFailure(context.Background(), "https://a.example.com/job", "boom")
	require.Error(t, err)
}

func TestLedgerCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client)

	st := newFakeStore()
	st.processed["https://a.example.com/job"] = struct{}{}
	l := New(st, cache, zap.NewNop())

	ctx := context.Background()

	// First lookup misses the cache, hits the store, and populates the cache.
	known, err := l.IsKnown(ctx, "https://a.example.com/job")
	require.NoError(t, err)
	require.True(t, known)

	hit, err := cache.Contains(ctx, "https://a.example.com/job")
	require.NoError(t, err)
	require.True(t, hit)

	// Even after the store forgets, the cache answers.
	delete(st.processed, "https://a.example.com/job")
	known, err = l.IsKnown(ctx, "https://a.example.com/job")
	require.NoError(t, err)
	require.True(t, known)

	// ClearFailures flushes the cache too.
	_, err = l.ClearFailures(ctx)
	require.NoError(t, err)
	hit, err = cache.Contains(ctx, "https://a.example.com/job")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestFilterNew_CacheShortCircuit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client)

	st := newFakeStore()
	l := New(st, cache, zap.NewNop())
	ctx := context.Background()

	l.MarkProcessed(ctx, "https://a.example.com/job")
	l.MarkProcessed(ctx, "https://b.example.com/job")

	// Every candidate hits the cache: skipped without any store load.
	res, err := l.FilterNew(ctx, []models.Candidate{
		cand("https://a.example.com/job"),
		cand("https://b.example.com/job?utm=tracking"),
	}, false)
	require.NoError(t, err)
	require.Equal(t, 2, res.SkippedCached)
	require.Empty(t, res.New)
	require.Zero(t, st.loads, "cache hits must not trigger store loads")

	// An uncached candidate falls through to the store.
	st.processed["https://c.example.com/job"] = struct{}{}
	res, err = l.FilterNew(ctx, []models.Candidate{
		cand("https://a.example.com/job"),
		cand("https://c.example.com/job"),
		cand("https://d.example.com/job"),
	}, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.SkippedCached)
	require.Equal(t, 1, res.SkippedProcessed)
	require.Len(t, res.New, 1)
	require.Equal(t, "https://d.example.com/job", res.New[0].URL)
}

func TestFilterNew_RetryFailedBypassesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client)

	st := newFakeStore()
	l := New(st, cache, zap.NewNop())
	ctx := context.Background()

	// A failed URL lands in the cache too; in retry mode the cache cannot
	// tell it apart from a processed one, so only the store sets decide.
	require.NoError(t, l.RecordFailure(ctx, "https://b.example.com/job", "boom"))

	res, err := l.FilterNew(ctx, []models.Candidate{
		cand("https://b.example.com/job"),
	}, true)
	require.NoError(t, err)
	require.Len(t, res.New, 1, "retry mode must not skip via the cache")
	require.Zero(t, res.SkippedCached)
}

func TestStripQuery(t *testing.T) {
	require.Equal(t, "https://a.example.com/job", stripQuery("https://a.example.com/job?utm=x&ref=y"))
	require.Equal(t, "https://a.example.com/job", stripQuery("https://a.example.com/job"))
}
