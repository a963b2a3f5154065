package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	CandidatesProcessed = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_candidates_processed_total", Help: "Candidates that reached a terminal state"})
	CandidatesSucceeded = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_candidates_succeeded_total", Help: "Candidates persisted or deliberately skipped"})
	CandidatesFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_candidates_failed_total", Help: "Candidates that failed fetch, extraction or persistence"})
	CandidatesSkipped   = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_candidates_skipped_total", Help: "Candidates discarded as non-technical"})
	RunsTotal           = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_runs_total", Help: "Scheduler runs started"})
	InFlightGauge       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "jobs_inflight", Help: "Candidates currently past the admission gate"})
	BatchDuration       = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "jobs_batch_duration_seconds", Help: "Wall time per batch", Buckets: prometheus.DefBuckets})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			CandidatesProcessed,
			CandidatesSucceeded,
			CandidatesFailed,
			CandidatesSkipped,
			RunsTotal,
			InFlightGauge,
			BatchDuration,
		)
	})
	return promhttp.Handler()
}
