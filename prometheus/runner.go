// Package prometheus exports indexing metrics.
package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for indexing runs.
//
// Metrics:
//   - docindex_runs_total{outcome} - runs by outcome ("success" or "failure")
//   - docindex_run_duration_seconds - histogram of run durations
//   - docindex_repositories_indexed - repositories in the last snapshot
//   - docindex_repository_failures_total - failed tree fetches
//   - docindex_last_success_timestamp_seconds - time of the last published snapshot
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	RepositoriesIndexed  prometheus.Gauge
	RepositoryFailures   prometheus.Counter
	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_runs_total",
				Help: "Total number of indexing runs",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docindex_run_duration_seconds",
			Help:    "Duration of indexing runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		RepositoriesIndexed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docindex_repositories_indexed",
			Help: "Number of repositories in the last published snapshot",
		}),
		RepositoryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docindex_repository_failures_total",
			Help: "Total number of repository tree fetches that failed",
		}),
		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docindex_last_success_timestamp_seconds",
			Help: "Unix time of the last successfully published snapshot",
		}),
	}
}

// Ensure InstrumentedRunner implements docindex.IndexRunner at compile time.
var _ docindex.IndexRunner = (*InstrumentedRunner)(nil)

// InstrumentedRunner records metrics for every run of the wrapped runner.
type InstrumentedRunner struct {
	next    docindex.IndexRunner
	metrics *Metrics
}

// NewInstrumentedRunner creates a new InstrumentedRunner.
func NewInstrumentedRunner(next docindex.IndexRunner, metrics *Metrics) *InstrumentedRunner {
	return &InstrumentedRunner{next: next, metrics: metrics}
}

func (r *InstrumentedRunner) RunIndex(ctx context.Context, token docindex.Credential) (*docindex.RunResult, error) {
	begin := time.Now()
	result, err := r.next.RunIndex(ctx, token)
	r.metrics.RunDuration.Observe(time.Since(begin).Seconds())

	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	r.metrics.RunsTotal.WithLabelValues("success").Inc()
	r.metrics.RepositoriesIndexed.Set(float64(result.Indexed))
	r.metrics.RepositoryFailures.Add(float64(result.Failed))
	r.metrics.LastSuccessTimestamp.Set(float64(result.FinishedAt.Unix()))
	return result, nil
}
