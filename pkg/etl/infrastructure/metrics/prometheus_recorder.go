// Package metrics provides the Prometheus and OpenTelemetry implementations of
// the core metrics interfaces.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of metrics.MetricRecorder.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	recordsCounter     *prometheus.CounterVec
	iterationCounter   *prometheus.CounterVec
	targetLoadCounter  *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with its own registry, including Go
// runtime and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of ingestion runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_type", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_run_status_total",
			Help: "Total number of ingestion runs by status.",
		}, []string{"job_type", "status"}),
		recordsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_run_records_total",
			Help: "Total records processed by ingestion runs.",
		}, []string{"job_type", "outcome"}),
		iterationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_iteration_total",
			Help: "Total perceive/act/reflect iterations by outcome.",
		}, []string{"job_type", "outcome"}),
		targetLoadCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_target_records_total",
			Help: "Total records written per storage target kind and outcome.",
		}, []string{"target_kind", "outcome"}),
	}

	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.recordsCounter)
	registry.MustRegister(r.iterationCounter)
	registry.MustRegister(r.targetLoadCounter)
	return r
}

// GetRegistry returns the Prometheus registry for exposition.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart records the start of a run.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, jobType model.JobType, run *model.JobRun) {
	r.runStatusCounter.WithLabelValues(string(jobType), string(run.Status)).Inc()
	logger.Debugf("metrics: run %s started (job type %s)", run.ID, jobType)
}

// RecordRunEnd records the terminal status, duration, and record counters of a
// run.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, jobType model.JobType, run *model.JobRun) {
	jt := string(jobType)
	r.runStatusCounter.WithLabelValues(jt, string(run.Status)).Inc()
	r.runDurationSeconds.WithLabelValues(jt, string(run.Status)).Observe(run.Duration().Seconds())
	r.recordsCounter.WithLabelValues(jt, "processed").Add(float64(run.RecordsProcessed))
	r.recordsCounter.WithLabelValues(jt, "failed").Add(float64(run.RecordsFailed))
}

// RecordIteration records one completed perceive/act/reflect cycle.
func (r *PrometheusRecorder) RecordIteration(ctx context.Context, jobType model.JobType, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	r.iterationCounter.WithLabelValues(string(jobType), outcome).Inc()
}

// RecordTargetLoad records the per-destination outcome of one fan-out load.
func (r *PrometheusRecorder) RecordTargetLoad(ctx context.Context, targetKind string, succeeded, failed int) {
	r.targetLoadCounter.WithLabelValues(targetKind, "succeeded").Add(float64(succeeded))
	r.targetLoadCounter.WithLabelValues(targetKind, "failed").Add(float64(failed))
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
