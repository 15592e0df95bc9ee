// Package metrics exposes pipeline stage counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsCast/internal/ports"
)

const namespace = "newscast"

// Stages records one sample per stage run.
type Stages struct {
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

var _ ports.StageObserver = (*Stages)(nil)

// NewStages registers the stage collectors on reg.
func NewStages(reg *prometheus.Registry) *Stages {
	factory := promauto.With(reg)
	return &Stages{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Stage runs by final status.",
		}, []string{"stage", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_rows_total",
			Help:      "Rows handled by stages, by outcome.",
		}, []string{"stage", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one stage run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
		}, []string{"stage"}),
		gatherer: reg,
	}
}

// ObserveStage implements ports.StageObserver.
func (s *Stages) ObserveStage(stage string, processed, skipped, failed int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.runs.WithLabelValues(stage, status).Inc()
	s.rows.WithLabelValues(stage, "processed").Add(float64(processed))
	s.rows.WithLabelValues(stage, "skipped").Add(float64(skipped))
	s.rows.WithLabelValues(stage, "failed").Add(float64(failed))
	s.duration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (s *Stages) Handler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}
