// Package metrics exposes Prometheus collectors for the engine and the
// handoff server.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TurnsTotal        prometheus.Counter
	TurnErrorsTotal   prometheus.Counter
	ActionsTotal      *prometheus.CounterVec
	ModelLatency      prometheus.Histogram
	ChangeRatio       prometheus.Gauge
	SubmissionsTotal  *prometheus.CounterVec
	AnnotationTimeout prometheus.Counter
	LiveViewers       prometheus.Gauge
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New returns the process-wide collectors, registering them on first use.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "screen_pilot_turns_total",
				Help: "Total number of engine turns started",
			}),
			TurnErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "screen_pilot_turn_errors_total",
				Help: "Total number of turns that ended in a retryable error",
			}),
			ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "screen_pilot_actions_total",
				Help: "Total number of executed desktop actions by kind",
			}, []string{"kind"}),
			ModelLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "screen_pilot_model_latency_seconds",
				Help:    "Latency of model calls",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			}),
			ChangeRatio: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "screen_pilot_change_ratio",
				Help: "Most recent frame difference ratio (-1 when incomparable)",
			}),
			SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "screen_pilot_annotation_submissions_total",
				Help: "Annotated frame submissions by outcome",
			}, []string{"outcome"}),
			AnnotationTimeout: promauto.NewCounter(prometheus.CounterOpts{
				Name: "screen_pilot_annotation_timeouts_total",
				Help: "Turns that fell back to the raw frame after waiting for annotation",
			}),
			LiveViewers: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "screen_pilot_live_viewers",
				Help: "Current number of websocket state viewers",
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) TurnStarted() {
	if m == nil || m.TurnsTotal == nil {
		return
	}
	m.TurnsTotal.Inc()
}

func (m *Metrics) TurnFailed() {
	if m == nil || m.TurnErrorsTotal == nil {
		return
	}
	m.TurnErrorsTotal.Inc()
}

func (m *Metrics) ActionExecuted(kind string) {
	if m == nil || m.ActionsTotal == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveModelCall(d time.Duration) {
	if m == nil || m.ModelLatency == nil {
		return
	}
	m.ModelLatency.Observe(d.Seconds())
}

func (m *Metrics) SetChangeRatio(r float64) {
	if m == nil || m.ChangeRatio == nil {
		return
	}
	m.ChangeRatio.Set(r)
}

// Submission counts a handoff submission; outcome is "accepted", "conflict"
// or "rejected".
func (m *Metrics) Submission(outcome string) {
	if m == nil || m.SubmissionsTotal == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AnnotationTimedOut() {
	if m == nil || m.AnnotationTimeout == nil {
		return
	}
	m.AnnotationTimeout.Inc()
}

func (m *Metrics) ViewerConnected() {
	if m == nil || m.LiveViewers == nil {
		return
	}
	m.LiveViewers.Inc()
}

func (m *Metrics) ViewerDisconnected() {
	if m == nil || m.LiveViewers == nil {
		return
	}
	m.LiveViewers.Dec()
}
