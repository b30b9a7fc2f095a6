// Package metrics exposes sync engine activity as Prometheus metrics
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canvaslink/internal/ports"
)

const namespace = "canvaslink"

var _ ports.SyncMetrics = (*SyncMetrics)(nil)

// SyncMetrics implements ports.SyncMetrics on its own registry
type SyncMetrics struct {
	registry *prometheus.Registry

	// OperationsQueued counts submitted operations.
	// Labels: kind (create_node, delete_node, update_node_text)
	OperationsQueued *prometheus.CounterVec

	// OperationsDiscarded counts operations whose source is not linked.
	// Labels: kind
	OperationsDiscarded *prometheus.CounterVec

	// QueueDepth is the queue length seen by the last submission
	QueueDepth prometheus.Gauge

	// PropagationSeconds measures one operation across all its targets.
	// Labels: kind
	PropagationSeconds *prometheus.HistogramVec

	// TargetWrites counts patched target documents.
	// Labels: kind
	TargetWrites *prometheus.CounterVec

	// TargetFailures counts skipped targets.
	// Labels: kind, reason (not_found, parse, io, other)
	TargetFailures *prometheus.CounterVec

	// Derivations counts derivation attempts.
	// Labels: status (success, error)
	Derivations *prometheus.CounterVec
}

// New creates the metrics and registers them, plus the Go runtime
// collectors, on a fresh registry
func New() *SyncMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &SyncMetrics{
		registry: reg,
		OperationsQueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_queued_total",
			Help:      "Operations submitted for propagation",
		}, []string{"kind"}),
		OperationsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_discarded_total",
			Help:      "Operations dropped because their source is not linked",
		}, []string{"kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Pending jobs when the last operation was queued",
		}),
		PropagationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "propagation_seconds",
			Help:      "Time to apply one operation to every target",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		TargetWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "target_writes_total",
			Help:      "Target documents rewritten by propagation",
		}, []string{"kind"}),
		TargetFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "target_failures_total",
			Help:      "Targets skipped because they could not be patched",
		}, []string{"kind", "reason"}),
		Derivations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "derivations_total",
			Help:      "Linked version derivations by outcome",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *SyncMetrics) OperationQueued(kind string, depth int) {
	m.OperationsQueued.WithLabelValues(kind).Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *SyncMetrics) OperationProcessed(kind string, targets int, elapsed time.Duration) {
	m.PropagationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *SyncMetrics) OperationDiscarded(kind string) {
	m.OperationsDiscarded.WithLabelValues(kind).Inc()
}

func (m *SyncMetrics) TargetWritten(kind string) {
	m.TargetWrites.WithLabelValues(kind).Inc()
}

func (m *SyncMetrics) TargetFailed(kind, reason string) {
	m.TargetFailures.WithLabelValues(kind, reason).Inc()
}

func (m *SyncMetrics) DocumentDerived(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	m.Derivations.WithLabelValues(status).Inc()
}
