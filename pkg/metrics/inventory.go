package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
)

const outcomeOK = "ok"

// InventoryMetrics records latency and outcomes for inventory mutations and
// the item locks guarding them. A nil receiver is a no-op.
type InventoryMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	lockWait *prometheus.HistogramVec
	lockBusy *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lotledger_operation_duration_seconds",
		Help:    "Duration of inventory operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lotledger_operation_total",
		Help: "Inventory operations by outcome reason.",
	}, []string{"operation", "outcome"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lotledger_lock_wait_seconds",
		Help:    "Time spent waiting for an item lock.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"backend"})
	lockBusy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lotledger_lock_busy_total",
		Help: "Item lock acquisitions that gave up as busy.",
	}, []string{"backend"})
	reg.MustRegister(duration, outcomes, lockWait, lockBusy)
	return &InventoryMetrics{
		duration: duration,
		outcomes: outcomes,
		lockWait: lockWait,
		lockBusy: lockBusy,
	}
}

// Observe records the duration since started and the outcome of err.
func (m *InventoryMetrics) Observe(operation string, started time.Time, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	m.outcomes.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveLockWait records how long an acquisition waited.
func (m *InventoryMetrics) ObserveLockWait(backend string, waited time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.WithLabelValues(normalizeLabel(backend)).Observe(waited.Seconds())
}

// IncLockBusy counts an acquisition that timed out.
func (m *InventoryMetrics) IncLockBusy(backend string) {
	if m == nil || m.lockBusy == nil {
		return
	}
	m.lockBusy.WithLabelValues(normalizeLabel(backend)).Inc()
}

// Outcome maps an operation error onto a bounded label value.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Reason()
	}
	return string(pkgerrors.CodeInternal)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
