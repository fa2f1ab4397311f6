// Package metrics exposes prometheus instruments for the scheduling service.
// Every method is safe on a nil receiver so components can run without them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the service's counters and histograms.
type Metrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	slotLookupsTotal *prometheus.CounterVec
	intentsTotal     *prometheus.CounterVec
	remindersTotal   *prometheus.CounterVec
	waitlistTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Appointment lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operation_duration_seconds",
			Help:      "Latency of appointment lifecycle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		slotLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_lookups_total",
			Help:      "Available-slot lookups by cache result",
		}, []string{"cache"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "events",
			Name:      "intents_total",
			Help:      "Scheduling intents by type and stage",
		}, []string{"type", "stage"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "processed_total",
			Help:      "Reminders processed by the sweep",
		}, []string{"status"}),
		waitlistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "waitlist",
			Name:      "notifications_total",
			Help:      "Waiting-list notifications by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.slotLookupsTotal,
		m.intentsTotal, m.remindersTotal, m.waitlistTotal)
	return m
}

// ObserveOperation records one lifecycle call. outcome is "ok" or an error kind.
func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) ObserveSlotLookup(cacheHit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.slotLookupsTotal.WithLabelValues(label).Inc()
}

// ObserveIntent counts intents at the "published", "publish_failed",
// "handled" and "handle_failed" stages.
func (m *Metrics) ObserveIntent(intentType, stage string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intentType, stage).Inc()
}

func (m *Metrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveWaitlistNotification(outcome string) {
	if m == nil {
		return
	}
	m.waitlistTotal.WithLabelValues(outcome).Inc()
}
