package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	transitions      *prometheus.CounterVec
	submitsRejected  prometheus.Counter
	notifications    *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	blockedMovements prometheus.Counter
	autoRequests     *prometheus.CounterVec
	scanDuration     prometheus.Histogram
}

// New registers the service collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labstock_request_transitions_total",
			Help: "Request status transitions by target status.",
		}, []string{"to"}),
		submitsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labstock_request_submits_rejected_total",
			Help: "Submit attempts rejected because the request was not approved.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labstock_notifications_total",
			Help: "Notifications by channel and result.",
		}, []string{"channel", "result"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labstock_quarantine_transfers_total",
			Help: "Quarantine release transfers by decision and result.",
		}, []string{"decision", "result"}),
		blockedMovements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labstock_quarantine_blocked_movements_total",
			Help: "Stock movements blocked by the quarantine guard.",
		}),
		autoRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labstock_replenishment_rules_total",
			Help: "Reorder rules evaluated by the replenishment scan, by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labstock_replenishment_scan_seconds",
			Help:    "Duration of a replenishment scan pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.transitions, m.submitsRejected, m.notifications, m.transfers,
		m.blockedMovements, m.autoRequests, m.scanDuration)
	return m
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) SubmitRejected() {
	if m == nil {
		return
	}
	m.submitsRejected.Inc()
}

func (m *Metrics) Notification(channel string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result(err)).Inc()
}

func (m *Metrics) Transfer(decision string, err error) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(decision, result(err)).Inc()
}

func (m *Metrics) BlockedMovement() {
	if m == nil {
		return
	}
	m.blockedMovements.Inc()
}

func (m *Metrics) RuleOutcome(outcome string) {
	if m == nil {
		return
	}
	m.autoRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ScanFinished(started time.Time) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(time.Since(started).Seconds())
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
