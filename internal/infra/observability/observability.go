// Package observability holds the Prometheus metrics for pointledger.
//
// Metrics are registered on the default registry through promauto and
// exposed by the API server on /metrics. The Record* helpers keep label
// handling in one place so services only pass domain values.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutu-network/pointledger/internal/domain"
)

const namespace = "pointledger"

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Metrics
// ═══════════════════════════════════════════════════════════════════════════

// PointsEarned tracks points credited by reason.
var PointsEarned = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "points_earned_total",
	Help:      "Total points credited, by reason.",
}, []string{"reason"})

// PointsSpent tracks points consumed by reason.
var PointsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "points_spent_total",
	Help:      "Total points consumed, by reason.",
}, []string{"reason"})

// PointsExpired tracks points forfeited to expiry.
var PointsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "points_expired_total",
	Help:      "Total points removed by expiry purges.",
})

// InsufficientBalance tracks spend requests rejected for lack of points.
var InsufficientBalance = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "insufficient_balance_total",
	Help:      "Total spend requests rejected because the available balance was too low.",
})

// ─── Alert Metrics ──────────────────────────────────────────────────────────

// AlertsGenerated tracks generated expiry alerts by urgency.
var AlertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "alerts",
	Name:      "generated_total",
	Help:      "Total expiry alerts generated, by urgency.",
}, []string{"urgency"})

// ─── Engagement Metrics ─────────────────────────────────────────────────────

// Logins tracks daily logins; new_day is "true" when the login advanced the streak.
var Logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engagement",
	Name:      "logins_total",
	Help:      "Total recorded logins.",
}, []string{"new_day"})

// SurveysCompleted tracks accepted survey submissions by category.
var SurveysCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engagement",
	Name:      "surveys_completed_total",
	Help:      "Total accepted survey submissions, by category.",
}, []string{"category"})

// MissionsCompleted tracks daily missions finished by kind.
var MissionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engagement",
	Name:      "missions_completed_total",
	Help:      "Total daily missions completed, by kind.",
}, []string{"kind"})

// ─── Sweeper Metrics ────────────────────────────────────────────────────────

// SweeperRuns tracks expiry sweeps by outcome.
var SweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sweeper",
	Name:      "runs_total",
	Help:      "Total expiry sweeps, by outcome.",
}, []string{"outcome"})

// SweeperDuration tracks how long a sweep across all accounts takes.
var SweeperDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "sweeper",
	Name:      "duration_seconds",
	Help:      "Duration of an expiry sweep across all accounts.",
	Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
})

// ─── SSE Metrics ────────────────────────────────────────────────────────────

// EventSubscribers tracks connected event stream clients.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "subscribers",
	Help:      "Number of connected event stream subscribers.",
})

// ═══════════════════════════════════════════════════════════════════════════
// Helpers
// ═══════════════════════════════════════════════════════════════════════════

// RecordEarn counts an earn.
func RecordEarn(reason domain.TransactionReason, a domain.Amount) {
	PointsEarned.WithLabelValues(string(reason)).Add(float64(a.Value()))
}

// RecordSpend counts a spend.
func RecordSpend(reason domain.TransactionReason, a domain.Amount) {
	PointsSpent.WithLabelValues(string(reason)).Add(float64(a.Value()))
}

// RecordExpired counts forfeited points.
func RecordExpired(a domain.Amount) {
	PointsExpired.Add(float64(a.Value()))
}

// RecordAlerts counts alerts by urgency.
func RecordAlerts(alerts []domain.Alert) {
	for _, a := range alerts {
		AlertsGenerated.WithLabelValues(string(a.Urgency)).Inc()
	}
}

// RecordLogin counts a login.
func RecordLogin(newDay bool) {
	label := "false"
	if newDay {
		label = "true"
	}
	Logins.WithLabelValues(label).Inc()
}
