package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ─── Expiration Alerts ──────────────────────────────────────────────────────
// Alerts are derived from a ledger snapshot on every query and never stored.

// Urgency is a coarse classification of time-to-expiry.
type Urgency string

const (
	UrgencyExpired Urgency = "expired"
	UrgencyUrgent  Urgency = "urgent"  // within 24h
	UrgencyWarning Urgency = "warning" // within 7 days
	UrgencyInfo    Urgency = "info"    // within 30 days
	UrgencyLow     Urgency = "low"
)

const day = 24 * time.Hour

// UrgencyFor classifies the time left until expiresAt.
func UrgencyFor(expiresAt, at time.Time) Urgency {
	remaining := expiresAt.Sub(at)
	switch {
	case remaining <= 0:
		return UrgencyExpired
	case remaining <= day:
		return UrgencyUrgent
	case remaining <= 7*day:
		return UrgencyWarning
	case remaining <= 30*day:
		return UrgencyInfo
	default:
		return UrgencyLow
	}
}

// Alert warns that an amount of points will expire.
type Alert struct {
	ID        string    `json:"id"`
	Amount    Amount    `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Urgency   Urgency   `json:"urgency"`
}

// UrgencyAt re-classifies the alert at a later instant.
func (a Alert) UrgencyAt(at time.Time) Urgency {
	return UrgencyFor(a.ExpiresAt, at)
}

// RemainingTime returns the time left, or ok=false once expired.
func (a Alert) RemainingTime(at time.Time) (time.Duration, bool) {
	d := a.ExpiresAt.Sub(at)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// RemainingText renders the time left as "3d", "5h" or "expired".
func (a Alert) RemainingText(at time.Time) string {
	d, ok := a.RemainingTime(at)
	if !ok {
		return "expired"
	}
	hours := int(d / time.Hour)
	if days := hours / 24; days >= 1 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", hours)
}

// GenerateAlerts builds alerts for every entry expiring in (at, at+within],
// soonest first. Entries with the same expiry keep ledger order.
func GenerateAlerts(l *Ledger, within time.Duration, at time.Time) []Alert {
	expiring := l.ExpiringEntries(at, at.Add(within))
	alerts := make([]Alert, 0, len(expiring))
	for _, e := range expiring {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			Amount:    e.Amount,
			ExpiresAt: e.ExpiresAt,
			CreatedAt: at,
			Urgency:   UrgencyFor(e.ExpiresAt, at),
		})
	}
	slices.SortStableFunc(alerts, func(a, b Alert) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	return alerts
}

// TotalExpiring is the sum of points expiring in (at, at+within].
func TotalExpiring(l *Ledger, within time.Duration, at time.Time) Amount {
	return l.ExpiringWithin(within, at)
}
