package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tutu-network/pointledger/internal/domain"
)

// Metrics live on the default registry, so tests compare deltas.

func TestRecordEarn(t *testing.T) {
	c := PointsEarned.WithLabelValues(string(domain.ReasonCampaignBonus))
	before := testutil.ToFloat64(c)

	RecordEarn(domain.ReasonCampaignBonus, domain.MustAmount(120))

	if got := testutil.ToFloat64(c) - before; got != 120 {
		t.Errorf("earned delta = %v, want 120", got)
	}
}

func TestRecordSpend(t *testing.T) {
	c := PointsSpent.WithLabelValues(string(domain.ReasonExchanged))
	before := testutil.ToFloat64(c)

	RecordSpend(domain.ReasonExchanged, domain.MustAmount(30))
	RecordSpend(domain.ReasonExchanged, domain.Zero)

	if got := testutil.ToFloat64(c) - before; got != 30 {
		t.Errorf("spent delta = %v, want 30", got)
	}
}

func TestRecordExpired(t *testing.T) {
	before := testutil.ToFloat64(PointsExpired)
	RecordExpired(domain.MustAmount(7))
	if got := testutil.ToFloat64(PointsExpired) - before; got != 7 {
		t.Errorf("expired delta = %v, want 7", got)
	}
}

func TestRecordAlerts_ByUrgency(t *testing.T) {
	urgent := AlertsGenerated.WithLabelValues(string(domain.UrgencyUrgent))
	warning := AlertsGenerated.WithLabelValues(string(domain.UrgencyWarning))
	u0, w0 := testutil.ToFloat64(urgent), testutil.ToFloat64(warning)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	RecordAlerts([]domain.Alert{
		{Urgency: domain.UrgencyUrgent, ExpiresAt: now.Add(time.Hour)},
		{Urgency: domain.UrgencyUrgent, ExpiresAt: now.Add(2 * time.Hour)},
		{Urgency: domain.UrgencyWarning, ExpiresAt: now.Add(72 * time.Hour)},
	})

	if got := testutil.ToFloat64(urgent) - u0; got != 2 {
		t.Errorf("urgent delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(warning) - w0; got != 1 {
		t.Errorf("warning delta = %v, want 1", got)
	}
}

func TestRecordLogin_Labels(t *testing.T) {
	fresh := Logins.WithLabelValues("true")
	repeat := Logins.WithLabelValues("false")
	f0, r0 := testutil.ToFloat64(fresh), testutil.ToFloat64(repeat)

	RecordLogin(true)
	RecordLogin(false)
	RecordLogin(false)

	if got := testutil.ToFloat64(fresh) - f0; got != 1 {
		t.Errorf("new-day logins delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(repeat) - r0; got != 2 {
		t.Errorf("same-day logins delta = %v, want 2", got)
	}
}
