package domain

import (
	"testing"
	"time"
)

// ─── Alert Tests ────────────────────────────────────────────────────────────

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want Urgency
	}{
		{"already expired", -time.Hour, UrgencyExpired},
		{"expiring now", 0, UrgencyExpired},
		{"12 hours", 12 * time.Hour, UrgencyUrgent},
		{"exactly 24h", day, UrgencyUrgent},
		{"just over a day", day + time.Second, UrgencyWarning},
		{"exactly 7d", 7 * day, UrgencyWarning},
		{"10 days", 10 * day, UrgencyInfo},
		{"exactly 30d", 30 * day, UrgencyInfo},
		{"31 days", 31 * day, UrgencyLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UrgencyFor(testNow.Add(tt.in), testNow); got != tt.want {
				t.Errorf("UrgencyFor(+%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateAlerts_SortedSoonestFirst(t *testing.T) {
	l := newTestLedger()
	l.Add(MustAmount(10), testNow.Add(10*day))
	l.Add(MustAmount(3), testNow.Add(3*day))
	l.Add(MustAmount(7), testNow.Add(7*day))
	l.Add(MustAmount(99), testNow.Add(60*day)) // outside window

	alerts := GenerateAlerts(l, 30*day, testNow)
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(alerts))
	}
	wantDays := []int{3, 7, 10}
	for i, a := range alerts {
		if !a.ExpiresAt.Equal(testNow.Add(time.Duration(wantDays[i]) * day)) {
			t.Errorf("alerts[%d] expires %v, want day %d", i, a.ExpiresAt, wantDays[i])
		}
		if a.Amount.Value() != int64(wantDays[i]) {
			t.Errorf("alerts[%d].Amount = %v, want %dpt", i, a.Amount, wantDays[i])
		}
		if a.CreatedAt != testNow {
			t.Errorf("alerts[%d].CreatedAt = %v, want %v", i, a.CreatedAt, testNow)
		}
		if a.ID == "" {
			t.Errorf("alerts[%d] has empty ID", i)
		}
	}
	if alerts[0].Urgency != UrgencyWarning || alerts[2].Urgency != UrgencyInfo {
		t.Errorf("urgencies = %q, %q; want warning, info", alerts[0].Urgency, alerts[2].Urgency)
	}
}

func TestGenerateAlerts_StableForEqualExpiry(t *testing.T) {
	l := newTestLedger()
	exp := testNow.Add(2 * day)
	l.Add(MustAmount(1), exp)
	l.Add(MustAmount(2), exp)
	l.Add(MustAmount(3), exp)

	alerts := GenerateAlerts(l, 30*day, testNow)
	for i, a := range alerts {
		if a.Amount.Value() != int64(i+1) {
			t.Errorf("alerts[%d].Amount = %v, want %dpt", i, a.Amount, i+1)
		}
	}
}

func TestGenerateAlerts_SkipsSpentAndExpired(t *testing.T) {
	l := newTestLedger()
	l.Add(MustAmount(10), testNow.Add(-day))
	l.Add(MustAmount(10), testNow.Add(day))
	l.Add(MustAmount(10), testNow.Add(2*day))
	if err := l.Use(MustAmount(10), testNow); err != nil {
		t.Fatal(err)
	}

	alerts := GenerateAlerts(l, 30*day, testNow)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if !alerts[0].ExpiresAt.Equal(testNow.Add(2 * day)) {
		t.Errorf("remaining alert expires %v, want +2d", alerts[0].ExpiresAt)
	}
}

func TestAlert_RemainingText(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Minute, "expired"},
		{5*time.Hour + 30*time.Minute, "5h"},
		{day, "1d"},
		{3*day + 5*time.Hour, "3d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			a := Alert{ExpiresAt: testNow.Add(tt.in)}
			if got := a.RemainingText(testNow); got != tt.want {
				t.Errorf("RemainingText(+%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlert_UrgencyAtChangesOverTime(t *testing.T) {
	a := Alert{ExpiresAt: testNow.Add(3 * day)}
	if got := a.UrgencyAt(testNow); got != UrgencyWarning {
		t.Errorf("UrgencyAt(now) = %q, want warning", got)
	}
	if got := a.UrgencyAt(testNow.Add(2*day + time.Hour)); got != UrgencyUrgent {
		t.Errorf("UrgencyAt(+2d1h) = %q, want urgent", got)
	}
	if _, ok := a.RemainingTime(testNow.Add(4 * day)); ok {
		t.Error("RemainingTime after expiry should report ok=false")
	}
}
