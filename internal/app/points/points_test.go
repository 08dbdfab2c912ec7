package points

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/infra/sqlite"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// clock is a settable test clock.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *clock, *recorder) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := &clock{t: testNow}
	rec := &recorder{}
	svc := New(db, DefaultConfig(), nil)
	svc.SetClock(clk.Now)
	svc.SetPublisher(rec)
	return svc, clk, rec
}

func earn(t *testing.T, svc *Service, account string, points int64, expiresIn time.Duration) {
	t.Helper()
	_, err := svc.Earn(context.Background(), account, EarnRequest{
		Amount:    domain.MustAmount(points),
		Reason:    domain.ReasonSurveyCompleted,
		ExpiresIn: expiresIn,
	})
	if err != nil {
		t.Fatalf("Earn(%d) error: %v", points, err)
	}
}

// ─── Earn ───────────────────────────────────────────────────────────────────

func TestEarn_CreditsAndPublishes(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Earn(ctx, "alice", EarnRequest{
		Amount: domain.MustAmount(120),
		Reason: domain.ReasonCampaignBonus,
		Ref:    "summer",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Type != domain.TxEarn || tx.Ref != "summer" {
		t.Errorf("transaction = %+v", tx)
	}
	if want := testNow.Add(DefaultConfig().DefaultExpiry); !tx.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want default expiry %v", tx.ExpiresAt, want)
	}

	bal, err := svc.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bal.Available.Value() != 120 || bal.Currency.String() != "12" {
		t.Errorf("balance = %+v", bal)
	}
	if got := rec.types(); len(got) != 1 || got[0] != EventEarned {
		t.Errorf("events = %v, want [earned]", got)
	}
}

func TestEarn_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		account string
		req     EarnRequest
		want    error
	}{
		{"empty account", "", EarnRequest{Amount: domain.MustAmount(1), Reason: domain.ReasonDailyLogin}, domain.ErrInvalidAccount},
		{"zero amount", "alice", EarnRequest{Reason: domain.ReasonDailyLogin}, domain.ErrZeroAmount},
		{"spend reason", "alice", EarnRequest{Amount: domain.MustAmount(1), Reason: domain.ReasonExchanged}, domain.ErrInvalidReason},
		{"unknown reason", "alice", EarnRequest{Amount: domain.MustAmount(1), Reason: "GIFT"}, domain.ErrInvalidReason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Earn(ctx, tt.account, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Earn() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEarn_RejectsTotalPastMaxAmount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", domain.MaxAmount-10, day)

	_, err := svc.Earn(ctx, "alice", EarnRequest{Amount: domain.MustAmount(11), Reason: domain.ReasonCampaignBonus})
	if !errors.Is(err, domain.ErrAmountTooLarge) {
		t.Fatalf("Earn() past the cap error = %v, want ErrAmountTooLarge", err)
	}
	earn(t, svc, "alice", 10, day)

	bal, err := svc.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bal.Available.Value() != domain.MaxAmount {
		t.Errorf("available = %d, want %d", bal.Available.Value(), domain.MaxAmount)
	}
	if _, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(5)}); err != nil {
		t.Errorf("Spend(5) at the cap: %v", err)
	}
}

// ─── Spend ──────────────────────────────────────────────────────────────────

func TestSpend_ConsumesSoonestExpiringFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 100, 30*day)
	earn(t, svc, "alice", 200, 3*day)

	if _, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(250)}); err != nil {
		t.Fatalf("Spend() error: %v", err)
	}

	bal, _ := svc.Balance(ctx, "alice")
	if bal.Available.Value() != 50 {
		t.Errorf("available = %s, want 50pt", bal.Available)
	}
	// Only the 30-day entry is left, so nothing expires in the next week.
	alerts, _ := svc.Alerts(ctx, "alice", 7*day)
	if len(alerts) != 0 {
		t.Errorf("alerts within 7d = %d, want 0", len(alerts))
	}
}

func TestSpend_InsufficientLeavesLedgerUntouched(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 100, day)

	_, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(101)})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("Spend() error = %v, want ErrInsufficientBalance", err)
	}

	bal, _ := svc.Balance(ctx, "alice")
	if bal.Available.Value() != 100 {
		t.Errorf("available = %s, want 100pt", bal.Available)
	}
	txs, _ := svc.Transactions(ctx, "alice", 0)
	if len(txs) != 1 {
		t.Errorf("transactions = %d, want 1", len(txs))
	}
	if got := rec.types(); len(got) != 1 {
		t.Errorf("events = %v, want only the earn", got)
	}
}

func TestSpend_IgnoresExpiredPoints(t *testing.T) {
	svc, clk, _ := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 100, day)
	clk.Advance(day)

	_, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(1)})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("Spend() error = %v, want ErrInsufficientBalance", err)
	}
}

func TestSpend_RejectsEarnReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	earn(t, svc, "alice", 10, day)
	_, err := svc.Spend(context.Background(), "alice", SpendRequest{
		Amount: domain.MustAmount(1),
		Reason: domain.ReasonStreakBonus,
	})
	if !errors.Is(err, domain.ErrInvalidReason) {
		t.Errorf("Spend() error = %v, want ErrInvalidReason", err)
	}
}

func TestSpend_ConcurrentRequestsNeverOverdraw(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 100, day)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(10)}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("successful spends = %d, want 10", ok)
	}
	bal, _ := svc.Balance(ctx, "alice")
	if !bal.Available.IsZero() {
		t.Errorf("available = %s, want 0pt", bal.Available)
	}
}

// conflictingStore fails the first n ApplySpend calls with ErrLedgerConflict.
type conflictingStore struct {
	domain.PointStore
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (c *conflictingStore) ApplySpend(ctx context.Context, account string, allocs []domain.Allocation, tx domain.Transaction) error {
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.conflicts
	c.mu.Unlock()
	if fail {
		return domain.ErrLedgerConflict
	}
	return c.PointStore.ApplySpend(ctx, account, allocs, tx)
}

func TestSpend_RetriesAfterLedgerConflict(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		want      error
		wantCalls int
	}{
		{"one conflict then success", 1, nil, 2},
		{"persistent conflict", 10, domain.ErrLedgerConflict, maxSpendAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := sqlite.Open(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { db.Close() })
			store := &conflictingStore{PointStore: db, conflicts: tt.conflicts}
			svc := New(store, DefaultConfig(), nil)
			svc.SetClock(func() time.Time { return testNow })
			earn(t, svc, "alice", 100, day)

			_, err = svc.Spend(context.Background(), "alice", SpendRequest{Amount: domain.MustAmount(30)})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Spend() error = %v, want %v", err, tt.want)
			}
			if store.calls != tt.wantCalls {
				t.Errorf("ApplySpend calls = %d, want %d", store.calls, tt.wantCalls)
			}
		})
	}
}

func TestSpend_SeparateProcessesNeverOverdraw(t *testing.T) {
	dir := t.TempDir()
	open := func() *Service {
		db, err := sqlite.Open(dir)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { db.Close() })
		svc := New(db, DefaultConfig(), nil)
		svc.SetClock(func() time.Time { return testNow })
		return svc
	}
	daemonSvc, cliSvc := open(), open()
	ctx := context.Background()
	earn(t, daemonSvc, "alice", 100, day)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, svc := range []*Service{daemonSvc, cliSvc} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(80)})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrInsufficientBalance):
			t.Errorf("unexpected spend error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful spends = %d, want exactly 1", succeeded)
	}
	bal, err := cliSvc.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bal.Available.Value() != 20 {
		t.Errorf("available = %s, want 20pt", bal.Available)
	}
}

// ─── Alerts ─────────────────────────────────────────────────────────────────

func TestAlerts_SortedWithDefaultWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	earn(t, svc, "alice", 10, 10*day)
	earn(t, svc, "alice", 20, 3*day)
	earn(t, svc, "alice", 30, 7*day)
	earn(t, svc, "alice", 40, 60*day)

	alerts, err := svc.Alerts(context.Background(), "alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []int64
	for _, a := range alerts {
		got = append(got, a.Amount.Value())
	}
	want := []int64{20, 30, 10}
	if len(got) != len(want) {
		t.Fatalf("alerts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("alerts = %v, want %v", got, want)
			break
		}
	}
	if alerts[0].Urgency != domain.UrgencyWarning {
		t.Errorf("3-day urgency = %s, want warning", alerts[0].Urgency)
	}
}

// ─── Purge ──────────────────────────────────────────────────────────────────

func TestPurge_RecordsExpiry(t *testing.T) {
	svc, clk, rec := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 30, day)
	earn(t, svc, "alice", 50, 10*day)
	clk.Advance(2 * day)

	forfeited, err := svc.Purge(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if forfeited.Value() != 30 {
		t.Errorf("forfeited = %s, want 30pt", forfeited)
	}

	again, err := svc.Purge(ctx, "alice")
	if err != nil || !again.IsZero() {
		t.Errorf("second Purge() = (%s, %v), want (0pt, nil)", again, err)
	}

	bal, _ := svc.Balance(ctx, "alice")
	if bal.Total.Value() != 50 {
		t.Errorf("total after purge = %s, want 50pt", bal.Total)
	}
	txs, _ := svc.Transactions(ctx, "alice", 1)
	if len(txs) != 1 || txs[0].Type != domain.TxExpire || txs[0].Amount.Value() != 30 {
		t.Errorf("latest transaction = %+v, want EXPIRE 30pt", txs)
	}
	types := rec.types()
	if types[len(types)-1] != EventExpired {
		t.Errorf("last event = %s, want expired", types[len(types)-1])
	}
}

func TestPurge_FullyConsumedEntryLeavesNoTransaction(t *testing.T) {
	svc, clk, _ := newTestService(t)
	ctx := context.Background()
	earn(t, svc, "alice", 10, day)
	if _, err := svc.Spend(ctx, "alice", SpendRequest{Amount: domain.MustAmount(10)}); err != nil {
		t.Fatal(err)
	}
	clk.Advance(2 * day)

	forfeited, err := svc.Purge(ctx, "alice")
	if err != nil || !forfeited.IsZero() {
		t.Fatalf("Purge() = (%s, %v)", forfeited, err)
	}
	txs, _ := svc.Transactions(ctx, "alice", 0)
	for _, tx := range txs {
		if tx.Type == domain.TxExpire {
			t.Error("zero-amount expiry should not be recorded")
		}
	}
}

func TestPurgeAll(t *testing.T) {
	svc, clk, _ := newTestService(t)
	earn(t, svc, "alice", 10, day)
	earn(t, svc, "bob", 20, day)
	earn(t, svc, "carol", 40, 10*day)
	clk.Advance(2 * day)

	total, err := svc.PurgeAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if total.Value() != 30 {
		t.Errorf("PurgeAll() = %s, want 30pt", total)
	}
}

func TestKeyedMutex_SeparateKeys(t *testing.T) {
	var k KeyedMutex
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked while a was held")
	}
	unlockA()
}
