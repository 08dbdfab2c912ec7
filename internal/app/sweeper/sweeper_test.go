package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tutu-network/pointledger/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePurger struct {
	calls  atomic.Int64
	amount int64
	err    error
}

func (f *fakePurger) PurgeAll(context.Context) (domain.Amount, error) {
	f.calls.Add(1)
	return domain.MustAmount(f.amount), f.err
}

func TestSweep_AccumulatesStats(t *testing.T) {
	p := &fakePurger{amount: 15}
	s := New(p, DefaultConfig(), nil)

	if got := s.Sweep(context.Background()); got.Value() != 15 {
		t.Errorf("Sweep() = %s, want 15pt", got)
	}
	s.Sweep(context.Background())

	st := s.Stats()
	if st.Runs != 2 || st.Failures != 0 || st.Forfeited.Value() != 30 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.LastRun.IsZero() {
		t.Error("LastRun not set")
	}
}

func TestSweep_CountsFailures(t *testing.T) {
	p := &fakePurger{amount: 5, err: errors.New("disk full")}
	s := New(p, DefaultConfig(), nil)
	s.Sweep(context.Background())

	st := s.Stats()
	if st.Failures != 1 || st.Forfeited.Value() != 5 {
		t.Errorf("Stats() = %+v, want 1 failure with partial 5pt", st)
	}
}

func TestRun_SweepsOnStartAndStops(t *testing.T) {
	p := &fakePurger{}
	s := New(p, Config{Interval: time.Hour, OnStart: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no sweep on start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_Ticks(t *testing.T) {
	p := &fakePurger{}
	s := New(p, Config{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps after 2s", p.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestNew_DefaultsInterval(t *testing.T) {
	s := New(&fakePurger{}, Config{}, nil)
	if s.config.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", s.config.Interval)
	}
}
