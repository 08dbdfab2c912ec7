// Package sweeper periodically purges expired points from every account.
//
// Reads already ignore expired entries, so the sweeper only affects storage
// size and the EXPIRE history; a skipped sweep never changes a balance.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/infra/observability"
)

// Purger removes expired entries across all accounts.
type Purger interface {
	PurgeAll(ctx context.Context) (domain.Amount, error)
}

// Config controls the sweep schedule.
type Config struct {
	Interval time.Duration // time between sweeps (default: 1h)
	OnStart  bool          // sweep once immediately when Run starts
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		OnStart:  true,
	}
}

// Stats summarizes sweeper activity.
type Stats struct {
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	Forfeited domain.Amount `json:"forfeited"`
	LastRun   time.Time     `json:"last_run,omitempty"`
}

// Sweeper runs purges on a ticker.
type Sweeper struct {
	purger Purger
	config Config
	log    *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a sweeper. A nil logger disables logging.
func New(p Purger, cfg Config, logger *zap.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{purger: p, config: cfg, log: logger.Named("sweeper")}
}

// Run sweeps every Interval. Blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweeper started", zap.Duration("interval", s.config.Interval))
	if s.config.OnStart {
		s.Sweep(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep purges once and returns the forfeited points.
func (s *Sweeper) Sweep(ctx context.Context) domain.Amount {
	start := time.Now()
	forfeited, err := s.purger.PurgeAll(ctx)
	elapsed := time.Since(start)
	observability.SweeperDuration.Observe(elapsed.Seconds())

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRun = start
	s.stats.Forfeited = s.stats.Forfeited.Add(forfeited)
	if err != nil {
		s.stats.Failures++
	}
	s.mu.Unlock()

	if err != nil {
		observability.SweeperRuns.WithLabelValues("error").Inc()
		s.log.Warn("sweep failed", zap.Error(err), zap.Int64("forfeited", forfeited.Value()))
		return forfeited
	}
	observability.SweeperRuns.WithLabelValues("ok").Inc()
	if !forfeited.IsZero() {
		s.log.Info("sweep finished",
			zap.Int64("forfeited", forfeited.Value()),
			zap.Duration("elapsed", elapsed))
	}
	return forfeited
}

// Stats returns a snapshot of sweeper activity.
func (s *Sweeper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
