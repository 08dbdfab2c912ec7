// Package daemon wires the pointledger services together and runs them:
// the SQLite store, the points and engagement services, the survey catalog,
// the HTTP API with its live event feed, and the expiry sweeper.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tutu-network/pointledger/internal/api"
	"github.com/tutu-network/pointledger/internal/app/engagement"
	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/app/sweeper"
	"github.com/tutu-network/pointledger/internal/cleanup"
	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/infra/catalog"
	"github.com/tutu-network/pointledger/internal/infra/sqlite"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// Daemon owns every long-lived resource of a pointledger process.
type Daemon struct {
	Config     Config
	Home       string
	DB         *sqlite.DB
	Points     *points.Service
	Engagement *engagement.Service
	Catalog    *catalog.Catalog
	Events     *api.EventsHub
	Sweeper    *sweeper.Sweeper

	version string
	log     *zap.Logger
	cleanup *cleanup.Stack
}

// New opens the store under home and builds the services. Close releases
// everything New acquired.
func New(home string, cfg Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stack := cleanup.New()
	defer stack.Close() // no-op once ownership moves to the daemon

	db, err := sqlite.Open(home)
	if err != nil {
		return nil, err
	}
	if _, err := cleanup.Use(stack, db); err != nil {
		db.Close()
		return nil, err
	}

	pts := points.New(db, cfg.PointsConfig(), logger)
	surveys, err := loadSurveys(home, cfg.Surveys, pts.Now())
	if err != nil {
		return nil, err
	}
	cat := catalog.New(surveys...)

	hub := api.NewEventsHub()
	if err := stack.DeferFunc(hub.Close); err != nil {
		return nil, err
	}
	pts.SetPublisher(hub)

	owned, err := stack.Move()
	if err != nil {
		return nil, err
	}
	return &Daemon{
		Config:     cfg,
		Home:       home,
		DB:         db,
		Points:     pts,
		Engagement: engagement.New(db, cat, pts, cfg.EngagementConfig(), logger),
		Catalog:    cat,
		Events:     hub,
		Sweeper:    sweeper.New(pts, cfg.SweeperConfig(), logger),
		version:    "dev",
		log:        logger,
		cleanup:    owned,
	}, nil
}

// SetVersion sets the version reported by /api/version.
func (d *Daemon) SetVersion(v string) { d.version = v }

// Handler builds the HTTP API.
func (d *Daemon) Handler() http.Handler {
	srv := api.NewServer(d.Points, d.Engagement, d.log)
	srv.SetEventsHub(d.Events)
	srv.SetHealthCheck(d.DB)
	srv.SetVersion(d.version)
	if d.Config.API.Metrics {
		srv.EnableMetrics()
	}
	return srv.Handler()
}

// Run listens on the configured address and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.Config.Addr(), err)
	}
	return d.Serve(ctx, ln)
}

// Serve runs the HTTP API on ln and the expiry sweeper until ctx is
// cancelled or either fails, then shuts the server down gracefully.
// Open event streams are disconnected so shutdown does not hang on them.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(d.Events.Close)

	d.log.Info("pointledger listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("home", d.Home),
		zap.Int("surveys", d.Catalog.Len()),
		zap.Duration("purge_interval", d.Config.SweeperConfig().Interval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return d.Sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		d.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the store and disconnects event subscribers.
func (d *Daemon) Close() error {
	return d.cleanup.Close()
}

// loadSurveys reads the configured catalog file, relative to home unless
// absolute, or falls back to the sample surveys.
func loadSurveys(home string, c SurveysConfig, now time.Time) ([]domain.Survey, error) {
	if c.File == "" {
		return catalog.Sample(now), nil
	}
	path := c.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(home, path)
	}
	surveys, err := catalog.LoadFile(path, now)
	if err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}
	return surveys, nil
}
