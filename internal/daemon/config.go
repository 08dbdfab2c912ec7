package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/tutu-network/pointledger/internal/app/engagement"
	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/app/sweeper"
	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/timeutil"
)

// EnvPrefix namespaces every environment override (POINTLEDGER_API_PORT, ...).
const EnvPrefix = "POINTLEDGER_"

// Config is the pointledger configuration, loaded from
// $POINTLEDGER_HOME/config.toml and then overridden from the environment.
type Config struct {
	API     APIConfig     `toml:"api" envPrefix:"API_"`
	Points  PointsConfig  `toml:"points" envPrefix:"POINTS_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
	Surveys SurveysConfig `toml:"surveys" envPrefix:"SURVEYS_"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Host    string `toml:"host" env:"HOST"`
	Port    int    `toml:"port" env:"PORT"`
	Metrics bool   `toml:"metrics" env:"METRICS"`
}

// PointsConfig controls point lifetimes and rewards. Durations accept Go
// syntax plus a "d" day suffix ("180d", "36h").
type PointsConfig struct {
	DefaultExpiry string `toml:"default_expiry" env:"DEFAULT_EXPIRY"`
	AlertWindow   string `toml:"alert_window" env:"ALERT_WINDOW"`
	PurgeInterval string `toml:"purge_interval" env:"PURGE_INTERVAL"`
	LoginBonus    int64  `toml:"login_bonus" env:"LOGIN_BONUS"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"FORMAT"` // json or text
}

// SurveysConfig points at an optional TOML survey catalog. Sample surveys
// are served when File is empty.
type SurveysConfig struct {
	File string `toml:"file" env:"FILE"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Points: PointsConfig{
			DefaultExpiry: "180d",
			AlertWindow:   "30d",
			PurgeInterval: "1h",
			LoginBonus:    1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Home returns the data directory: $POINTLEDGER_HOME or ~/.pointledger.
func Home() string {
	if h := os.Getenv(EnvPrefix + "HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pointledger"
	}
	return filepath.Join(home, ".pointledger")
}

// LoadConfig reads home/config.toml over the defaults and applies
// environment overrides. A missing file is not an error.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(home, "config.toml")
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that every field parses.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	for name, v := range map[string]string{
		"points.default_expiry": c.Points.DefaultExpiry,
		"points.alert_window":   c.Points.AlertWindow,
		"points.purge_interval": c.Points.PurgeInterval,
	} {
		if _, err := timeutil.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := domain.NewAmount(c.Points.LoginBonus); err != nil {
		return fmt.Errorf("points.login_bonus: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format %q: want json or text", c.Log.Format)
	}
	return nil
}

// Addr is the host:port the API listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// PointsConfig converts the [points] section for the points service.
func (c Config) PointsConfig() points.Config {
	def := points.DefaultConfig()
	return points.Config{
		DefaultExpiry: durationOr(c.Points.DefaultExpiry, def.DefaultExpiry),
		AlertWindow:   durationOr(c.Points.AlertWindow, def.AlertWindow),
	}
}

// EngagementConfig converts the [points] login bonus for the engagement service.
func (c Config) EngagementConfig() engagement.Config {
	cfg := engagement.DefaultConfig()
	if bonus, err := domain.NewAmount(c.Points.LoginBonus); err == nil {
		cfg.LoginBonus = bonus
	}
	return cfg
}

// SweeperConfig converts the purge interval for the expiry sweeper.
func (c Config) SweeperConfig() sweeper.Config {
	cfg := sweeper.DefaultConfig()
	cfg.Interval = durationOr(c.Points.PurgeInterval, cfg.Interval)
	return cfg
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := timeutil.ParseDuration(s)
	if err != nil || d == 0 {
		return fallback
	}
	return d
}
