// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the service.
type Config struct {
	Addr    string `env:"ADDR"     envDefault:":8080"`
	DataDir string `env:"DATA_DIR" envDefault:"~/.handcricket"`
	WebDir  string `env:"WEB_DIR"`

	CameraID        int     `env:"CAMERA_ID"        envDefault:"0"`
	ProcessFPS      int     `env:"PROCESS_FPS"      envDefault:"15"`
	IdleFPS         int     `env:"IDLE_FPS"         envDefault:"5"`
	MotionThreshold float64 `env:"MOTION_THRESHOLD" envDefault:"1.0"`

	HistorySize         int           `env:"HISTORY_SIZE"         envDefault:"5"`
	ConfidenceThreshold int           `env:"CONFIDENCE_THRESHOLD" envDefault:"3"`
	GestureCooldown     time.Duration `env:"GESTURE_COOLDOWN"     envDefault:"1s"`
	NoHandReset         time.Duration `env:"NO_HAND_RESET"        envDefault:"1500ms"`
	CalibrationPeriod   time.Duration `env:"CALIBRATION_PERIOD"   envDefault:"1s"`

	WatchdogInterval time.Duration `env:"WATCHDOG_INTERVAL" envDefault:"10s"`
	MaxAutoRestarts  int           `env:"MAX_AUTO_RESTARTS" envDefault:"2"`
	RestartCooldown  time.Duration `env:"RESTART_COOLDOWN"  envDefault:"15s"`

	DisplayHold time.Duration `env:"DISPLAY_HOLD" envDefault:"1500ms"`

	StrategyURL     string        `env:"STRATEGY_URL"`
	StrategyAPIKey  string        `env:"STRATEGY_API_KEY"`
	StrategyTimeout time.Duration `env:"STRATEGY_TIMEOUT" envDefault:"3s"`
	StrategyPlugin  string        `env:"STRATEGY_PLUGIN"`
	PluginDir       string        `env:"PLUGIN_DIR"       envDefault:"~/.handcricket/plugins"`
	FallbackDelay   time.Duration `env:"FALLBACK_DELAY"   envDefault:"300ms"`
	Seed            int64         `env:"SEED"             envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Tray     bool   `env:"TRAY"      envDefault:"false"`
}

// Prefix is prepended to every environment variable name.
const Prefix = "HANDCRICKET_"

// Load parses the environment, expands home-relative paths and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	var err error
	if cfg.DataDir, err = expandHome(cfg.DataDir); err != nil {
		return Config{}, err
	}
	if cfg.PluginDir, err = expandHome(cfg.PluginDir); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.ProcessFPS <= 0:
		return errors.New("config: PROCESS_FPS must be positive")
	case c.IdleFPS <= 0:
		return errors.New("config: IDLE_FPS must be positive")
	case c.HistorySize < 1:
		return errors.New("config: HISTORY_SIZE must be at least 1")
	case c.ConfidenceThreshold < 1:
		return errors.New("config: CONFIDENCE_THRESHOLD must be at least 1")
	case c.MaxAutoRestarts < 0:
		return errors.New("config: MAX_AUTO_RESTARTS must not be negative")
	case c.WatchdogInterval <= 0:
		return errors.New("config: WATCHDOG_INTERVAL must be positive")
	}
	return nil
}

// DBPath returns the sqlite file location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "handcricket.db")
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
