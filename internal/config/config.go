package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	General    GeneralConfig    `toml:"general"`
	Estimation EstimationConfig `toml:"estimation"`
	Opponent   OpponentConfig   `toml:"opponent"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	Record   bool   `toml:"record"`
}

type EstimationConfig struct {
	Solver        string  `toml:"solver"`
	MaxIterations int     `toml:"max_iterations"`
	Tolerance     float64 `toml:"tolerance"`
}

type OpponentConfig struct {
	HardheadedWindow int `toml:"hardheaded_window"`
}

// Load reads a TOML file over the defaults. When allowMissing is set a
// missing file yields the defaults.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Estimation.Solver {
	case "gonum", "tableau":
	default:
		return fmt.Errorf("estimation.solver must be gonum or tableau, got %q", c.Estimation.Solver)
	}
	if c.Estimation.MaxIterations <= 0 {
		return fmt.Errorf("estimation.max_iterations must be positive, got %d", c.Estimation.MaxIterations)
	}
	if c.Estimation.Tolerance <= 0 {
		return fmt.Errorf("estimation.tolerance must be positive, got %g", c.Estimation.Tolerance)
	}
	if c.Opponent.HardheadedWindow < 1 {
		return fmt.Errorf("opponent.hardheaded_window must be at least 1, got %d", c.Opponent.HardheadedWindow)
	}
	if _, err := ParseLevel(c.General.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/parley.db",
			LogLevel: "info",
			Record:   true,
		},
		Estimation: EstimationConfig{
			Solver:        "gonum",
			MaxIterations: 100000,
			Tolerance:     1e-9,
		},
		Opponent: OpponentConfig{
			HardheadedWindow: 5,
		},
	}
}
