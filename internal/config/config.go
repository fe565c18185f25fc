// Package config loads tacticsd settings from YAML and TACTICS_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
)

// Controller names accepted by SimulationConfig.Controller.
const (
	ControllerScripted = "scripted"
	ControllerSkirmish = "skirmish"
)

// Replay store names accepted by ReplayConfig.Store.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config is the full tacticsd configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Replay     ReplayConfig     `mapstructure:"replay"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Spectator  SpectatorConfig  `mapstructure:"spectator"`
	// Scenario defaults to the reference duel when the file has none.
	Scenario game.Scenario `mapstructure:"scenario"`
	// Script drives the scripted controller; ticks are 1-based.
	Script []game.CommandRecord `mapstructure:"script"`
}

// SimulationConfig controls how the match is driven.
type SimulationConfig struct {
	MaxTicks   int           `mapstructure:"max_ticks"`
	Controller string        `mapstructure:"controller"`
	MoveBudget int           `mapstructure:"move_budget"`
	TickDelay  time.Duration `mapstructure:"tick_delay"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Store       string        `mapstructure:"store"`
	Directory   string        `mapstructure:"directory"`
	DatabaseURL string        `mapstructure:"database_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// SpectatorConfig controls the websocket spectator feed.
type SpectatorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	SendBuffer int    `mapstructure:"send_buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.max_ticks", 200)
	v.SetDefault("simulation.controller", ControllerScripted)
	v.SetDefault("simulation.move_budget", 3)
	v.SetDefault("simulation.tick_delay", time.Duration(0))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.store", StoreFile)
	v.SetDefault("replay.directory", "replays")
	v.SetDefault("replay.database_url", "")
	v.SetDefault("replay.timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")

	v.SetDefault("spectator.enabled", false)
	v.SetDefault("spectator.address", ":8080")
	v.SetDefault("spectator.send_buffer", 64)
}

// Load reads path (if non-empty), applies defaults and environment overrides
// and validates the result. Without a scenario in the file the reference
// duel and its script are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TACTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !v.IsSet("scenario") {
		cfg.Scenario = game.DuelScenario()
		if !v.IsSet("script") {
			cfg.Script = duelScript()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func duelScript() []game.CommandRecord {
	cmds := game.DuelScript()
	out := make([]game.CommandRecord, 0, len(cmds))
	for i, cmd := range cmds {
		rec, err := game.RecordCommand(i+1, cmd)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Simulation.MaxTicks <= 0 {
		errs = append(errs, fmt.Errorf("simulation.max_ticks must be positive, got %d", c.Simulation.MaxTicks))
	}
	switch c.Simulation.Controller {
	case ControllerScripted:
	case ControllerSkirmish:
		if c.Simulation.MoveBudget <= 0 {
			errs = append(errs, fmt.Errorf("simulation.move_budget must be positive, got %d", c.Simulation.MoveBudget))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown simulation.controller %q", c.Simulation.Controller))
	}
	if c.Simulation.TickDelay < 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_delay must not be negative"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	if c.Replay.Enabled {
		switch c.Replay.Store {
		case StoreFile:
			if c.Replay.Directory == "" {
				errs = append(errs, errors.New("replay.directory is required for the file store"))
			}
		case StorePostgres:
			if c.Replay.DatabaseURL == "" {
				errs = append(errs, errors.New("replay.database_url is required for the postgres store"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown replay.store %q", c.Replay.Store))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	if c.Spectator.Enabled {
		if c.Spectator.Address == "" {
			errs = append(errs, errors.New("spectator.address is required when the spectator feed is enabled"))
		}
		if c.Spectator.SendBuffer <= 0 {
			errs = append(errs, fmt.Errorf("spectator.send_buffer must be positive, got %d", c.Spectator.SendBuffer))
		}
	}

	for i, rec := range c.Script {
		if _, err := rec.Command(); err != nil {
			errs = append(errs, fmt.Errorf("script[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
