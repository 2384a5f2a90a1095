// Package config loads the server configuration with viper: a YAML file,
// ARENA_* environment overrides and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/magefree/arena-server-go/internal/game/engine"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

// EnvPrefix prefixes every environment override, e.g. ARENA_DATABASE_DRIVER.
const EnvPrefix = "ARENA"

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Game      GameConfig      `mapstructure:"game"`
}

type ServerConfig struct {
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// GRPCConfig configures the gRPC listener that serves health checks.
type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Path     string `mapstructure:"path"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SchedulerConfig controls expiry. Timeouts are keyed by worker type and
// override DefaultTimeout.
type SchedulerConfig struct {
	TickInterval   time.Duration            `mapstructure:"tick_interval"`
	DefaultTimeout time.Duration            `mapstructure:"default_timeout"`
	Timeouts       map[string]time.Duration `mapstructure:"timeouts"`
}

type GameConfig struct {
	// CatalogPath points at a YAML catalog. Empty uses the built-in one.
	CatalogPath string `mapstructure:"catalog_path"`
	// ReplayDir stores finished game replays. Empty disables recording.
	ReplayDir       string `mapstructure:"replay_dir"`
	SlayerThreshold int    `mapstructure:"slayer_threshold"`
	Lookback        int    `mapstructure:"lookback"`
	TutorialSteps   int    `mapstructure:"tutorial_steps"`
	GrowCap         int    `mapstructure:"grow_cap"`
	FatigueDamage   int    `mapstructure:"fatigue_damage"`
	WinLoot         int    `mapstructure:"win_loot"`
	LoseLoot        int    `mapstructure:"lose_loot"`
	LootPerKill     int    `mapstructure:"loot_per_kill"`
}

func setDefaults(v *viper.Viper) {
	eng := engine.DefaultConfig()

	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.path", "arena.db")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("scheduler.tick_interval", time.Second)
	v.SetDefault("scheduler.default_timeout", eng.Workers.DefaultTimeout)

	v.SetDefault("game.catalog_path", "")
	v.SetDefault("game.replay_dir", "")
	v.SetDefault("game.slayer_threshold", eng.SlayerThreshold)
	v.SetDefault("game.lookback", eng.Workers.Lookback)
	v.SetDefault("game.tutorial_steps", eng.Workers.TutorialSteps)
	v.SetDefault("game.grow_cap", eng.Rules.GrowCap)
	v.SetDefault("game.fatigue_damage", eng.Rules.FatigueDamage)
	v.SetDefault("game.win_loot", eng.Rules.WinLoot)
	v.SetDefault("game.lose_loot", eng.Rules.LoseLoot)
	v.SetDefault("game.loot_per_kill", eng.Rules.LootPerKill)
}

// Load reads path if it exists and applies environment overrides on top.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Scheduler.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be positive")
	}
	if c.Scheduler.DefaultTimeout <= 0 {
		return errors.New("scheduler.default_timeout must be positive")
	}
	for typ, d := range c.Scheduler.Timeouts {
		if d <= 0 {
			return fmt.Errorf("scheduler.timeouts.%s must be positive", typ)
		}
	}
	if c.Game.SlayerThreshold < 1 {
		return errors.New("game.slayer_threshold must be at least 1")
	}
	if c.Game.Lookback < 1 {
		return errors.New("game.lookback must be at least 1")
	}
	return nil
}

// Engine converts the game sections into engine settings.
func (c *Config) Engine() engine.Config {
	timeouts := make(map[string]time.Duration, len(c.Scheduler.Timeouts))
	for typ, d := range c.Scheduler.Timeouts {
		timeouts[typ] = d
	}
	return engine.Config{
		Workers: workers.Config{
			DefaultTimeout: c.Scheduler.DefaultTimeout,
			Timeouts:       timeouts,
			Lookback:       c.Game.Lookback,
			TutorialSteps:  c.Game.TutorialSteps,
		},
		Rules: rules.Config{
			GrowCap:       c.Game.GrowCap,
			FatigueDamage: c.Game.FatigueDamage,
			WinLoot:       c.Game.WinLoot,
			LoseLoot:      c.Game.LoseLoot,
			LootPerKill:   c.Game.LootPerKill,
		},
		SlayerThreshold: c.Game.SlayerThreshold,
	}
}
