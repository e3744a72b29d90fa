package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/chrispappas/golang-generics-set/set"
	"github.com/joho/godotenv"
	"github.com/minor-industries/ermc/database"
	"github.com/minor-industries/ermc/engine"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type ServerConfig struct {
	Address string `toml:"address"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	// FlushMs is how often pending snapshots are written.
	FlushMs int `toml:"flush_ms"`
}

type SourceConfig struct {
	Voltage float64 `toml:"voltage"`
	Current float64 `toml:"current"`
}

type EngineConfig struct {
	ZeroRadius string `toml:"zero_radius"`
	Rehydrate  bool   `toml:"rehydrate"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Source  SourceConfig  `toml:"source"`
	Engine  EngineConfig  `toml:"engine"`
	Log     LogConfig     `toml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "0.0.0.0:8000",
		},
		Storage: StorageConfig{
			Backend: database.BackendSqlite,
			Path:    "ermc.db",
			FlushMs: 100,
		},
		Source: SourceConfig{
			Voltage: 5.0,
			Current: 0.02,
		},
		Engine: EngineConfig{
			ZeroRadius: "propagate",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file '%s'", path)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse toml")
		}
	}

	return cfg, nil
}

// LoadEnv loads .env if present, reads the file named by ERMC_CONFIG (or
// fallback) and applies ERMC_* overrides.
func LoadEnv(fallback string) (*Config, error) {
	_ = godotenv.Load()

	path := fallback
	if p := os.Getenv("ERMC_CONFIG"); p != "" {
		path = p
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, errors.Wrap(err, "apply environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ERMC_ADDRESS"); ok {
		c.Server.Address = v
	}
	if v, ok := lookup("ERMC_STORAGE_BACKEND"); ok {
		c.Storage.Backend = v
	}
	if v, ok := lookup("ERMC_STORAGE_PATH"); ok {
		c.Storage.Path = v
	}
	if v, ok := lookup("ERMC_ZERO_RADIUS"); ok {
		c.Engine.ZeroRadius = v
	}
	if v, ok := lookup("ERMC_REHYDRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "ERMC_REHYDRATE")
		}
		c.Engine.Rehydrate = b
	}
	if v, ok := lookup("ERMC_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

var logLevels = set.FromSlice([]string{"trace", "debug", "info", "warn", "error", "critical", "off"})

func (c *Config) Validate() error {
	if !set.FromSlice(database.Backends).Has(c.Storage.Backend) {
		return errors.Errorf("unknown storage backend %q (want one of %s)",
			c.Storage.Backend, strings.Join(database.Backends, ", "))
	}
	if c.Storage.Backend != database.BackendInmem && c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if c.Storage.FlushMs <= 0 {
		return errors.New("storage flush_ms must be positive")
	}
	if _, err := engine.ParsePolicy(c.Engine.ZeroRadius); err != nil {
		return err
	}
	if !logLevels.Has(strings.ToLower(c.Log.Level)) {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) Policy() engine.ZeroRadiusPolicy {
	p, _ := engine.ParsePolicy(c.Engine.ZeroRadius)
	return p
}
