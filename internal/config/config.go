package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides, nested with "__",
// e.g. ORDERPAY_STORAGE__DRIVER=sqlite.
const EnvPrefix = "ORDERPAY_"

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"

	GatewayFake      = "fake"
	GatewaySimulated = "simulated"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Storage struct {
		Driver     string `koanf:"driver"`
		SQLitePath string `koanf:"sqlite_path"`
	} `koanf:"storage"`

	Redis struct {
		Addr      string `koanf:"addr"`
		Password  string `koanf:"password"`
		DB        int    `koanf:"db"`
		KeyPrefix string `koanf:"key_prefix"`
	} `koanf:"redis"`

	Gateway struct {
		Kind        string        `koanf:"kind"`
		SuccessRate float64       `koanf:"success_rate"`
		Latency     time.Duration `koanf:"latency"`
	} `koanf:"gateway"`

	Events struct {
		Buffer      int `koanf:"buffer"`
		Concurrency int `koanf:"concurrency"`
	} `koanf:"events"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":              "orderpay",
		"app.env":               "dev",
		"app.http_addr":         ":8080",
		"app.log_level":         "info",
		"http.read_timeout":     "5s",
		"http.write_timeout":    "10s",
		"http.shutdown_timeout": "10s",
		"storage.driver":        StorageMemory,
		"storage.sqlite_path":   "orderpay.db",
		"redis.addr":            "localhost:6379",
		"redis.db":              0,
		"redis.key_prefix":      "orderpay:",
		"gateway.kind":          GatewayFake,
		"gateway.success_rate":  0.7,
		"gateway.latency":       "0s",
		"events.buffer":         1024,
		"events.concurrency":    8,
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty
// or the file does not exist) and ORDERPAY_ environment variables.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path required for sqlite driver")
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr required for redis driver")
		}
	default:
		return fmt.Errorf("storage.driver %q not supported", c.Storage.Driver)
	}
	switch c.Gateway.Kind {
	case GatewayFake, GatewaySimulated:
	default:
		return fmt.Errorf("gateway.kind %q not supported", c.Gateway.Kind)
	}
	if rate := c.Gateway.SuccessRate; math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("gateway.success_rate must be within [0, 1], got %v", c.Gateway.SuccessRate)
	}
	if c.Events.Buffer <= 0 || c.Events.Concurrency <= 0 {
		return fmt.Errorf("events.buffer and events.concurrency must be positive")
	}
	return nil
}
