package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "orderpay", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, GatewayFake, cfg.Gateway.Kind)
	assert.Equal(t, 0.7, cfg.Gateway.SuccessRate)
	assert.Equal(t, 1024, cfg.Events.Buffer)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  http_addr: ":9090"
storage:
  driver: sqlite
  sqlite_path: /tmp/orders.db
gateway:
  kind: simulated
  success_rate: 0.5
`), 0o600))
	t.Setenv("ORDERPAY_GATEWAY__SUCCESS_RATE", "0.25")
	t.Setenv("ORDERPAY_HTTP__SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.HTTPAddr)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/orders.db", cfg.Storage.SQLitePath)
	assert.Equal(t, GatewaySimulated, cfg.Gateway.Kind)
	assert.Equal(t, 0.25, cfg.Gateway.SuccessRate)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("ORDERPAY_STORAGE__DRIVER", "postgres")

	_, err := Load("")
	assert.ErrorContains(t, err, "storage.driver")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	testCases := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"should accept defaults": {
			mutate: func(*Config) {},
		},
		"should require http addr": {
			mutate:  func(c *Config) { c.App.HTTPAddr = "" },
			wantErr: "app.http_addr",
		},
		"should reject unknown gateway": {
			mutate:  func(c *Config) { c.Gateway.Kind = "stripe" },
			wantErr: "gateway.kind",
		},
		"should reject success rate above one": {
			mutate:  func(c *Config) { c.Gateway.SuccessRate = 1.1 },
			wantErr: "gateway.success_rate",
		},
		"should reject NaN success rate": {
			mutate:  func(c *Config) { c.Gateway.SuccessRate = math.NaN() },
			wantErr: "gateway.success_rate",
		},
		"should require sqlite path": {
			mutate: func(c *Config) {
				c.Storage.Driver = StorageSQLite
				c.Storage.SQLitePath = ""
			},
			wantErr: "storage.sqlite_path",
		},
		"should require redis addr": {
			mutate: func(c *Config) {
				c.Storage.Driver = StorageRedis
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		"should reject non-positive bus sizing": {
			mutate:  func(c *Config) { c.Events.Concurrency = 0 },
			wantErr: "events",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
