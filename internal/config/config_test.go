package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "safewalk.db", cfg.Store.SQLitePath)
	assert.Equal(t, ".safewalk-cache", cfg.Graph.CacheDir)
	assert.Equal(t, 0.0, cfg.Risk.Bandwidth)
	assert.Equal(t, 4, cfg.Risk.BucketHours)
	assert.Equal(t, 25.0, cfg.Risk.Sample.StepMeters)
	assert.Equal(t, "mean", cfg.Risk.Sample.Reduce)
	assert.Equal(t, 1.0, cfg.Route.Alpha)
	assert.Equal(t, 1.0, cfg.Route.Beta)
	assert.Equal(t, 500.0, cfg.Route.SnapMaxMeters)
	assert.Equal(t, 5_000_000, cfg.Route.MaxExpansions)
	assert.False(t, cfg.Route.AStar)
	assert.Equal(t, []string{"census", "nominatim"}, cfg.Geocode.Providers)
	assert.True(t, cfg.Geocode.CacheEnabled)
	assert.Equal(t, 30, cfg.Geocode.CacheTTLDays)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/safewalk
risk:
  bandwidth: 200
  sample:
    reduce: max
route:
  beta: 3.5
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 200.0, cfg.Risk.Bandwidth)
	assert.Equal(t, "max", cfg.Risk.Sample.Reduce)
	assert.Equal(t, 3.5, cfg.Route.Beta)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 25.0, cfg.Risk.Sample.StepMeters)
	assert.Equal(t, 1.0, cfg.Route.Alpha)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SAFEWALK_STORE_DRIVER", "postgres")
	t.Setenv("SAFEWALK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SAFEWALK_SERVER_PORT", "3000")
	t.Setenv("SAFEWALK_ROUTE_BETA", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Route.Beta)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "safewalk.db"
	cfg.Risk.BucketHours = 4
	cfg.Risk.Sample.StepMeters = 25
	cfg.Risk.Sample.Reduce = "mean"
	cfg.Route.Alpha = 1
	cfg.Route.Beta = 1
	cfg.Route.SnapMaxMeters = 500
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("route"))
	assert.NoError(t, cfg.Validate("evaluate"))
	assert.NoError(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("crimes"))
	assert.NoError(t, cfg.Validate("graph"))
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("crimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/safewalk"
	assert.NoError(t, cfg.Validate("crimes"))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "oracle"

	err := cfg.Validate("graph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidate_Weights(t *testing.T) {
	cfg := validDefaults()
	cfg.Route.Alpha = 0
	cfg.Route.Beta = 0

	err := cfg.Validate("route")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not both be zero")

	cfg.Route.Beta = -1
	err = cfg.Validate("route")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= 0")
}

func TestValidate_Reduce(t *testing.T) {
	cfg := validDefaults()
	cfg.Risk.Sample.Reduce = "median"

	err := cfg.Validate("route")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reduce must be mean or max")
}

func TestValidate_BucketHours(t *testing.T) {
	cfg := validDefaults()
	cfg.Risk.BucketHours = 5

	err := cfg.Validate("route")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must divide 24")

	cfg.Risk.BucketHours = 6
	assert.NoError(t, cfg.Validate("route"))
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port zero only matters for serve.
	assert.NoError(t, cfg.Validate("route"))
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
