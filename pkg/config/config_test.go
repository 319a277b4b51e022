package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", c.Source.Type)
	assert.Equal(t, 212, c.Batch.HorizonDays)
	assert.Equal(t, 5*time.Minute, c.Batch.ItemTimeout)
	assert.Equal(t, "2025-01-01", c.Batch.Cutoff)
	assert.InDelta(t, 0.8, c.Engine.IntervalWidth, 1e-9)
	assert.InDelta(t, 50, c.Source.MaxLineQty, 1e-9)
	assert.Equal(t, "info", c.Log.Level)
}

func TestParseOverridesDefaults(t *testing.T) {
	yml := `
environment: prod
source:
  type: postgres
postgres:
  dsn: postgres://u:p@db/sales?sslmode=disable
engine:
  type: additive
batch:
  horizon_days: 30
  workers: 4
  item_timeout: 90s
`
	c, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "postgres", c.Source.Type)
	assert.Equal(t, "postgres://u:p@db/sales?sslmode=disable", c.PostgresDSN())
	assert.Equal(t, 30, c.Batch.HorizonDays)
	assert.Equal(t, 4, c.Batch.Workers)
	assert.Equal(t, 90*time.Second, c.Batch.ItemTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown source":  "source:\n  type: mssql\n",
		"unknown engine":  "engine:\n  type: arima\n",
		"horizon too big": "batch:\n  horizon_days: 400\n",
		"no workers":      "batch:\n  workers: 0\n",
		"kafka no broker": "kafka:\n  enabled: true\n",
		"no calendar":     "calendar:\n  file: \"\"\n",
		"interval width":  "engine:\n  interval_width: 1.5\n",
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	env := map[string]string{
		"SALESCAST_DATASET": "R88B2",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"SALESCAST_WORKERS": "3",
		"REDIS_ADDR":        "cache:6379",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "R88B2", c.Batch.Dataset)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, 3, c.Batch.Workers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadWithEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\nbatch:\n  dataset: MTH\n"), 0o644))

	t.Setenv("SALESCAST_OUTPUT_DIR", "/tmp/out")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "MTH", c.Batch.Dataset)
	assert.Equal(t, "/tmp/out", c.Batch.OutputDir)
}
