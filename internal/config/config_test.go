package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "habitlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8084, cfg.Server.HTTPPort)
	assert.Equal(t, 7, cfg.Mining.LookbackDays)
	assert.Equal(t, 3, cfg.Mining.MinSupport)
	assert.Equal(t, 5*time.Minute, cfg.Mining.MaxGap)
	assert.Equal(t, 100, cfg.Mining.PatternLimit)
	assert.Equal(t, 50, cfg.Detector.BufferSize)
	assert.Equal(t, 3, cfg.Detector.MinOccurrences)
	assert.Equal(t, 30*time.Minute, cfg.Detector.SessionIdleTTL)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.Goals.Timeout)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CH_ADDR", "clickhouse:9000")
	path := writeConfig(t, "clickhouse:\n  addr: ${TEST_CH_ADDR}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse:9000", cfg.ClickHouse.Addr)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
mining:
  min_support: 5
  lookback_days: 30
detector:
  buffer_size: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Mining.MinSupport)
	assert.Equal(t, 30, cfg.Mining.LookbackDays)
	assert.Equal(t, 25, cfg.Detector.BufferSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
