package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
broker:
  host: broker.test
  main_port: 5112
  stream_port: 5113
chart:
  symbol: EURUSD
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "M1", cfg.Chart.Timeframe)
	assert.Equal(t, 2000, cfg.Chart.Capacity)
	assert.Equal(t, 15, cfg.Timeouts.RequestSeconds)
	assert.Equal(t, 10, cfg.Timeouts.KeepAliveSeconds)
	assert.Equal(t, 20, cfg.Indicators.SMAWindow)
	assert.Equal(t, 2.0, cfg.Indicators.BBStdDev)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfig(t, `
broker:
  host: broker.test
  main_port: 5124
  stream_port: 5125
  app_name: myapp
  insecure_skip_verify: true
chart:
  symbol: GBPUSD
  timeframe: M5
  capacity: 500
timeouts:
  request_seconds: 30
log:
  level: DEBUG
  format: text
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.Broker.AppName)
	assert.True(t, cfg.Broker.InsecureSkipVerify)
	assert.Equal(t, "M5", cfg.Chart.Timeframe)
	assert.Equal(t, 500, cfg.Chart.Capacity)
	assert.Equal(t, 30, cfg.Timeouts.RequestSeconds)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing host", "broker:\n  main_port: 1\n  stream_port: 2\nchart:\n  symbol: EURUSD\n"},
		{"missing ports", "broker:\n  host: broker.test\nchart:\n  symbol: EURUSD\n"},
		{"missing symbol", "broker:\n  host: broker.test\n  main_port: 1\n  stream_port: 2\n"},
		{"capacity too small", "broker:\n  host: broker.test\n  main_port: 1\n  stream_port: 2\nchart:\n  symbol: EURUSD\n  capacity: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
