package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ztkent/tsl2561-meter/tsl2561"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(env(nil))
	require.NoError(t, err)
	assert.Equal(t, "devfs", cfg.Backend)
	assert.Equal(t, "/dev/i2c-1", cfg.Device)
	assert.Equal(t, uint16(0x39), cfg.Address)
	assert.Equal(t, "auto", cfg.Variant)
	assert.Equal(t, tsl2561.TSL2561_GAIN_1X, cfg.Gain)
	assert.Equal(t, tsl2561.TSL2561_INTEGRATIONTIME_402MS, cfg.Timing)
	assert.True(t, cfg.AutoGain)
	assert.Equal(t, 30*time.Second, cfg.RecordInterval)
	assert.Equal(t, 8*time.Hour, cfg.MaxJobDuration)
	assert.Equal(t, "80", cfg.Port)
	assert.False(t, cfg.SSL)
	assert.True(t, cfg.LocalOnly)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := ParseConfig(env(map[string]string{
		"SLM_BACKEND":         "SIM",
		"SLM_ADDRESS":         "0x29",
		"SLM_VARIANT":         "CS",
		"SLM_GAIN":            "16",
		"SLM_INTEGRATION_MS":  "13",
		"SLM_AUTOGAIN":        "false",
		"SLM_RECORD_INTERVAL": "5s",
		"SSL":                 "true",
		"LOG_LEVEL":           "DEBUG",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Backend)
	assert.Equal(t, uint16(0x29), cfg.Address)
	assert.Equal(t, "cs", cfg.Variant)
	assert.Equal(t, tsl2561.TSL2561_GAIN_16X, cfg.Gain)
	assert.Equal(t, tsl2561.TSL2561_INTEGRATIONTIME_13MS, cfg.Timing)
	assert.False(t, cfg.AutoGain)
	assert.Equal(t, 5*time.Second, cfg.RecordInterval)
	assert.Equal(t, "443", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseConfigErrors(t *testing.T) {
	for key, value := range map[string]string{
		"SLM_ADDRESS":          "0x80",
		"SLM_GAIN":             "25",
		"SLM_INTEGRATION_MS":   "100",
		"SLM_VARIANT":          "xyz",
		"SLM_AUTOGAIN":         "maybe",
		"SLM_RECORD_INTERVAL":  "-1s",
		"SLM_MAX_JOB_DURATION": "soon",
		"SLM_PORT":             "http",
		"SLM_TIMEZONE":         "Mars/Olympus_Mons",
	} {
		_, err := ParseConfig(env(map[string]string{key: value}))
		assert.Error(t, err, "%s=%s", key, value)
	}
}
