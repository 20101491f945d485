package tools

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/ztkent/tsl2561-meter/tsl2561"
)

// Config is read from the environment once at startup.
type Config struct {
	Backend        string // SLM_BACKEND: devfs, periph or sim
	Device         string // SLM_I2C_DEVICE
	Address        uint16 // SLM_ADDRESS, e.g. 0x39
	Variant        string // SLM_VARIANT: auto, t or cs
	Gain           tsl2561.Gain
	Timing         tsl2561.IntegrationTime
	AutoGain       bool           // SLM_AUTOGAIN
	RecordInterval time.Duration  // SLM_RECORD_INTERVAL
	MaxJobDuration time.Duration  // SLM_MAX_JOB_DURATION
	DBPath         string         // SLM_DB_PATH
	LogFile        string         // SLM_LOG_FILE, empty for stdout only
	LogLevel       string         // LOG_LEVEL
	SSL            bool           // SSL
	Port           string         // SLM_PORT
	LocalOnly      bool           // SLM_LOCAL_ONLY
	Location       *time.Location // SLM_TIMEZONE, for date range inputs
}

// LoadConfig reads the configuration using os.Getenv.
func LoadConfig() (Config, error) {
	return ParseConfig(os.Getenv)
}

// ParseConfig reads the configuration through getenv, applying defaults for
// unset variables.
func ParseConfig(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Backend:  strings.ToLower(get("SLM_BACKEND", "devfs")),
		Device:   get("SLM_I2C_DEVICE", "/dev/i2c-1"),
		Variant:  strings.ToLower(get("SLM_VARIANT", "auto")),
		DBPath:   get("SLM_DB_PATH", "sunlightmeter.db"),
		LogFile:  get("SLM_LOG_FILE", "slm.log"),
		LogLevel: strings.ToLower(get("LOG_LEVEL", "info")),
	}

	// cast understands the 0x prefix
	address, err := cast.ToUint16E(get("SLM_ADDRESS", "0x39"))
	if err != nil {
		return Config{}, fmt.Errorf("SLM_ADDRESS: %w", err)
	}
	if address > 0x7F {
		return Config{}, fmt.Errorf("SLM_ADDRESS: 0x%02x is not a 7-bit address", address)
	}
	cfg.Address = address

	gain, err := cast.ToIntE(get("SLM_GAIN", "1"))
	if err != nil {
		return Config{}, fmt.Errorf("SLM_GAIN: %w", err)
	}
	if cfg.Gain, err = tsl2561.GainFromMultiplier(gain); err != nil {
		return Config{}, fmt.Errorf("SLM_GAIN: %w", err)
	}

	ms, err := cast.ToIntE(get("SLM_INTEGRATION_MS", "402"))
	if err != nil {
		return Config{}, fmt.Errorf("SLM_INTEGRATION_MS: %w", err)
	}
	if cfg.Timing, err = tsl2561.IntegrationTimeFromMillis(ms); err != nil {
		return Config{}, fmt.Errorf("SLM_INTEGRATION_MS: %w", err)
	}

	if cfg.Variant != "auto" {
		if _, err := tsl2561.VariantFromString(cfg.Variant); err != nil {
			return Config{}, fmt.Errorf("SLM_VARIANT: %w", err)
		}
	}

	if cfg.AutoGain, err = cast.ToBoolE(get("SLM_AUTOGAIN", "true")); err != nil {
		return Config{}, fmt.Errorf("SLM_AUTOGAIN: %w", err)
	}
	if cfg.SSL, err = cast.ToBoolE(get("SSL", "false")); err != nil {
		return Config{}, fmt.Errorf("SSL: %w", err)
	}
	if cfg.LocalOnly, err = cast.ToBoolE(get("SLM_LOCAL_ONLY", "true")); err != nil {
		return Config{}, fmt.Errorf("SLM_LOCAL_ONLY: %w", err)
	}
	if cfg.RecordInterval, err = cast.ToDurationE(get("SLM_RECORD_INTERVAL", "30s")); err != nil {
		return Config{}, fmt.Errorf("SLM_RECORD_INTERVAL: %w", err)
	}
	if cfg.MaxJobDuration, err = cast.ToDurationE(get("SLM_MAX_JOB_DURATION", "8h")); err != nil {
		return Config{}, fmt.Errorf("SLM_MAX_JOB_DURATION: %w", err)
	}
	if cfg.RecordInterval <= 0 || cfg.MaxJobDuration <= 0 {
		return Config{}, errors.New("record interval and job duration must be positive")
	}

	if cfg.Location, err = time.LoadLocation(get("SLM_TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("SLM_TIMEZONE: %w", err)
	}

	defPort := "80"
	if cfg.SSL {
		defPort = "443"
	}
	port, err := cast.ToUint16E(get("SLM_PORT", defPort))
	if err != nil || port == 0 {
		return Config{}, fmt.Errorf("SLM_PORT: invalid port %q", get("SLM_PORT", defPort))
	}
	cfg.Port = fmt.Sprintf("%d", port)
	return cfg, nil
}
