package tsl2561

/*
 * tsl2561 - Package for interacting with TSL2560/TSL2561 lux sensors.
 *
 * Ref:
 * https://github.com/adafruit/Adafruit_TSL2561
 * TAOS TSL2561 datasheet, TAOS059N
 *
 */

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/tsl2561-meter/bus"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

// SetLogger replaces the package logger.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		l = logger
	}
}

// TSL2561 is an open sensor. It exclusively owns its bus transport, which is
// released by Close. The zero value and a nil pointer are closed handles.
type TSL2561 struct {
	address  uint16
	variant  Variant
	gain     Gain
	timing   IntegrationTime
	enabled  bool
	autoGain bool

	bus   bus.RegisterTransport
	clock clock.Clock
	mu    sync.Mutex
}

// State is a snapshot of the sensor configuration.
type State struct {
	Address  uint16
	Variant  Variant
	Gain     Gain
	Timing   IntegrationTime
	Powered  bool
	AutoGain bool
}

// Option configures a sensor at open time.
type Option func(*TSL2561)

// WithClock sets the clock used to wait for conversions.
func WithClock(c clock.Clock) Option {
	return func(tsl *TSL2561) {
		tsl.clock = c
	}
}

// Connect to a TSL2561 via I2C, verify its ID register and reset it to 1x
// gain, 402ms integration, powered off, autogain disabled.
//
// A nil opener uses the devfs backend and an empty device the Raspberry Pi's
// /dev/i2c-1. The transport is closed again on every error path.
func NewTSL2561(opener bus.Opener, address uint16, device string, opts ...Option) (*TSL2561, error) {
	if opener == nil {
		opener = bus.OpenerFunc(bus.OpenDevfs)
	}
	if device == "" {
		// i2c-1 is the default I2C bus for the Raspberry Pi
		device = bus.DefaultDevice
	}
	transport, err := opener.Open(device)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrTransport, device, err)
	}

	tsl := &TSL2561{
		address: address,
		gain:    TSL2561_GAIN_1X,
		timing:  TSL2561_INTEGRATIONTIME_402MS,
		bus:     transport,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(tsl)
	}

	if err := tsl.init(device); err != nil {
		if cerr := transport.Close(); cerr != nil {
			l.WithError(cerr).WithField("device", device).Warn("failed to release bus after open error")
		}
		tsl.bus = nil
		return nil, err
	}

	l.WithFields(logrus.Fields{
		"device":  device,
		"address": fmt.Sprintf("0x%02x", address),
		"variant": tsl.variant.String(),
	}).Debug("TSL2561 connected")
	return tsl, nil
}

func (tsl *TSL2561) init(device string) error {
	reg := TSL2561_COMMAND_BIT | TSL2561_REGISTER_ID
	id, err := tsl.bus.ReadRegister(tsl.address, reg)
	if err != nil {
		return transportErr("read", reg, err)
	}
	switch id >> 4 {
	case TSL2561_PARTNO_2561T, TSL2561_PARTNO_2560T:
		tsl.variant = TSL2561_VARIANT_T
	case TSL2561_PARTNO_2561CS, TSL2561_PARTNO_2560CS:
		tsl.variant = TSL2561_VARIANT_CS
	default:
		return fmt.Errorf("%w: can't find a TSL2561 at 0x%02x on %s (id 0x%02x)", ErrDeviceNotFound, tsl.address, device, id)
	}
	l.Debugf("ID register: 0x%02x, revision %d", id, id&0x0F)

	if err := tsl.writeTiming(tsl.timing, tsl.gain); err != nil {
		return err
	}
	return tsl.writeControl(TSL2561_CONTROL_POWEROFF)
}

// Close powers the sensor down and releases the bus. It is safe to call more
// than once. Power-down and release failures are logged, never returned.
func (tsl *TSL2561) Close() error {
	if tsl == nil {
		return nil
	}
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	if tsl.bus == nil {
		return nil
	}
	if err := tsl.writeControl(TSL2561_CONTROL_POWEROFF); err != nil {
		l.WithError(err).Warn("failed to power down TSL2561")
	}
	if err := tsl.bus.Close(); err != nil {
		l.WithError(err).Warn("failed to release bus")
	}
	tsl.bus = nil
	tsl.enabled = false
	return nil
}

// Enable the sensor
func (tsl *TSL2561) Enable() error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	return tsl.enable()
}

// Disable the sensor
func (tsl *TSL2561) Disable() error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()

	if !tsl.enabled {
		return nil
	}
	if err := tsl.writeControl(TSL2561_CONTROL_POWEROFF); err != nil {
		return err
	}
	tsl.enabled = false
	return nil
}

// State returns the current configuration.
func (tsl *TSL2561) State() (State, error) {
	if err := tsl.lock(); err != nil {
		return State{}, err
	}
	defer tsl.mu.Unlock()
	return State{
		Address:  tsl.address,
		Variant:  tsl.variant,
		Gain:     tsl.gain,
		Timing:   tsl.timing,
		Powered:  tsl.enabled,
		AutoGain: tsl.autoGain,
	}, nil
}

// lock acquires the handle, failing without I/O if it is nil or closed.
func (tsl *TSL2561) lock() error {
	if tsl == nil {
		return ErrInvalidHandle
	}
	tsl.mu.Lock()
	if tsl.bus == nil {
		tsl.mu.Unlock()
		return ErrInvalidHandle
	}
	return nil
}

func (tsl *TSL2561) enable() error {
	if tsl.enabled {
		return nil
	}
	if err := tsl.writeControl(TSL2561_CONTROL_POWERON); err != nil {
		return err
	}
	tsl.enabled = true
	return nil
}

func (tsl *TSL2561) writeControl(value byte) error {
	reg := TSL2561_COMMAND_BIT | TSL2561_REGISTER_CONTROL
	if err := tsl.bus.WriteRegister(tsl.address, reg, value); err != nil {
		return transportErr("write", reg, err)
	}
	return nil
}

// writeTiming sets gain and integration time in a single TIMING write.
func (tsl *TSL2561) writeTiming(timing IntegrationTime, gain Gain) error {
	reg := TSL2561_COMMAND_BIT | TSL2561_REGISTER_TIMING
	if err := tsl.bus.WriteRegister(tsl.address, reg, byte(timing)|byte(gain)); err != nil {
		return transportErr("write", reg, err)
	}
	return nil
}
