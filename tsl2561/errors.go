package tsl2561

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps any register read or write that did not complete.
	ErrTransport = errors.New("tsl2561: transport error")
	// ErrDeviceNotFound is returned by NewTSL2561 when the ID register does
	// not identify a TSL2560/TSL2561.
	ErrDeviceNotFound = errors.New("tsl2561: device not found")
	// ErrInvalidConfiguration is returned before any register write for an
	// unsupported gain, integration time or variant.
	ErrInvalidConfiguration = errors.New("tsl2561: invalid configuration")
	// ErrInvalidHandle is returned for operations on a nil or closed sensor.
	ErrInvalidHandle = errors.New("tsl2561: invalid handle")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfiguration}, args...)...)
}

func transportErr(op string, reg byte, err error) error {
	return fmt.Errorf("%w: %s register 0x%02x: %w", ErrTransport, op, reg, err)
}
