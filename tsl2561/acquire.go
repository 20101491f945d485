package tsl2561

import (
	"context"
)

// RawReading is one conversion result together with the settings it was
// taken with.
type RawReading struct {
	Channel0 uint16 // broadband (visible + infrared)
	Channel1 uint16 // infrared
	Gain     Gain
	Timing   IntegrationTime
	Variant  Variant // package variant selected when the reading was taken
	// Saturated is set when either channel reached the clipping level for
	// Timing. The counts are then not usable for lux.
	Saturated bool
}

// Acquire powers the sensor on if needed, waits one full integration period
// and reads both channels.
//
// If ctx is done first the device is left powered with its gain and timing
// untouched, and ctx.Err() is returned.
func (tsl *TSL2561) Acquire(ctx context.Context) (RawReading, error) {
	if err := tsl.lock(); err != nil {
		return RawReading{}, err
	}
	defer tsl.mu.Unlock()
	return tsl.acquire(ctx)
}

func (tsl *TSL2561) acquire(ctx context.Context) (RawReading, error) {
	if err := tsl.enable(); err != nil {
		return RawReading{}, err
	}

	// Wait for the ADC to complete a full integration at the current setting.
	timer := tsl.clock.Timer(tsl.timing.delay())
	select {
	case <-ctx.Done():
		timer.Stop()
		return RawReading{}, ctx.Err()
	case <-timer.C:
	}

	// Reads two byte value from channel 0 (visible + infrared)
	reg0 := TSL2561_COMMAND_BIT | TSL2561_WORD_BIT | TSL2561_REGISTER_CHAN0_LOW
	broadband, err := tsl.bus.ReadRegisterPair(tsl.address, reg0)
	if err != nil {
		return RawReading{}, transportErr("read", reg0, err)
	}
	// Reads two byte value from channel 1 (infrared)
	reg1 := TSL2561_COMMAND_BIT | TSL2561_WORD_BIT | TSL2561_REGISTER_CHAN1_LOW
	ir, err := tsl.bus.ReadRegisterPair(tsl.address, reg1)
	if err != nil {
		return RawReading{}, transportErr("read", reg1, err)
	}

	clip := tsl.timing.clipping()
	reading := RawReading{
		Channel0:  broadband,
		Channel1:  ir,
		Gain:      tsl.gain,
		Timing:    tsl.timing,
		Variant:   tsl.variant,
		Saturated: broadband >= clip || ir >= clip,
	}
	l.Debugf("Channel 0: %v, Channel 1: %v, Gain: %v, Timing: %v", broadband, ir, reading.Gain, reading.Timing)
	return reading, nil
}
