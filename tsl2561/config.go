package tsl2561

import "github.com/sirupsen/logrus"

// Set the gain for the sensor
func (tsl *TSL2561) SetGain(gain Gain) error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	if !gain.Valid() {
		return invalidf("gain 0x%02x", byte(gain))
	}
	return tsl.setTiming(tsl.timing, gain)
}

// Set the integration timing for the sensor
func (tsl *TSL2561) SetIntegrationTime(timing IntegrationTime) error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	if !timing.Valid() {
		return invalidf("integration time 0x%02x", byte(timing))
	}
	return tsl.setTiming(timing, tsl.gain)
}

// SetTiming writes integration time and gain together. Both settings share
// the TIMING register, so either both apply or neither does.
func (tsl *TSL2561) SetTiming(timing IntegrationTime, gain Gain) error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	if !timing.Valid() {
		return invalidf("integration time 0x%02x", byte(timing))
	}
	if !gain.Valid() {
		return invalidf("gain 0x%02x", byte(gain))
	}
	return tsl.setTiming(timing, gain)
}

// SetVariant selects the lux coefficients for the sensor package. It is not
// stored on the device.
func (tsl *TSL2561) SetVariant(variant Variant) error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	if !variant.Valid() {
		return invalidf("variant %d", byte(variant))
	}
	tsl.variant = variant
	return nil
}

func (tsl *TSL2561) EnableAutoGain() error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	tsl.autoGain = true
	return nil
}

func (tsl *TSL2561) DisableAutoGain() error {
	if err := tsl.lock(); err != nil {
		return err
	}
	defer tsl.mu.Unlock()
	tsl.autoGain = false
	return nil
}

// setTiming must be called with the lock held.
func (tsl *TSL2561) setTiming(timing IntegrationTime, gain Gain) error {
	if err := tsl.writeTiming(timing, gain); err != nil {
		return err
	}
	tsl.timing = timing
	tsl.gain = gain
	l.WithFields(logrus.Fields{
		"gain":   gain.String(),
		"timing": timing.String(),
	}).Debug("TSL2561 timing set")
	return nil
}
