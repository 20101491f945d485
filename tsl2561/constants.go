package tsl2561

import (
	"strings"
	"time"
)

// Bus addresses selected by the ADDR SEL pin.
const (
	TSL2561_ADDR_LOW   uint16 = 0x29 ///< ADDR SEL tied to ground
	TSL2561_ADDR_FLOAT uint16 = 0x39 ///< ADDR SEL floating, the default
	TSL2561_ADDR_HIGH  uint16 = 0x49 ///< ADDR SEL tied to VDD
)

const (
	TSL2561_COMMAND_BIT byte = 0x80 ///< Must be 1
	TSL2561_CLEAR_BIT   byte = 0x40 ///< Clears any pending interrupt (write 1 to clear)
	TSL2561_WORD_BIT    byte = 0x20 ///< 1 = read/write word (rather than byte)
	TSL2561_BLOCK_BIT   byte = 0x10 ///< 1 = using block read/write

	TSL2561_CONTROL_POWERON  byte = 0x03
	TSL2561_CONTROL_POWEROFF byte = 0x00
)

// TSL2561 Register map
const (
	TSL2561_REGISTER_CONTROL          byte = 0x00 // Control/power register
	TSL2561_REGISTER_TIMING           byte = 0x01 // Set integration time register
	TSL2561_REGISTER_THRESHHOLDL_LOW  byte = 0x02 // Interrupt low threshold low-byte
	TSL2561_REGISTER_THRESHHOLDL_HIGH byte = 0x03 // Interrupt low threshold high-byte
	TSL2561_REGISTER_THRESHHOLDH_LOW  byte = 0x04 // Interrupt high threshold low-byte
	TSL2561_REGISTER_THRESHHOLDH_HIGH byte = 0x05 // Interrupt high threshold high-byte
	TSL2561_REGISTER_INTERRUPT        byte = 0x06 // Interrupt settings
	TSL2561_REGISTER_CRC              byte = 0x08 // Factory use only
	TSL2561_REGISTER_ID               byte = 0x0A // TSL2561 identification setting
	TSL2561_REGISTER_CHAN0_LOW        byte = 0x0C // Light data channel 0, low byte
	TSL2561_REGISTER_CHAN0_HIGH       byte = 0x0D // Light data channel 0, high byte
	TSL2561_REGISTER_CHAN1_LOW        byte = 0x0E // Light data channel 1, low byte
	TSL2561_REGISTER_CHAN1_HIGH       byte = 0x0F // Light data channel 1, high byte
)

// Part numbers found in the upper nibble of the ID register.
const (
	TSL2561_PARTNO_2560CS byte = 0x0
	TSL2561_PARTNO_2561CS byte = 0x1
	TSL2561_PARTNO_2560T  byte = 0x4
	TSL2561_PARTNO_2561T  byte = 0x5
)

// IntegrationTime is the TIMING register INTEG field.
type IntegrationTime byte

// Constants for adjusting the sensor integration timing
const (
	TSL2561_INTEGRATIONTIME_13MS  IntegrationTime = 0x00 // 13.7ms
	TSL2561_INTEGRATIONTIME_101MS IntegrationTime = 0x01 // 101ms
	TSL2561_INTEGRATIONTIME_402MS IntegrationTime = 0x02 // 402ms
)

// Gain is the TIMING register GAIN bit.
type Gain byte

// Constants for adjusting the sensor gain
const (
	TSL2561_GAIN_1X  Gain = 0x00 /// low gain (1x)
	TSL2561_GAIN_16X Gain = 0x10 /// high gain (16x)
)

// Variant selects the package-specific lux coefficients.
type Variant byte

const (
	TSL2561_VARIANT_T  Variant = iota + 1 /// T, FN and CL packages
	TSL2561_VARIANT_CS                    /// CS (chipscale) package
)

// Time to wait for a conversion to complete, with margin over the nominal
// integration time.
const (
	TSL2561_DELAY_INTTIME_13MS  = 15 * time.Millisecond
	TSL2561_DELAY_INTTIME_101MS = 120 * time.Millisecond
	TSL2561_DELAY_INTTIME_402MS = 450 * time.Millisecond
)

// Autogain thresholds. A channel above THI is too bright for 16x gain; a
// broadband reading below TLO is too dark for 1x gain.
const (
	TSL2561_AGC_THI_13MS  uint16 = 4850
	TSL2561_AGC_TLO_13MS  uint16 = 100
	TSL2561_AGC_THI_101MS uint16 = 36000
	TSL2561_AGC_TLO_101MS uint16 = 200
	TSL2561_AGC_THI_402MS uint16 = 63000
	TSL2561_AGC_TLO_402MS uint16 = 500
)

// Counts at which a channel is considered clipped. Full scale is 5047 at
// 13.7ms, 37177 at 101ms and 65535 at 402ms.
const (
	TSL2561_CLIPPING_13MS  uint16 = 4900
	TSL2561_CLIPPING_101MS uint16 = 37000
	TSL2561_CLIPPING_402MS uint16 = 65000
)

func IntegrationTimeToString(value IntegrationTime) string {
	switch value {
	case TSL2561_INTEGRATIONTIME_13MS:
		return "13ms"
	case TSL2561_INTEGRATIONTIME_101MS:
		return "101ms"
	case TSL2561_INTEGRATIONTIME_402MS:
		return "402ms"
	default:
		return "Unknown"
	}
}

func GainToString(value Gain) string {
	switch value {
	case TSL2561_GAIN_1X:
		return "Low gain (1x)"
	case TSL2561_GAIN_16X:
		return "High gain (16x)"
	default:
		return "Unknown"
	}
}

func VariantToString(value Variant) string {
	switch value {
	case TSL2561_VARIANT_T:
		return "T/FN/CL"
	case TSL2561_VARIANT_CS:
		return "CS"
	default:
		return "Unknown"
	}
}

func (t IntegrationTime) String() string { return IntegrationTimeToString(t) }
func (g Gain) String() string            { return GainToString(g) }
func (v Variant) String() string         { return VariantToString(v) }

// Valid reports whether t is one of the three hardware settings. The manual
// timing mode (INTEG=11) is not supported.
func (t IntegrationTime) Valid() bool {
	switch t {
	case TSL2561_INTEGRATIONTIME_13MS, TSL2561_INTEGRATIONTIME_101MS, TSL2561_INTEGRATIONTIME_402MS:
		return true
	}
	return false
}

func (g Gain) Valid() bool {
	return g == TSL2561_GAIN_1X || g == TSL2561_GAIN_16X
}

func (v Variant) Valid() bool {
	return v == TSL2561_VARIANT_T || v == TSL2561_VARIANT_CS
}

// Millis returns the nominal integration time in milliseconds.
func (t IntegrationTime) Millis() int {
	switch t {
	case TSL2561_INTEGRATIONTIME_13MS:
		return 13
	case TSL2561_INTEGRATIONTIME_101MS:
		return 101
	case TSL2561_INTEGRATIONTIME_402MS:
		return 402
	default:
		return 0
	}
}

// Multiplier returns 1 or 16, or 0 for an unknown setting.
func (g Gain) Multiplier() int {
	switch g {
	case TSL2561_GAIN_1X:
		return 1
	case TSL2561_GAIN_16X:
		return 16
	default:
		return 0
	}
}

// IntegrationTimeFromMillis maps 13, 101 or 402 to the register setting.
func IntegrationTimeFromMillis(ms int) (IntegrationTime, error) {
	switch ms {
	case 13:
		return TSL2561_INTEGRATIONTIME_13MS, nil
	case 101:
		return TSL2561_INTEGRATIONTIME_101MS, nil
	case 402:
		return TSL2561_INTEGRATIONTIME_402MS, nil
	}
	return 0, invalidf("integration time %dms", ms)
}

// GainFromMultiplier maps 1 or 16 to the register setting.
func GainFromMultiplier(x int) (Gain, error) {
	switch x {
	case 1:
		return TSL2561_GAIN_1X, nil
	case 16:
		return TSL2561_GAIN_16X, nil
	}
	return 0, invalidf("gain %dx", x)
}

// VariantFromString accepts "t", "fn", "cl" or "cs", in any case.
func VariantFromString(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "t", "fn", "cl":
		return TSL2561_VARIANT_T, nil
	case "cs":
		return TSL2561_VARIANT_CS, nil
	}
	return 0, invalidf("variant %q", s)
}

// delay returns how long a conversion at t takes.
func (t IntegrationTime) delay() time.Duration {
	switch t {
	case TSL2561_INTEGRATIONTIME_13MS:
		return TSL2561_DELAY_INTTIME_13MS
	case TSL2561_INTEGRATIONTIME_101MS:
		return TSL2561_DELAY_INTTIME_101MS
	default:
		return TSL2561_DELAY_INTTIME_402MS
	}
}

func (t IntegrationTime) agcThresholds() (hi, lo uint16) {
	switch t {
	case TSL2561_INTEGRATIONTIME_13MS:
		return TSL2561_AGC_THI_13MS, TSL2561_AGC_TLO_13MS
	case TSL2561_INTEGRATIONTIME_101MS:
		return TSL2561_AGC_THI_101MS, TSL2561_AGC_TLO_101MS
	default:
		return TSL2561_AGC_THI_402MS, TSL2561_AGC_TLO_402MS
	}
}

func (t IntegrationTime) clipping() uint16 {
	switch t {
	case TSL2561_INTEGRATIONTIME_13MS:
		return TSL2561_CLIPPING_13MS
	case TSL2561_INTEGRATIONTIME_101MS:
		return TSL2561_CLIPPING_101MS
	default:
		return TSL2561_CLIPPING_402MS
	}
}
