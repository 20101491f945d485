package tsl2561

import (
	"context"
	"fmt"
)

// Fixed point scales used by the datasheet lux algorithm.
const (
	TSL2561_LUX_LUXSCALE   = 14 // Scale by 2^14
	TSL2561_LUX_RATIOSCALE = 9  // Scale ratio by 2^9
	TSL2561_LUX_CHSCALE    = 10 // Scale channel values by 2^10

	TSL2561_LUX_CHSCALE_TINT0 = 0x7517 // 322/11 * 2^TSL2561_LUX_CHSCALE
	TSL2561_LUX_CHSCALE_TINT1 = 0x0FE7 // 322/81 * 2^TSL2561_LUX_CHSCALE
)

// luxBand is one segment of the piecewise fit: for ratio <= k,
// lux = ch0*b - ch1*m.
type luxBand struct {
	k, b, m int64
}

// T, FN and CL package coefficients
var luxTableT = [8]luxBand{
	{0x0040, 0x01f2, 0x01be}, // 0.125 * 2^RATIO_SCALE
	{0x0080, 0x0214, 0x02d1}, // 0.250
	{0x00c0, 0x023f, 0x037b}, // 0.375
	{0x0100, 0x0270, 0x03fe}, // 0.50
	{0x0138, 0x016f, 0x01fc}, // 0.61
	{0x019a, 0x00d2, 0x00fb}, // 0.80
	{0x029a, 0x0018, 0x0012}, // 1.3
	{0x029a, 0x0000, 0x0000}, // > 1.3
}

// CS package coefficients
var luxTableCS = [8]luxBand{
	{0x0043, 0x0204, 0x01ad}, // 0.130 * 2^RATIO_SCALE
	{0x0085, 0x0228, 0x02c1}, // 0.260
	{0x00c8, 0x0253, 0x0363}, // 0.390
	{0x010a, 0x0282, 0x03df}, // 0.520
	{0x014d, 0x0177, 0x01dd}, // 0.65
	{0x019a, 0x0101, 0x0127}, // 0.80
	{0x029a, 0x0037, 0x002b}, // 1.3
	{0x029a, 0x0000, 0x0000}, // > 1.3
}

func (v Variant) luxTable() *[8]luxBand {
	switch v {
	case TSL2561_VARIANT_T:
		return &luxTableT
	case TSL2561_VARIANT_CS:
		return &luxTableCS
	default:
		return nil
	}
}

type LuxStatus int

const (
	LuxValid LuxStatus = iota
	// LuxSaturated means the sensor clipped; Lux carries no information.
	LuxSaturated
	// LuxInvalid means the reading's settings are outside the calibration.
	LuxInvalid
)

func (s LuxStatus) String() string {
	switch s {
	case LuxValid:
		return "valid"
	case LuxSaturated:
		return "saturated"
	case LuxInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("LuxStatus(%d)", int(s))
	}
}

// LuxResult is a lux value, or a marker saying why there is none. A dark
// room is LuxValid with Lux 0, never LuxSaturated.
type LuxResult struct {
	Lux    uint32
	Status LuxStatus
}

func (r LuxResult) Valid() bool { return r.Status == LuxValid }

func (r LuxResult) String() string {
	if r.Status != LuxValid {
		return r.Status.String()
	}
	return fmt.Sprintf("%d lx", r.Lux)
}

// ComputeLux converts a reading to lux using the integer algorithm from the
// datasheet. Channel counts are first normalized to 16x gain and 402ms.
func ComputeLux(r RawReading, variant Variant) LuxResult {
	if r.Saturated {
		return LuxResult{Status: LuxSaturated}
	}
	table := variant.luxTable()
	if table == nil || !r.Gain.Valid() || !r.Timing.Valid() {
		return LuxResult{Status: LuxInvalid}
	}
	if r.Channel0 == 0 {
		return LuxResult{}
	}

	channel0, channel1, ratio := scaleChannels(r)
	band := table[bandIndex(table, ratio)]

	temp := channel0*band.b - channel1*band.m
	// Do not allow negative lux value
	if temp < 0 {
		temp = 0
	}
	// Round lsb (2^(LUX_SCALE-1))
	temp += 1 << (TSL2561_LUX_LUXSCALE - 1)
	return LuxResult{Lux: uint32(temp >> TSL2561_LUX_LUXSCALE)}
}

// scaleChannels normalizes both channels to 16x gain and 402ms and returns
// them with the channel1/channel0 ratio scaled by 2^TSL2561_LUX_RATIOSCALE.
func scaleChannels(r RawReading) (channel0, channel1, ratio int64) {
	var chScale int64
	switch r.Timing {
	case TSL2561_INTEGRATIONTIME_13MS:
		chScale = TSL2561_LUX_CHSCALE_TINT0
	case TSL2561_INTEGRATIONTIME_101MS:
		chScale = TSL2561_LUX_CHSCALE_TINT1
	default:
		chScale = 1 << TSL2561_LUX_CHSCALE
	}
	if r.Gain == TSL2561_GAIN_1X {
		chScale <<= 4 // Scale 1X to 16X
	}

	channel0 = (int64(r.Channel0) * chScale) >> TSL2561_LUX_CHSCALE
	channel1 = (int64(r.Channel1) * chScale) >> TSL2561_LUX_CHSCALE

	var ratio1 int64
	if channel0 != 0 {
		ratio1 = (channel1 << (TSL2561_LUX_RATIOSCALE + 1)) / channel0
	}
	// round the ratio value
	ratio = (ratio1 + 1) >> 1
	return channel0, channel1, ratio
}

// bandIndex returns the first band whose upper ratio bound holds ratio; past
// the last bound it returns the last band.
func bandIndex(table *[8]luxBand, ratio int64) int {
	for i, b := range table {
		if ratio <= b.k {
			return i
		}
	}
	return len(table) - 1
}

// Lux takes a reading, lets autogain retry it once if enabled, and converts
// it with the sensor's variant coefficients.
func (tsl *TSL2561) Lux(ctx context.Context) (LuxResult, error) {
	result, _, err := tsl.LuxReading(ctx)
	return result, err
}

// LuxReading is Lux that also returns the reading the result was computed
// from. The reading's Variant is the one used for the conversion.
func (tsl *TSL2561) LuxReading(ctx context.Context) (LuxResult, RawReading, error) {
	if err := tsl.lock(); err != nil {
		return LuxResult{}, RawReading{}, err
	}
	defer tsl.mu.Unlock()

	reading, err := tsl.acquire(ctx)
	if err != nil {
		return LuxResult{}, RawReading{}, err
	}
	reading, err = tsl.applyAutoGain(ctx, reading)
	if err != nil {
		return LuxResult{}, RawReading{}, err
	}
	return ComputeLux(reading, reading.Variant), reading, nil
}
