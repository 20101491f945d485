package tsl2561

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVariants = []Variant{TSL2561_VARIANT_T, TSL2561_VARIANT_CS}

func TestComputeLuxKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		reading RawReading
		wantT   uint32
		wantCS  uint32
	}{
		{"1x 402ms", RawReading{Channel0: 1000, Channel1: 200, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 379, 401},
		{"1x 13ms", RawReading{Channel0: 1000, Channel1: 200, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_13MS}, 11086, 11749},
		{"16x 101ms", RawReading{Channel0: 1000, Channel1: 200, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_101MS}, 94, 100},
		{"16x 402ms", RawReading{Channel0: 4000, Channel1: 1000, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 86, 92},
		{"1x ratio 0.61", RawReading{Channel0: 4096, Channel1: 2500, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 227, 335},
		{"16x ratio 0.75", RawReading{Channel0: 2000, Channel1: 1500, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 3, 4},
		{"1x 101ms ratio 0.875", RawReading{Channel0: 800, Channel1: 700, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_101MS}, 26, 54},
		{"16x ratio 0.97", RawReading{Channel0: 30000, Channel1: 29000, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 12, 25},
		{"dark 16x", RawReading{Channel0: 50, Channel1: 10, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_402MS}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, LuxResult{Lux: tt.wantT}, ComputeLux(tt.reading, TSL2561_VARIANT_T))
			assert.Equal(t, LuxResult{Lux: tt.wantCS}, ComputeLux(tt.reading, TSL2561_VARIANT_CS))
		})
	}
}

func TestComputeLuxNoLight(t *testing.T) {
	for _, v := range allVariants {
		for _, g := range allGains {
			for _, tm := range allTimings {
				for _, ch1 := range []uint16{0, 1, 500, 4000} {
					r := RawReading{Channel0: 0, Channel1: ch1, Gain: g, Timing: tm}
					assert.Equal(t, LuxResult{Lux: 0, Status: LuxValid}, ComputeLux(r, v), "%v %v %v ch1=%d", v, g, tm, ch1)
				}
			}
		}
	}
}

func TestComputeLuxInfraredOnly(t *testing.T) {
	// Ratio above 1.3 falls in the last band, whose coefficients are zero.
	r := RawReading{Channel0: 100, Channel1: 400, Gain: TSL2561_GAIN_16X, Timing: TSL2561_INTEGRATIONTIME_402MS}
	for _, v := range allVariants {
		assert.Equal(t, LuxResult{}, ComputeLux(r, v))
	}
}

func TestComputeLuxSaturatedIsNotDark(t *testing.T) {
	r := RawReading{Channel0: 65535, Channel1: 65535, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_402MS, Saturated: true}
	for _, v := range allVariants {
		got := ComputeLux(r, v)
		assert.Equal(t, LuxSaturated, got.Status)
		assert.False(t, got.Valid())
		assert.NotEqual(t, ComputeLux(RawReading{Gain: r.Gain, Timing: r.Timing}, v), got)
	}
	assert.Equal(t, "saturated", ComputeLux(r, TSL2561_VARIANT_T).String())
}

func TestComputeLuxInvalidSettings(t *testing.T) {
	good := RawReading{Channel0: 1000, Channel1: 200, Gain: TSL2561_GAIN_1X, Timing: TSL2561_INTEGRATIONTIME_402MS}

	assert.Equal(t, LuxInvalid, ComputeLux(good, Variant(0)).Status)

	bad := good
	bad.Gain = Gain(0x20)
	assert.Equal(t, LuxInvalid, ComputeLux(bad, TSL2561_VARIANT_T).Status)

	bad = good
	bad.Timing = IntegrationTime(0x03)
	assert.Equal(t, LuxInvalid, ComputeLux(bad, TSL2561_VARIANT_T).Status)
}

// Within one ratio band lux = ch0*B - ch1*M with M >= 0, so more infrared
// never raises the result.
func TestComputeLuxNonIncreasingInChannel1WithinBand(t *testing.T) {
	for _, v := range allVariants {
		table := v.luxTable()
		for _, g := range allGains {
			for _, tm := range allTimings {
				for _, ch0 := range []uint16{7, 100, 1000, 30000, 64000} {
					prev := ComputeLux(RawReading{Channel0: ch0, Gain: g, Timing: tm}, v).Lux
					_, _, ratio := scaleChannels(RawReading{Channel0: ch0, Gain: g, Timing: tm})
					prevBand := bandIndex(table, ratio)
					for ch1 := uint16(1); ch1 <= ch0; ch1++ {
						r := RawReading{Channel0: ch0, Channel1: ch1, Gain: g, Timing: tm}
						_, _, ratio := scaleChannels(r)
						band := bandIndex(table, ratio)
						got := ComputeLux(r, v).Lux
						if band == prevBand && got > prev {
							t.Fatalf("%v %v %v ch0=%d: lux rose from %d to %d at ch1=%d in band %d", v, g, tm, ch0, prev, got, ch1, band)
						}
						prev, prevBand = got, band
					}
				}
			}
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	for _, v := range allVariants {
		table := v.luxTable()
		require.NotNil(t, table)
		for i, b := range table[:len(table)-1] {
			assert.Equal(t, i, bandIndex(table, b.k), "%v ratio at K%d", v, i+1)
			if table[i+1].k > b.k {
				assert.Equal(t, i+1, bandIndex(table, b.k+1), "%v ratio just above K%d", v, i+1)
			}
		}
		assert.Equal(t, 0, bandIndex(table, 0))
		assert.Equal(t, len(table)-1, bandIndex(table, 0x29b))
	}
}

func TestNormalized(t *testing.T) {
	r := RawReading{Channel0: 0xFFFF, Channel1: 0x7FFF}
	assert.InDelta(t, 1.0, r.Normalized(FullSpectrum), 1e-9)
	assert.InDelta(t, 0.5, r.Normalized(Infrared), 1e-4)
	assert.InDelta(t, 0.5, r.Normalized(Visible), 1e-4)

	noisy := RawReading{Channel0: 10, Channel1: 12}
	assert.Equal(t, 0.0, noisy.Normalized(Visible))
	assert.Equal(t, 0.0, noisy.Normalized(Spectrum(9)))
}
