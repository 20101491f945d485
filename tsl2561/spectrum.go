package tsl2561

// Spectrum selects which part of a reading Normalized reports.
type Spectrum byte

const (
	FullSpectrum Spectrum = iota // channel 0
	Infrared                     // channel 1
	Visible                      // channel 0 - channel 1
)

// Normalized returns the selected spectrum as a fraction of the 16 bit
// channel range. Visible light is floored at zero, since noise can leave
// channel 1 above channel 0.
func (r RawReading) Normalized(s Spectrum) float64 {
	switch s {
	case FullSpectrum:
		return float64(r.Channel0) / 0xFFFF
	case Infrared:
		return float64(r.Channel1) / 0xFFFF
	case Visible:
		if r.Channel1 >= r.Channel0 {
			return 0
		}
		return float64(r.Channel0-r.Channel1) / 0xFFFF
	default:
		return 0
	}
}
