package tsl2561

import (
	"context"

	"github.com/sirupsen/logrus"
)

type agcAction int

const (
	agcAccept agcAction = iota
	agcLowerGain
	agcRaiseGain
)

// agcDecide looks at one reading and says whether a gain change would give a
// better one. Only 1x <-> 16x is ever suggested; integration time is left to
// the caller.
func agcDecide(r RawReading) agcAction {
	hi, lo := r.Timing.agcThresholds()
	switch {
	case r.Gain == TSL2561_GAIN_16X && (r.Channel0 > hi || r.Channel1 > hi):
		return agcLowerGain
	case r.Gain == TSL2561_GAIN_1X && r.Channel0 < lo:
		return agcRaiseGain
	default:
		return agcAccept
	}
}

// applyAutoGain applies at most one gain change after the first reading and
// returns the reading to use. A reading that is still saturated or dark after
// the retry is returned as is. If ctx ends during the retry the previous gain
// is written back.
func (tsl *TSL2561) applyAutoGain(ctx context.Context, first RawReading) (RawReading, error) {
	if !tsl.autoGain {
		return first, nil
	}

	var gain Gain
	switch agcDecide(first) {
	case agcLowerGain:
		gain = TSL2561_GAIN_1X
	case agcRaiseGain:
		gain = TSL2561_GAIN_16X
	default:
		return first, nil
	}

	l.WithFields(logrus.Fields{
		"channel0": first.Channel0,
		"channel1": first.Channel1,
		"from":     first.Gain.String(),
		"to":       gain.String(),
	}).Debug("autogain adjusting")
	prev := tsl.gain
	if err := tsl.setTiming(tsl.timing, gain); err != nil {
		return RawReading{}, err
	}
	reading, err := tsl.acquire(ctx)
	if err != nil && ctx.Err() != nil {
		if rerr := tsl.setTiming(tsl.timing, prev); rerr != nil {
			l.WithError(rerr).Warn("failed to restore gain after cancelled autogain retry")
		}
	}
	return reading, err
}
