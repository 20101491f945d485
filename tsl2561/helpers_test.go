package tsl2561

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/ztkent/tsl2561-meter/tsl2561/sim"
)

const addr = TSL2561_ADDR_FLOAT

// newTestSensor opens a sensor on a simulated bus driven by a mock clock.
func newTestSensor(t *testing.T) (*TSL2561, *sim.Sensor, *clock.Mock) {
	t.Helper()
	s := sim.New(addr)
	mock := clock.NewMock()
	tsl, err := NewTSL2561(s.Opener(), addr, "sim", WithClock(mock))
	require.NoError(t, err)
	t.Cleanup(func() { tsl.Close() })
	return tsl, s, mock
}

// advance runs f while moving the mock clock forward until f returns, so
// conversions complete without real waiting.
func advance(mock *clock.Mock, f func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	for {
		select {
		case <-done:
			return
		default:
			mock.Add(50 * time.Millisecond)
		}
	}
}

func lux(t *testing.T, tsl *TSL2561, mock *clock.Mock) LuxResult {
	t.Helper()
	var (
		res LuxResult
		err error
	)
	advance(mock, func() { res, err = tsl.Lux(context.Background()) })
	require.NoError(t, err)
	return res
}
