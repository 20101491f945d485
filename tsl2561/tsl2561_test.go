package tsl2561

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ztkent/tsl2561-meter/bus"
	"github.com/ztkent/tsl2561-meter/tsl2561/sim"
)

func TestNewTSL2561Defaults(t *testing.T) {
	tsl, s, _ := newTestSensor(t)

	st, err := tsl.State()
	require.NoError(t, err)
	want := State{
		Address:  addr,
		Variant:  TSL2561_VARIANT_T,
		Gain:     TSL2561_GAIN_1X,
		Timing:   TSL2561_INTEGRATIONTIME_402MS,
		Powered:  false,
		AutoGain: false,
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []sim.Op{
		{Reg: TSL2561_REGISTER_ID, Value: uint16(sim.DefaultID)},
		{Write: true, Reg: TSL2561_REGISTER_TIMING, Value: 0x02},
		{Write: true, Reg: TSL2561_REGISTER_CONTROL, Value: 0x00},
	}, s.Ops())
	assert.False(t, s.Powered())
}

func TestNewTSL2561DetectsVariant(t *testing.T) {
	tests := []struct {
		id   byte
		want Variant
	}{
		{0x50, TSL2561_VARIANT_T},
		{0x41, TSL2561_VARIANT_T},
		{0x10, TSL2561_VARIANT_CS},
		{0x02, TSL2561_VARIANT_CS},
	}
	for _, tt := range tests {
		s := sim.New(addr)
		s.SetID(tt.id)
		tsl, err := NewTSL2561(s.Opener(), addr, "sim")
		require.NoError(t, err, "id 0x%02x", tt.id)
		st, err := tsl.State()
		require.NoError(t, err)
		assert.Equal(t, tt.want, st.Variant, "id 0x%02x", tt.id)
		tsl.Close()
	}
}

func TestNewTSL2561WrongID(t *testing.T) {
	s := sim.New(addr)
	s.SetID(0xA0)
	tsl, err := NewTSL2561(s.Opener(), addr, "sim")
	assert.Nil(t, tsl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound), err.Error())
	assert.Equal(t, 1, s.Closed(), "transport must be released")
}

func TestNewTSL2561OpenError(t *testing.T) {
	boom := errors.New("permission denied")
	opener := bus.OpenerFunc(func(string) (bus.RegisterTransport, error) {
		return nil, boom
	})
	_, err := NewTSL2561(opener, addr, "/dev/i2c-7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "/dev/i2c-7")
}

func TestNewTSL2561WrongAddress(t *testing.T) {
	s := sim.New(addr)
	_, err := NewTSL2561(s.Opener(), TSL2561_ADDR_LOW, "sim")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, sim.ErrNoDevice))
	assert.Equal(t, 1, s.Closed())
}

func TestNewTSL2561InitWriteFails(t *testing.T) {
	s := sim.New(addr)
	s.FailWriteReg = TSL2561_COMMAND_BIT | TSL2561_REGISTER_CONTROL
	_, err := NewTSL2561(s.Opener(), addr, "sim")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, 1, s.Closed())
}

func TestCloseIsIdempotent(t *testing.T) {
	tsl, s, _ := newTestSensor(t)
	require.NoError(t, tsl.Enable())
	require.True(t, s.Powered())

	assert.NoError(t, tsl.Close())
	assert.NoError(t, tsl.Close())
	assert.Equal(t, 1, s.Closed())
	assert.False(t, s.Powered(), "close powers the sensor down")
}

func TestCloseReleasesEvenIfPowerDownFails(t *testing.T) {
	tsl, s, _ := newTestSensor(t)
	s.WriteErr = errors.New("nack")
	assert.NoError(t, tsl.Close())
	assert.Equal(t, 1, s.Closed())
}

func TestOperationsAfterClose(t *testing.T) {
	tsl, s, _ := newTestSensor(t)
	require.NoError(t, tsl.Close())
	s.ResetOps()

	ctx := context.Background()
	ops := map[string]func() error{
		"Enable":          tsl.Enable,
		"Disable":         tsl.Disable,
		"EnableAutoGain":  tsl.EnableAutoGain,
		"DisableAutoGain": tsl.DisableAutoGain,
		"SetGain":         func() error { return tsl.SetGain(TSL2561_GAIN_16X) },
		"SetIntegrationTime": func() error {
			return tsl.SetIntegrationTime(TSL2561_INTEGRATIONTIME_13MS)
		},
		"SetTiming": func() error {
			return tsl.SetTiming(TSL2561_INTEGRATIONTIME_13MS, TSL2561_GAIN_16X)
		},
		"SetVariant":         func() error { return tsl.SetVariant(TSL2561_VARIANT_CS) },
		"SetGain invalid":    func() error { return tsl.SetGain(Gain(0x05)) },
		"SetVariant invalid": func() error { return tsl.SetVariant(Variant(0)) },
		"SetTiming invalid": func() error {
			return tsl.SetTiming(IntegrationTime(0x03), Gain(0x05))
		},
		"SetIntegrationTime invalid": func() error {
			return tsl.SetIntegrationTime(IntegrationTime(0x03))
		},
		"Lux": func() error {
			_, err := tsl.Lux(ctx)
			return err
		},
		"Acquire": func() error {
			_, err := tsl.Acquire(ctx)
			return err
		},
		"State": func() error {
			_, err := tsl.State()
			return err
		},
	}
	for name, op := range ops {
		err := op()
		assert.True(t, errors.Is(err, ErrInvalidHandle), "%s: %v", name, err)
	}
	assert.Empty(t, s.Ops(), "no I/O after close")
	assert.Equal(t, 1, s.Closed())
}

func TestNilHandle(t *testing.T) {
	var tsl *TSL2561
	assert.NoError(t, tsl.Close())
	assert.True(t, errors.Is(tsl.Enable(), ErrInvalidHandle))
	assert.True(t, errors.Is(tsl.SetGain(TSL2561_GAIN_1X), ErrInvalidHandle))
	_, err := tsl.Lux(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	var zero TSL2561
	assert.True(t, errors.Is(zero.Disable(), ErrInvalidHandle))
}

func TestEnableDisable(t *testing.T) {
	tsl, s, _ := newTestSensor(t)
	s.ResetOps()

	require.NoError(t, tsl.Enable())
	require.NoError(t, tsl.Enable())
	assert.Equal(t, []byte{TSL2561_CONTROL_POWERON}, s.Writes(TSL2561_REGISTER_CONTROL))
	st, _ := tsl.State()
	assert.True(t, st.Powered)

	require.NoError(t, tsl.Disable())
	require.NoError(t, tsl.Disable())
	assert.Equal(t, []byte{TSL2561_CONTROL_POWERON, TSL2561_CONTROL_POWEROFF}, s.Writes(TSL2561_REGISTER_CONTROL))
	st, _ = tsl.State()
	assert.False(t, st.Powered)
}

func TestEnableWriteFailureKeepsState(t *testing.T) {
	tsl, s, _ := newTestSensor(t)
	s.WriteErr = errors.New("nack")
	err := tsl.Enable()
	assert.True(t, errors.Is(err, ErrTransport))
	st, _ := tsl.State()
	assert.False(t, st.Powered)
}
