package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr uint16 = 0x39

func TestPeriphRegisters(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{0x8a}, R: []byte{0x50}},       // ID
			{Addr: addr, W: []byte{0xac}, R: []byte{0xe8, 0x03}}, // channel 0, little endian
			{Addr: addr, W: []byte{0x80, 0x03}},                  // power on
		},
		DontPanic: true,
	}
	p := NewPeriph(pb)

	id, err := p.ReadRegister(addr, 0x8a)
	require.NoError(t, err)
	assert.Equal(t, byte(0x50), id)

	ch0, err := p.ReadRegisterPair(addr, 0xac)
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), ch0)

	require.NoError(t, p.WriteRegister(addr, 0x80, 0x03))
	assert.NoError(t, p.Close(), "all playback ops must be consumed")
}

func TestPeriphUnexpectedIO(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: addr, W: []byte{0x8a}, R: []byte{0x50}}},
		DontPanic: true,
	}
	p := NewPeriph(pb)
	_, err := p.ReadRegister(addr, 0x8b)
	assert.Error(t, err)
}
