package bus

import (
	"encoding/binary"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func init() {
	Register("periph", OpenerFunc(OpenPeriph))
}

// Periph adapts a periph.io I2C bus.
type Periph struct {
	b i2c.Bus
}

// OpenPeriph initializes the periph host drivers and opens the named bus. An
// empty name selects the first bus available.
func OpenPeriph(name string) (RegisterTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	return NewPeriph(b), nil
}

// NewPeriph wraps an already opened bus. If b implements io.Closer it is
// closed with the transport.
func NewPeriph(b i2c.Bus) *Periph {
	return &Periph{b: b}
}

func (p *Periph) ReadRegister(addr uint16, reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := p.b.Tx(addr, []byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (p *Periph) ReadRegisterPair(addr uint16, regLow byte) (uint16, error) {
	r := make([]byte, 2)
	if err := p.b.Tx(addr, []byte{regLow}, r); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r), nil
}

func (p *Periph) WriteRegister(addr uint16, reg, value byte) error {
	return p.b.Tx(addr, []byte{reg, value}, nil)
}

func (p *Periph) Close() error {
	if c, ok := p.b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Periph) String() string {
	return p.b.String()
}
