// Package sim models a TSL2561 on a bus, for tests and for running the
// sunlight meter without hardware.
//
// The model keeps the CONTROL and TIMING registers, answers the ID register,
// and produces channel counts either verbatim (SetChannels) or derived from a
// scene and the current gain and integration time (SetScene), including
// clipping at full scale. Every register access is logged.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ztkent/tsl2561-meter/bus"
)

const (
	cmdBit  = 0x80
	wordBit = 0x20
	regMask = 0x0F

	regControl = 0x00
	regTiming  = 0x01
	regID      = 0x0A
	regChan0   = 0x0C
	regChan1   = 0x0E

	gainBit    = 0x10
	integMask  = 0x03
	powerOnVal = 0x03
)

// DefaultID is a TSL2561T, revision 0.
const DefaultID byte = 0x50

// ErrNoDevice is returned for accesses to an address no sensor answers on.
var ErrNoDevice = errors.New("sim: no device at address")

func init() {
	bus.Register("sim", bus.OpenerFunc(func(string) (bus.RegisterTransport, error) {
		s := New(AnyAddress)
		s.SetScene(4000, 1000)
		return s, nil
	}))
}

// Op is one logged register access. Reg has the command bits stripped.
type Op struct {
	Write bool
	Reg   byte
	Value uint16
}

func (o Op) String() string {
	if o.Write {
		return fmt.Sprintf("W 0x%02x=0x%02x", o.Reg, o.Value)
	}
	return fmt.Sprintf("R 0x%02x=0x%04x", o.Reg, o.Value)
}

// Sensor is a simulated TSL2561. It is safe for concurrent use.
type Sensor struct {
	mu   sync.Mutex
	addr uint16
	id   byte

	control byte
	timing  byte

	fixed    bool
	readings [][2]uint16
	scene    [2]float64

	ops    []Op
	closed int

	// ReadErr and WriteErr, when set, fail every read or write.
	ReadErr  error
	WriteErr error
	// FailWriteReg, when non-zero, fails only writes with that command byte,
	// e.g. 0x81 for TIMING.
	FailWriteReg byte
	// OnWrite, when set, is called after every successful write with the
	// register (command bits stripped) and value. It runs with the sensor
	// locked and must not call back into it.
	OnWrite func(reg, value byte)
}

// AnyAddress makes a sensor answer on every bus address.
const AnyAddress uint16 = 0

// New returns a powered down sensor answering on addr with DefaultID.
func New(addr uint16) *Sensor {
	return &Sensor{addr: addr, id: DefaultID}
}

// Opener returns an Opener that always hands out s.
func (s *Sensor) Opener() bus.Opener {
	return bus.OpenerFunc(func(string) (bus.RegisterTransport, error) {
		return s, nil
	})
}

// SetID changes the value of the ID register.
func (s *Sensor) SetID(id byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// SetChannels makes every conversion return ch0 and ch1 regardless of the
// gain and timing.
func (s *Sensor) SetChannels(ch0, ch1 uint16) {
	s.SetSequence([2]uint16{ch0, ch1})
}

// SetSequence makes successive conversions return the given pairs; the last
// one repeats.
func (s *Sensor) SetSequence(pairs ...[2]uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixed = true
	s.readings = pairs
}

// SetScene sets the light falling on the sensor as the counts it would give
// at 16x gain and 402ms without clipping. Conversions scale them to the
// current setting and clip at the full-scale count of the integration time.
func (s *Sensor) SetScene(broadband, infrared float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixed = false
	s.scene = [2]float64{broadband, infrared}
}

// Ops returns a copy of the access log.
func (s *Sensor) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// Writes returns the values written to reg, in order.
func (s *Sensor) Writes(reg byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, op := range s.ops {
		if op.Write && op.Reg == reg {
			out = append(out, byte(op.Value))
		}
	}
	return out
}

// Conversions returns how many channel 0 reads were served.
func (s *Sensor) Conversions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range s.ops {
		if !op.Write && op.Reg == regChan0 {
			n++
		}
	}
	return n
}

// Powered reports whether CONTROL holds the power-on value.
func (s *Sensor) Powered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control&powerOnVal == powerOnVal
}

// Timing returns the raw TIMING register.
func (s *Sensor) Timing() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// Closed returns how many times Close was called.
func (s *Sensor) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ResetOps clears the access log.
func (s *Sensor) ResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

func (s *Sensor) check(addr uint16, reg byte) error {
	if s.addr != AnyAddress && addr != s.addr {
		return fmt.Errorf("%w 0x%02x", ErrNoDevice, addr)
	}
	if reg&cmdBit == 0 {
		return fmt.Errorf("sim: register 0x%02x accessed without command bit", reg)
	}
	return nil
}

func (s *Sensor) ReadRegister(addr uint16, reg byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(addr, reg); err != nil {
		return 0, err
	}
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	var v byte
	switch r := reg & regMask; r {
	case regControl:
		v = s.control
	case regTiming:
		v = s.timing
	case regID:
		v = s.id
	case regChan0, regChan0 + 1, regChan1, regChan1 + 1:
		word := s.channel(r &^ 1)
		if r&1 == 1 {
			v = byte(word >> 8)
		} else {
			v = byte(word)
		}
	}
	s.ops = append(s.ops, Op{Reg: reg & regMask, Value: uint16(v)})
	return v, nil
}

func (s *Sensor) ReadRegisterPair(addr uint16, regLow byte) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(addr, regLow); err != nil {
		return 0, err
	}
	if regLow&wordBit == 0 {
		return 0, fmt.Errorf("sim: word read of 0x%02x without word bit", regLow)
	}
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	r := regLow & regMask
	if r != regChan0 && r != regChan1 {
		return 0, fmt.Errorf("sim: word read of unsupported register 0x%02x", r)
	}
	v := s.channel(r)
	s.ops = append(s.ops, Op{Reg: r, Value: v})
	if r == regChan1 && s.fixed && len(s.readings) > 1 {
		s.readings = s.readings[1:]
	}
	return v, nil
}

func (s *Sensor) WriteRegister(addr uint16, reg, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(addr, reg); err != nil {
		return err
	}
	r := reg & regMask
	if s.WriteErr != nil {
		return s.WriteErr
	}
	if s.FailWriteReg != 0 && reg == s.FailWriteReg {
		return fmt.Errorf("sim: write to 0x%02x failed", r)
	}
	switch r {
	case regControl:
		s.control = value
	case regTiming:
		s.timing = value
	}
	s.ops = append(s.ops, Op{Write: true, Reg: r, Value: uint16(value)})
	if s.OnWrite != nil {
		s.OnWrite(r, value)
	}
	return nil
}

func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// channel returns the count for regChan0 or regChan1. Must hold mu.
func (s *Sensor) channel(r byte) uint16 {
	idx := 0
	if r == regChan1 {
		idx = 1
	}
	if s.control&powerOnVal != powerOnVal {
		return 0
	}
	if s.fixed {
		if len(s.readings) == 0 {
			return 0
		}
		return s.readings[0][idx]
	}

	count := s.scene[idx]
	if s.timing&gainBit == 0 {
		count /= 16
	}
	var fullScale float64
	switch s.timing & integMask {
	case 0x00:
		count *= 13.7 / 402
		fullScale = 5047
	case 0x01:
		count *= 101.0 / 402
		fullScale = 37177
	default:
		fullScale = 65535
	}
	return uint16(math.Min(math.Round(count), fullScale))
}
