// Package bus provides register-level access to devices on an I2C bus.
//
// Drivers depend on RegisterTransport only; the concrete backend is picked by
// name from the registry, so the same driver runs on devfs, periph.io, or a
// simulated device.
package bus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// RegisterTransport performs byte-level register reads and writes on one bus.
type RegisterTransport interface {
	// ReadRegister reads a single byte from reg of the device at addr.
	ReadRegister(addr uint16, reg byte) (byte, error)
	// ReadRegisterPair reads two consecutive registers starting at regLow and
	// returns them as a little-endian word.
	ReadRegisterPair(addr uint16, regLow byte) (uint16, error)
	// WriteRegister writes value to reg of the device at addr.
	WriteRegister(addr uint16, reg, value byte) error
	// Close releases the bus.
	Close() error
}

// Opener opens a RegisterTransport on the named bus device.
type Opener interface {
	Open(device string) (RegisterTransport, error)
}

// OpenerFunc adapts a function to an Opener.
type OpenerFunc func(device string) (RegisterTransport, error)

func (f OpenerFunc) Open(device string) (RegisterTransport, error) {
	return f(device)
}

var ErrUnknownBackend = errors.New("bus: unknown backend")

var (
	mu       sync.Mutex
	backends = map[string]Opener{}
)

// Register makes a backend available by name. Registering the same name twice
// replaces the previous opener.
func Register(name string, o Opener) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = o
}

// Lookup returns the opener registered under name.
func Lookup(name string) (Opener, error) {
	mu.Lock()
	defer mu.Unlock()
	o, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, name, names())
	}
	return o, nil
}

func names() []string {
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
