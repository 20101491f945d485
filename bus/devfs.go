package bus

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/exp/io/i2c"
)

// DefaultDevice is the I2C bus exposed on the Raspberry Pi header.
const DefaultDevice = "/dev/i2c-1"

func init() {
	Register("devfs", OpenerFunc(OpenDevfs))
}

// Devfs talks to the kernel i2c-dev driver. A file handle is opened per slave
// address on first use, since i2c-dev binds the address to the handle.
type Devfs struct {
	path    string
	devices map[uint16]*i2c.Device
	mu      sync.Mutex
}

// OpenDevfs checks that the device node exists and returns a transport on it.
func OpenDevfs(path string) (RegisterTransport, error) {
	if path == "" {
		path = DefaultDevice
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Devfs{
		path:    path,
		devices: make(map[uint16]*i2c.Device),
	}, nil
}

func (d *Devfs) device(addr uint16) (*i2c.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.devices == nil {
		return nil, fmt.Errorf("%s is closed", d.path)
	}
	if dev, ok := d.devices[addr]; ok {
		return dev, nil
	}
	dev, err := i2c.Open(&i2c.Devfs{Dev: d.path}, int(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s@0x%02x: %w", d.path, addr, err)
	}
	d.devices[addr] = dev
	return dev, nil
}

func (d *Devfs) ReadRegister(addr uint16, reg byte) (byte, error) {
	dev, err := d.device(addr)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 1)
	if err := dev.ReadReg(reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Devfs) ReadRegisterPair(addr uint16, regLow byte) (uint16, error) {
	dev, err := d.device(addr)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 2)
	if err := dev.ReadReg(regLow, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (d *Devfs) WriteRegister(addr uint16, reg, value byte) error {
	dev, err := d.device(addr)
	if err != nil {
		return err
	}
	return dev.WriteReg(reg, []byte{value})
}

// Close closes every handle opened so far and returns the first error.
func (d *Devfs) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for addr, dev := range d.devices {
		if err := dev.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close %s@0x%02x: %w", d.path, addr, err)
		}
	}
	d.devices = nil
	return first
}
