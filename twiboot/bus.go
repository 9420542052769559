package twiboot

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is the raw transaction primitive the driver runs on: a synchronous
// write and a synchronous read, both addressed by I2C slave address.
// Implementations must preserve byte order exactly and must not be shared
// between concurrent callers; the driver issues one transaction at a time
// and expects nothing else to interleave on the same device.
type Bus interface {
	Write(addr uint8, data []byte) error
	Read(addr uint8, n int) ([]byte, error)
}

// I2CBus adapts a periph.io I2C bus to the Bus interface.
type I2CBus struct {
	bus i2c.BusCloser
}

// Open the named I2C bus (e.g. "1" or "/dev/i2c-1"). An empty name picks
// the first available bus.
func OpenBus(name string) (*I2CBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus '%s': %w", name, err)
	}
	return &I2CBus{bus: bus}, nil
}

func (b *I2CBus) Write(addr uint8, data []byte) error {
	return b.bus.Tx(uint16(addr), data, nil)
}

func (b *I2CBus) Read(addr uint8, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := b.bus.Tx(uint16(addr), nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *I2CBus) Close() error {
	return b.bus.Close()
}

// BusRef describes one I2C bus known to the host, for scanning purposes.
type BusRef struct {
	Name    string
	Number  int
	Aliases []string
}

// List the I2C buses available on this host without opening any of them.
func ListBuses() ([]BusRef, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize host drivers: %w", err)
	}
	refs := i2creg.All()
	result := make([]BusRef, 0, len(refs))
	for _, ref := range refs {
		result = append(result, BusRef{
			Name:    ref.Name,
			Number:  ref.Number,
			Aliases: ref.Aliases,
		})
	}
	return result, nil
}
