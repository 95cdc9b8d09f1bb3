package periph

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// BH1750 opcodes.
const (
	bh1750PowerOn        = 0x01
	bh1750ContinuousHRes = 0x10

	// DefaultBH1750Addr is the address with the ADDR pin low.
	DefaultBH1750Addr = 0x23
)

// BH1750 is an ambient light sensor. Readings are lux, clamped to rawMax.
type BH1750 struct {
	bus    i2c.BusCloser
	dev    *i2c.Dev
	rawMax int

	mu sync.Mutex
}

// OpenBH1750 opens the I2C bus ("" for the first one) and starts continuous
// high-resolution measurement.
func OpenBH1750(bus string, addr uint16, rawMax int) (*BH1750, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", bus, err)
	}
	s, err := newBH1750(b, addr, rawMax)
	if err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

func newBH1750(b i2c.BusCloser, addr uint16, rawMax int) (*BH1750, error) {
	if addr == 0 {
		addr = DefaultBH1750Addr
	}
	dev := &i2c.Dev{Bus: b, Addr: addr}
	if err := dev.Tx([]byte{bh1750PowerOn}, nil); err != nil {
		return nil, fmt.Errorf("bh1750 power on: %w", err)
	}
	if err := dev.Tx([]byte{bh1750ContinuousHRes}, nil); err != nil {
		return nil, fmt.Errorf("bh1750 start measurement: %w", err)
	}
	return &BH1750{bus: b, dev: dev, rawMax: rawMax}, nil
}

// ReadRaw returns the last measurement in lux, clamped to [0, RawMax()].
func (s *BH1750) ReadRaw(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf [2]byte
	if err := s.dev.Tx(nil, buf[:]); err != nil {
		return 0, fmt.Errorf("bh1750 read: %w", err)
	}
	// Counts per lux is 1.2 in high-resolution mode.
	lux := int(binary.BigEndian.Uint16(buf[:])) * 5 / 6
	if lux > s.rawMax {
		lux = s.rawMax
	}
	return lux, nil
}

func (s *BH1750) RawMax() int { return s.rawMax }

func (s *BH1750) Close() error {
	if err := s.bus.Close(); err != nil {
		return fmt.Errorf("i2c close: %w", err)
	}
	return nil
}
