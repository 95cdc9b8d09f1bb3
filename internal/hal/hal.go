// Package hal defines the hardware boundary of the street light: the relay
// pin, the optional presence pin, the ambient light sensor, the addressable
// strip and the numeric display.
package hal

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultStripLen is the pixel count of the stock strip.
const DefaultStripLen = 10

// DigitalOut is a single output pin.
type DigitalOut interface {
	Write(high bool) error
}

// DigitalIn is a single input pin.
type DigitalIn interface {
	Read() (bool, error)
}

// LightSensor returns raw ambient readings in [0, RawMax()].
type LightSensor interface {
	ReadRaw(ctx context.Context) (int, error)
	RawMax() int
}

// Strip is an addressable RGB strip. SetColor, SetBrightness and Clear only
// stage the next frame; Show pushes it.
type Strip interface {
	Len() int
	SetColor(r, g, b uint8)
	SetBrightness(level uint8)
	Clear()
	Show(ctx context.Context) error
}

// Display shows a small integer.
type Display interface {
	ShowNumber(n int) error
}

// Devices is the set of opened hardware. Presence is nil when no presence
// pin is configured.
type Devices struct {
	Relay    DigitalOut
	Presence DigitalIn
	Sensor   LightSensor
	Strip    Strip
	Display  Display

	mu      sync.Mutex
	closers []func() error
}

// OnClose registers fn to run on Close. Closers run in reverse order.
func (d *Devices) OnClose(fn func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closers = append(d.closers, fn)
}

// Close releases every device and returns the joined errors.
func (d *Devices) Close() error {
	d.mu.Lock()
	closers := d.closers
	d.closers = nil
	d.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDisplay is a Display for hosts without a numeric display: every number
// becomes a log line.
type LogDisplay struct {
	mu   sync.Mutex
	last int
}

// ShowNumber logs n.
func (d *LogDisplay) ShowNumber(n int) error {
	d.mu.Lock()
	d.last = n
	d.mu.Unlock()

	log.Info().Int("number", n).Msg("display")
	return nil
}

// Last returns the most recently shown number.
func (d *LogDisplay) Last() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
