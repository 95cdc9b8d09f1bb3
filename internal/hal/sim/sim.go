// Package sim provides in-memory devices for dry runs and tests.
package sim

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Pin is a digital pin usable as input or output.
type Pin struct {
	name string

	mu     sync.Mutex
	high   bool
	writes int
}

// NewPin creates a low pin.
func NewPin(name string) *Pin {
	return &Pin{name: name}
}

// Write drives the pin.
func (p *Pin) Write(high bool) error {
	p.mu.Lock()
	p.high = high
	p.writes++
	p.mu.Unlock()

	log.Debug().Str("pin", p.name).Bool("high", high).Msg("sim pin write")
	return nil
}

// Read returns the current level.
func (p *Pin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high, nil
}

// Set changes the level as if driven externally (e.g. a PIR firing).
func (p *Pin) Set(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.high = high
}

// High reports the current level.
func (p *Pin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Writes returns how many times Write was called.
func (p *Pin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Sensor is a light sensor whose reading is set by hand.
type Sensor struct {
	max int

	mu  sync.Mutex
	raw int
	err error
}

// NewSensor creates a sensor reading 0 on a [0,max] scale.
func NewSensor(max int) *Sensor {
	return &Sensor{max: max}
}

// Set stores the next raw reading, clamped to the sensor range.
func (s *Sensor) Set(raw int) {
	if raw < 0 {
		raw = 0
	}
	if raw > s.max {
		raw = s.max
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

// SetErr makes ReadRaw fail with err until cleared with nil.
func (s *Sensor) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ReadRaw returns the stored reading.
func (s *Sensor) ReadRaw(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, s.err
}

// RawMax returns the top of the raw scale.
func (s *Sensor) RawMax() int {
	return s.max
}

// Pixel is the state every pixel of the strip held when Show was called.
type Pixel struct {
	R, G, B    uint8
	Brightness uint8
}

// Dark reports whether the pixel emits no light.
func (p Pixel) Dark() bool {
	return p.Brightness == 0 || (p.R == 0 && p.G == 0 && p.B == 0)
}

// Strip records every shown frame.
type Strip struct {
	n int

	mu     sync.Mutex
	staged Pixel
	shown  []Pixel
}

// NewStrip creates a strip with n pixels.
func NewStrip(n int) *Strip {
	return &Strip{n: n, staged: Pixel{Brightness: 255}}
}

func (s *Strip) Len() int { return s.n }

func (s *Strip) SetColor(r, g, b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.R, s.staged.G, s.staged.B = r, g, b
}

func (s *Strip) SetBrightness(level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.Brightness = level
}

func (s *Strip) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.R, s.staged.G, s.staged.B = 0, 0, 0
}

func (s *Strip) Show(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, s.staged)
	return nil
}

// Shown returns every frame pushed so far.
func (s *Strip) Shown() []Pixel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Pixel(nil), s.shown...)
}

// Last returns the most recent frame, if any.
func (s *Strip) Last() (Pixel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.shown) == 0 {
		return Pixel{}, false
	}
	return s.shown[len(s.shown)-1], true
}
