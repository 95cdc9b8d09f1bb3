// Package sensor reads the ambient light and presence inputs and turns
// their changes into bus events.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/light"
)

// DefaultThreshold is the startup day/night cutoff in percent.
const DefaultThreshold = 50

// ErrNoPresencePin is returned when the hardware has no presence input.
var ErrNoPresencePin = errors.New("no presence pin configured")

// Reading is one classified ambient sample.
type Reading struct {
	Raw       int
	Level     int // Raw rescaled to [0,100]
	Threshold int // percent in effect for this sample
	// ThresholdRaw is Threshold on the sensor's raw scale; Day means Raw
	// is strictly above it.
	ThresholdRaw int
	Day          bool
}

// Ambient classifies the light sensor against a day/night threshold.
type Ambient struct {
	sensor hal.LightSensor

	mu        sync.Mutex
	threshold int
}

// NewAmbient creates an ambient classifier. The threshold is clamped.
func NewAmbient(sensor hal.LightSensor, threshold int) *Ambient {
	return &Ambient{sensor: sensor, threshold: light.ClampPercent(threshold)}
}

// SetThreshold stores pct clamped to [0,100] and returns the stored value.
func (a *Ambient) SetThreshold(pct int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = light.ClampPercent(pct)
	return a.threshold
}

func (a *Ambient) Threshold() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threshold
}

// Read samples the sensor once. Day means the raw value is strictly above
// the raw threshold.
func (a *Ambient) Read(ctx context.Context) (Reading, error) {
	raw, err := a.sensor.ReadRaw(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("read light sensor: %w", err)
	}

	threshold := a.Threshold()
	rawMax := a.sensor.RawMax()
	r := Reading{Raw: raw, Threshold: threshold, ThresholdRaw: threshold * rawMax / light.MaxPercent}
	if rawMax > 0 {
		r.Level = light.ClampPercent(raw * light.MaxPercent / rawMax)
	}
	r.Day = raw > r.ThresholdRaw
	return r, nil
}

// Level returns the ambient light in percent.
func (a *Ambient) Level(ctx context.Context) (int, error) {
	r, err := a.Read(ctx)
	return r.Level, err
}

func (a *Ambient) IsDay(ctx context.Context) (bool, error) {
	r, err := a.Read(ctx)
	return r.Day, err
}

// IsNight is the complement of IsDay. A failed read reports neither.
func (a *Ambient) IsNight(ctx context.Context) (bool, error) {
	r, err := a.Read(ctx)
	if err != nil {
		return false, err
	}
	return !r.Day, nil
}

// Presence reads the PIR input. A nil pin means the hardware variant has
// none.
type Presence struct {
	pin hal.DigitalIn
}

func NewPresence(pin hal.DigitalIn) *Presence {
	return &Presence{pin: pin}
}

// Available reports whether a presence pin is configured.
func (p *Presence) Available() bool {
	return p.pin != nil
}

// Detected reads the pin. It returns ErrNoPresencePin when there is none.
func (p *Presence) Detected() (bool, error) {
	if p.pin == nil {
		return false, ErrNoPresencePin
	}
	high, err := p.pin.Read()
	if err != nil {
		return false, fmt.Errorf("read presence pin: %w", err)
	}
	return high, nil
}
