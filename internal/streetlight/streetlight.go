// Package streetlight is the command surface of the lamp: the operations
// user programs call, each one a thin composition of the relay, the display,
// the ramp controller and the sensors.
package streetlight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/light"
	"github.com/dokzlo13/streetlightd/internal/sensor"
)

// StreetLight wires the lamp hardware to the lighting state.
type StreetLight struct {
	ctrl     *light.Controller
	relay    hal.DigitalOut
	display  hal.Display
	ambient  *sensor.Ambient
	presence *sensor.Presence
}

// New creates the command surface. All collaborators are required; a
// missing presence pin is expressed by a Presence with a nil pin.
func New(ctrl *light.Controller, relay hal.DigitalOut, display hal.Display, ambient *sensor.Ambient, presence *sensor.Presence) *StreetLight {
	return &StreetLight{
		ctrl:     ctrl,
		relay:    relay,
		display:  display,
		ambient:  ambient,
		presence: presence,
	}
}

// SwitchOn closes the relay, shows 1 and lights the strip in the current
// mode, or white when no color was chosen yet.
func (s *StreetLight) SwitchOn(ctx context.Context) error {
	errs := s.drive(true, 1)
	st := s.ctrl.Update(ctx, func(mode light.Mode, power int) (light.Mode, int) {
		if mode == light.ModeOff {
			mode = light.ModeWhite
		}
		return mode, power
	})

	log.Info().Str("mode", st.Mode.String()).Int("power", st.Power).Msg("Street light switched on")
	return errs
}

// SwitchOff opens the relay, shows 0 and darkens the strip. It always
// supersedes a running ramp. The stored power is kept.
func (s *StreetLight) SwitchOff(ctx context.Context) error {
	errs := s.drive(false, 0)
	st := s.ctrl.Update(ctx, func(_ light.Mode, power int) (light.Mode, int) {
		return light.ModeOff, power
	})

	log.Info().Uint64("token", st.Token).Msg("Street light switched off")
	return errs
}

func (s *StreetLight) drive(on bool, n int) error {
	var errs []error
	if err := s.relay.Write(on); err != nil {
		errs = append(errs, fmt.Errorf("relay: %w", err))
	}
	if err := s.display.ShowNumber(n); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}
	return errors.Join(errs...)
}

// SetLightingMode shows the palette color of mode at the stored power.
func (s *StreetLight) SetLightingMode(ctx context.Context, mode light.Mode) {
	st := s.ctrl.Update(ctx, func(_ light.Mode, power int) (light.Mode, int) {
		return mode, power
	})
	log.Debug().Str("mode", st.Mode.String()).Int("power", st.Power).Msg("Lighting mode set")
}

// SetLightingModeName resolves name and calls SetLightingMode.
func (s *StreetLight) SetLightingModeName(ctx context.Context, name string) error {
	mode, err := light.ParseMode(name)
	if err != nil {
		return err
	}
	s.SetLightingMode(ctx, mode)
	return nil
}

// SetPower stores pct clamped to [0,100], reapplies the current mode and
// returns the stored value.
func (s *StreetLight) SetPower(ctx context.Context, pct int) int {
	st := s.ctrl.Update(ctx, func(mode light.Mode, _ int) (light.Mode, int) {
		return mode, pct
	})
	log.Debug().Str("mode", st.Mode.String()).Int("power", st.Power).Msg("Power set")
	return st.Power
}

// SetDayNightThreshold stores pct clamped to [0,100] and returns it. The
// lighting state is not touched.
func (s *StreetLight) SetDayNightThreshold(pct int) int {
	stored := s.ambient.SetThreshold(pct)
	log.Debug().Int("threshold", stored).Msg("Day/night threshold set")
	return stored
}

// ReadLightLevel returns the ambient light in percent.
func (s *StreetLight) ReadLightLevel(ctx context.Context) (int, error) {
	return s.ambient.Level(ctx)
}

func (s *StreetLight) IsDay(ctx context.Context) (bool, error) {
	return s.ambient.IsDay(ctx)
}

func (s *StreetLight) IsNight(ctx context.Context) (bool, error) {
	return s.ambient.IsNight(ctx)
}

// IsPresenceDetected reads the PIR pin. Without one it always reports false.
func (s *StreetLight) IsPresenceDetected() (bool, error) {
	if !s.presence.Available() {
		return false, nil
	}
	return s.presence.Detected()
}

// RampLighting starts a ramp of mode from start to end percent over seconds,
// clamped to [0, max ramp duration]. It returns the ramp id.
func (s *StreetLight) RampLighting(ctx context.Context, mode light.Mode, start, end, seconds int) string {
	maxSeconds := int(s.ctrl.MaxDuration() / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}
	return s.ctrl.StartRamp(ctx, mode, start, end, time.Duration(seconds)*time.Second)
}

// Cancel stops a running ramp where it is.
func (s *StreetLight) Cancel() {
	token := s.ctrl.CancelRunning()
	log.Debug().Uint64("token", token).Msg("Ramp cancelled")
}

// Status returns the lighting state.
func (s *StreetLight) Status() light.Status {
	return s.ctrl.Status()
}

// Threshold returns the stored day/night threshold percent.
func (s *StreetLight) Threshold() int {
	return s.ambient.Threshold()
}
