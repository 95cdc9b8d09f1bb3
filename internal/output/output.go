// Package output turns light frames into strip updates.
package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/light"
)

// Scaling selects how the power percent reaches the strip.
type Scaling int

const (
	// ScalingRGB multiplies every channel by power/100 and keeps the
	// brightness register at full.
	ScalingRGB Scaling = iota
	// ScalingBrightness writes the palette color as-is and puts the power
	// into the brightness register.
	ScalingBrightness
)

func (s Scaling) String() string {
	switch s {
	case ScalingRGB:
		return "rgb"
	case ScalingBrightness:
		return "brightness"
	default:
		return "unknown"
	}
}

// ParseScaling resolves "rgb" or "brightness". Empty selects rgb.
func ParseScaling(s string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rgb":
		return ScalingRGB, nil
	case "brightness":
		return ScalingBrightness, nil
	default:
		return ScalingRGB, fmt.Errorf("unknown power scaling %q (want rgb or brightness)", s)
	}
}

// StripOutput implements light.Output on a hal.Strip.
type StripOutput struct {
	strip   hal.Strip
	scaling Scaling
	limiter *rate.Limiter // nil when unthrottled
}

// NewStripOutput creates an output. maxFPS <= 0 disables throttling.
func NewStripOutput(strip hal.Strip, scaling Scaling, maxFPS int) *StripOutput {
	o := &StripOutput{strip: strip, scaling: scaling}
	if maxFPS > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(maxFPS), 1)
	}
	log.Debug().
		Int("pixels", strip.Len()).
		Str("scaling", scaling.String()).
		Int("max_fps", maxFPS).
		Msg("Strip output ready")
	return o
}

// Apply stages f on every pixel and shows it. An off color or zero power
// clears the strip.
func (o *StripOutput) Apply(ctx context.Context, f light.Frame) error {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("frame throttle: %w", err)
		}
	}

	power := light.ClampPercent(f.Power)
	switch {
	case f.Color == 0 || power == 0:
		o.strip.Clear()
	case o.scaling == ScalingBrightness:
		r, g, b := f.Color.RGB()
		o.strip.SetColor(r, g, b)
		o.strip.SetBrightness(uint8(power * 255 / light.MaxPercent))
	default:
		r, g, b := f.Color.Scale(power).RGB()
		o.strip.SetColor(r, g, b)
		o.strip.SetBrightness(255)
	}

	if err := o.strip.Show(ctx); err != nil {
		return fmt.Errorf("show frame: %w", err)
	}
	return nil
}
