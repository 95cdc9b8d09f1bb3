package light

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a packed 24-bit 0xRRGGBB value.
type Color uint32

// RGB packs three channels into a Color.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// RGB unpacks the channels.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Scale multiplies every channel by pct/100 (pct is clamped to [0,100]).
func (c Color) Scale(pct int) Color {
	pct = ClampPercent(pct)
	r, g, b := c.RGB()
	return RGB(
		uint8(int(r)*pct/MaxPercent),
		uint8(int(g)*pct/MaxPercent),
		uint8(int(b)*pct/MaxPercent),
	)
}

// String returns the color as "#rrggbb".
func (c Color) String() string {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
}

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) (Color, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := cf.Clamped().RGB255()
	return RGB(r, g, b), nil
}

// Mode names one entry of the fixed palette.
type Mode int

const (
	ModeOff Mode = iota
	ModeWhite
	ModeBlue
	ModeGreen
	ModeMagenta

	modeCount
)

// ErrUnknownMode is returned when a lighting mode name is not in the palette.
var ErrUnknownMode = fmt.Errorf("unknown lighting mode")

var modeNames = [modeCount]string{"off", "white", "blue", "green", "magenta"}

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	if m < 0 || m >= modeCount {
		return "unknown"
	}
	return modeNames[m]
}

// Valid reports whether m is one of the palette modes.
func (m Mode) Valid() bool {
	return m >= 0 && m < modeCount
}

// ParseMode resolves a mode by name, case-insensitively.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range Modes() {
		if m.String() == name {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Modes returns every palette mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, 0, modeCount)
	for m := Mode(0); m < modeCount; m++ {
		out = append(out, m)
	}
	return out
}

// Palette maps each mode to the color shown at 100% power.
// The set of modes is fixed; only the color values can be recalibrated.
type Palette struct {
	colors [modeCount]Color
}

// DefaultPalette returns the stock colors.
func DefaultPalette() Palette {
	return Palette{colors: [modeCount]Color{
		ModeOff:     0x000000,
		ModeWhite:   0xFFFFFF,
		ModeBlue:    0x0000FF,
		ModeGreen:   0x00FF00,
		ModeMagenta: 0xFF00FF,
	}}
}

// Color returns the palette entry for m. Unknown modes resolve to off.
func (p Palette) Color(m Mode) Color {
	if !m.Valid() {
		return 0
	}
	return p.colors[m]
}

// WithOverrides returns a copy of p with entries replaced from a
// mode-name -> hex map. Off always stays black.
func (p Palette) WithOverrides(hex map[string]string) (Palette, error) {
	out := p
	for name, value := range hex {
		m, err := ParseMode(name)
		if err != nil {
			return p, err
		}
		if m == ModeOff {
			return p, fmt.Errorf("palette entry %q cannot be recalibrated", name)
		}
		c, err := ParseColor(value)
		if err != nil {
			return p, err
		}
		out.colors[m] = c
	}
	return out, nil
}
