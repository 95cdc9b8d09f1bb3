package light

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"off", ModeOff, false},
		{"White", ModeWhite, false},
		{" blue ", ModeBlue, false},
		{"GREEN", ModeGreen, false},
		{"magenta", ModeMagenta, false},
		{"red", ModeOff, true},
		{"", ModeOff, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	for _, m := range Modes() {
		back, err := ParseMode(m.String())
		if err != nil || back != m {
			t.Errorf("mode %d does not survive String/ParseMode: %q -> %v, %v", m, m.String(), back, err)
		}
	}
	if Mode(42).String() != "unknown" {
		t.Errorf("Mode(42).String() = %q, want unknown", Mode(42).String())
	}
}

func TestColorScale(t *testing.T) {
	tests := []struct {
		name  string
		color Color
		pct   int
		want  Color
	}{
		{"full", 0xFFFFFF, 100, 0xFFFFFF},
		{"half_white", 0xFFFFFF, 50, 0x7F7F7F},
		{"zero", 0xFF00FF, 0, 0x000000},
		{"clamped_above", 0x0000FF, 150, 0x0000FF},
		{"clamped_below", 0x00FF00, -5, 0x000000},
		{"magenta_quarter", 0xFF00FF, 25, 0x3F003F},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.color.Scale(tt.pct); got != tt.want {
				t.Errorf("Scale(%d) = %v, want %v", tt.pct, got, tt.want)
			}
		})
	}
}

func TestColorHex(t *testing.T) {
	if got := Color(0xFF00FF).String(); got != "#ff00ff" {
		t.Errorf("String() = %q, want #ff00ff", got)
	}
	c, err := ParseColor("#fff4e5")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c != 0xFFF4E5 {
		t.Errorf("ParseColor = %06x, want fff4e5", uint32(c))
	}
	if _, err := ParseColor("nope"); err == nil {
		t.Error("ParseColor(nope) should fail")
	}
}

func TestPaletteOverrides(t *testing.T) {
	p, err := DefaultPalette().WithOverrides(map[string]string{"white": "#fff4e5"})
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if p.Color(ModeWhite) != 0xFFF4E5 {
		t.Errorf("white = %v, want #fff4e5", p.Color(ModeWhite))
	}
	if p.Color(ModeBlue) != 0x0000FF {
		t.Errorf("blue changed to %v", p.Color(ModeBlue))
	}

	if _, err := DefaultPalette().WithOverrides(map[string]string{"off": "#ffffff"}); err == nil {
		t.Error("recalibrating off should fail")
	}
	if _, err := DefaultPalette().WithOverrides(map[string]string{"amber": "#ffbf00"}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("unknown entry error = %v, want ErrUnknownMode", err)
	}
}
