package streetlight

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/hal/sim"
	"github.com/dokzlo13/streetlightd/internal/light"
	"github.com/dokzlo13/streetlightd/internal/output"
	"github.com/dokzlo13/streetlightd/internal/sensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type failingDisplay struct{ err error }

func (d failingDisplay) ShowNumber(int) error { return d.err }

type rig struct {
	light   *StreetLight
	ctrl    *light.Controller
	relay   *sim.Pin
	pir     *sim.Pin
	sensor  *sim.Sensor
	strip   *sim.Strip
	display *hal.LogDisplay
}

func newRig(t *testing.T, withPIR bool) *rig {
	t.Helper()
	r := &rig{
		relay:   sim.NewPin("relay"),
		sensor:  sim.NewSensor(255),
		strip:   sim.NewStrip(hal.DefaultStripLen),
		display: &hal.LogDisplay{},
	}
	r.ctrl = light.NewController(output.NewStripOutput(r.strip, output.ScalingRGB, 0), light.Options{Sleeper: noSleep{}})

	var pin hal.DigitalIn
	if withPIR {
		r.pir = sim.NewPin("pir")
		pin = r.pir
	}
	r.light = New(r.ctrl, r.relay, r.display, sensor.NewAmbient(r.sensor, sensor.DefaultThreshold), sensor.NewPresence(pin))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func (r *rig) waitIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.ctrl.Status().Phase != light.PhaseIdle {
		if time.Now().After(deadline) {
			t.Fatal("ramp did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSwitchOn_DefaultsToWhite(t *testing.T) {
	r := newRig(t, false)
	if err := r.light.SwitchOn(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !r.relay.High() {
		t.Error("relay should be high")
	}
	if r.display.Last() != 1 {
		t.Errorf("display = %d, want 1", r.display.Last())
	}
	st := r.light.Status()
	if st.Mode != light.ModeWhite || st.Power != 100 {
		t.Errorf("status = %v/%d, want white/100", st.Mode, st.Power)
	}
	if px, _ := r.strip.Last(); px.R != 255 || px.G != 255 || px.B != 255 {
		t.Errorf("strip = %+v, want white", px)
	}
}

func TestSwitchOn_KeepsChosenMode(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()
	r.light.SetLightingMode(ctx, light.ModeBlue)
	r.light.SwitchOff(ctx)
	r.light.SetLightingMode(ctx, light.ModeMagenta)
	r.light.SwitchOn(ctx)

	if st := r.light.Status(); st.Mode != light.ModeMagenta {
		t.Errorf("mode = %v, want magenta", st.Mode)
	}
}

func TestSwitchOff_BumpsTokenAndDarkens(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()
	r.light.SwitchOn(ctx)
	r.light.SetPower(ctx, 40)

	before := r.light.Status().Token
	if err := r.light.SwitchOff(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.light.SwitchOff(ctx); err != nil {
		t.Fatal(err)
	}

	st := r.light.Status()
	if st.Token != before+2 {
		t.Errorf("token = %d, want %d", st.Token, before+2)
	}
	if st.Power != 40 {
		t.Errorf("power = %d, want 40 to survive switch off", st.Power)
	}
	if r.relay.High() || r.display.Last() != 0 {
		t.Error("relay and display should read off")
	}
	if px, _ := r.strip.Last(); !px.Dark() {
		t.Errorf("strip = %+v, want dark", px)
	}
}

func TestSwitchOff_SupersedesRamp(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()

	r.light.RampLighting(ctx, light.ModeGreen, 0, 100, 60)
	r.light.SwitchOff(ctx)
	r.waitIdle(t)

	if px, _ := r.strip.Last(); !px.Dark() {
		t.Errorf("strip = %+v, want dark after switch off", px)
	}
	if st := r.light.Status(); st.Mode != light.ModeOff {
		t.Errorf("mode = %v, want off", st.Mode)
	}
}

func TestSwitch_JoinsDeviceErrors(t *testing.T) {
	r := newRig(t, false)
	boom := errors.New("display unplugged")
	r.light.display = failingDisplay{err: boom}

	err := r.light.SwitchOn(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("SwitchOn error = %v, want %v", err, boom)
	}
	if st := r.light.Status(); st.Mode != light.ModeWhite {
		t.Error("strip should still switch on when the display fails")
	}
}

func TestSetPower_Clamps(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()
	tests := []struct{ in, want int }{
		{-5, 0},
		{150, 100},
		{65, 65},
	}
	for _, tt := range tests {
		if got := r.light.SetPower(ctx, tt.in); got != tt.want {
			t.Errorf("SetPower(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetLightingModeName(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()
	if err := r.light.SetLightingModeName(ctx, "green"); err != nil {
		t.Fatal(err)
	}
	if err := r.light.SetLightingModeName(ctx, "orange"); !errors.Is(err, light.ErrUnknownMode) {
		t.Errorf("error = %v, want ErrUnknownMode", err)
	}
	if st := r.light.Status(); st.Mode != light.ModeGreen {
		t.Errorf("mode = %v, want green", st.Mode)
	}
}

func TestDayNight(t *testing.T) {
	r := newRig(t, false)
	ctx := context.Background()

	if got := r.light.SetDayNightThreshold(50); got != 50 {
		t.Fatalf("threshold = %d", got)
	}
	r.sensor.Set(128)
	day, _ := r.light.IsDay(ctx)
	night, _ := r.light.IsNight(ctx)
	if !day || night {
		t.Errorf("raw 128: day=%v night=%v, want day", day, night)
	}

	r.sensor.Set(127)
	day, _ = r.light.IsDay(ctx)
	night, _ = r.light.IsNight(ctx)
	if day || !night {
		t.Errorf("raw 127: day=%v night=%v, want night", day, night)
	}

	if got := r.light.SetDayNightThreshold(120); got != 100 {
		t.Errorf("SetDayNightThreshold(120) = %d, want 100", got)
	}
	before := r.light.Status().Token
	r.light.SetDayNightThreshold(10)
	if r.light.Status().Token != before {
		t.Error("threshold changes must not touch the lighting state")
	}
}

func TestReadLightLevel(t *testing.T) {
	r := newRig(t, false)
	r.sensor.Set(255)
	level, err := r.light.ReadLightLevel(context.Background())
	if err != nil || level != 100 {
		t.Errorf("ReadLightLevel = %d, %v, want 100", level, err)
	}
}

func TestIsPresenceDetected(t *testing.T) {
	without := newRig(t, false)
	if got, err := without.light.IsPresenceDetected(); got || err != nil {
		t.Errorf("no pin: %v, %v, want false, nil", got, err)
	}

	with := newRig(t, true)
	with.pir.Set(true)
	if got, err := with.light.IsPresenceDetected(); !got || err != nil {
		t.Errorf("pir high: %v, %v, want true, nil", got, err)
	}
}

func TestRampLighting_ClampsSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		frames  int
	}{
		{"negative_is_immediate", -5, 1},
		{"zero_is_immediate", 0, 1},
		{"two_seconds", 2, 21},
		{"capped", 3600, 601},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, false)
			r.light.RampLighting(context.Background(), light.ModeWhite, 0, 100, tt.seconds)
			r.waitIdle(t)

			if got := len(r.strip.Shown()); got != tt.frames {
				t.Errorf("frames = %d, want %d", got, tt.frames)
			}
			if st := r.light.Status(); st.Power != 100 {
				t.Errorf("power = %d, want 100", st.Power)
			}
		})
	}
}

func TestCancel(t *testing.T) {
	r := newRig(t, false)
	before := r.light.Status().Token
	r.light.Cancel()
	if r.light.Status().Token != before+1 {
		t.Error("Cancel should bump the token")
	}
}
