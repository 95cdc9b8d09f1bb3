package light

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		duration  time.Duration
		sps       int
		steps     int
		stepDelay time.Duration
	}{
		{"zero_duration_is_immediate", 0, 100, 0, 10, 0, 0},
		{"negative_duration_is_immediate", 0, 100, -time.Second, 10, 0, 0},
		{"five_seconds", 0, 100, 5 * time.Second, 10, 50, 100 * time.Millisecond},
		{"sixty_seconds", 0, 100, 60 * time.Second, 10, 600, 100 * time.Millisecond},
		{"sub_step_duration_still_one_step", 0, 100, 40 * time.Millisecond, 10, 1, 40 * time.Millisecond},
		{"default_cadence", 10, 20, 2 * time.Second, 0, 20, 100 * time.Millisecond},
		{"custom_cadence", 10, 20, 2 * time.Second, 25, 50, 40 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan(tt.start, tt.end, tt.duration, tt.sps)
			if p.Steps != tt.steps {
				t.Errorf("Steps = %d, want %d", p.Steps, tt.steps)
			}
			if p.StepDelay != tt.stepDelay {
				t.Errorf("StepDelay = %v, want %v", p.StepDelay, tt.stepDelay)
			}
			if p.Immediate() != (tt.steps == 0) {
				t.Errorf("Immediate() = %v with %d steps", p.Immediate(), p.Steps)
			}
		})
	}
}

func TestPlan_LevelWhiteFiveSeconds(t *testing.T) {
	p := NewPlan(0, 100, 5*time.Second, DefaultStepsPerSecond)
	if p.Frames() != 51 {
		t.Fatalf("Frames() = %d, want 51", p.Frames())
	}
	if got := p.Level(0); got != 0 {
		t.Errorf("Level(0) = %d, want 0", got)
	}
	if got := p.Level(25); got != 50 {
		t.Errorf("Level(25) = %d, want 50", got)
	}
	if got := p.Level(50); got != 100 {
		t.Errorf("Level(50) = %d, want 100", got)
	}
}

func TestPlan_LevelFloorsDescending(t *testing.T) {
	// 100 -> 0 over 3 steps: -100/3 floors to -34, not -33.
	p := Plan{Start: 100, End: 0, Steps: 3}
	want := []int{100, 66, 33, 0}
	for i, w := range want {
		if got := p.Level(i); got != w {
			t.Errorf("Level(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 2, 3},
		{-7, 2, -4},
		{-6, 3, -2},
		{0, 5, 0},
		{6, 3, 2},
		{-1, 50, -1},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPlan_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(-50, 150).Draw(t, "start")
		end := rapid.IntRange(-50, 150).Draw(t, "end")
		secs := rapid.IntRange(1, 60).Draw(t, "secs")

		p := NewPlan(start, end, time.Duration(secs)*time.Second, DefaultStepsPerSecond)
		if p.Steps != secs*DefaultStepsPerSecond {
			t.Fatalf("Steps = %d, want %d", p.Steps, secs*DefaultStepsPerSecond)
		}
		if p.Level(0) != ClampPercent(start) {
			t.Fatalf("first level %d, want %d", p.Level(0), ClampPercent(start))
		}
		if p.Level(p.Steps) != ClampPercent(end) {
			t.Fatalf("last level %d, want %d", p.Level(p.Steps), ClampPercent(end))
		}

		lo, hi := p.Start, p.End
		if lo > hi {
			lo, hi = hi, lo
		}
		prev := p.Level(0)
		for i := 0; i <= p.Steps; i++ {
			l := p.Level(i)
			if l < lo || l > hi {
				t.Fatalf("Level(%d) = %d outside [%d,%d]", i, l, lo, hi)
			}
			if p.End >= p.Start && l < prev {
				t.Fatalf("ascending ramp went down at step %d: %d -> %d", i, prev, l)
			}
			if p.End < p.Start && l > prev {
				t.Fatalf("descending ramp went up at step %d: %d -> %d", i, prev, l)
			}
			prev = l
		}
	})
}

func TestClampPercent_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.Int().Draw(t, "p")
		got := ClampPercent(p)
		if got < MinPercent || got > MaxPercent {
			t.Fatalf("ClampPercent(%d) = %d out of range", p, got)
		}
		if p >= MinPercent && p <= MaxPercent && got != p {
			t.Fatalf("ClampPercent(%d) = %d, want identity", p, got)
		}
		if p < MinPercent && got != MinPercent {
			t.Fatalf("ClampPercent(%d) = %d, want %d", p, got, MinPercent)
		}
		if p > MaxPercent && got != MaxPercent {
			t.Fatalf("ClampPercent(%d) = %d, want %d", p, got, MaxPercent)
		}
	})
}

func TestClampDuration(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{-time.Second, 0},
		{0, 0},
		{30 * time.Second, 30 * time.Second},
		{60 * time.Second, 60 * time.Second},
		{90 * time.Second, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := ClampDuration(tt.in, DefaultMaxDuration); got != tt.want {
			t.Errorf("ClampDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
