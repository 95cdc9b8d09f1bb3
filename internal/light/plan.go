package light

import "time"

// Plan is the precomputed schedule of one ramp.
type Plan struct {
	Start     int
	End       int
	Steps     int
	StepDelay time.Duration
}

// NewPlan builds a ramp schedule. Percentages are clamped to [0,100].
// A zero duration yields an immediate plan (Steps == 0); any positive
// duration yields at least one step, so Level never divides by zero.
func NewPlan(start, end int, duration time.Duration, stepsPerSecond int) Plan {
	p := Plan{Start: ClampPercent(start), End: ClampPercent(end)}
	if duration <= 0 {
		return p
	}
	if stepsPerSecond <= 0 {
		stepsPerSecond = DefaultStepsPerSecond
	}

	p.Steps = int(duration * time.Duration(stepsPerSecond) / time.Second)
	if p.Steps < 1 {
		p.Steps = 1
	}
	p.StepDelay = duration / time.Duration(p.Steps)
	return p
}

// Immediate reports whether the plan applies End without stepping.
func (p Plan) Immediate() bool {
	return p.Steps == 0
}

// Frames returns the number of frames a full run emits.
func (p Plan) Frames() int {
	return p.Steps + 1
}

// Level returns the power at step i using floor division.
func (p Plan) Level(i int) int {
	if p.Steps == 0 || i >= p.Steps {
		return p.End
	}
	if i <= 0 {
		return p.Start
	}
	return p.Start + floorDiv((p.End-p.Start)*i, p.Steps)
}
