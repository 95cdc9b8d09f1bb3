package light

import "time"

const (
	// MinPercent and MaxPercent bound every stored power or threshold value.
	MinPercent = 0
	MaxPercent = 100

	// DefaultStepsPerSecond is the ramp cadence.
	DefaultStepsPerSecond = 10
	// DefaultMaxDuration caps a single ramp (600 steps at the default cadence).
	DefaultMaxDuration = 60 * time.Second
)

// ClampPercent pins p to [0,100].
func ClampPercent(p int) int {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// ClampDuration pins d to [0,max].
func ClampDuration(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// floorDiv divides rounding toward negative infinity, so descending ramps
// step the same way ascending ones do.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
