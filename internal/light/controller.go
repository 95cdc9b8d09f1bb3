// Package light owns the lighting state of the street light and drives
// progressive ramps that any newer command can supersede.
package light

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Frame is one intensity/color command for the output device.
type Frame struct {
	Mode  Mode
	Color Color // palette color at 100% power
	Power int   // 0..100
}

// Output receives frames. Implementations push them to hardware.
type Output interface {
	Apply(ctx context.Context, f Frame) error
}

// Sleeper pauses a ramp between steps. It must return early with an error
// when ctx is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper pauses on a real timer.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Phase is the ramp engine state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRamping
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRamping:
		return "ramping"
	default:
		return "unknown"
	}
}

// Status is a point-in-time copy of the controller state.
type Status struct {
	Mode   Mode
	Color  Color
	Power  int
	Level  int // power of the last emitted frame
	Token  uint64
	Phase  Phase
	RampID string
}

// Options configures a Controller. Zero values select defaults.
type Options struct {
	Palette        *Palette
	InitialPower   *int // nil selects 100
	StepsPerSecond int
	MaxDuration    time.Duration
	Sleeper        Sleeper
}

// ramp is one requested progressive transition.
type ramp struct {
	id     string
	token  uint64
	mode   Mode
	plan   Plan
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller holds the lighting state and runs ramps.
//
// Every state change and every frame write happens under mu, and a ramp
// step re-checks its token inside that same critical section. A command
// that bumps the token therefore strictly precedes any later write of the
// ramp it superseded, which is what keeps "last command wins" true with
// real parallelism.
type Controller struct {
	out            Output
	palette        Palette
	sleeper        Sleeper
	stepsPerSecond int
	maxDuration    time.Duration

	mu     sync.Mutex
	mode   Mode
	power  int
	level  int
	token  uint64
	active *ramp // RAMPING while non-nil

	// Single-slot handoff to the worker: pending always holds only the
	// newest request, trigger wakes the worker.
	pending *ramp
	trigger chan struct{}
}

// NewController creates a controller in its startup state: mode off,
// power at opts.InitialPower, token 0.
func NewController(out Output, opts Options) *Controller {
	palette := DefaultPalette()
	if opts.Palette != nil {
		palette = *opts.Palette
	}
	power := MaxPercent
	if opts.InitialPower != nil {
		power = ClampPercent(*opts.InitialPower)
	}
	sps := opts.StepsPerSecond
	if sps <= 0 {
		sps = DefaultStepsPerSecond
	}
	maxDuration := opts.MaxDuration
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	var sleeper Sleeper = TimerSleeper{}
	if opts.Sleeper != nil {
		sleeper = opts.Sleeper
	}

	return &Controller{
		out:            out,
		palette:        palette,
		sleeper:        sleeper,
		stepsPerSecond: sps,
		maxDuration:    maxDuration,
		mode:           ModeOff,
		power:          power,
		trigger:        make(chan struct{}, 1),
	}
}

// MaxDuration returns the ramp duration cap.
func (c *Controller) MaxDuration() time.Duration {
	return c.maxDuration
}

// Status returns a snapshot of the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Mode:  c.mode,
		Color: c.palette.Color(c.mode),
		Power: c.power,
		Level: c.level,
		Token: c.token,
		Phase: PhaseIdle,
	}
	if c.active != nil {
		s.Phase = PhaseRamping
		s.RampID = c.active.id
	}
	return s
}

// CancelRunning supersedes any running ramp without touching the output.
func (c *Controller) CancelRunning() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked()
}

// SetImmediate supersedes any ramp, stores mode and power, and emits
// exactly one frame.
func (c *Controller) SetImmediate(ctx context.Context, mode Mode, power int) {
	c.Update(ctx, func(Mode, int) (Mode, int) {
		return mode, power
	})
}

// Update is SetImmediate with the new mode and power derived from the
// current ones inside the same critical section.
func (c *Controller) Update(ctx context.Context, fn func(mode Mode, power int) (Mode, int)) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	mode, power := fn(c.mode, c.power)
	if !mode.Valid() {
		mode = ModeOff
	}
	c.mode = mode
	c.power = ClampPercent(power)
	c.applyLocked(ctx, c.mode, c.power)

	return Status{Mode: c.mode, Color: c.palette.Color(c.mode), Power: c.power, Level: c.level, Token: c.token}
}

// StartRamp supersedes any running ramp and transitions from start to end
// percent over duration (clamped to [0, MaxDuration]). A zero duration
// applies end immediately. Otherwise the stepping runs on the worker
// started with Run, and StartRamp returns right away; ctx only covers the
// immediate write. The returned id tags the ramp in logs and in Status.
func (c *Controller) StartRamp(ctx context.Context, mode Mode, start, end int, duration time.Duration) string {
	if !mode.Valid() {
		mode = ModeOff
	}
	plan := NewPlan(start, end, ClampDuration(duration, c.maxDuration), c.stepsPerSecond)
	id := uuid.NewString()

	c.mu.Lock()
	token := c.cancelLocked()
	c.mode = mode

	if plan.Immediate() {
		c.applyLocked(ctx, mode, plan.End)
		c.power = plan.End
		c.mu.Unlock()

		log.Debug().
			Str("ramp_id", id).
			Str("mode", mode.String()).
			Int("power", plan.End).
			Msg("Zero-duration ramp applied immediately")
		return id
	}

	rctx, cancel := context.WithCancel(context.Background())
	r := &ramp{
		id:     id,
		token:  token,
		mode:   mode,
		plan:   plan,
		ctx:    rctx,
		cancel: cancel,
	}
	c.active = r
	c.pending = r
	c.mu.Unlock()

	select {
	case c.trigger <- struct{}{}:
	default:
		// Worker already signalled; it will pick up the newest pending ramp
	}

	log.Debug().
		Str("ramp_id", id).
		Uint64("token", token).
		Str("mode", mode.String()).
		Int("start", plan.Start).
		Int("end", plan.End).
		Int("steps", plan.Steps).
		Dur("step_delay", plan.StepDelay).
		Msg("Ramp requested")
	return id
}

// Run is the ramp worker. It is the only goroutine that steps ramps and
// returns when ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	log.Debug().Int("steps_per_second", c.stepsPerSecond).Msg("Ramp worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Ramp worker stopping")
			return
		case <-c.trigger:
			c.mu.Lock()
			r := c.pending
			c.pending = nil
			c.mu.Unlock()

			if r != nil {
				c.execute(ctx, r)
			}
		}
	}
}

// execute steps one ramp until completion or supersession.
func (c *Controller) execute(ctx context.Context, r *ramp) {
	stop := context.AfterFunc(ctx, r.cancel)
	defer stop()
	defer r.cancel()

	started := time.Now()
	for i := 0; i < r.plan.Frames(); i++ {
		if !c.step(r, i) {
			log.Debug().Str("ramp_id", r.id).Int("step", i).Msg("Ramp superseded")
			return
		}
		if i == r.plan.Steps {
			break
		}
		if err := c.sleeper.Sleep(r.ctx, r.plan.StepDelay); err != nil {
			// Either a newer command cancelled us or the worker is stopping;
			// in both cases no further frame may be written.
			log.Debug().Str("ramp_id", r.id).Int("step", i).Err(err).Msg("Ramp interrupted")
			return
		}
	}

	c.mu.Lock()
	finished := c.token == r.token
	if finished {
		c.power = r.plan.End
		c.active = nil
	}
	c.mu.Unlock()

	if finished {
		log.Info().
			Str("ramp_id", r.id).
			Str("mode", r.mode.String()).
			Int("power", r.plan.End).
			Dur("elapsed", time.Since(started)).
			Msg("Ramp completed")
	}
}

// step emits frame i if r is still the latest command.
func (c *Controller) step(r *ramp, i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != r.token {
		return false
	}
	c.applyLocked(r.ctx, r.mode, r.plan.Level(i))
	return true
}

// cancelLocked bumps the token and wakes the running ramp, if any.
// Caller must hold mu.
func (c *Controller) cancelLocked() uint64 {
	c.token++
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
	return c.token
}

// applyLocked writes one frame. Output errors are logged, not returned:
// a failed frame does not change the stored state. Caller must hold mu.
func (c *Controller) applyLocked(ctx context.Context, mode Mode, power int) {
	f := Frame{Mode: mode, Color: c.palette.Color(mode), Power: power}
	c.level = power
	if err := c.out.Apply(ctx, f); err != nil {
		log.Error().
			Err(err).
			Str("mode", mode.String()).
			Int("power", power).
			Msg("Failed to apply light frame")
	}
}
