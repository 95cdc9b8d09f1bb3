package sensor

import (
	"sync"
	"time"
)

// Hold keeps presence asserted until no motion was seen for a quiet period,
// then calls onClear once.
type Hold struct {
	quiet   time.Duration
	onClear func()

	// cb is held across onClear so Close can wait out a running clear.
	cb sync.Mutex

	mu      sync.Mutex
	present bool
	closed  bool
	gen     uint64
	timer   *time.Timer
}

// NewHold creates a hold. With quiet <= 0 presence clears on the first
// reading without motion.
func NewHold(quiet time.Duration, onClear func()) *Hold {
	return &Hold{quiet: quiet, onClear: onClear}
}

// Motion records a reading with motion and restarts the quiet timer. It
// reports whether presence just started.
func (h *Hold) Motion() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	started := !h.present
	h.present = true
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.quiet > 0 && !h.closed {
		gen := h.gen
		h.timer = time.AfterFunc(h.quiet, func() { h.expire(gen) })
	}
	return started
}

// Still records a reading without motion.
func (h *Hold) Still() {
	if h.quiet > 0 {
		return
	}
	h.mu.Lock()
	gen := h.gen
	h.mu.Unlock()
	h.expire(gen)
}

// Present reports whether presence is currently held.
func (h *Hold) Present() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present
}

func (h *Hold) expire(gen uint64) {
	h.cb.Lock()
	defer h.cb.Unlock()

	h.mu.Lock()
	if h.closed || !h.present || gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.present = false
	h.timer = nil
	h.mu.Unlock()

	h.onClear()
}

// Close stops the timer without clearing. Once it returns onClear is
// never called again.
func (h *Hold) Close() {
	h.mu.Lock()
	h.closed = true
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.mu.Unlock()

	// A clear that passed its checks before closed was set runs to the end.
	h.cb.Lock()
	h.cb.Unlock()
}
