package sensor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/streetlightd/internal/eventbus"
)

// Default watcher timings.
const (
	DefaultPollInterval = time.Second
	DefaultPresenceHold = 30 * time.Second
)

// Publisher receives sensor events.
type Publisher interface {
	Publish(event eventbus.Event)
}

// WatcherConfig tunes a Watcher. Zero values select defaults; a negative
// PresenceHold disables the hold.
type WatcherConfig struct {
	PollInterval time.Duration
	PresenceHold time.Duration
}

// Watcher polls the sensors and publishes day/night and presence edges.
type Watcher struct {
	ambient  *Ambient
	presence *Presence
	pub      Publisher
	interval time.Duration
	hold     *Hold

	// Only touched by the polling goroutine.
	known bool
	day   bool
}

// NewWatcher creates a watcher; call Start to begin polling.
func NewWatcher(ambient *Ambient, presence *Presence, pub Publisher, cfg WatcherConfig) *Watcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	hold := cfg.PresenceHold
	if hold == 0 {
		hold = DefaultPresenceHold
	}

	w := &Watcher{
		ambient:  ambient,
		presence: presence,
		pub:      pub,
		interval: interval,
	}
	w.hold = NewHold(hold, func() {
		log.Info().Msg("Presence cleared")
		w.pub.Publish(eventbus.Event{Type: eventbus.EventTypePresenceCleared, Data: map[string]interface{}{}})
	})
	return w
}

// Start polls until ctx is cancelled. The first poll happens immediately so
// subscribers learn the initial day/night state.
func (w *Watcher) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Bool("presence_pin", w.presence.Available()).
		Msg("Starting sensor watcher")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.hold.Close()

	w.pollOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.pollOnce(ctx)
		case <-ctx.Done():
			log.Info().Msg("Stopping sensor watcher")
			return
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	w.pollAmbient(ctx)
	if w.presence.Available() {
		w.pollPresence()
	}
}

func (w *Watcher) pollAmbient(ctx context.Context) {
	r, err := w.ambient.Read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to read ambient light")
		}
		return
	}
	if w.known && r.Day == w.day {
		return
	}
	w.known = true
	w.day = r.Day

	et := eventbus.EventTypeNight
	if r.Day {
		et = eventbus.EventTypeDay
	}
	log.Info().
		Str("event", string(et)).
		Int("raw", r.Raw).
		Int("level", r.Level).
		Int("threshold", r.Threshold).
		Msg("Ambient light changed")
	w.pub.Publish(eventbus.Event{Type: et, Data: map[string]interface{}{
		"raw":           r.Raw,
		"level":         r.Level,
		"threshold":     r.Threshold,
		"threshold_raw": r.ThresholdRaw,
	}})
}

func (w *Watcher) pollPresence() {
	motion, err := w.presence.Detected()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read presence pin")
		return
	}
	if !motion {
		w.hold.Still()
		return
	}
	if w.hold.Motion() {
		log.Info().Msg("Presence detected")
		w.pub.Publish(eventbus.Event{Type: eventbus.EventTypePresence, Data: map[string]interface{}{}})
	}
}
