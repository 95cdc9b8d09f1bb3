package app

import (
	"context"
	"sync"

	"github.com/dokzlo13/streetlightd/internal/config"
	"github.com/dokzlo13/streetlightd/internal/eventbus"
	"github.com/dokzlo13/streetlightd/internal/sensor"
)

// SensorService owns the event bus and the watcher that feeds it.
type SensorService struct {
	Bus     *eventbus.Bus
	Watcher *sensor.Watcher

	wg sync.WaitGroup
}

// NewSensorService creates the bus and a watcher publishing onto it.
func NewSensorService(cfg *config.Config, ambient *sensor.Ambient, presence *sensor.Presence) *SensorService {
	bus := eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	return &SensorService{
		Bus: bus,
		Watcher: sensor.NewWatcher(ambient, presence, bus, sensor.WatcherConfig{
			PollInterval: cfg.Sensor.PollInterval.Duration(),
			PresenceHold: cfg.Sensor.PresenceHold.Duration(),
		}),
	}
}

// Start begins polling. Subscribers must be registered before this so the
// initial day/night event reaches them.
func (s *SensorService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Watcher.Start(ctx)
	}()
}

// Stop waits for the watcher, then drains and closes the bus within ctx.
func (s *SensorService) Stop(ctx context.Context) {
	s.wg.Wait()
	s.Bus.Close(ctx)
}
