package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/streetlightd/internal/config"
	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/light"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Hardware, opened once at startup
	Devices *hal.Devices

	Light   *LightService
	Sensors *SensorService
	Lua     *LuaService
}

// NewServices opens the configured devices and wires every service on top.
func NewServices(cfg *config.Config) (*Services, error) {
	devs, err := OpenDevices(cfg)
	if err != nil {
		return nil, err
	}
	return newServices(cfg, devs, nil)
}

// newServices takes ownership of devs: they are closed on error.
// A nil sleeper pauses ramps on real timers.
func newServices(cfg *config.Config, devs *hal.Devices, sleeper light.Sleeper) (*Services, error) {
	s := &Services{cfg: cfg, Devices: devs}

	var err error
	s.Light, err = NewLightService(cfg, devs, sleeper)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Sensors = NewSensorService(cfg, s.Light.Ambient, s.Light.Presence)
	s.Lua = NewLuaService(cfg, s.Light.StreetLight)

	return s, nil
}

// Start starts all services in the correct order.
func (s *Services) Start(ctx context.Context) error {
	// The ramp worker must run before the script can request ramps
	s.Light.Start(ctx)

	// Load Lua script before starting worker
	if err := s.Lua.LoadScript(); err != nil {
		return err
	}

	// Sensor events reach Lua handlers through the Lua worker
	s.Lua.Runtime.Events().Subscribe(ctx, s.Sensors.Bus, s.Lua.Runtime)

	s.Lua.Start(ctx)
	s.Sensors.Start(ctx)

	return nil
}

// Stop gracefully stops all services. The context passed to Start must be
// cancelled first; shutdown_timeout bounds the bus drain and the final
// switch-off.
func (s *Services) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()

	if s.Sensors != nil {
		s.Sensors.Stop(ctx)
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Light != nil {
		s.Light.Stop(ctx)
	}
	return s.Close()
}

// Close releases the hardware.
func (s *Services) Close() error {
	if s.Devices == nil {
		return nil
	}
	if err := s.Devices.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close devices")
		return err
	}
	return nil
}
