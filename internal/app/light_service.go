package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/streetlightd/internal/config"
	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/light"
	"github.com/dokzlo13/streetlightd/internal/output"
	"github.com/dokzlo13/streetlightd/internal/sensor"
	"github.com/dokzlo13/streetlightd/internal/streetlight"
)

// LightService owns the ramp engine and the block-level street light API.
type LightService struct {
	Output      *output.StripOutput
	Controller  *light.Controller
	Ambient     *sensor.Ambient
	Presence    *sensor.Presence
	StreetLight *streetlight.StreetLight

	wg sync.WaitGroup
}

// NewLightService builds output -> controller -> street light on top of devs.
func NewLightService(cfg *config.Config, devs *hal.Devices, sleeper light.Sleeper) (*LightService, error) {
	scaling, err := output.ParseScaling(cfg.Hardware.Strip.Scaling)
	if err != nil {
		return nil, fmt.Errorf("hardware.strip.scaling: %w", err)
	}
	palette, err := light.DefaultPalette().WithOverrides(cfg.Light.Palette)
	if err != nil {
		return nil, fmt.Errorf("light.palette: %w", err)
	}

	s := &LightService{}
	s.Output = output.NewStripOutput(devs.Strip, scaling, cfg.Hardware.Strip.MaxFPS)
	s.Controller = light.NewController(s.Output, light.Options{
		Palette:        &palette,
		InitialPower:   cfg.Light.InitialPower,
		StepsPerSecond: cfg.Light.StepsPerSecond,
		MaxDuration:    cfg.Light.MaxRampDuration.Duration(),
		Sleeper:        sleeper,
	})
	s.Ambient = sensor.NewAmbient(devs.Sensor, *cfg.Sensor.Threshold)
	s.Presence = sensor.NewPresence(devs.Presence)
	s.StreetLight = streetlight.New(s.Controller, devs.Relay, devs.Display, s.Ambient, s.Presence)

	log.Debug().
		Str("scaling", scaling.String()).
		Int("initial_power", *cfg.Light.InitialPower).
		Int("threshold", *cfg.Sensor.Threshold).
		Msg("Light service initialized")
	return s, nil
}

// Start runs the ramp worker until ctx is cancelled.
func (s *LightService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Controller.Run(ctx)
	}()
}

// Stop waits for the ramp worker and switches the lamp off. ctx bounds the
// final write; the one passed to Start is expected to be cancelled already.
func (s *LightService) Stop(ctx context.Context) {
	s.wg.Wait()
	if err := s.StreetLight.SwitchOff(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to switch off lamp on shutdown")
	}
}
