package app

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/dokzlo13/streetlightd/internal/config"
	"github.com/dokzlo13/streetlightd/internal/hal"
	"github.com/dokzlo13/streetlightd/internal/hal/periph"
	"github.com/dokzlo13/streetlightd/internal/hal/sim"
)

// OpenDevices opens every device once, up front, for the configured driver.
// On error, devices opened so far are closed.
func OpenDevices(cfg *config.Config) (*hal.Devices, error) {
	hw := cfg.Hardware
	switch hw.Driver {
	case "sim":
		return openSimDevices(hw), nil
	case "periph":
		return openPeriphDevices(hw)
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", hw.Driver)
	}
}

func openSimDevices(hw config.HardwareConfig) *hal.Devices {
	devs := &hal.Devices{
		Relay:   sim.NewPin(hw.RelayPin),
		Sensor:  sim.NewSensor(hw.LightSensor.RawMax),
		Strip:   sim.NewStrip(hw.Strip.Pixels),
		Display: &hal.LogDisplay{},
	}
	if hw.PresencePin != "" {
		devs.Presence = sim.NewPin(hw.PresencePin)
	}

	log.Info().
		Str("driver", "sim").
		Str("relay_pin", hw.RelayPin).
		Str("presence_pin", hw.PresencePin).
		Int("pixels", hw.Strip.Pixels).
		Msg("Simulated devices ready")
	return devs
}

func openPeriphDevices(hw config.HardwareConfig) (_ *hal.Devices, err error) {
	if err := periph.Init(); err != nil {
		return nil, err
	}

	devs := &hal.Devices{Display: &hal.LogDisplay{}}
	defer func() {
		if err != nil {
			devs.Close()
		}
	}()

	relay, err := periph.OpenOut(hw.RelayPin)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	devs.Relay = relay
	devs.OnClose(func() error { return relay.Write(false) })

	if hw.PresencePin != "" {
		pir, err := periph.OpenIn(hw.PresencePin)
		if err != nil {
			return nil, fmt.Errorf("presence: %w", err)
		}
		devs.Presence = pir
	}

	strip, err := periph.OpenAPA102(hw.Strip.SPIPort, hw.Strip.Pixels, physic.Frequency(hw.Strip.SpeedHz)*physic.Hertz)
	if err != nil {
		return nil, fmt.Errorf("strip: %w", err)
	}
	devs.Strip = strip
	devs.OnClose(strip.Close)

	sensor, err := periph.OpenBH1750(hw.LightSensor.I2CBus, hw.LightSensor.Address, hw.LightSensor.RawMax)
	if err != nil {
		return nil, fmt.Errorf("light sensor: %w", err)
	}
	devs.Sensor = sensor
	devs.OnClose(sensor.Close)

	log.Info().
		Str("driver", "periph").
		Str("relay_pin", hw.RelayPin).
		Str("presence_pin", hw.PresencePin).
		Int("pixels", hw.Strip.Pixels).
		Uint16("sensor_addr", hw.LightSensor.Address).
		Msg("Hardware devices ready")
	return devs, nil
}
