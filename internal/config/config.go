package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Hardware        HardwareConfig `yaml:"hardware"`
	Light           LightConfig    `yaml:"light"`
	Sensor          SensorConfig   `yaml:"sensor"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	Script          string         `yaml:"script"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops

	dir string // directory of the loaded file
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"` // Structured output instead of the console writer
}

// HardwareConfig selects the driver and the wiring. Pin and port names are
// driver specific ("GPIO17" on periph, anything on sim).
type HardwareConfig struct {
	Driver      string            `yaml:"driver"` // sim | periph
	RelayPin    string            `yaml:"relay_pin"`
	PresencePin string            `yaml:"presence_pin"` // empty = no PIR on this build
	Strip       StripConfig       `yaml:"strip"`
	LightSensor LightSensorConfig `yaml:"light_sensor"`
}

// StripConfig describes the addressable strip
type StripConfig struct {
	SPIPort string `yaml:"spi_port"` // "" = first port
	SpeedHz int64  `yaml:"speed_hz"`
	Pixels  int    `yaml:"pixels"`
	Scaling string `yaml:"scaling"` // rgb | brightness
	MaxFPS  int    `yaml:"max_fps"` // 0 = default, negative = unthrottled
}

// LightSensorConfig describes the ambient light sensor
type LightSensorConfig struct {
	I2CBus  string `yaml:"i2c_bus"` // "" = first bus
	Address uint16 `yaml:"address"`
	RawMax  int    `yaml:"raw_max"` // top of the raw scale thresholds are computed on
}

// LightConfig contains lighting state and ramp settings
type LightConfig struct {
	InitialPower    *int              `yaml:"initial_power"`
	StepsPerSecond  int               `yaml:"steps_per_second"`
	MaxRampDuration Duration          `yaml:"max_ramp_duration"`
	Palette         map[string]string `yaml:"palette"` // mode name -> "#rrggbb"
}

// SensorConfig contains ambient and presence polling settings
type SensorConfig struct {
	Threshold    *int     `yaml:"threshold"` // day/night cutoff percent
	PollInterval Duration `yaml:"poll_interval"`
	PresenceHold Duration `yaml:"presence_hold"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Dir returns the directory of the loaded config file, for resolving the
// script path.
func (c *Config) Dir() string {
	return c.dir
}

// GetShutdownTimeout returns the graceful stop budget
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes YAML, applies defaults, then STREETLIGHT_* environment
// overrides, and validates the result.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Script == "" {
		cfg.Script = "main.lua"
	}

	// Hardware defaults
	if cfg.Hardware.Driver == "" {
		cfg.Hardware.Driver = "sim"
	}
	if cfg.Hardware.RelayPin == "" {
		cfg.Hardware.RelayPin = "GPIO17"
	}
	if cfg.Hardware.Strip.Pixels == 0 {
		cfg.Hardware.Strip.Pixels = 10
	}
	if cfg.Hardware.Strip.SpeedHz == 0 {
		cfg.Hardware.Strip.SpeedHz = 4_000_000
	}
	if cfg.Hardware.Strip.Scaling == "" {
		cfg.Hardware.Strip.Scaling = "rgb"
	}
	if cfg.Hardware.Strip.MaxFPS == 0 {
		cfg.Hardware.Strip.MaxFPS = 50
	}
	if cfg.Hardware.LightSensor.Address == 0 {
		cfg.Hardware.LightSensor.Address = 0x23
	}
	if cfg.Hardware.LightSensor.RawMax == 0 {
		cfg.Hardware.LightSensor.RawMax = 255
	}

	// Light defaults
	if cfg.Light.InitialPower == nil {
		power := 100
		cfg.Light.InitialPower = &power
	}
	if cfg.Light.StepsPerSecond == 0 {
		cfg.Light.StepsPerSecond = 10
	}
	if cfg.Light.MaxRampDuration == 0 {
		cfg.Light.MaxRampDuration = Duration(60 * time.Second)
	}

	// Sensor defaults
	if cfg.Sensor.Threshold == nil {
		threshold := 50
		cfg.Sensor.Threshold = &threshold
	}
	if cfg.Sensor.PollInterval == 0 {
		cfg.Sensor.PollInterval = Duration(time.Second)
	}
	if cfg.Sensor.PresenceHold == 0 {
		cfg.Sensor.PresenceHold = Duration(30 * time.Second)
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// envOverrides lists the settings that can be changed per deployment
// without editing the file.
type envOverrides struct {
	LogLevel     string        `env:"STREETLIGHT_LOG_LEVEL"`
	LogJSON      bool          `env:"STREETLIGHT_LOG_JSON"`
	Driver       string        `env:"STREETLIGHT_DRIVER"`
	RelayPin     string        `env:"STREETLIGHT_RELAY_PIN"`
	PresencePin  string        `env:"STREETLIGHT_PRESENCE_PIN"`
	Scaling      string        `env:"STREETLIGHT_STRIP_SCALING"`
	MaxFPS       int           `env:"STREETLIGHT_STRIP_MAX_FPS"`
	InitialPower int           `env:"STREETLIGHT_INITIAL_POWER"`
	Threshold    int           `env:"STREETLIGHT_THRESHOLD"`
	PollInterval time.Duration `env:"STREETLIGHT_POLL_INTERVAL"`
	PresenceHold time.Duration `env:"STREETLIGHT_PRESENCE_HOLD"`
	Script       string        `env:"STREETLIGHT_SCRIPT"`
}

// applyEnv overlays set STREETLIGHT_* variables. Unset variables keep the
// file value.
func (cfg *Config) applyEnv() error {
	o := envOverrides{
		LogLevel:     cfg.Log.Level,
		LogJSON:      cfg.Log.JSON,
		Driver:       cfg.Hardware.Driver,
		RelayPin:     cfg.Hardware.RelayPin,
		PresencePin:  cfg.Hardware.PresencePin,
		Scaling:      cfg.Hardware.Strip.Scaling,
		MaxFPS:       cfg.Hardware.Strip.MaxFPS,
		InitialPower: *cfg.Light.InitialPower,
		Threshold:    *cfg.Sensor.Threshold,
		PollInterval: cfg.Sensor.PollInterval.Duration(),
		PresenceHold: cfg.Sensor.PresenceHold.Duration(),
		Script:       cfg.Script,
	}
	if err := env.Parse(&o); err != nil {
		return err
	}

	cfg.Log.Level = o.LogLevel
	cfg.Log.JSON = o.LogJSON
	cfg.Hardware.Driver = o.Driver
	cfg.Hardware.RelayPin = o.RelayPin
	cfg.Hardware.PresencePin = o.PresencePin
	cfg.Hardware.Strip.Scaling = o.Scaling
	cfg.Hardware.Strip.MaxFPS = o.MaxFPS
	cfg.Light.InitialPower = &o.InitialPower
	cfg.Sensor.Threshold = &o.Threshold
	cfg.Sensor.PollInterval = Duration(o.PollInterval)
	cfg.Sensor.PresenceHold = Duration(o.PresenceHold)
	cfg.Script = o.Script
	return nil
}

// A single ramp lasts at most a minute and emits at most 600 steps.
const (
	rampDurationLimit = 60 * time.Second
	rampStepLimit     = 600
)

// Validate rejects settings that cannot be clamped into shape.
func (cfg *Config) Validate() error {
	switch cfg.Hardware.Driver {
	case "sim", "periph":
	default:
		return fmt.Errorf("hardware.driver: unknown driver %q (want sim or periph)", cfg.Hardware.Driver)
	}
	if cfg.Hardware.Strip.Pixels < 1 {
		return fmt.Errorf("hardware.strip.pixels: must be positive, got %d", cfg.Hardware.Strip.Pixels)
	}
	if cfg.Hardware.LightSensor.RawMax < 1 {
		return fmt.Errorf("hardware.light_sensor.raw_max: must be positive, got %d", cfg.Hardware.LightSensor.RawMax)
	}
	if cfg.Light.StepsPerSecond < 1 {
		return fmt.Errorf("light.steps_per_second: must be positive, got %d", cfg.Light.StepsPerSecond)
	}
	maxRamp := cfg.Light.MaxRampDuration.Duration()
	if maxRamp <= 0 || maxRamp > rampDurationLimit {
		return fmt.Errorf("light.max_ramp_duration: must be in (0, %s], got %s", rampDurationLimit, maxRamp)
	}
	if steps := int64(maxRamp) * int64(cfg.Light.StepsPerSecond) / int64(time.Second); steps > rampStepLimit {
		return fmt.Errorf("light.steps_per_second: %d steps/s over %s is %d steps, limit is %d",
			cfg.Light.StepsPerSecond, maxRamp, steps, rampStepLimit)
	}
	if cfg.Sensor.PollInterval.Duration() <= 0 {
		return fmt.Errorf("sensor.poll_interval: must be positive")
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
