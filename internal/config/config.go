// Package config loads and validates the wakelight daemon configuration.
// The YAML file is the primary configuration surface; a handful of flags
// override individual values for debugging and systemd drop-ins.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wakelight/internal/ambient"
	"wakelight/internal/color"
	"wakelight/internal/gpio"
	"wakelight/internal/timeline"
)

// Config is the top-level YAML configuration.
type Config struct {
	Alarm   AlarmConfig   `yaml:"alarm"`
	Dial    DialConfig    `yaml:"dial"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Lamp    LampConfig    `yaml:"lamp"`
	Display DisplayConfig `yaml:"display"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// AlarmConfig holds the sunrise ramp and the first-boot alarm settings.
// The wake offset and enabled flag are only used until the state file
// exists; after that the persisted values win.
type AlarmConfig struct {
	WakeOffsetMin int              `yaml:"default_wake_offset_min"`
	Enabled       bool             `yaml:"default_enabled"`
	Keyframes     []KeyframeConfig `yaml:"keyframes"`
}

// KeyframeConfig is one ramp segment: the color at its start and how long
// the blend toward the next frame's color takes.
type KeyframeConfig struct {
	DurationMin int        `yaml:"duration_min"`
	Color       ColorValue `yaml:"color"`
	Wake        bool       `yaml:"wake,omitempty"`
}

// ColorValue decodes an RGBW color from a 4-element YAML sequence like
// [255, 140, 32, 200].
type ColorValue color.RGBW

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	var parts []int
	if err := value.Decode(&parts); err != nil {
		return fmt.Errorf("color must be a [r, g, b, w] sequence: %w", err)
	}
	if len(parts) != 4 {
		return fmt.Errorf("color needs 4 channels, got %d", len(parts))
	}
	for i, v := range parts {
		if v < 0 || v > 255 {
			return fmt.Errorf("color channel %d out of range 0..255: %d", i, v)
		}
	}
	*c = ColorValue(color.RGBW{
		R: uint8(parts[0]),
		G: uint8(parts[1]),
		B: uint8(parts[2]),
		W: uint8(parts[3]),
	})
	return nil
}

// Frames converts the configured keyframes into timeline keyframes.
func (a AlarmConfig) Frames() []timeline.Keyframe {
	frames := make([]timeline.Keyframe, len(a.Keyframes))
	for i, k := range a.Keyframes {
		frames[i] = timeline.Keyframe{
			Duration: time.Duration(k.DurationMin) * time.Minute,
			Color:    color.RGBW(k.Color),
			Wake:     k.Wake,
		}
	}
	return frames
}

// DialConfig describes the rotary encoder wiring and stepping behavior.
type DialConfig struct {
	Device           string `yaml:"device"`
	PinA             int    `yaml:"pin_a"`
	PinB             int    `yaml:"pin_b"`
	PinButton        int    `yaml:"pin_button"`
	ActiveLow        bool   `yaml:"active_low"`
	DialDebounceUs   int    `yaml:"dial_debounce_us"`
	ButtonDebounceMs int    `yaml:"button_debounce_ms"`
	SpinWindowMs     int    `yaml:"spin_window_ms"`
	StepMin          int    `yaml:"step_min"`
	FastThreshold    int    `yaml:"fast_threshold"`
	FastStepMin      int    `yaml:"fast_step_min"`
}

// Lines returns the GPIO line requests for the dial. The quadrature pair
// shares one short debounce period; the button gets a longer one.
func (d DialConfig) Lines() []gpio.Line {
	dialDebounce := time.Duration(d.DialDebounceUs) * time.Microsecond
	return []gpio.Line{
		{Pin: d.PinA, Role: gpio.RoleDialA, ActiveLow: d.ActiveLow, Debounce: dialDebounce},
		{Pin: d.PinB, Role: gpio.RoleDialB, ActiveLow: d.ActiveLow, Debounce: dialDebounce},
		{Pin: d.PinButton, Role: gpio.RoleButton, ActiveLow: d.ActiveLow, Debounce: time.Duration(d.ButtonDebounceMs) * time.Millisecond},
	}
}

// SpinWindow returns the velocity detection window.
func (d DialConfig) SpinWindow() time.Duration {
	return time.Duration(d.SpinWindowMs) * time.Millisecond
}

// StepFor returns the wake-offset step in minutes for one detent, given how
// many same-direction detents landed inside the spin window.
func (d DialConfig) StepFor(count int) int {
	if count >= d.FastThreshold {
		return d.FastStepMin
	}
	return d.StepMin
}

// SensorConfig describes the ambient light sensor and its filtering.
type SensorConfig struct {
	Device      string            `yaml:"device"`
	PollMs      int               `yaml:"poll_ms"`
	EaseCoeff   float64           `yaml:"ease_coeff"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

// PollPeriod returns the sensor sampling period.
func (s SensorConfig) PollPeriod() time.Duration {
	return time.Duration(s.PollMs) * time.Millisecond
}

// CalibrationConfig mirrors ambient.Calibration with YAML field names.
type CalibrationConfig struct {
	Offset         int     `yaml:"offset"`
	Grid           int     `yaml:"grid"`
	DeltaThreshold int     `yaml:"delta_threshold"`
	Scale          float64 `yaml:"scale"`
	Exponent       float64 `yaml:"exponent"`
	Floor          float64 `yaml:"floor"`
}

// Calibration converts to the ambient package's calibration type.
func (c CalibrationConfig) Calibration() ambient.Calibration {
	return ambient.Calibration{
		Offset:         c.Offset,
		Grid:           c.Grid,
		DeltaThreshold: c.DeltaThreshold,
		Scale:          c.Scale,
		Exponent:       c.Exponent,
		Floor:          c.Floor,
	}
}

// LampConfig describes the PWM lamp output and the paint cadence.
type LampConfig struct {
	PWMChip        string `yaml:"pwm_chip"`
	PeriodNs       int    `yaml:"period_ns"`
	Channels       []int  `yaml:"channels"`
	PaintMs        int    `yaml:"paint_ms"`
	EmitQuietMs    int    `yaml:"emit_quiet_ms"`
	EmitDeadlineMs int    `yaml:"emit_deadline_ms"`
}

// PaintPeriod returns the output repaint period.
func (l LampConfig) PaintPeriod() time.Duration {
	return time.Duration(l.PaintMs) * time.Millisecond
}

// EmitQuiet returns the color-emission debounce quiet period.
func (l LampConfig) EmitQuiet() time.Duration {
	return time.Duration(l.EmitQuietMs) * time.Millisecond
}

// EmitDeadline returns the bound on how long emission may be deferred.
func (l LampConfig) EmitDeadline() time.Duration {
	return time.Duration(l.EmitDeadlineMs) * time.Millisecond
}

// ChannelMap returns the PWM channel assignment as a fixed array. Validate
// has already checked the length.
func (l LampConfig) ChannelMap() [4]int {
	var m [4]int
	copy(m[:], l.Channels)
	return m
}

// DisplayConfig describes the display backlight. An empty directory
// disables display dimming.
type DisplayConfig struct {
	BacklightDir string `yaml:"backlight_dir"`
}

// MQTTConfig describes the event broker connection.
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	HeartbeatMin int    `yaml:"heartbeat_min"`
}

// HeartbeatPeriod returns the heartbeat interval; zero disables heartbeats.
func (m MQTTConfig) HeartbeatPeriod() time.Duration {
	return time.Duration(m.HeartbeatMin) * time.Minute
}

// HTTPConfig describes the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig describes where alarm settings persist.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a fully-populated Config with defaults: a 20-minute
// sunrise into a 10-minute hold and 5-minute fade, a KY-040 style dial on
// the usual Pi pins, and the sensor curve for a bright-room ceiling around
// 3000 counts.
func Default() Config {
	return Config{
		Alarm: AlarmConfig{
			WakeOffsetMin: 420,
			Enabled:       true,
			Keyframes: []KeyframeConfig{
				{DurationMin: 7, Color: ColorValue{}},
				{DurationMin: 7, Color: ColorValue{R: 90, G: 10}},
				{DurationMin: 6, Color: ColorValue{R: 200, G: 60, B: 8, W: 40}},
				{DurationMin: 10, Color: ColorValue{R: 255, G: 140, B: 32, W: 200}, Wake: true},
				{DurationMin: 5, Color: ColorValue{R: 255, G: 140, B: 32, W: 200}},
			},
		},
		Dial: DialConfig{
			Device:           "gpiochip0",
			PinA:             17,
			PinB:             27,
			PinButton:        22,
			ActiveLow:        true,
			DialDebounceUs:   1000,
			ButtonDebounceMs: 20,
			SpinWindowMs:     200,
			StepMin:          1,
			FastThreshold:    3,
			FastStepMin:      5,
		},
		Sensor: SensorConfig{
			Device:    "/sys/bus/iio/devices/iio:device0",
			PollMs:    500,
			EaseCoeff: 0.2,
			Calibration: CalibrationConfig{
				Offset:         -20,
				Grid:           50,
				DeltaThreshold: 40,
				Scale:          3000,
				Exponent:       0.8,
				Floor:          0.05,
			},
		},
		Lamp: LampConfig{
			PWMChip:        "/sys/class/pwm/pwmchip0",
			PeriodNs:       1000000,
			Channels:       []int{0, 1, 2, 3},
			PaintMs:        100,
			EmitQuietMs:    50,
			EmitDeadlineMs: 250,
		},
		Display: DisplayConfig{
			BacklightDir: "/sys/class/backlight/rpi_backlight",
		},
		MQTT: MQTTConfig{
			Broker:       "tcp://192.168.1.200:1883",
			ClientID:     "wakelight",
			HeartbeatMin: 15,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: "/var/lib/wakelight/state.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses a YAML config file on top of the defaults. Unknown
// fields are rejected to catch typos.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config: unexpected trailing document")
	}

	return cfg, nil
}

// Overrides are optional command-line overrides applied on top of a loaded
// config. Nil pointers leave the config value untouched.
type Overrides struct {
	Broker    *string
	HTTPAddr  *string
	StorePath *string
	LogLevel  *string
}

// Apply merges the overrides into cfg.
func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.StorePath != nil {
		cfg.Store.Path = *o.StorePath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file, and overrides are applied; the daemon must
// not start on a config that fails here.
func (c *Config) Validate() error {
	if c.Alarm.WakeOffsetMin < 0 || c.Alarm.WakeOffsetMin >= 1440 {
		return errors.New("alarm.default_wake_offset_min must be in 0..1439")
	}
	if _, err := timeline.NewSchedule(c.Alarm.Frames()); err != nil {
		return fmt.Errorf("alarm.keyframes: %w", err)
	}

	if c.Dial.Device == "" {
		return errors.New("dial.device must not be empty")
	}
	pins := map[int]string{}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"dial.pin_a", c.Dial.PinA},
		{"dial.pin_b", c.Dial.PinB},
		{"dial.pin_button", c.Dial.PinButton},
	} {
		if p.pin < 0 {
			return fmt.Errorf("%s must be >= 0", p.name)
		}
		if prev, dup := pins[p.pin]; dup {
			return fmt.Errorf("%s and %s share pin %d", prev, p.name, p.pin)
		}
		pins[p.pin] = p.name
	}
	if c.Dial.DialDebounceUs < 0 {
		return errors.New("dial.dial_debounce_us must be >= 0")
	}
	if c.Dial.ButtonDebounceMs < 0 {
		return errors.New("dial.button_debounce_ms must be >= 0")
	}
	if c.Dial.SpinWindowMs <= 0 {
		return errors.New("dial.spin_window_ms must be > 0")
	}
	if c.Dial.StepMin <= 0 {
		return errors.New("dial.step_min must be > 0")
	}
	if c.Dial.FastStepMin < c.Dial.StepMin {
		return errors.New("dial.fast_step_min must be >= dial.step_min")
	}
	if c.Dial.FastThreshold < 2 {
		return errors.New("dial.fast_threshold must be >= 2")
	}

	if c.Sensor.Device == "" {
		return errors.New("sensor.device must not be empty")
	}
	if c.Sensor.PollMs <= 0 {
		return errors.New("sensor.poll_ms must be > 0")
	}
	if c.Sensor.EaseCoeff <= 0 || c.Sensor.EaseCoeff > 1 {
		return errors.New("sensor.ease_coeff must be in (0, 1]")
	}
	if err := c.Sensor.Calibration.Calibration().Validate(); err != nil {
		return fmt.Errorf("sensor.calibration: %w", err)
	}

	if c.Lamp.PWMChip == "" {
		return errors.New("lamp.pwm_chip must not be empty")
	}
	if c.Lamp.PeriodNs <= 0 {
		return errors.New("lamp.period_ns must be > 0")
	}
	if len(c.Lamp.Channels) != 4 {
		return fmt.Errorf("lamp.channels needs 4 entries (r, g, b, w), got %d", len(c.Lamp.Channels))
	}
	chans := map[int]bool{}
	for i, ch := range c.Lamp.Channels {
		if ch < 0 {
			return fmt.Errorf("lamp.channels[%d] must be >= 0", i)
		}
		if chans[ch] {
			return fmt.Errorf("lamp.channels repeats channel %d", ch)
		}
		chans[ch] = true
	}
	if c.Lamp.PaintMs <= 0 {
		return errors.New("lamp.paint_ms must be > 0")
	}
	if c.Lamp.EmitQuietMs < 0 {
		return errors.New("lamp.emit_quiet_ms must be >= 0")
	}
	if c.Lamp.EmitDeadlineMs < c.Lamp.EmitQuietMs {
		return errors.New("lamp.emit_deadline_ms must be >= lamp.emit_quiet_ms")
	}

	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker must not be empty")
	}
	if c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must not be empty")
	}
	if c.MQTT.HeartbeatMin < 0 {
		return errors.New("mqtt.heartbeat_min must be >= 0")
	}

	if c.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
