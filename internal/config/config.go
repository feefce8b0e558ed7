package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-arcaluminis/internal/status"
)

type SPI struct {
	Port   int `yaml:"port"`    // bus number passed to spireg
	FreqHz int `yaml:"freq_hz"` // e.g. 4500000
}

type LEDs struct {
	Count int `yaml:"count"`
}

// Timing mirrors status.Timing in milliseconds.
type Timing struct {
	SelfTestRedMs   int `yaml:"self_test_red_ms"`
	SelfTestGreenMs int `yaml:"self_test_green_ms"`
	SelfTestBlueMs  int `yaml:"self_test_blue_ms"`

	ConfigSuccessMs int `yaml:"config_success_ms"`
	VolumeMs        int `yaml:"volume_ms"`

	DialogOnMs    int `yaml:"dialog_on_ms"`
	DialogOffMs   int `yaml:"dialog_off_ms"`
	DialogTotalMs int `yaml:"dialog_total_ms"`

	BreathMs      int `yaml:"breath_ms"`
	StandbyStepMs int `yaml:"standby_step_ms"`

	WakeFlashOnMs  int  `yaml:"wake_flash_on_ms"`
	WakeFlashOffMs int  `yaml:"wake_flash_off_ms"`
	WakeFlashes    *int `yaml:"wake_flashes,omitempty"`
	WakeWindowMs   *int `yaml:"wake_window_ms,omitempty"`
}

type Preview struct {
	Console     bool   `yaml:"console"`      // draw frames in the terminal
	MonitorAddr string `yaml:"monitor_addr"` // e.g. ":8080", empty disables
	MonitorFPS  int    `yaml:"monitor_fps"`
	MirrorPort  *int   `yaml:"mirror_port,omitempty"` // second SPI bus driving a bench strip
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	SPI     SPI     `yaml:"spi"`
	LEDs    LEDs    `yaml:"leds"`
	Timing  Timing  `yaml:"timing"`
	Preview Preview `yaml:"preview"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration the ring ships with.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads a YAML config. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "read config %q", path)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "decode config %q", path)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func intPtr(v int) *int { return &v }

func (c *Config) setDefaults() {
	d := status.DefaultTiming()
	ms := func(v *int, def time.Duration) {
		if *v == 0 {
			*v = int(def / time.Millisecond)
		}
	}

	if c.SPI.FreqHz == 0 {
		c.SPI.FreqHz = 4500000
	}
	if c.LEDs.Count == 0 {
		c.LEDs.Count = 12
	}

	t := &c.Timing
	ms(&t.SelfTestRedMs, d.SelfTestRed)
	ms(&t.SelfTestGreenMs, d.SelfTestGreen)
	ms(&t.SelfTestBlueMs, d.SelfTestBlue)
	ms(&t.ConfigSuccessMs, d.ConfigSuccessTimeout)
	ms(&t.VolumeMs, d.VolumeTimeout)
	ms(&t.DialogOnMs, d.DialogOn)
	ms(&t.DialogOffMs, d.DialogOff)
	ms(&t.DialogTotalMs, d.DialogTotal)
	ms(&t.BreathMs, d.BreathInterval)
	ms(&t.StandbyStepMs, d.StandbyStep)
	ms(&t.WakeFlashOnMs, d.WakeFlashOn)
	ms(&t.WakeFlashOffMs, d.WakeFlashOff)
	// zero is meaningful for these two, so only a missing key takes the default
	if t.WakeFlashes == nil {
		t.WakeFlashes = intPtr(d.WakeFlashes)
	}
	if t.WakeWindowMs == nil {
		t.WakeWindowMs = intPtr(int(d.WakeWindow / time.Millisecond))
	}

	if c.Preview.MonitorFPS == 0 {
		c.Preview.MonitorFPS = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values the controller cannot run with.
func (c *Config) Validate() error {
	if c.LEDs.Count < 1 || c.LEDs.Count > 1024 {
		return errors.Errorf("config: leds.count %d out of range 1..1024", c.LEDs.Count)
	}
	if c.SPI.Port < 0 {
		return errors.Errorf("config: spi.port %d is negative", c.SPI.Port)
	}
	if c.SPI.FreqHz <= 0 {
		return errors.Errorf("config: spi.freq_hz must be positive")
	}
	t := c.Timing
	for name, v := range map[string]int{
		"self_test_red_ms":   t.SelfTestRedMs,
		"self_test_green_ms": t.SelfTestGreenMs,
		"self_test_blue_ms":  t.SelfTestBlueMs,
		"config_success_ms":  t.ConfigSuccessMs,
		"volume_ms":          t.VolumeMs,
		"dialog_on_ms":       t.DialogOnMs,
		"dialog_off_ms":      t.DialogOffMs,
		"dialog_total_ms":    t.DialogTotalMs,
		"breath_ms":          t.BreathMs,
		"standby_step_ms":    t.StandbyStepMs,
		"wake_flash_on_ms":   t.WakeFlashOnMs,
		"wake_flash_off_ms":  t.WakeFlashOffMs,
	} {
		if v <= 0 {
			return errors.Errorf("config: timing.%s must be positive, got %d", name, v)
		}
	}
	if t.DialogTotalMs < t.DialogOnMs+t.DialogOffMs {
		return errors.Errorf("config: timing.dialog_total_ms %d is shorter than one blink", t.DialogTotalMs)
	}
	if t.WakeFlashes != nil && *t.WakeFlashes < 0 {
		return errors.Errorf("config: timing.wake_flashes is negative")
	}
	if t.WakeWindowMs != nil && *t.WakeWindowMs < 0 {
		return errors.Errorf("config: timing.wake_window_ms is negative")
	}
	if c.Preview.MonitorFPS < 0 {
		return errors.Errorf("config: preview.monitor_fps is negative")
	}
	return nil
}

// StatusTiming converts the millisecond fields for the controller.
func (c *Config) StatusTiming() status.Timing {
	t := c.Timing
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	out := status.Timing{
		SelfTestRed:          ms(t.SelfTestRedMs),
		SelfTestGreen:        ms(t.SelfTestGreenMs),
		SelfTestBlue:         ms(t.SelfTestBlueMs),
		ConfigSuccessTimeout: ms(t.ConfigSuccessMs),
		VolumeTimeout:        ms(t.VolumeMs),
		DialogOn:             ms(t.DialogOnMs),
		DialogOff:            ms(t.DialogOffMs),
		DialogTotal:          ms(t.DialogTotalMs),
		BreathInterval:       ms(t.BreathMs),
		StandbyStep:          ms(t.StandbyStepMs),
		WakeFlashOn:          ms(t.WakeFlashOnMs),
		WakeFlashOff:         ms(t.WakeFlashOffMs),
	}
	if t.WakeFlashes != nil {
		out.WakeFlashes = *t.WakeFlashes
	}
	if t.WakeWindowMs != nil {
		out.WakeWindow = ms(*t.WakeWindowMs)
	}
	return out
}
