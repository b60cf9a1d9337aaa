// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/relabs-tech/enviro_monitor/internal/errcode"
)

// DefaultPath is where the monitor looks for its configuration when no
// --config flag is given.
const DefaultPath = "enviro.yml"

// Config holds all application configuration values.
type Config struct {
	// Mock replaces every device with a synthetic source, for running off the Pi.
	Mock bool `mapstructure:"mock"`

	Display DisplayConfig `mapstructure:"display"`
	Sensors SensorsConfig `mapstructure:"sensors"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Web     WebConfig     `mapstructure:"web"`
}

// Display drivers.
const (
	DriverST7735  = "st7735"
	DriverSSD1306 = "ssd1306"
)

// DisplayConfig describes the panel and the render loop.
type DisplayConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Interval float64 `mapstructure:"interval"` // seconds
	Driver   string  `mapstructure:"driver"`   // st7735 (Enviro LCD) or ssd1306 (I2C OLED)

	SPIPort      string `mapstructure:"spi_port"`
	SPISpeedHz   int64  `mapstructure:"spi_speed_hz"`
	DCPin        string `mapstructure:"dc_pin"`
	BacklightPin string `mapstructure:"backlight_pin"`
	ResetPin     string `mapstructure:"reset_pin"`

	Width     int `mapstructure:"width"`
	Height    int `mapstructure:"height"`
	ColOffset int `mapstructure:"col_offset"`
	RowOffset int `mapstructure:"row_offset"`
	Columns   int `mapstructure:"columns"` // columns in the "all sensors" grid
}

// SensorsConfig covers the onboard devices.
type SensorsConfig struct {
	I2CBus      string  `mapstructure:"i2c_bus"`
	HistoryLen  int     `mapstructure:"history_len"`
	MinInterval float64 `mapstructure:"min_interval"` // seconds, 0 = display interval

	BME280Addr    uint16  `mapstructure:"bme280_addr"`
	CPUTempFactor float64 `mapstructure:"cpu_temp_factor"`

	LTR559Addr         uint16  `mapstructure:"ltr559_addr"`
	ProximityThreshold float64 `mapstructure:"proximity_threshold"`
	ProximityDebounce  float64 `mapstructure:"proximity_debounce"` // seconds

	Noise        NoiseConfig        `mapstructure:"noise"`
	Particulates ParticulatesConfig `mapstructure:"particulates"`
}

// NoiseConfig controls the microphone capture.
type NoiseConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Device     string  `mapstructure:"device"` // ALSA capture device
	SampleRate int     `mapstructure:"sample_rate"`
	Duration   float64 `mapstructure:"duration"` // seconds
	NoiseFloor int     `mapstructure:"noise_floor"`
}

// ParticulatesConfig is the optional PMS5003 on the UART.
type ParticulatesConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
}

// MQTTConfig mirrors the mqtt section of enviro.yml.
type MQTTConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Host     string  `mapstructure:"host"`
	Port     int     `mapstructure:"port"`
	Topic    string  `mapstructure:"topic"`
	Username string  `mapstructure:"username"`
	Password string  `mapstructure:"password"`
	TLS      bool    `mapstructure:"tls"`
	Interval float64 `mapstructure:"interval"` // seconds

	RetryAttempts uint    `mapstructure:"retry_attempts"`
	RetryDelay    float64 `mapstructure:"retry_delay"` // seconds, doubled per attempt
}

// WebConfig is the optional live view.
type WebConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("mock", false)

	v.SetDefault("display.enabled", true)
	v.SetDefault("display.interval", 0.25)
	v.SetDefault("display.driver", DriverST7735)
	v.SetDefault("display.spi_port", "SPI0.1")
	v.SetDefault("display.spi_speed_hz", 10_000_000)
	v.SetDefault("display.dc_pin", "GPIO9")
	v.SetDefault("display.backlight_pin", "GPIO12")
	v.SetDefault("display.reset_pin", "")
	v.SetDefault("display.width", 160)
	v.SetDefault("display.height", 80)
	v.SetDefault("display.col_offset", 1)
	v.SetDefault("display.row_offset", 26)
	v.SetDefault("display.columns", 1)

	v.SetDefault("sensors.i2c_bus", "")
	v.SetDefault("sensors.history_len", 160)
	v.SetDefault("sensors.min_interval", 0)
	v.SetDefault("sensors.bme280_addr", 0x76)
	v.SetDefault("sensors.cpu_temp_factor", 2.0)
	v.SetDefault("sensors.ltr559_addr", 0x23)
	v.SetDefault("sensors.proximity_threshold", 1500)
	v.SetDefault("sensors.proximity_debounce", 0.5)
	v.SetDefault("sensors.noise.enabled", true)
	v.SetDefault("sensors.noise.device", "default")
	v.SetDefault("sensors.noise.sample_rate", 16000)
	v.SetDefault("sensors.noise.duration", 0.5)
	v.SetDefault("sensors.noise.noise_floor", 100)
	v.SetDefault("sensors.particulates.enabled", false)
	v.SetDefault("sensors.particulates.port", "/dev/ttyAMA0")
	v.SetDefault("sensors.particulates.baud_rate", 9600)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.topic", "enviro")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.tls", false)
	v.SetDefault("mqtt.interval", 5.0)
	v.SetDefault("mqtt.retry_attempts", 3)
	v.SetDefault("mqtt.retry_delay", 0.5)

	v.SetDefault("web.enabled", false)
	v.SetDefault("web.port", 8080)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults are static; failing to decode them is a programming error.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ENVIRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads a YAML configuration file. A missing file is not an error: the
// defaults are returned instead (display on at 0.25s, MQTT off).
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, errcode.Wrap(errcode.Config, "read "+configPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, errcode.Wrap(errcode.Config, "stat "+configPath, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, errcode.Wrap(errcode.Config, "validate", err)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errcode.Wrap(errcode.Config, "decode", err)
	}
	return cfg, nil
}

// validate checks ranges and fields that are required once a feature is enabled.
func (c *Config) validate() error {
	if c.Display.Enabled {
		if c.Display.Interval <= 0 {
			return fmt.Errorf("display.interval must be > 0, got %v", c.Display.Interval)
		}
		if c.Display.Width <= 0 || c.Display.Height <= 0 {
			return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
		}
		if c.Display.Driver != DriverST7735 && c.Display.Driver != DriverSSD1306 {
			return fmt.Errorf("display.driver must be %s or %s, got %q", DriverST7735, DriverSSD1306, c.Display.Driver)
		}
		if c.Display.Columns < 1 {
			return fmt.Errorf("display.columns must be >= 1, got %d", c.Display.Columns)
		}
	}

	if c.Sensors.HistoryLen < 1 {
		return fmt.Errorf("sensors.history_len must be >= 1, got %d", c.Sensors.HistoryLen)
	}
	if c.Sensors.MinInterval < 0 {
		return fmt.Errorf("sensors.min_interval must be >= 0, got %v", c.Sensors.MinInterval)
	}
	if c.Sensors.CPUTempFactor == 0 {
		return fmt.Errorf("sensors.cpu_temp_factor must not be 0")
	}
	if c.Sensors.ProximityDebounce < 0 {
		return fmt.Errorf("sensors.proximity_debounce must be >= 0, got %v", c.Sensors.ProximityDebounce)
	}
	if n := c.Sensors.Noise; n.Enabled {
		if n.SampleRate <= 0 {
			return fmt.Errorf("sensors.noise.sample_rate must be > 0, got %d", n.SampleRate)
		}
		if n.Duration <= 0 {
			return fmt.Errorf("sensors.noise.duration must be > 0, got %v", n.Duration)
		}
		if n.NoiseFloor < 0 || n.NoiseFloor >= n.SampleRate/2 {
			return fmt.Errorf("sensors.noise.noise_floor must be in [0, %d), got %d", n.SampleRate/2, n.NoiseFloor)
		}
	}
	if p := c.Sensors.Particulates; p.Enabled {
		if p.Port == "" {
			return fmt.Errorf("sensors.particulates.port is required")
		}
		if p.BaudRate <= 0 {
			return fmt.Errorf("sensors.particulates.baud_rate must be > 0, got %d", p.BaudRate)
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt.host is required")
		}
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			return fmt.Errorf("mqtt.port must be 1-65535, got %d", c.MQTT.Port)
		}
		if c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required")
		}
		if c.MQTT.Interval <= 0 {
			return fmt.Errorf("mqtt.interval must be > 0, got %v", c.MQTT.Interval)
		}
		if c.MQTT.RetryAttempts < 1 {
			return fmt.Errorf("mqtt.retry_attempts must be >= 1, got %d", c.MQTT.RetryAttempts)
		}
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port must be 1-65535, got %d", c.Web.Port)
	}
	if !c.Display.Enabled && !c.MQTT.Enabled && !c.Web.Enabled {
		return fmt.Errorf("nothing to run: enable at least one of display, mqtt or web")
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// UpdateInterval is the pause between two rendered frames.
func (d DisplayConfig) UpdateInterval() time.Duration { return seconds(d.Interval) }

// PublishInterval is the pause between two published readings.
func (m MQTTConfig) PublishInterval() time.Duration { return seconds(m.Interval) }

// RetryBaseDelay is the first backoff delay for a failed publish.
func (m MQTTConfig) RetryBaseDelay() time.Duration { return seconds(m.RetryDelay) }

// Debounce is the minimum time between two accepted proximity presses.
func (s SensorsConfig) Debounce() time.Duration { return seconds(s.ProximityDebounce) }

// ReadInterval is the minimum time between two physical reads of a metric.
// It follows the display interval unless set explicitly.
func (c *Config) ReadInterval() time.Duration {
	if c.Sensors.MinInterval > 0 {
		return seconds(c.Sensors.MinInterval)
	}
	return c.Display.UpdateInterval()
}

// CaptureDuration is how long each noise sample records for.
func (n NoiseConfig) CaptureDuration() time.Duration { return seconds(n.Duration) }

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.MQTT.Password != "" {
		c.MQTT.Password = "**********"
	}
	return c
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
