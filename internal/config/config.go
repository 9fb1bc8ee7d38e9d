// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fpang/retrosnap/internal/filter"
)

// Config is shared by the CLI and the web server. Command-line flags override
// individual fields after Load.
type Config struct {
	Addr     string `env:"RETROSNAP_ADDR"      envDefault:":8080"`
	LogLevel string `env:"RETROSNAP_LOG_LEVEL" envDefault:"info"`

	Model              string        `env:"GEMINI_MODEL"                  envDefault:"gemini-2.5-flash"`
	CaptionTemperature float32       `env:"RETROSNAP_CAPTION_TEMPERATURE" envDefault:"0.8"`
	CaptionTimeout     time.Duration `env:"RETROSNAP_CAPTION_TIMEOUT"     envDefault:"30s"`

	DefaultFilter string        `env:"RETROSNAP_DEFAULT_FILTER" envDefault:"Fuji"`
	FlashDuration time.Duration `env:"RETROSNAP_FLASH_DURATION" envDefault:"200ms"`
	JPEGQuality   int           `env:"RETROSNAP_JPEG_QUALITY"   envDefault:"90"`

	Device        string `env:"RETROSNAP_DEVICE"         envDefault:"/dev/video0"`
	DeviceFormat  string `env:"RETROSNAP_DEVICE_FORMAT"  envDefault:"v4l2"`
	CaptureWidth  int    `env:"RETROSNAP_CAPTURE_WIDTH"  envDefault:"1920"`
	CaptureHeight int    `env:"RETROSNAP_CAPTURE_HEIGHT" envDefault:"1080"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := filter.Parse(c.DefaultFilter); err != nil {
		errs = append(errs, fmt.Errorf("RETROSNAP_DEFAULT_FILTER: %w", err))
	}
	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		errs = append(errs, fmt.Errorf("capture size %dx%d must be positive", c.CaptureWidth, c.CaptureHeight))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("RETROSNAP_JPEG_QUALITY %d out of range 1..100", c.JPEGQuality))
	}
	if c.CaptionTimeout < 0 {
		errs = append(errs, errors.New("RETROSNAP_CAPTION_TIMEOUT must not be negative"))
	}
	if c.FlashDuration < 0 {
		errs = append(errs, errors.New("RETROSNAP_FLASH_DURATION must not be negative"))
	}

	return errors.Join(errs...)
}

// Filter returns the configured default filter. Call Validate first.
func (c Config) Filter() filter.ID {
	id, err := filter.Parse(c.DefaultFilter)
	if err != nil {
		return filter.Default
	}
	return id
}
