// Package config loads the runtime settings of dtree from a YAML file and
// DTREE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"dtree/advisor"
	"dtree/layout"
	"dtree/solver"
)

const (
	EnvPrefix     = "DTREE_"
	DefaultAddr   = ":8080"
	APIKeyEnv     = "OPENAI_API_KEY"
	DefaultLevel  = "info"
	DefaultOutDir = "out"
)

var ErrInvalid = errors.New("invalid config")

var validate = validator.New()

type Server struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Advisor struct {
	Model         string        `yaml:"model" validate:"required"`
	BaseURL       string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	RatePerMinute int           `yaml:"rate_per_minute" validate:"gte=0"`
	APIKey        string        `yaml:"-"`
}

// Options converts the advisor settings for advisor.NewOpenAI.
func (a Advisor) Options() advisor.Options {
	return advisor.Options{
		APIKey:        a.APIKey,
		Model:         a.Model,
		BaseURL:       a.BaseURL,
		Timeout:       a.Timeout,
		RatePerMinute: a.RatePerMinute,
	}
}

type Config struct {
	PacingDelay time.Duration  `yaml:"pacing_delay" validate:"gte=0"`
	Layout      layout.Options `yaml:"layout"`
	Server      Server         `yaml:"server"`
	Advisor     Advisor        `yaml:"advisor"`
	OutDir      string         `yaml:"out_dir" validate:"required"`
	LogLevel    string         `yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
}

func Default() Config {
	return Config{
		PacingDelay: solver.DefaultDelay,
		Layout:      layout.DefaultOptions(),
		Server:      Server{Addr: DefaultAddr},
		Advisor: Advisor{
			Model:         advisor.DefaultModel,
			Timeout:       advisor.DefaultTimeout,
			RatePerMinute: advisor.DefaultRatePerMinute,
		},
		OutDir:   DefaultOutDir,
		LogLevel: DefaultLevel,
	}
}

// Load starts from the defaults, merges the YAML file at path when one is
// given, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Level parses LogLevel for zerolog.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if key, ok := lookup(APIKeyEnv); ok {
		c.Advisor.APIKey = key
	}

	texts := map[string]*string{
		"SERVER_ADDR":      &c.Server.Addr,
		"ADVISOR_MODEL":    &c.Advisor.Model,
		"ADVISOR_BASE_URL": &c.Advisor.BaseURL,
		"OUT_DIR":          &c.OutDir,
		"LOG_LEVEL":        &c.LogLevel,
	}
	for name, field := range texts {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	durations := map[string]*time.Duration{
		"PACING_DELAY":    &c.PacingDelay,
		"ADVISOR_TIMEOUT": &c.Advisor.Timeout,
	}
	for name, field := range durations {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", ErrInvalid, EnvPrefix, name, err)
			}
			*field = d
		}
	}

	floats := map[string]*float64{
		"LAYOUT_HORIZONTAL_SPACING": &c.Layout.HorizontalSpacing,
		"LAYOUT_VERTICAL_SPACING":   &c.Layout.VerticalSpacing,
		"LAYOUT_ANCHOR_OFFSET":      &c.Layout.AnchorOffset,
	}
	for name, field := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", ErrInvalid, EnvPrefix, name, err)
			}
			*field = f
		}
	}

	if v, ok := lookup(EnvPrefix + "ADVISOR_RATE_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sADVISOR_RATE_PER_MINUTE: %w", ErrInvalid, EnvPrefix, err)
		}
		c.Advisor.RatePerMinute = n
	}
	return nil
}
