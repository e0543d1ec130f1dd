// Package config layers memodeck configuration from a YAML file,
// MEMODECK_* environment variables and command-line flags, in that order
// of precedence, and validates the result.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "MEMODECK_"

// Config is the full runtime configuration.
type Config struct {
	// DBPath is the SQLite collection file.
	DBPath string `koanf:"db" validate:"required"`
	// Listen is the web UI address.
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// RolloverHour is the hour (0..23) at which a new study day begins.
	RolloverHour int `koanf:"rollover-hour" validate:"gte=0,lte=23"`
	// LookAheadMins is how far ahead of now learning cards may be pulled
	// forward when nothing else is due.
	LookAheadMins int `koanf:"look-ahead-mins" validate:"gte=1,lte=1440"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log-level" validate:"oneof=debug info warn error"`
}

// LookAhead returns the learn-ahead window as a duration.
func (c Config) LookAhead() time.Duration {
	return time.Duration(c.LookAheadMins) * time.Minute
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		DBPath:        "memodeck.db",
		Listen:        "localhost:8080",
		RolloverHour:  4,
		LookAheadMins: 20,
		LogLevel:      "info",
	}
}

// Load assembles the configuration. The file at path is optional unless it
// was explicitly requested; environment variables override the file, and
// set flags override both.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if explicitFile(flags) {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, statErr)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func explicitFile(flags *pflag.FlagSet) bool {
	return flags != nil && flags.Changed("config")
}
