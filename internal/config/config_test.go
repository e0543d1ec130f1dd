package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// testFlags mirrors the main command's flag set: flag defaults equal the
// config defaults so an unset flag never overrides file or env values.
func testFlags() *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("db", d.DBPath, "")
	fs.String("listen", d.Listen, "")
	fs.Int("rollover-hour", d.RolloverHour, "")
	fs.Int("look-ahead-mins", d.LookAheadMins, "")
	fs.String("log-level", d.LogLevel, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
	if cfg.LookAhead() != 20*time.Minute {
		t.Errorf("LookAhead = %v, want 20m", cfg.LookAhead())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memodeck.yaml")
	data := "db: /tmp/col.db\nrollover-hour: 2\nlog-level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/col.db" || cfg.RolloverHour != 2 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.Listen != Default().Listen {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memodeck.yaml")
	if err := os.WriteFile(path, []byte("rollover-hour: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("MEMODECK_ROLLOVER_HOUR", "6")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RolloverHour != 6 {
		t.Errorf("RolloverHour = %d, want env value 6", cfg.RolloverHour)
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv("MEMODECK_LISTEN", "localhost:9999")
	fs := testFlags()
	if err := fs.Parse([]string{"--listen", "localhost:7000"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "localhost:7000" {
		t.Errorf("Listen = %q, want flag value", cfg.Listen)
	}
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("MEMODECK_LOG_LEVEL", "warn")
	fs := testFlags()
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env value kept over zero-valued flag", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"rollover out of range", func(c *Config) { c.RolloverHour = 24 }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }},
		{"zero look-ahead", func(c *Config) { c.LookAheadMins = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("Validate accepted %+v", cfg)
			}
		})
	}
}

func TestLoadMissingExplicitConfigFails(t *testing.T) {
	fs := testFlags()
	if err := fs.Parse([]string{"--config", "/does/not/exist.yaml"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Load("/does/not/exist.yaml", fs); err == nil {
		t.Error("Load accepted a missing explicit config file")
	}
}
