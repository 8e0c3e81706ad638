// Package config loads configuration from the environment, with an optional
// TOML profile file filling in values the environment leaves unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the CLI and the simulation server.
type Config struct {
	// Backend
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:8000/api"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// Local state
	StatePath string `envconfig:"STATE_PATH"`

	// Labels
	LabelFormat string `envconfig:"LABEL_FORMAT" default:"letter"`
	LabelsDir   string `envconfig:"LABELS_DIR" default:"."`

	// Simulation server
	Port   int    `envconfig:"PORT" default:"8000"`
	DBPath string `envconfig:"DB_PATH" default:"bulkship-sim.db"`

	// Telemetry
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"bulk-shipping-platform"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// profile is the subset of settings a ~/.bulkship/profile.toml may carry.
type profile struct {
	APIBaseURL  string `toml:"api_base_url"`
	LogLevel    string `toml:"log_level"`
	LabelFormat string `toml:"label_format"`
	LabelsDir   string `toml:"labels_dir"`
	StatePath   string `toml:"state_path"`
}

// Load reads configuration from environment variables and overlays the
// profile file. Explicit environment variables always win over the file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.applyProfile(profilePath()); err != nil {
		return nil, err
	}

	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(configDir(), "state.db")
	}
	return &cfg, nil
}

// applyProfile overlays values from the TOML profile for settings whose
// environment variable is unset.
func (c *Config) applyProfile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var p profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return fmt.Errorf("reading profile %s: %w", path, err)
	}

	overlay := func(envKey string, dst *string, fileVal string) {
		if fileVal == "" {
			return
		}
		if _, set := os.LookupEnv(envKey); set {
			return
		}
		*dst = fileVal
	}
	overlay("API_BASE_URL", &c.APIBaseURL, p.APIBaseURL)
	overlay("LOG_LEVEL", &c.LogLevel, p.LogLevel)
	overlay("LABEL_FORMAT", &c.LabelFormat, p.LabelFormat)
	overlay("LABELS_DIR", &c.LabelsDir, p.LabelsDir)
	overlay("STATE_PATH", &c.StatePath, p.StatePath)
	return nil
}

func profilePath() string {
	if p := os.Getenv("BULKSHIP_PROFILE"); p != "" {
		return p
	}
	return filepath.Join(configDir(), "profile.toml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".bulkship")
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("backend.base_url", c.APIBaseURL),
	}
}
