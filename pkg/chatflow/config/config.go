// Package config loads the chatflowd service configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the chatflowd service configuration.
type Config struct {
	// Listen is the HTTP listen address for the webhook server.
	Listen string `yaml:"listen" json:"listen"`
	// VerifyToken answers the Cloud API webhook handshake.
	VerifyToken string `yaml:"verifyToken" json:"verifyToken"`
	// FlowsDir holds the flow definition files served at startup.
	FlowsDir string `yaml:"flowsDir" json:"flowsDir"`
	// MaxHops overrides the per-event hop cap (0 = graph node count).
	MaxHops int `yaml:"maxHops" json:"maxHops"`
	// Metrics enables OpenTelemetry metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`
	// Tracing enables OpenTelemetry tracing.
	Tracing bool `yaml:"tracing" json:"tracing"`

	WhatsApp   WhatsAppConfig   `yaml:"whatsapp" json:"whatsapp"`
	State      StateConfig      `yaml:"state" json:"state"`
	Transcript TranscriptConfig `yaml:"transcript" json:"transcript"`
}

// WhatsAppConfig configures the Cloud API gateway.
type WhatsAppConfig struct {
	// Token is the Cloud API bearer token. The CHATFLOW_WHATSAPP_TOKEN
	// environment variable overrides it so secrets can stay out of files.
	Token         string `yaml:"token" json:"token"`
	PhoneNumberID string `yaml:"phoneNumberId" json:"phoneNumberId"`
	BaseURL       string `yaml:"baseUrl" json:"baseUrl"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	// Driver is one of "memory", "sqlite", "redis".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" json:"path"`
	// Addrs lists Redis endpoints.
	Addrs []string `yaml:"addrs" json:"addrs"`
	// Namespace prefixes Redis keys.
	Namespace string `yaml:"namespace" json:"namespace"`
}

// TranscriptConfig selects the transcript backend.
type TranscriptConfig struct {
	// Driver is one of "memory", "sqlite", "none".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" json:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":8080",
		State: StateConfig{
			Driver: "sqlite",
			Path:   "./chatflow-state.db",
		},
		Transcript: TranscriptConfig{
			Driver: "sqlite",
			Path:   "./chatflow-transcript.db",
		},
	}
}

// FromFile loads configuration from a file, auto-detecting format by
// extension, then applies environment overrides and validates.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment.
func (c *Config) applyEnv() {
	if token := os.Getenv("CHATFLOW_WHATSAPP_TOKEN"); token != "" {
		c.WhatsApp.Token = token
	}
	if token := os.Getenv("CHATFLOW_VERIFY_TOKEN"); token != "" {
		c.VerifyToken = token
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	switch c.State.Driver {
	case "memory":
	case "sqlite":
		if c.State.Path == "" {
			errs = append(errs, errors.New("state.path is required for the sqlite driver"))
		}
	case "redis":
		if len(c.State.Addrs) == 0 {
			errs = append(errs, errors.New("state.addrs is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state driver: %q", c.State.Driver))
	}
	switch c.Transcript.Driver {
	case "memory", "none":
	case "sqlite":
		if c.Transcript.Path == "" {
			errs = append(errs, errors.New("transcript.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transcript driver: %q", c.Transcript.Driver))
	}

	return errors.Join(errs...)
}
