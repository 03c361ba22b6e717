package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CloudProvider describes one remote chat-completion backend.
type CloudProvider struct {
	// Name the provider is addressed by over the API.
	Name string `json:"name" yaml:"name" toml:"name"`
	// Endpoint is the chat-completion URL. Must be https.
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	// Model sent when the caller does not override it.
	Model string `json:"model" yaml:"model" toml:"model"`
	// SecretKey is the environment variable holding the API credential.
	SecretKey string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; WithDefaults fills them in.
type Config struct {
	Addr            string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir       string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel    string `json:"default_model" yaml:"default_model" toml:"default_model"`
	DefaultProvider string `json:"default_provider" yaml:"default_provider" toml:"default_provider"`

	// Local engine tuning.
	ContextSize   int `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize     int `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads       int `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers     int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS     int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`

	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	Providers []CloudProvider `json:"providers" yaml:"providers" toml:"providers"`
}

// WithDefaults returns a copy with unspecified fields set to defaults.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "~/models/llm"
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = "local"
	}
	if c.ContextSize <= 0 {
		c.ContextSize = 4096
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 512
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = 8
	}
	if c.MaxWaitMS <= 0 {
		c.MaxWaitMS = 30_000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
