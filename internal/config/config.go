// Package config provides configuration management for ssh-operations-hub.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values matching the shipped tool configuration.
var (
	DefaultIPPrefix   = "10.200.142"
	DefaultAllowedIPs = []string{"1-10", "15", "17", "20-25"}
	DefaultSSHOptions = []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=5",
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", "ControlMaster=no",
	}
)

// Config is the validated configuration the core consumes. The core never sees
// raw config keys; this struct is populated once and passed by value.
type Config struct {
	IPPrefix       string        `mapstructure:"ip-prefix"`       // Shared network prefix
	AllowedIPs     []string      `mapstructure:"allowed-ips"`     // Allow-list tokens (values or A-B ranges)
	MaxParallel    int           `mapstructure:"max-parallel"`    // Worker pool size
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"` // Per-invocation timeout
	GlobalTimeout  time.Duration `mapstructure:"global-timeout"`  // Whole-run timeout
	SSHOptions     []string      `mapstructure:"ssh-options"`     // Protocol-client flags
	Output         string        `mapstructure:"output"`          // Output mode (streamed, buffered, json)
	LogLevel       string        `mapstructure:"log-level"`       // Log level (info, error)
	LogFormat      string        `mapstructure:"log-format"`      // Log format (text, json)
	Quiet          bool          `mapstructure:"quiet"`           // Suppress non-error output
	ShowProgress   bool          `mapstructure:"progress"`        // Show progress display
	DryRun         bool          `mapstructure:"dry-run"`         // Render the plan without connecting
}

// Manager loads and validates configuration.
type Manager interface {
	// Load reads configuration from all sources (files, env vars)
	Load() (*Config, error)

	// Validate ensures configuration values are valid and consistent
	Validate(config *Config) error
}

// ViperManager implements Manager using Viper.
type ViperManager struct {
	v *viper.Viper
}

// NewManager creates a new configuration manager.
func NewManager() Manager {
	return &ViperManager{v: viper.New()}
}

func (m *ViperManager) setDefaults() {
	m.v.SetDefault("ip-prefix", DefaultIPPrefix)
	m.v.SetDefault("allowed-ips", DefaultAllowedIPs)
	m.v.SetDefault("max-parallel", 10)
	m.v.SetDefault("connect-timeout", 10*time.Second)
	m.v.SetDefault("global-timeout", time.Hour)
	m.v.SetDefault("ssh-options", DefaultSSHOptions)
	m.v.SetDefault("output", "streamed")
	m.v.SetDefault("log-level", "info")
	m.v.SetDefault("log-format", "text")
	m.v.SetDefault("quiet", false)
	m.v.SetDefault("progress", false)
	m.v.SetDefault("dry-run", false)
}

// Load reads configuration from all sources with proper precedence: defaults,
// then the first config file found (working dir, then user, then system), then
// environment variables with the SSH_OPS_HUB prefix.
func (m *ViperManager) Load() (*Config, error) {
	m.setDefaults()

	m.v.SetConfigName("defaults")

	m.v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		m.v.AddConfigPath(filepath.Join(homeDir, ".config", "ssh-operations-hub"))
	}
	m.v.AddConfigPath("/etc/ssh-operations-hub/")

	m.v.SetEnvPrefix("SSH_OPS_HUB")
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	for _, format := range []string{"yaml", "yml", "json", "toml"} {
		m.v.SetConfigType(format)
		if err := m.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading %s config file: %w", format, err)
			}
			continue
		}
		break
	}

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate ensures configuration values are valid and consistent.
func (m *ViperManager) Validate(config *Config) error {
	if config.MaxParallel < 1 {
		return fmt.Errorf("max-parallel must be at least 1, got %d", config.MaxParallel)
	}

	if config.ConnectTimeout <= 0 {
		return fmt.Errorf("connect-timeout must be positive, got %v", config.ConnectTimeout)
	}

	if config.GlobalTimeout < 0 {
		return fmt.Errorf("global-timeout must be non-negative, got %v", config.GlobalTimeout)
	}

	validOutputs := map[string]bool{"streamed": true, "buffered": true, "json": true}
	if !validOutputs[config.Output] {
		return fmt.Errorf("invalid output format '%s': must be one of 'streamed', 'buffered', or 'json'", config.Output)
	}

	validLogLevels := map[string]bool{"info": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level '%s': must be one of 'info' or 'error'", config.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format '%s': must be one of 'json' or 'text'", config.LogFormat)
	}

	return nil
}
