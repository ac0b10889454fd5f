// Package config provides configuration management for tatum using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files (.tatum.yml), environment
// variable overrides with the TATUM_ prefix, and validation. It manages the
// preview server settings, the active template directory, the live-reload
// watch timings and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied by Load when a value is not set.
const (
	DefaultHost         = "127.0.0.1"
	DefaultTemplatePath = ".tatum/default"
	DefaultDebounce     = 150 * time.Millisecond
	DefaultPollInterval = time.Second
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Template TemplateConfig `mapstructure:"template" yaml:"template"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	// Port 0 asks the operating system for a free port.
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	// Root is the directory documents are served from.
	Root           string   `mapstructure:"root" yaml:"root"`
	// Open is a document to open in the browser once the server is up.
	Open           string   `mapstructure:"open" yaml:"open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type TemplateConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type WatchConfig struct {
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Quiet  bool   `mapstructure:"quiet" yaml:"quiet"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Root == "" {
		config.Server.Root = "."
	}
	if config.Template.Path == "" {
		config.Template.Path = DefaultTemplatePath
	}
	if !viper.IsSet("watch.debounce") && config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if !viper.IsSet("watch.poll_interval") && config.Watch.PollInterval == 0 {
		config.Watch.PollInterval = DefaultPollInterval
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	// Handle allowed origins set via viper (workaround for viper slice handling)
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Addr returns the host:port the preview server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateTemplateConfig(&config.Template); err != nil {
		return fmt.Errorf("template config: %w", err)
	}

	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log config: unknown format %q (text, json)", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// 0 is allowed: the listener picks a free port
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if strings.ContainsRune(config.Root, 0) {
		return fmt.Errorf("root contains a NUL byte")
	}

	return nil
}

func validateTemplateConfig(config *TemplateConfig) error {
	if strings.ContainsRune(config.Path, 0) {
		return fmt.Errorf("template path contains a NUL byte")
	}
	if filepath.Clean(config.Path) == "/" {
		return fmt.Errorf("template path cannot be the filesystem root")
	}

	return nil
}

func validateWatchConfig(config *WatchConfig) error {
	if config.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", config.Debounce)
	}
	if config.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative, got %s", config.PollInterval)
	}
	if config.PollInterval > 0 && config.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("poll_interval %s is too short (minimum 10ms)", config.PollInterval)
	}

	return nil
}
