// Package config provides configuration management for decklab using
// Viper: values come from .decklab.yml, DECKLAB_-prefixed environment
// variables, and command-line flags, in ascending precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Deck   DeckConfig   `yaml:"deck" mapstructure:"deck"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig holds preview-server settings.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// DeckConfig locates the active deck.
type DeckConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// DebounceMS is the watcher debounce window in milliseconds.
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	// CacheSize is the render-cache capacity in documents; 0 disables
	// caching.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// ExportConfig holds export-collector settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	// TimeoutMS bounds each headless capture step in milliseconds.
	TimeoutMS int `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load builds the configuration from viper's merged sources, applies
// defaults, and validates it.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Deck.Dir == "" {
		config.Deck.Dir = "decks/race-to-agi"
	}
	if config.Deck.DebounceMS == 0 {
		config.Deck.DebounceMS = 300
	}
	if !viper.IsSet("deck.cache_size") && config.Deck.CacheSize == 0 {
		config.Deck.CacheSize = 8
	}
	if config.Export.OutputDir == "" {
		config.Export.OutputDir = "output/cards"
	}
	if config.Export.TimeoutMS == 0 {
		config.Export.TimeoutMS = 30000
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values for security and
// correctness.
func validateConfig(config *Config) error {
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Server.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Server.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	for name, path := range map[string]string{
		"deck.dir":          config.Deck.Dir,
		"export.output_dir": config.Export.OutputDir,
	} {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if config.Deck.DebounceMS < 0 {
		return fmt.Errorf("deck.debounce_ms must not be negative")
	}
	if config.Deck.CacheSize < 0 {
		return fmt.Errorf("deck.cache_size must not be negative")
	}

	return nil
}

// validatePath rejects traversal and shell metacharacters in configured
// paths.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
