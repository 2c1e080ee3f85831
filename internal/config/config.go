// Package config provides configuration management for pagelume using
// Viper for loading from files, environment variables and command-line
// flags.
//
// The configuration system supports a .pagelume.yml file, environment
// variable overrides with the PAGELUME_ prefix and validation of every
// value that ends up in a filesystem path or a listen address.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Components  ComponentsConfig  `mapstructure:"components" yaml:"components"`
	Build       BuildConfig       `mapstructure:"build" yaml:"build"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type ComponentsConfig struct {
	// Dir is the components root scanned for type/variation directories
	Dir string `mapstructure:"dir" yaml:"dir"`
	// GlobalAssetsDir holds shared SCSS and the browser runtime scripts
	GlobalAssetsDir string `mapstructure:"global_assets_dir" yaml:"global_assets_dir"`
	// PartialsDir holds *.html partial templates, registered by file name
	PartialsDir string `mapstructure:"partials_dir" yaml:"partials_dir"`
	// Ignore lists extra directory names skipped during discovery
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
}

type BuildConfig struct {
	Minify    bool `mapstructure:"minify" yaml:"minify"`
	SourceMap bool `mapstructure:"source_map" yaml:"source_map"`
}

type DevelopmentConfig struct {
	HotReload bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("components.dir", "components")
	v.SetDefault("components.global_assets_dir", "global-assets")
	v.SetDefault("components.partials_dir", "")
	v.SetDefault("build.minify", false)
	v.SetDefault("build.source_map", false)
	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.debounce", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults and
// validating the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Environment overrides arrive as comma-separated strings.
	if v.IsSet("components.ignore") && len(config.Components.Ignore) == 0 {
		config.Components.Ignore = v.GetStringSlice("components.ignore")
	}
	if v.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePath(config.Components.Dir); err != nil {
		return fmt.Errorf("components.dir: %w", err)
	}
	if err := validatePath(config.Components.GlobalAssetsDir); err != nil {
		return fmt.Errorf("components.global_assets_dir: %w", err)
	}
	if config.Components.PartialsDir != "" {
		if err := validatePath(config.Components.PartialsDir); err != nil {
			return fmt.Errorf("components.partials_dir: %w", err)
		}
	}

	if config.Development.Debounce < 0 {
		return fmt.Errorf("development.debounce must not be negative")
	}

	switch config.Log.Format {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("log.format %q must be one of json, text, pretty", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a file path for security
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
