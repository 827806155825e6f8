package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vburojevic/rcw/internal/reconnect"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format" yaml:"format"`
	Quiet   bool   `mapstructure:"quiet" yaml:"quiet"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`

	// Server manager base URL (http or https)
	Server         string `mapstructure:"server" yaml:"server"`
	CredentialFile string `mapstructure:"credential_file" yaml:"credential_file,omitempty"`

	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
}

// ReconnectConfig bounds automatic reconnection
type ReconnectConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   string `mapstructure:"base_delay" yaml:"base_delay" json:"base_delay"`
}

// DefaultsConfig holds default values for the attach command
type DefaultsConfig struct {
	Target       string `mapstructure:"target" yaml:"target,omitempty" json:"target,omitempty"`
	AutoScroll   bool   `mapstructure:"auto_scroll" yaml:"auto_scroll" json:"auto_scroll"`
	ExportFormat string `mapstructure:"export_format" yaml:"export_format" json:"export_format"`
	Tmux         bool   `mapstructure:"tmux" yaml:"tmux" json:"tmux"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "text",
		Quiet:   false,
		Verbose: false,
		Server:  "http://localhost:8080",
		Reconnect: ReconnectConfig{
			MaxAttempts: reconnect.DefaultMaxAttempts,
			BaseDelay:   reconnect.DefaultBaseDelay.String(),
		},
		Defaults: DefaultsConfig{
			AutoScroll:   true,
			ExportFormat: "text",
		},
	}
}

// Policy converts the reconnect section into a retry policy
func (c *Config) Policy() (reconnect.Policy, error) {
	p := reconnect.Policy{MaxAttempts: c.Reconnect.MaxAttempts}
	if c.Reconnect.BaseDelay != "" {
		d, err := time.ParseDuration(c.Reconnect.BaseDelay)
		if err != nil {
			return p, fmt.Errorf("invalid reconnect.base_delay %q: %w", c.Reconnect.BaseDelay, err)
		}
		p.BaseDelay = d
	}
	return p.Normalize(), nil
}

// YAML renders the config in the file format Load reads
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rcw")
		// 1. System-wide config
		v.AddConfigPath("/etc/rcw/")
		// 2. User config directory
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "rcw"))
		}
		// 3. Home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	// Environment variables
	v.SetEnvPrefix("RCW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "RCW_FORMAT")
	v.BindEnv("quiet", "RCW_QUIET")
	v.BindEnv("verbose", "RCW_VERBOSE")
	v.BindEnv("server", "RCW_SERVER")
	v.BindEnv("credential_file", "RCW_CREDENTIAL_FILE")
	v.BindEnv("defaults.target", "RCW_TARGET")

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("server", cfg.Server)
	v.SetDefault("credential_file", cfg.CredentialFile)
	v.SetDefault("reconnect.max_attempts", cfg.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.base_delay", cfg.Reconnect.BaseDelay)
	v.SetDefault("defaults.target", cfg.Defaults.Target)
	v.SetDefault("defaults.auto_scroll", cfg.Defaults.AutoScroll)
	v.SetDefault("defaults.export_format", cfg.Defaults.ExportFormat)
	v.SetDefault("defaults.tmux", cfg.Defaults.Tmux)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file Load would read, or ""
func ConfigFile() string {
	if path := findConfigFile(); path != "" {
		return path
	}
	var dirs []string
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(configDir, "rcw"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	dirs = append(dirs, "/etc/rcw")
	for _, dir := range dirs {
		for _, name := range []string{"rcw.yaml", "rcw.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findConfigFile looks for a project-local .rcw.yaml / .rcw.yml / .rcwrc
func findConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{".rcw.yaml", ".rcw.yml", ".rcwrc"} {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnvOverrides handles variables whose values viper would not coerce
// the way the CLI documents them
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RCW_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("RCW_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("RCW_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("RCW_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("RCW_TARGET"); v != "" {
		cfg.Defaults.Target = v
	}
}
