package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// ProfileConfig configures execution-profile persistence.
type ProfileConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Empty means DefaultProfilePath
}

// MetricsConfig configures the Prometheus endpoint for watch mode.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Config represents the application configuration.
type Config struct {
	Root           string        `mapstructure:"root"`
	Manifest       string        `mapstructure:"manifest"`
	TTLSeconds     int           `mapstructure:"ttl_seconds"`
	MaxWorkers     int           `mapstructure:"max_workers"` // 0 means auto-detect
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	Output         string        `mapstructure:"output"`
	Profile        ProfileConfig `mapstructure:"profile"`
	Logging        LoggingConfig `mapstructure:"logging"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/verity/config.yaml
//   - $HOME/.config/verity/config.yaml
//
// Environment variables are prefixed with VERITY_ (e.g. VERITY_TTL_SECONDS).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "verity"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "verity"))

	v.SetEnvPrefix("VERITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.HasPrefix(cfg.Profile.Path, "~") {
		cfg.Profile.Path = filepath.Join(homeDir, cfg.Profile.Path[1:])
	}

	return &cfg, nil
}

// SetDefaults installs the default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", DefaultRoot)
	v.SetDefault("manifest", DefaultManifest)
	v.SetDefault("ttl_seconds", DefaultTTLSeconds)
	v.SetDefault("max_workers", 0)
	v.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("profile.enabled", true)
	v.SetDefault("profile.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{
		"fscache":   "info",
		"scheduler": "info",
		"runner":    "info",
		"watcher":   "warn",
	})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "verity"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "verity"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Verity Structural Validator Configuration

# File tree to validate when none is specified
root: %s

# Rule manifest, resolved relative to the root
manifest: %s

# Scan-cache lifetime in seconds
ttl_seconds: %d

# Upper bound on any batch's worker count (0 = auto-detect)
max_workers: 0

# Per-batch wall-clock bound in seconds (0 = none)
timeout_seconds: %d

# Report format: pretty, plain, json, yaml, tsv, markdown
output: %s

# Execution-cost profile persistence
profile:
  enabled: true
  # Store path (empty means use default: $XDG_DATA_HOME/verity/profile)
  path: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty logs to stderr)
  path: ""
  # Per-component log levels
  components:
    fscache: info
    scheduler: info
    runner: info
    watcher: warn

# Prometheus metrics endpoint (watch mode)
metrics:
  enabled: false
  listen: %s
`, DefaultRoot, DefaultManifest, DefaultTTLSeconds, DefaultTimeoutSeconds, DefaultOutput, DefaultMetricsListen)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/verity/ for the profile store.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "verity")
}

// StateDir returns $XDG_STATE_HOME/verity/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "verity")
}

// DefaultProfilePath returns the default profile store path.
func DefaultProfilePath() string {
	return filepath.Join(DataDir(), "profile")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
