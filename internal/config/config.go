// Package config handles application configuration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Defaults for unset fields
const (
	DefaultBackend           = "local"
	DefaultLocalKey          = "tasks"
	DefaultRemoteDocument    = "todoed.json"
	DefaultRemoteTimeout     = "30s"
	DefaultRequestsPerSecond = 5.0
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Config represents the application configuration
type Config struct {
	Backend string        `yaml:"backend" validate:"required,oneof=local file remote"`
	Local   LocalConfig   `yaml:"local"`
	File    FileConfig    `yaml:"file"`
	Remote  RemoteConfig  `yaml:"remote"`
	Logging LoggingConfig `yaml:"logging"`
}

// LocalConfig holds the local (SQLite key/value) backend settings
type LocalConfig struct {
	Path string `yaml:"path" validate:"required"`
	Key  string `yaml:"key" validate:"required,max=128"`
}

// FileConfig holds the markdown file backend settings
type FileConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// RemoteConfig holds the Google Drive backend settings
type RemoteConfig struct {
	ClientSecrets     string  `yaml:"client_secrets"`
	Document          string  `yaml:"document" validate:"required,max=255,excludesall=/\\"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0,lte=100"`
	Timeout           string  `yaml:"timeout" validate:"required,duration"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json logfmt"`
	File   string `yaml:"file"` // empty: $XDG_STATE_HOME/todoed/todoed.log
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills unset fields and expands paths.
func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Local.Path == "" {
		c.Local.Path = filepath.Join(GetDataDir(), "todoed.db")
	}
	if c.Local.Key == "" {
		c.Local.Key = DefaultLocalKey
	}
	if c.File.Path == "" {
		c.File.Path = filepath.Join(GetDataDir(), "tasks.md")
	}
	if c.Remote.ClientSecrets == "" {
		c.Remote.ClientSecrets = filepath.Join(GetConfigDir(), "client_secret.json")
	}
	if c.Remote.Document == "" {
		c.Remote.Document = DefaultRemoteDocument
	}
	if c.Remote.Timeout == "" {
		c.Remote.Timeout = DefaultRemoteTimeout
	}
	if c.Remote.RequestsPerSecond == 0 {
		c.Remote.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(GetStateDir(), "todoed.log")
	}

	c.Local.Path = ExpandPath(c.Local.Path)
	c.File.Path = ExpandPath(c.File.Path)
	c.Remote.ClientSecrets = ExpandPath(c.Remote.ClientSecrets)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the sample.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeSample writes the embedded sample config to path
func writeSample(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return describe(verrs[0])
		}
		return err
	}
	return nil
}

// describe turns a validator error into a message naming the YAML key.
func describe(fe validator.FieldError) error {
	// Namespace is "Config.remote.timeout"; drop the struct name.
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("invalid %s: %q (must be one of: %s)", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "duration":
		return fmt.Errorf("invalid duration for %s: %q", key, fe.Value())
	case "excludesall":
		return fmt.Errorf("invalid %s: %q (must be a plain file name)", key, fe.Value())
	default:
		return fmt.Errorf("invalid %s: %v (failed %s%s)", key, fe.Value(), fe.Tag(), paramSuffix(fe.Param()))
	}
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(backendName string, verbose bool) {
	if backendName != "" {
		c.Backend = backendName
	}
	if verbose {
		c.Logging.Level = "debug"
	}
}

// GetRemoteTimeout returns remote.timeout as a duration.
func (c *Config) GetRemoteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "todoed")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "todoed")
	}
	return filepath.Join(home, fallbackPath, "todoed")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetStateDir returns the state directory (logs) following XDG spec
func GetStateDir() string {
	return getXDGDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Expand environment variables
	path = os.ExpandEnv(path)

	return path
}
