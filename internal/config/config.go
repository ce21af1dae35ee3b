// Package config handles loading hauk.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/amonks/hauk/internal/logger"
	"github.com/amonks/hauk/internal/paths"
	"github.com/amonks/hauk/push"
)

const (
	// DefaultHTTPTimeout bounds each request to the Hauk server.
	DefaultHTTPTimeout = 30 * time.Second

	// LocationSourceStatic serves a fixed position.
	LocationSourceStatic = "static"
	// LocationSourceFile reads the latest fix from a JSON file.
	LocationSourceFile = "file"
)

// Config represents the hauk.toml configuration file.
type Config struct {
	Log      Log      `toml:"log"`
	HTTP     HTTP     `toml:"http"`
	Location Location `toml:"location"`
	Push     Push     `toml:"push"`
}

// Log contains logging configuration.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Output is stderr, stdout, or a file path.
	Output string `toml:"output"`
}

// HTTP contains client configuration for the Hauk server.
type HTTP struct {
	// Timeout is a Go duration string such as "30s".
	Timeout string `toml:"timeout"`
}

// Location selects where position samples come from.
type Location struct {
	Source    string  `toml:"source"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Accuracy  float64 `toml:"accuracy"`
	File      string  `toml:"file"`

	coordinatesSet bool
}

// Push contains push transport configuration.
type Push struct {
	// Endpoint is resolved against the session's server URL.
	Endpoint string `toml:"endpoint"`
}

// Load loads configuration from the global config file, dir/hauk.toml,
// dir/.env, and the process environment, in increasing precedence.
func Load(dir string) (*Config, error) {
	globalPath, err := paths.DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, "hauk.toml"))
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)

	dotenv, err := loadDotenv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	applyEnv(merged, func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	})

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func loadDotenv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Log.Level = mergeString(projectMeta.IsDefined("log", "level"), projectCfg.Log.Level, globalCfg.Log.Level)
	merged.Log.Format = mergeString(projectMeta.IsDefined("log", "format"), projectCfg.Log.Format, globalCfg.Log.Format)
	merged.Log.Output = mergeString(projectMeta.IsDefined("log", "output"), projectCfg.Log.Output, globalCfg.Log.Output)
	merged.HTTP.Timeout = mergeString(projectMeta.IsDefined("http", "timeout"), projectCfg.HTTP.Timeout, globalCfg.HTTP.Timeout)
	merged.Location.Source = mergeString(projectMeta.IsDefined("location", "source"), projectCfg.Location.Source, globalCfg.Location.Source)
	merged.Location.File = mergeString(projectMeta.IsDefined("location", "file"), projectCfg.Location.File, globalCfg.Location.File)
	merged.Location.Latitude = mergeFloat(projectMeta.IsDefined("location", "latitude"), projectCfg.Location.Latitude, globalCfg.Location.Latitude)
	merged.Location.Longitude = mergeFloat(projectMeta.IsDefined("location", "longitude"), projectCfg.Location.Longitude, globalCfg.Location.Longitude)
	merged.Location.Accuracy = mergeFloat(projectMeta.IsDefined("location", "accuracy"), projectCfg.Location.Accuracy, globalCfg.Location.Accuracy)
	merged.Push.Endpoint = mergeString(projectMeta.IsDefined("push", "endpoint"), projectCfg.Push.Endpoint, globalCfg.Push.Endpoint)

	// Coordinates count as set if either file defines them.
	if projectMeta.IsDefined("location", "latitude") || globalMeta.IsDefined("location", "latitude") {
		merged.Location.coordinatesSet = true
	}

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}

func mergeFloat(projectDefined bool, projectValue, globalValue float64) float64 {
	if projectDefined {
		return projectValue
	}
	return globalValue
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if value, ok := lookup("HAUK_LOG_LEVEL"); ok {
		cfg.Log.Level = strings.TrimSpace(value)
	}
	if value, ok := lookup("HAUK_LOG_FORMAT"); ok {
		cfg.Log.Format = strings.TrimSpace(value)
	}
	if value, ok := lookup("HAUK_LOG_OUTPUT"); ok {
		cfg.Log.Output = strings.TrimSpace(value)
	}
	if value, ok := lookup("HAUK_HTTP_TIMEOUT"); ok {
		cfg.HTTP.Timeout = strings.TrimSpace(value)
	}
	if value, ok := lookup("HAUK_LOCATION_FILE"); ok && strings.TrimSpace(value) != "" {
		cfg.Location.Source = LocationSourceFile
		cfg.Location.File = strings.TrimSpace(value)
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.HTTP.TimeoutDuration(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch c.Location.Source {
	case "", LocationSourceStatic, LocationSourceFile:
	default:
		return fmt.Errorf("unknown location source %q", c.Location.Source)
	}
	if c.Location.Source == LocationSourceFile && c.Location.File == "" {
		return fmt.Errorf("location source %q requires a file", LocationSourceFile)
	}
	return nil
}

// TimeoutDuration parses Timeout, defaulting to DefaultHTTPTimeout.
func (h HTTP) TimeoutDuration() (time.Duration, error) {
	if h.Timeout == "" {
		return DefaultHTTPTimeout, nil
	}
	timeout, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse http timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("http timeout must be positive, got %s", h.Timeout)
	}
	return timeout, nil
}

// PushEndpoint returns the configured endpoint or the default.
func (p Push) PushEndpoint() string {
	if p.Endpoint == "" {
		return push.DefaultEndpoint
	}
	return p.Endpoint
}

// CoordinatesSet reports whether a config file gave a static position.
func (l Location) CoordinatesSet() bool {
	return l.coordinatesSet
}

// LoggerConfig converts the log section for the logger package.
func (l Log) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.Level(l.Level),
		Format: l.Format,
		Output: l.Output,
	}
}
