// Package config loads settings for the sqlitemaster command from a
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// DriverPureGo is the modernc.org/sqlite driver name.
	DriverPureGo = "sqlite"

	// DriverCgo is the github.com/mattn/go-sqlite3 driver name.
	DriverCgo = "sqlite3"
)

// Environment variables that override the config file.
const (
	EnvDatabase = "SQLITEMASTER_DATABASE"
	EnvDriver   = "SQLITEMASTER_DRIVER"
	EnvSchema   = "SQLITEMASTER_SCHEMA"
	EnvLogLevel = "SQLITEMASTER_LOG_LEVEL"
)

// Config holds the settings of the sqlitemaster command.
type Config struct {
	// Database is the data source name passed to sql.Open,
	// usually a file path.
	Database string `yaml:"database"`
	// Driver is either "sqlite" or "sqlite3".
	Driver string `yaml:"driver"`
	// Schema restricts operations to one database: main, temp,
	// or a name from Attach. Empty means the default.
	Schema string `yaml:"schema"`
	// Attach maps schema names to database files that are
	// attached after the main database is opened.
	Attach   map[string]string `yaml:"attach"`
	LogLevel string            `yaml:"log_level"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	return &Config{
		Driver:   DriverPureGo,
		LogLevel: zerolog.LevelInfoValue,
	}
}

// LoadConfig reads path (if not empty) over the defaults, then
// applies environment overrides. A .env file in the working
// directory is loaded first if it exists. The result is not
// validated; call Validate once flags have been applied.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		_ = godotenv.Load(filepath.Join(cwd, ".env")) // no error if .env doesn't exist
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvDatabase: &c.Database,
		EnvDriver:   &c.Driver,
		EnvSchema:   &c.Schema,
		EnvLogLevel: &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks that the configuration can be used to open a
// database.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.Driver != DriverPureGo && c.Driver != DriverCgo {
		return fmt.Errorf("driver must be %q or %q, got %q", DriverPureGo, DriverCgo, c.Driver)
	}
	for name, path := range c.Attach {
		switch {
		case name == "":
			return errors.New("attach: schema name is required")
		case strings.EqualFold(name, "main"), strings.EqualFold(name, "temp"):
			return fmt.Errorf("attach: %q is reserved", name)
		case path == "":
			return fmt.Errorf("attach: no database given for %q", name)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty value means info.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
