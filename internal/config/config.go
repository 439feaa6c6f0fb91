// Package config loads the application settings from a YAML file and GWIN_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gwin/internal/core/apperror"
)

// Config holds every setting of the server and of gwinctl.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Forms    FormsConfig    `yaml:"forms"`
}

// DatabaseConfig configures the PostgreSQL pool and transactions.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	// AutoMigrate applies the generated schema on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// FormsConfig holds the defaults of generated forms.
type FormsConfig struct {
	// Language is the BCP 47 tag used when a request names none.
	Language string `yaml:"language"`
	// PageSize is the grid page size when a request names none.
	PageSize int `yaml:"page_size"`
}

// Default returns the settings used when neither file nor environment set a value.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			MaxConns:         25,
			MinConns:         2,
			MaxConnLifetime:  time.Hour,
			MaxConnIdleTime:  30 * time.Minute,
			StatementTimeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
		Forms: FormsConfig{
			Language: "en",
			PageSize: 50,
		},
	}
}

// Load reads path over the defaults, then applies the environment. A missing
// file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(b, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg, rejecting unknown keys.
func Parse(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	c.Database.DSN = e.str("GWIN_DATABASE_DSN", c.Database.DSN)
	c.Database.MaxConns = int32(e.int("GWIN_DATABASE_MAX_CONNS", int(c.Database.MaxConns)))
	c.Database.MinConns = int32(e.int("GWIN_DATABASE_MIN_CONNS", int(c.Database.MinConns)))
	c.Database.MaxConnLifetime = e.duration("GWIN_DATABASE_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = e.duration("GWIN_DATABASE_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.StatementTimeout = e.duration("GWIN_DATABASE_STATEMENT_TIMEOUT", c.Database.StatementTimeout)
	c.Database.AutoMigrate = e.bool("GWIN_DATABASE_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.HTTP.Port = e.str("GWIN_HTTP_PORT", c.HTTP.Port)
	c.HTTP.ReadTimeout = e.duration("GWIN_HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = e.duration("GWIN_HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.ShutdownTimeout = e.duration("GWIN_HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Log.Level = e.str("GWIN_LOG_LEVEL", c.Log.Level)
	c.Log.Development = e.bool("GWIN_LOG_DEVELOPMENT", c.Log.Development)

	c.Forms.Language = e.str("GWIN_FORMS_LANGUAGE", c.Forms.Language)
	c.Forms.PageSize = e.int("GWIN_FORMS_PAGE_SIZE", c.Forms.PageSize)

	return errors.Join(e.errs...)
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch {
	case c.Database.MaxConns < 1:
		return apperror.NewConfiguration("config", "database.max_conns", "must be at least 1")
	case c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns:
		return apperror.NewConfiguration("config", "database.min_conns", "must be between 0 and max_conns")
	case c.HTTP.Port == "":
		return apperror.NewConfiguration("config", "http.port", "is required")
	case c.Forms.PageSize < 1:
		return apperror.NewConfiguration("config", "forms.page_size", "must be at least 1")
	}
	if _, err := strconv.Atoi(c.HTTP.Port); err != nil {
		return apperror.NewConfiguration("config", "http.port", "must be a number")
	}
	return nil
}

// envReader reads typed environment values and collects parse errors.
type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.get(key); ok {
		return v
	}
	return fallback
}

func (e *envReader) int(key string, fallback int) int {
	v, ok := e.get(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func (e *envReader) bool(key string, fallback bool) bool {
	v, ok := e.get(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.get(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}
