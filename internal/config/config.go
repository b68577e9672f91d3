// Package config loads nestrow settings from defaults, a YAML file,
// NESTROW_* environment variables and command line flags.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/querysql"
	"github.com/roach88/nestrow/internal/store"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "nestrow.yaml"

// EnvPrefix prefixes environment variables: NESTROW_DSN -> dsn.
const EnvPrefix = "NESTROW_"

// Config holds the resolved settings.
type Config struct {
	// Driver is the database driver: sqlite3 or pgx.
	Driver string `koanf:"driver"`

	// DSN is the data source name passed to the driver.
	DSN string `koanf:"dsn"`

	// Schema is a CUE file or directory with schema declarations.
	Schema string `koanf:"schema"`

	// FieldCase and ColumnCase name the casing of schema field names and of
	// database columns (camel, pascal or snake). When they differ, field
	// names are transformed before column lookup.
	FieldCase  string `koanf:"field_case"`
	ColumnCase string `koanf:"column_case"`

	// Placeholder is the parameter style: dollar or question.
	Placeholder string `koanf:"placeholder"`

	Verbose bool   `koanf:"verbose"`
	Format  string `koanf:"format"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in defaults.
func Defaults() map[string]any {
	return map[string]any{
		"driver":      store.DriverSQLite,
		"dsn":         ":memory:",
		"schema":      "",
		"field_case":  "",
		"column_case": "",
		"placeholder": querysql.Dollar.String(),
		"verbose":     false,
		"format":      "text",
	}
}

// Load resolves the configuration. path is an explicit config file; when
// empty, DefaultFile is read if it exists. flags may be nil; only flags
// that were set on the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := path
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// NESTROW_FIELD_CASE -> field_case
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: unknown driver %q (want %s or %s)", c.Driver, store.DriverSQLite, store.DriverPostgres)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown format %q (want text or json)", c.Format)
	}
	if _, err := querysql.ParsePlaceholder(c.Placeholder); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.CaseTransform(); err != nil {
		return err
	}
	return nil
}

// CaseTransform returns the field-to-column transform, or nil when field
// and column casing are the same or unset.
func (c *Config) CaseTransform() (casing.Func, error) {
	if c.FieldCase == "" || c.ColumnCase == "" {
		return nil, nil
	}
	if _, err := casing.Lookup(c.FieldCase); err != nil {
		return nil, fmt.Errorf("config: field_case: %w", err)
	}
	if _, err := casing.Lookup(c.ColumnCase); err != nil {
		return nil, fmt.Errorf("config: column_case: %w", err)
	}
	return casing.Between(c.FieldCase, c.ColumnCase)
}

// PlaceholderStyle returns the parsed placeholder style.
func (c *Config) PlaceholderStyle() querysql.Placeholder {
	p, _ := querysql.ParsePlaceholder(c.Placeholder)
	return p
}

// StoreOptions returns the store options implied by the configuration.
func (c *Config) StoreOptions() ([]store.Option, error) {
	transform, err := c.CaseTransform()
	if err != nil {
		return nil, err
	}
	return []store.Option{
		store.WithPlaceholder(c.PlaceholderStyle()),
		store.WithCaseTransform(transform),
	}, nil
}
