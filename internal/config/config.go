// Package config provides Viper-based configuration loading for azdice.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// DatabaseConfig holds PostgreSQL connection settings for roll history.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RollerConfig selects the randomness source used for rolls.
type RollerConfig struct {
	// Source is "crypto", "math" or "seeded".
	Source string `mapstructure:"source"`
	// Seed feeds the seeded source; ignored otherwise.
	Seed uint64 `mapstructure:"seed"`
	// DefaultExpression is rolled when no expression is given.
	DefaultExpression string `mapstructure:"default_expression"`
}

// DistributionConfig holds sampling settings for frequency distributions.
type DistributionConfig struct {
	// Rolls is the number of samples drawn.
	Rolls int `mapstructure:"rolls"`
	// Workers is the number of sampling goroutines; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// Timeout aborts sampling after this long; 0 disables it.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps opcodes per script run; 0 uses the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// ScriptDir is searched for *.lua files by LoadDir.
	ScriptDir string `mapstructure:"script_dir"`
}

// PresetsConfig locates the named-expression library.
type PresetsConfig struct {
	// Path is a YAML file of presets; empty disables presets.
	Path string `mapstructure:"path"`
}

// HTTPConfig holds settings for the JSON API served by "azdice serve".
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MaxRolls caps the sample count a single distribution request may ask for.
	MaxRolls int `mapstructure:"max_rolls"`
	// MaxDice caps the dice one requested expression may roll.
	MaxDice int64 `mapstructure:"max_dice"`
	// MaxBins caps the width of a requested expression's range.
	MaxBins uint64 `mapstructure:"max_bins"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Roller       RollerConfig       `mapstructure:"roller"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Scripting    ScriptingConfig    `mapstructure:"scripting"`
	Presets      PresetsConfig      `mapstructure:"presets"`
	HTTP         HTTPConfig         `mapstructure:"http"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateRoller(c.Roller),
		validateDistribution(c.Distribution),
		validateDatabase(c.Database),
		validateScripting(c.Scripting),
		validateHTTP(c.HTTP),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateRoller(r RollerConfig) error {
	validSources := map[string]bool{"crypto": true, "math": true, "seeded": true}
	if !validSources[r.Source] {
		return fmt.Errorf("roller.source must be one of [crypto, math, seeded], got %q", r.Source)
	}
	if r.DefaultExpression == "" {
		return errors.New("roller.default_expression must not be empty")
	}
	if _, err := dice.Parse(r.DefaultExpression); err != nil {
		return fmt.Errorf("roller.default_expression: %w", err)
	}
	return nil
}

func validateDistribution(d DistributionConfig) error {
	var errs []string
	if d.Rolls < 1 {
		errs = append(errs, fmt.Sprintf("distribution.rolls must be >= 1, got %d", d.Rolls))
	}
	if d.Workers < 0 {
		errs = append(errs, fmt.Sprintf("distribution.workers must be >= 0, got %d", d.Workers))
	}
	if d.Timeout < 0 {
		errs = append(errs, "distribution.timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	var errs []string
	if h.Addr == "" {
		errs = append(errs, "http.addr must not be empty")
	}
	if h.ReadTimeout < 0 {
		errs = append(errs, "http.read_timeout must not be negative")
	}
	if h.ShutdownTimeout <= 0 {
		errs = append(errs, "http.shutdown_timeout must be positive")
	}
	if h.MaxRolls < 1 {
		errs = append(errs, fmt.Sprintf("http.max_rolls must be >= 1, got %d", h.MaxRolls))
	}
	if h.MaxDice < 1 {
		errs = append(errs, fmt.Sprintf("http.max_dice must be >= 1, got %d", h.MaxDice))
	}
	if h.MaxBins == 0 {
		errs = append(errs, "http.max_bins must be >= 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with AZDICE_ prefix
	v.SetEnvPrefix("AZDICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every default on v. Callers binding CLI flags to v
// call it before LoadFromViper.
func SetDefaults(v *viper.Viper) { setDefaults(v) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("roller.source", "crypto")
	v.SetDefault("roller.seed", 0)
	v.SetDefault("roller.default_expression", "1d20")

	v.SetDefault("distribution.rolls", 1_000_000)
	v.SetDefault("distribution.workers", 0)
	v.SetDefault("distribution.timeout", "0s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "azdice")
	v.SetDefault("database.password", "azdice")
	v.SetDefault("database.name", "azdice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("scripting.instruction_limit", 0)
	v.SetDefault("scripting.script_dir", "")

	v.SetDefault("presets.path", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.max_rolls", 1_000_000)
	v.SetDefault("http.max_dice", 10_000)
	v.SetDefault("http.max_bins", 100_000)
}
