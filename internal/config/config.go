// Package config provides configuration management for CoreCutter.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/amgaina/CoreCutter/internal/model"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Report  ReportConfig  `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       int           `mapstructure:"body_limit" validate:"min=0"`
}

// Address returns the server address string.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EngineConfig holds optimizer configuration.
type EngineConfig struct {
	Solver      string        `mapstructure:"solver" validate:"required"`
	TimeLimit   time.Duration `mapstructure:"time_limit" validate:"min=0"`
	MaxNodes    int           `mapstructure:"max_nodes"`
	DefaultKerf string        `mapstructure:"default_kerf" validate:"required,numeric"`
}

// Settings returns the solver settings described by the engine section.
func (c EngineConfig) Settings() model.SolverSettings {
	return model.SolverSettings{
		Solver:    c.Solver,
		TimeLimit: c.TimeLimit,
		MaxNodes:  c.MaxNodes,
	}.WithDefaults()
}

// Kerf returns the default kerf used when a request does not name one.
func (c EngineConfig) Kerf() (decimal.Decimal, error) {
	if c.DefaultKerf == "" {
		return model.DefaultKerf, nil
	}
	k, err := decimal.NewFromString(c.DefaultKerf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid engine.default_kerf %q: %w", c.DefaultKerf, err)
	}
	return k, nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	Output     string `mapstructure:"output" validate:"required"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ReportConfig holds the text printed on exported reports.
type ReportConfig struct {
	Title   string `mapstructure:"title"`
	Company string `mapstructure:"company"`
	Units   string `mapstructure:"units"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("corecutter")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("CORECUTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present. It panics if the built-in defaults fail to decode
// or validate.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decoding built-in defaults: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return &cfg
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Engine.Kerf(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.body_limit", 1<<20)

	// Engine
	v.SetDefault("engine.solver", model.SolverBranchAndBound)
	v.SetDefault("engine.time_limit", "30s")
	v.SetDefault("engine.max_nodes", model.DefaultSettings().MaxNodes)
	v.SetDefault("engine.default_kerf", model.DefaultKerf.String())

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", "rfc3339")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "corecutter")

	// Report
	v.SetDefault("report.title", "Core Cutting Plan")
	v.SetDefault("report.company", "")
	v.SetDefault("report.units", "in")
}
