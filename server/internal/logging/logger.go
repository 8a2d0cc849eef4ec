package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment selects the log encoding.
type Environment string

const (
	// EnvironmentProduction writes JSON, one object per entry.
	EnvironmentProduction Environment = "production"

	// EnvironmentDevelopment writes colored console lines.
	EnvironmentDevelopment Environment = "development"
)

// Config holds the configuration for the logger.
type Config struct {
	// Level is the minimum enabled level (debug, info, warn, error).
	Level string

	// Environment selects JSON or console encoding.
	Environment Environment

	// OutputPaths are the zap sinks for entries, "stdout" by default.
	OutputPaths []string

	// ErrorOutputPaths are the zap sinks for the logger's own errors.
	ErrorOutputPaths []string

	DisableCaller     bool
	DisableStacktrace bool

	// DisableSampling keeps every entry. Without it, zap keeps the first
	// 100 identical entries per second and then one in 100, which thins
	// out per-tick messages when the clock runs fast.
	DisableSampling bool
}

// DefaultConfig returns an info-level console configuration.
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Environment:      EnvironmentDevelopment,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// NewLogger builds a zap logger from cfg.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Environment == EnvironmentProduction {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.DisableCaller = cfg.DisableCaller
	zapConfig.DisableStacktrace = cfg.DisableStacktrace
	zapConfig.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	if cfg.DisableSampling {
		zapConfig.Sampling = nil
	}
	if len(cfg.OutputPaths) > 0 {
		zapConfig.OutputPaths = cfg.OutputPaths
	}
	if len(cfg.ErrorOutputPaths) > 0 {
		zapConfig.ErrorOutputPaths = cfg.ErrorOutputPaths
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// NewDevelopmentLogger creates a console logger. An empty level means debug.
func NewDevelopmentLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "debug"
	}
	cfg := DefaultConfig()
	cfg.Level = level
	return NewLogger(cfg)
}

// NewProductionLogger creates a JSON logger. An empty level means info.
func NewProductionLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Environment = EnvironmentProduction
	return NewLogger(cfg)
}

// NewFromFlags creates the server logger from its -log-level and
// -log-format flags. Format "json" is the production encoder, anything
// else is console.
func NewFromFlags(level, format string) (*zap.Logger, error) {
	if format == "json" {
		return NewProductionLogger(level)
	}
	return NewDevelopmentLogger(level)
}

// NewRunLogger creates an unsampled console logger on stderr for headless
// scenario runs, which print their results on stdout. Verbose runs log at
// debug level, which includes per-packet drops.
func NewRunLogger(verbose bool) (*zap.Logger, error) {
	cfg := DefaultConfig()
	cfg.Level = "warn"
	if verbose {
		cfg.Level = "debug"
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableSampling = true
	cfg.DisableStacktrace = true
	return NewLogger(cfg)
}

// Component returns a named child logger tagged with the component field.
// A nil parent yields a no-op logger so constructors can accept nil.
func Component(parent *zap.Logger, name string) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(name).With(zap.String(FieldComponent, name))
}

// ParseLevel parses a level name in any case.
func ParseLevel(level string) (zapcore.Level, error) {
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
