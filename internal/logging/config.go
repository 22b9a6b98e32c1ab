// internal/logging/config.go
package logging

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/docqd/internal/config"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
//
// The application config exposes a subset (level, format, output, fields);
// NewConfig maps it onto these defaults. The rest is tuned in code.
type Config struct {
	Level      zapcore.Level
	Format     string
	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig
	Fields     map[string]string
	Redaction  RedactionConfig
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Stdout bool
	OTEL   bool
}

// SamplingConfig reduces log volume below the error level.
// Per tick, the first Initial entries pass, then one in every Thereafter.
type SamplingConfig struct {
	Enabled    bool
	Tick       config.Duration
	Initial    int
	Thereafter int
}

// CallerConfig controls caller annotation.
type CallerConfig struct {
	Enabled bool
	Skip    int
}

// StacktraceConfig controls stacktrace inclusion.
type StacktraceConfig struct {
	Level zapcore.Level
}

// RedactionConfig controls encoder-level secret masking.
type RedactionConfig struct {
	Enabled bool
	// Fields are field names whose values are always masked.
	Fields []string
	// Patterns are regexes matched against string values.
	Patterns []string
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{
			Stdout: true,
		},
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.Duration(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Caller: CallerConfig{
			Enabled: true,
			Skip:    1,
		},
		Stacktrace: StacktraceConfig{
			Level: zapcore.ErrorLevel,
		},
		Fields: map[string]string{
			"service": "docqd",
		},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key",
				"authorization", "bearer", "credential",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				`AIza[0-9A-Za-z_-]{35}`,
			},
		},
	}
}

// NewConfig maps the application logging config onto defaults.
func NewConfig(appCfg *config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()

	level, err := zapcore.ParseLevel(appCfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", appCfg.Level, err)
	}
	cfg.Level = level
	cfg.Format = appCfg.Format
	cfg.Output = OutputConfig{
		Stdout: appCfg.Output.Stdout,
		OTEL:   appCfg.Output.OTEL,
	}
	for k, v := range appCfg.Fields {
		cfg.Fields[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// maxPatternLen bounds redaction regexes so a hostile config cannot
// stall the encoder with a pathological pattern.
const maxPatternLen = 200

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch {
	case c.Format != "json" && c.Format != "console":
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	case !c.Output.Stdout && !c.Output.OTEL:
		return fmt.Errorf("at least one output must be enabled (stdout or otel)")
	case c.Caller.Enabled && c.Caller.Skip < 0:
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}

	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return fmt.Errorf("sampling tick must be > 0 when sampling enabled")
		}
		if c.Sampling.Initial < 1 {
			return fmt.Errorf("sampling initial must be >= 1, got %d", c.Sampling.Initial)
		}
	}

	if err := c.Redaction.validate(); err != nil {
		return err
	}

	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}

// validate compiles each pattern and bounds its length. The encoder
// trusts patterns that pass here.
func (r RedactionConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	for _, pattern := range r.Patterns {
		if len(pattern) > maxPatternLen {
			return fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, pattern)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
		}
	}
	return nil
}
