package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
)

func TestNewDualCore(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		provider log.LoggerProvider
		wantErr  string
	}{
		{
			name:   "stdout only",
			mutate: func(*Config) {},
		},
		{
			name:   "otel requested without provider falls back to stdout",
			mutate: func(c *Config) { c.Output.OTEL = true },
		},
		{
			name:     "stdout and otel teed together",
			mutate:   func(c *Config) { c.Output.OTEL = true },
			provider: noop.NewLoggerProvider(),
		},
		{
			name: "no usable outputs",
			mutate: func(c *Config) {
				c.Output.Stdout = false
				c.Output.OTEL = true
			},
			wantErr: "at least one output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			core, err := newDualCore(cfg, tt.provider)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, core)
		})
	}
}
