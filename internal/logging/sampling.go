// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core so that entries below the error level are
// rate-limited by zap's sampler. Error and above bypass the sampler and
// always reach the underlying core.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	sampled := zapcore.NewSamplerWithOptions(
		bandCore(core, zapcore.DebugLevel, zapcore.WarnLevel),
		cfg.Tick.Duration(),
		cfg.Initial,
		cfg.Thereafter,
	)

	return zapcore.NewTee(bandCore(core, zapcore.ErrorLevel, zapcore.FatalLevel), sampled)
}

// bandCore restricts core to the inclusive level range [lo, hi].
func bandCore(core zapcore.Core, lo, hi zapcore.Level) zapcore.Core {
	return &levelBandCore{Core: core, min: lo, max: hi}
}

// levelBandCore accepts only entries whose level falls inside its band.
// Check and With keep the band on child cores.
type levelBandCore struct {
	zapcore.Core
	min zapcore.Level
	max zapcore.Level
}

func (c *levelBandCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && lvl <= c.max && c.Core.Enabled(lvl)
}

func (c *levelBandCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelBandCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelBandCore{Core: c.Core.With(fields), min: c.min, max: c.max}
}
