// internal/logging/redact.go
package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/docqd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	maskToken        = "[REDACTED]"
	maskPatternToken = "[REDACTED:pattern]"
)

// lengthHint is the mask used when the value's length is worth keeping,
// for example to spot truncated credentials in bug reports.
func lengthHint(n int) string {
	return "[REDACTED:" + strconv.Itoa(n) + "]"
}

// secretMarshaler adapts config.Secret to zap's object encoding so the
// secret itself never reaches an encoder buffer.
type secretMarshaler struct {
	key string
	val config.Secret
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s *secretMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString(s.key, lengthHint(len(s.val.Value())))
	return nil
}

// Secret creates a Zap field for config.Secret with a redaction indicator.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, &secretMarshaler{key: key, val: val})
}

// RedactedString creates a Zap field with a redacted value and its length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, lengthHint(len(val)))
}

// RedactingEncoder wraps a zapcore.Encoder to mask sensitive fields.
// Field names in maskKeys are masked unconditionally; string values are
// matched against valuePatterns.
type RedactingEncoder struct {
	zapcore.Encoder
	maskKeys      map[string]bool
	valuePatterns []*regexp.Regexp
}

// NewRedactingEncoder layers the rules from cfg over base. A pattern
// that fails to compile rejects the whole config.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}

	keys := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		keys[strings.ToLower(f)] = true
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &RedactingEncoder{
		Encoder:       base,
		maskKeys:      keys,
		valuePatterns: patterns,
	}, nil
}

// maskIfSensitive writes the mask in place of a sensitive key's value and
// reports whether it did. Key matching is case-insensitive.
func (e *RedactingEncoder) maskIfSensitive(key string) bool {
	if !e.maskKeys[strings.ToLower(key)] {
		return false
	}
	e.Encoder.AddString(key, maskToken)
	return true
}

func (e *RedactingEncoder) matchesPattern(val string) bool {
	for _, re := range e.valuePatterns {
		if re.MatchString(val) {
			return true
		}
	}
	return false
}

// AddString masks sensitive field names and credential-shaped values.
func (e *RedactingEncoder) AddString(key, val string) {
	switch {
	case e.maskIfSensitive(key):
	case e.matchesPattern(val):
		e.Encoder.AddString(key, maskPatternToken)
	default:
		e.Encoder.AddString(key, val)
	}
}

// AddByteString masks sensitive field names.
func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.maskIfSensitive(key) {
		return
	}
	e.Encoder.AddByteString(key, val)
}

// AddBinary masks sensitive field names.
func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.maskIfSensitive(key) {
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the entire reflected value if the key is sensitive.
// For deep inspection of structs or maps, use zap.Object with a custom
// marshaler instead.
func (e *RedactingEncoder) AddReflected(key string, val any) error {
	if e.maskIfSensitive(key) {
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// AddArray masks sensitive field names.
func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.maskIfSensitive(key) {
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

// AddObject masks sensitive field names.
func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.maskIfSensitive(key) {
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone creates a copy that keeps the redaction rules on the wrapper.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:       e.Encoder.Clone(),
		maskKeys:      e.maskKeys,
		valuePatterns: e.valuePatterns,
	}
}
