// internal/config/types.go
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// redactedPlaceholder replaces secret values in every serialized form.
const redactedPlaceholder = "[REDACTED]"

// Duration wraps time.Duration so config fields parse from the usual
// Go duration strings ("30s", "1m30s") in YAML and env vars.
type Duration time.Duration

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalText implements encoding.TextUnmarshaler. Negative durations
// are rejected; no config field has a meaning for them.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if dur < 0 {
		return fmt.Errorf("duration must not be negative, got %s", text)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Secret holds a credential that must never appear in logs or dumps.
// Every serialized or printed form is masked; only Value returns the
// raw string.
type Secret string

// masked is the single point deciding what a secret looks like outside
// Value: empty stays empty, anything else becomes the placeholder.
func (s Secret) masked() string {
	if s == "" {
		return ""
	}
	return redactedPlaceholder
}

// Value returns the raw secret. Call it only at the point of use, such
// as setting an Authorization header.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool {
	return s != ""
}

// String implements fmt.Stringer with the masked form.
func (s Secret) String() string {
	return s.masked()
}

// GoString implements fmt.GoStringer so %#v stays masked too.
func (s Secret) GoString() string {
	return "Secret(" + redactedPlaceholder + ")"
}

// MarshalText implements encoding.TextMarshaler with the masked form.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.masked()), nil
}

// MarshalJSON implements json.Marshaler with the masked form.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.masked())
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the raw
// secret from config sources.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
