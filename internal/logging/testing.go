// internal/logging/testing.go
package logging

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Field keys and value shapes that must never appear unmasked in logs.
// The AIza pattern matches Google API keys of the kind the Gemini
// clients are configured with.
var (
	sensitiveFieldKeys = []string{
		"password", "secret", "token", "api_key",
		"authorization", "bearer", "credential",
	}
	secretValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bearer\s+\S+`),
		regexp.MustCompile(`(?i)api[_-]?key[=:]\s*\S+`),
		regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	}
)

// TestLogger wraps Logger with in-memory observation for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger for testing that records all entries.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: logs,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message matches exactly.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies an entry at level containing msgContains was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if t.matching(level, msgContains).Len() == 0 {
		tb.Errorf("expected a %v entry containing %q, got: %+v", level, msgContains, t.observed.All())
	}
}

// AssertNotLogged verifies no entry at level containing msgContains was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if n := t.matching(level, msgContains).Len(); n > 0 {
		tb.Errorf("found %d %v entries containing %q, want none", n, level, msgContains)
	}
}

func (t *TestLogger) matching(level zapcore.Level, msgContains string) *observer.ObservedLogs {
	return t.observed.FilterLevelExact(level).FilterMessageSnippet(msgContains)
}

// AssertField verifies that some entry with the exact message msg carries
// a field key with the expected value.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).All() {
		got, ok := entry.ContextMap()[key]
		if !ok {
			continue
		}
		// ContextMap widens ints to int64, so fall back to a string
		// comparison when the types disagree.
		if reflect.DeepEqual(got, expected) || fmt.Sprint(got) == fmt.Sprint(expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found on message %q", key, expected, msg)
}

// AssertNoSecrets fails if any recorded entry leaks credential material,
// either through a sensitive field logged unmasked or a secret-shaped
// value in message or field text.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if pat := matchSecret(entry.Message); pat != "" {
			tb.Errorf("message %q matches secret pattern %q", entry.Message, pat)
		}
		for _, field := range entry.Context {
			if field.Type != zapcore.StringType {
				continue
			}
			if isSensitiveKey(field.Key) && field.String != "" && !strings.Contains(field.String, "[REDACTED") {
				tb.Errorf("sensitive field %q logged unmasked: %q", field.Key, field.String)
			}
			if pat := matchSecret(field.String); pat != "" {
				tb.Errorf("field %q matches secret pattern %q: %q", field.Key, pat, field.String)
			}
		}
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveFieldKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// matchSecret returns the pattern a value matches, or "" when clean.
func matchSecret(s string) string {
	for _, re := range secretValuePatterns {
		if re.MatchString(s) {
			return re.String()
		}
	}
	return ""
}
