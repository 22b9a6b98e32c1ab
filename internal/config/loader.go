// internal/config/loader.go
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1 << 20

	// envPrefix namespaces docqd environment variables.
	envPrefix = "DOCQD_"
)

// subsections maps top-level sections to their nested groups. The env
// transformer needs it to map DOCQD_VECTORSTORE_QDRANT_HOST to
// vectorstore.qdrant.host instead of vectorstore.qdrant_host. Scoping per
// section keeps field names like server.shutdown_timeout intact.
var subsections = map[string][]string{
	"vectorstore": {"chromem", "qdrant"},
	"cache":       {"memory", "redis"},
	"ingest":      {"redact"},
	"telemetry":   {"sampling", "metrics", "shutdown"},
	"logging":     {"output"},
}

// Load loads configuration from an optional YAML file, then overrides with
// DOCQD_-prefixed environment variables, applies defaults, and validates.
//
// Precedence (highest to lowest):
//  1. Environment variables (DOCQD_SERVER_PORT, DOCQD_LLM_API_KEY, ...)
//  2. YAML config file
//  3. Defaults
//
// An empty configPath skips the file entirely. A configured path that does
// not exist is an error; the file must be owner-readable only (0600/0400).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadConfigFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile reads path into k after size and permission checks. The
// checks go through the open descriptor so the file cannot be swapped
// between check and read.
func loadConfigFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := checkConfigFile(info); err != nil {
		return fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// checkConfigFile rejects files that are too large or readable by other
// users. Config files hold API keys.
func checkConfigFile(info os.FileInfo) error {
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	// Windows has a different permission model; skip the mode check there.
	if runtime.GOOS == "windows" {
		return nil
	}
	if perm := info.Mode().Perm(); perm != 0600 && perm != 0400 {
		return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
	}
	return nil
}

// transformEnvKey maps an environment variable name to a koanf key.
//
// Examples:
//
//	DOCQD_SERVER_PORT             -> server.port
//	DOCQD_CHUNKING_CHUNK_SIZE     -> chunking.chunk_size
//	DOCQD_VECTORSTORE_QDRANT_HOST -> vectorstore.qdrant.host
//
// The first underscore splits section from field. A field that starts with
// a known subsection name gets a second split so nested groups can be set
// from the environment too.
func transformEnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	section := parts[0]
	field := parts[1]

	for _, sub := range subsections[section] {
		if strings.HasPrefix(field, sub+"_") {
			return section + "." + sub + "." + strings.TrimPrefix(field, sub+"_")
		}
		if field == sub {
			return section + "." + sub
		}
	}

	return section + "." + field
}
