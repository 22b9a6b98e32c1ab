package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeTestConfig writes YAML content with owner-only permissions and
// returns the file path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidYAML(t *testing.T) {
	configPath := writeTestConfig(t, `server:
  host: 0.0.0.0
  port: 9090
  shutdown_timeout: 30s

chunking:
  chunk_size: 500
  chunk_overlap: 50

embeddings:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  api_key: sk-test

vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
    port: 7334
    use_tls: true

query:
  top_k: 3
  similarity_threshold: 0.7
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Chunking.ChunkSize != 500 {
		t.Errorf("Chunking.ChunkSize = %d, want 500", cfg.Chunking.ChunkSize)
	}
	if cfg.Embeddings.Provider != "openai" {
		t.Errorf("Embeddings.Provider = %q, want openai", cfg.Embeddings.Provider)
	}
	if cfg.Embeddings.APIKey.Value() != "sk-test" {
		t.Errorf("Embeddings.APIKey.Value() = %q, want sk-test", cfg.Embeddings.APIKey.Value())
	}
	if cfg.VectorStore.Provider != "qdrant" {
		t.Errorf("VectorStore.Provider = %q, want qdrant", cfg.VectorStore.Provider)
	}
	if cfg.VectorStore.Qdrant.Host != "qdrant.internal" {
		t.Errorf("VectorStore.Qdrant.Host = %q, want qdrant.internal", cfg.VectorStore.Qdrant.Host)
	}
	if cfg.VectorStore.Qdrant.Port != 7334 {
		t.Errorf("VectorStore.Qdrant.Port = %d, want 7334", cfg.VectorStore.Qdrant.Port)
	}
	if !cfg.VectorStore.Qdrant.UseTLS {
		t.Error("VectorStore.Qdrant.UseTLS = false, want true")
	}
	if cfg.Query.TopK != 3 {
		t.Errorf("Query.TopK = %d, want 3", cfg.Query.TopK)
	}
	if cfg.Query.SimilarityThreshold != 0.7 {
		t.Errorf("Query.SimilarityThreshold = %f, want 0.7", cfg.Query.SimilarityThreshold)
	}

	// Unset sections still receive defaults.
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("LLM.Model = %q, want default gemini-2.5-flash", cfg.LLM.Model)
	}
	if cfg.Cache.Provider != "memory" {
		t.Errorf("Cache.Provider = %q, want default memory", cfg.Cache.Provider)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v, want nil", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	configPath := writeTestConfig(t, `server:
  port: 9090

llm:
  model: yaml-model
`)

	os.Setenv("DOCQD_SERVER_PORT", "7777")
	os.Setenv("DOCQD_LLM_MODEL", "env-model")
	os.Setenv("DOCQD_VECTORSTORE_QDRANT_HOST", "env-qdrant")
	os.Setenv("DOCQD_CACHE_MEMORY_MAX_ENTRIES", "42")
	defer os.Unsetenv("DOCQD_SERVER_PORT")
	defer os.Unsetenv("DOCQD_LLM_MODEL")
	defer os.Unsetenv("DOCQD_VECTORSTORE_QDRANT_HOST")
	defer os.Unsetenv("DOCQD_CACHE_MEMORY_MAX_ENTRIES")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("LLM.Model = %q, want env-model (from env override)", cfg.LLM.Model)
	}
	if cfg.VectorStore.Qdrant.Host != "env-qdrant" {
		t.Errorf("VectorStore.Qdrant.Host = %q, want env-qdrant", cfg.VectorStore.Qdrant.Host)
	}
	if cfg.Cache.Memory.MaxEntries != 42 {
		t.Errorf("Cache.Memory.MaxEntries = %d, want 42", cfg.Cache.Memory.MaxEntries)
	}
}

func TestLoad_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission checks are skipped on Windows")
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	// World-readable config files are rejected; they may hold API keys.
	if err := os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want insecure permissions error")
	}
	if !strings.Contains(err.Error(), "permissions") {
		t.Errorf("Load() error = %v, want permissions error", err)
	}
}

func TestLoad_ReadOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission checks are skipped on Windows")
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0400); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for 0400 file", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeTestConfig(t, "server:\n  port: [not a port\n")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeTestConfig(t, `embeddings:
  provider: invalid-provider
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "embeddings.provider") {
		t.Errorf("Load() error = %v, want embeddings.provider validation error", err)
	}
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DOCQD_SERVER_PORT", "server.port"},
		{"DOCQD_SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
		{"DOCQD_CHUNKING_CHUNK_SIZE", "chunking.chunk_size"},
		{"DOCQD_EMBEDDINGS_API_KEY", "embeddings.api_key"},
		{"DOCQD_EMBEDDINGS_REQUESTS_PER_SECOND", "embeddings.requests_per_second"},
		{"DOCQD_VECTORSTORE_PROVIDER", "vectorstore.provider"},
		{"DOCQD_VECTORSTORE_QDRANT_HOST", "vectorstore.qdrant.host"},
		{"DOCQD_VECTORSTORE_CHROMEM_PATH", "vectorstore.chromem.path"},
		{"DOCQD_CACHE_REDIS_ADDR", "cache.redis.addr"},
		{"DOCQD_CACHE_MEMORY_MAX_ENTRIES", "cache.memory.max_entries"},
		{"DOCQD_INGEST_MAX_UPLOAD_BYTES", "ingest.max_upload_bytes"},
		{"DOCQD_INGEST_REDACT_ENABLED", "ingest.redact.enabled"},
		{"DOCQD_QUERY_TOP_K", "query.top_k"},
		{"DOCQD_TELEMETRY_SHUTDOWN_TIMEOUT", "telemetry.shutdown.timeout"},
		{"DOCQD_TELEMETRY_METRICS_EXPORT_INTERVAL", "telemetry.metrics.export_interval"},
		{"DOCQD_LOGGING_OUTPUT_STDOUT", "logging.output.stdout"},
		{"DOCQD_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := transformEnvKey(tt.in); got != tt.want {
			t.Errorf("transformEnvKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
