// Package config provides configuration loading for docqd.
//
// Configuration is loaded from a YAML file and overridden by DOCQD_-prefixed
// environment variables. Defaults are applied for anything left unset.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root configuration for the docqd daemon.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	LLM         LLMConfig         `koanf:"llm"`
	Cache       CacheConfig       `koanf:"cache"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Query       QueryConfig       `koanf:"query"`
	Watch       WatchConfig       `koanf:"watch"`
	Events      EventsConfig      `koanf:"events"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ChunkingConfig controls how extracted text is split into chunks.
type ChunkingConfig struct {
	// ChunkSize is the target maximum chunk length in characters.
	ChunkSize int `koanf:"chunk_size"`
	// ChunkOverlap is the maximum trailing overlap carried between
	// consecutive chunks, in characters.
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// EmbeddingsConfig holds embedding provider settings.
type EmbeddingsConfig struct {
	// Provider selects the embedding backend: "gemini", "openai", or "local".
	Provider string `koanf:"provider"`
	// Model is the embedding model identifier.
	Model string `koanf:"model"`
	// Dimensions is the fixed embedding dimensionality. Must match the
	// vector store's collection; a mismatch is a configuration error.
	Dimensions int `koanf:"dimensions"`
	// BatchSize is the number of texts embedded per provider call.
	BatchSize int `koanf:"batch_size"`
	// BatchDelay is the pacing delay inserted between batches.
	BatchDelay Duration `koanf:"batch_delay"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible servers,
	// self-hosted gateways).
	BaseURL string `koanf:"base_url"`
	// APIKey authenticates against the provider.
	APIKey Secret `koanf:"api_key"`
	// RequestsPerSecond caps outbound embedding calls. Zero disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// CacheDir is the model cache directory for the local provider.
	CacheDir string `koanf:"cache_dir"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	// Provider selects the backend: "chromem" (embedded) or "qdrant".
	Provider   string            `koanf:"provider"`
	Collection string            `koanf:"collection"`
	Chromem    ChromemConfig     `koanf:"chromem"`
	Qdrant     QdrantStoreConfig `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantStoreConfig configures the remote Qdrant backend.
type QdrantStoreConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey Secret `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// LLMConfig holds language-model provider settings.
type LLMConfig struct {
	Model string `koanf:"model"`
	// Temperature is the sampling temperature for answer generation.
	Temperature float64 `koanf:"temperature"`
	// MaxOutputTokens bounds the generated answer length.
	MaxOutputTokens int    `koanf:"max_output_tokens"`
	BaseURL         string `koanf:"base_url"`
	APIKey          Secret `koanf:"api_key"`
	// RequestsPerSecond caps outbound completion calls. Zero disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// MaxRetries bounds retries on transient provider failures (429/5xx).
	MaxRetries int `koanf:"max_retries"`
}

// CacheConfig configures the answer cache in front of the LLM.
type CacheConfig struct {
	// Provider selects the cache backend: "memory", "redis", or "none".
	Provider string            `koanf:"provider"`
	TTL      Duration          `koanf:"ttl"`
	Memory   MemoryCacheConfig `koanf:"memory"`
	Redis    RedisCacheConfig  `koanf:"redis"`
}

// MemoryCacheConfig configures the in-process cache.
type MemoryCacheConfig struct {
	MaxEntries int `koanf:"max_entries"`
}

// RedisCacheConfig configures the Redis cache.
type RedisCacheConfig struct {
	Addr     string `koanf:"addr"`
	Password Secret `koanf:"password"`
	DB       int    `koanf:"db"`
}

// IngestConfig controls upload validation and the ingest pipeline.
type IngestConfig struct {
	// MaxUploadBytes rejects files larger than this before parsing.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// AllowedExtensions lists acceptable file extensions (with leading dot).
	AllowedExtensions []string     `koanf:"allowed_extensions"`
	Redact            RedactConfig `koanf:"redact"`
}

// RedactConfig controls secret redaction of extracted text before it is
// chunked, embedded, or sent to any provider.
type RedactConfig struct {
	Enabled bool `koanf:"enabled"`
	// ProjectPath is a directory searched for a .gitleaks.toml allowlist.
	ProjectPath string `koanf:"project_path"`
	// AllowlistPath is a user allowlist TOML file.
	AllowlistPath string `koanf:"allowlist_path"`
}

// QueryConfig controls retrieval at question time.
type QueryConfig struct {
	// TopK is the number of chunks retrieved per query.
	TopK int `koanf:"top_k"`
	// SimilarityThreshold is the minimum similarity for a retrieved chunk
	// to be used as context.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
}

// WatchConfig configures the drop-directory ingest watcher.
// The watcher runs only when Dir is set.
type WatchConfig struct {
	Dir      string   `koanf:"dir"`
	Debounce Duration `koanf:"debounce"`
}

// EventsConfig configures optional NATS lifecycle event publishing.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// TelemetryConfig holds OpenTelemetry settings. Protocol selects the OTLP
// transport ("grpc" or "http/protobuf"). Insecure disables TLS and is only
// allowed for local endpoints; TLSSkipVerify accepts any TLS certificate
// (internal CAs).
type TelemetryConfig struct {
	Enabled        bool           `koanf:"enabled"`
	Endpoint       string         `koanf:"endpoint"`
	Protocol       string         `koanf:"protocol"`
	ServiceName    string         `koanf:"service_name"`
	ServiceVersion string         `koanf:"service_version"`
	Insecure       bool           `koanf:"insecure"`
	TLSSkipVerify  bool           `koanf:"tls_skip_verify"`
	Sampling       SamplingConfig `koanf:"sampling"`
	Metrics        MetricsConfig  `koanf:"metrics"`
	Shutdown       TimeoutConfig  `koanf:"shutdown"`
}

// SamplingConfig controls trace sampling.
type SamplingConfig struct {
	Rate float64 `koanf:"rate"`
}

// MetricsConfig controls OTEL metrics export.
type MetricsConfig struct {
	Enabled        bool     `koanf:"enabled"`
	ExportInterval Duration `koanf:"export_interval"`
}

// TimeoutConfig wraps a single timeout value.
type TimeoutConfig struct {
	Timeout Duration `koanf:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string            `koanf:"format"`
	Output OutputConfig      `koanf:"output"`
	Fields map[string]string `koanf:"fields"`
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Stdout bool `koanf:"stdout"`
	OTEL   bool `koanf:"otel"`
}

// NewDefaultConfig returns a Config populated with defaults only.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	// Chunking defaults
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}

	// Embeddings defaults
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "gemini"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-004"
	}
	if cfg.Embeddings.Dimensions == 0 {
		cfg.Embeddings.Dimensions = 768
	}
	if cfg.Embeddings.BatchSize == 0 {
		cfg.Embeddings.BatchSize = 100
	}
	if cfg.Embeddings.BatchDelay == 0 {
		cfg.Embeddings.BatchDelay = Duration(100 * time.Millisecond)
	}

	// Vector store defaults (chromem is embedded, no external deps)
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "docqd_documents"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}

	// LLM defaults
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 1000
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	// Cache defaults
	if cfg.Cache.Provider == "" {
		cfg.Cache.Provider = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(time.Hour)
	}
	if cfg.Cache.Memory.MaxEntries == 0 {
		cfg.Cache.Memory.MaxEntries = 1000
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}

	// Ingest defaults
	if cfg.Ingest.MaxUploadBytes == 0 {
		cfg.Ingest.MaxUploadBytes = 10 << 20 // 10 MiB
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = []string{".pdf", ".txt", ".docx"}
	}

	// Query defaults
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.SimilarityThreshold == 0 {
		cfg.Query.SimilarityThreshold = 0.5
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = Duration(500 * time.Millisecond)
	}

	// Events defaults
	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://localhost:4222"
	}
	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "docqd"
	}

	// Telemetry defaults (disabled until a collector is configured)
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "docqd"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}
	if cfg.Telemetry.Sampling.Rate == 0 {
		cfg.Telemetry.Sampling.Rate = 1.0
	}
	if cfg.Telemetry.Metrics.ExportInterval == 0 {
		cfg.Telemetry.Metrics.ExportInterval = Duration(15 * time.Second)
	}
	if cfg.Telemetry.Shutdown.Timeout == 0 {
		cfg.Telemetry.Shutdown.Timeout = Duration(5 * time.Second)
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if !cfg.Logging.Output.Stdout && !cfg.Logging.Output.OTEL {
		cfg.Logging.Output.Stdout = true
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "docqd"}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Chunking.ChunkSize < 1 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 1 {
		return fmt.Errorf("chunking.chunk_overlap must be positive, got %d", c.Chunking.ChunkOverlap)
	}

	switch c.Embeddings.Provider {
	case "gemini", "openai", "local":
	default:
		return fmt.Errorf("embeddings.provider must be gemini, openai, or local, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 1 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize < 1 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vectorstore.provider must be chromem or qdrant, got %q", c.VectorStore.Provider)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %f", c.LLM.Temperature)
	}
	if c.LLM.MaxOutputTokens < 1 {
		return fmt.Errorf("llm.max_output_tokens must be positive, got %d", c.LLM.MaxOutputTokens)
	}

	switch c.Cache.Provider {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.provider must be memory, redis, or none, got %q", c.Cache.Provider)
	}
	if c.Cache.Provider == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.provider is redis")
	}

	if c.Ingest.MaxUploadBytes < 1 {
		return fmt.Errorf("ingest.max_upload_bytes must be positive, got %d", c.Ingest.MaxUploadBytes)
	}
	for _, ext := range c.Ingest.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("ingest.allowed_extensions entries must start with a dot, got %q", ext)
		}
	}

	if c.Query.TopK < 1 {
		return fmt.Errorf("query.top_k must be positive, got %d", c.Query.TopK)
	}
	if c.Query.SimilarityThreshold < 0 || c.Query.SimilarityThreshold > 1 {
		return fmt.Errorf("query.similarity_threshold must be between 0 and 1, got %f", c.Query.SimilarityThreshold)
	}

	if c.Watch.Dir != "" && !filepath.IsAbs(c.Watch.Dir) {
		return fmt.Errorf("watch.dir must be an absolute path, got %q", c.Watch.Dir)
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events.enabled is true")
	}

	if err := c.Telemetry.Validate(); err != nil {
		return err
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// Validate checks the telemetry configuration. Disabled telemetry passes
// without further checks.
func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Protocol)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name is required when telemetry is enabled")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("telemetry.service_version is required when telemetry is enabled")
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("telemetry.insecure is only allowed for local endpoints (localhost/127.0.0.1), got %q", c.Endpoint)
	}
	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("telemetry.sampling.rate must be between 0 and 1, got %f", c.Sampling.Rate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("telemetry.metrics.export_interval must be positive when metrics enabled")
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("telemetry.shutdown.timeout must be positive")
	}

	return nil
}

// isLocalEndpoint reports whether the endpoint points at this machine.
func (c *TelemetryConfig) isLocalEndpoint() bool {
	host := c.Endpoint

	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6: [::1]:4317
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		// IPv4 or hostname with port: localhost:4317
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}

	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(c.Endpoint, "::1")
}
