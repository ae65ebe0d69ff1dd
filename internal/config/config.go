// Package config provides configuration loading for interviewd.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete service configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Store         StoreConfig         `koanf:"store"`
	Interview     InterviewConfig     `koanf:"interview"`
	LLM           LLMConfig           `koanf:"llm"`
	Retrieval     RetrievalConfig     `koanf:"retrieval"`
	Events        EventsConfig        `koanf:"events"`
	Redaction     RedactionConfig     `koanf:"redaction"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds SQLite settings.
type StoreConfig struct {
	Path        string   `koanf:"path"`
	BusyTimeout Duration `koanf:"busy_timeout"`
}

// InterviewConfig holds progression policy.
type InterviewConfig struct {
	MaxFollowUps  int `koanf:"max_follow_ups"`
	MaxRejections int `koanf:"max_rejections"`
	ContextTopK   int `koanf:"context_top_k"`
	HistoryLimit  int `koanf:"history_limit"`
}

// LLMConfig selects and tunes the language model backend.
type LLMConfig struct {
	Provider          string   `koanf:"provider"`
	Model             string   `koanf:"model"`
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	Timeout           Duration `koanf:"timeout"`
	MaxRetries        int      `koanf:"max_retries"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Burst             int      `koanf:"burst"`
}

// RetrievalConfig selects the context retrieval backend.
type RetrievalConfig struct {
	Backend         string `koanf:"backend"`
	Collection      string `koanf:"collection"`
	ChromemPath     string `koanf:"chromem_path"`
	QdrantHost      string `koanf:"qdrant_host"`
	QdrantPort      int    `koanf:"qdrant_port"`
	QdrantTLS       bool   `koanf:"qdrant_tls"`
	EmbeddingURL    string `koanf:"embedding_url"`
	EmbeddingModel  string `koanf:"embedding_model"`
	EmbeddingAPIKey Secret `koanf:"embedding_api_key"`
}

// EventsConfig holds NATS settings. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// RedactionConfig controls credential scrubbing of candidate text sent to
// the language model. Enabled defaults to true.
type RedactionConfig struct {
	Enabled   bool     `koanf:"enabled"`
	AllowList []string `koanf:"allow_list"`
}

// LoggingConfig holds the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	Protocol     string  `koanf:"protocol"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Interview.MaxRejections = -1
	cfg.Redaction.Enabled = true
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "interviewd.db"
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = Duration(5 * time.Second)
	}

	if cfg.Interview.MaxFollowUps == 0 {
		cfg.Interview.MaxFollowUps = 5
	}
	// MaxRejections of 0 means unbounded; negative selects the default.
	if cfg.Interview.MaxRejections < 0 {
		cfg.Interview.MaxRejections = 3
	}
	if cfg.Interview.ContextTopK == 0 {
		cfg.Interview.ContextTopK = 3
	}
	if cfg.Interview.HistoryLimit == 0 {
		cfg.Interview.HistoryLimit = 15
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-3-5-haiku-latest"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.RequestsPerSecond == 0 {
		cfg.LLM.RequestsPerSecond = 5
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 10
	}

	if cfg.Retrieval.Backend == "" {
		cfg.Retrieval.Backend = "none"
	}
	if cfg.Retrieval.Collection == "" {
		cfg.Retrieval.Collection = "interview_topics"
	}
	if cfg.Retrieval.ChromemPath == "" {
		cfg.Retrieval.ChromemPath = "data/chromem"
	}
	if cfg.Retrieval.QdrantHost == "" {
		cfg.Retrieval.QdrantHost = "localhost"
	}
	if cfg.Retrieval.QdrantPort == 0 {
		cfg.Retrieval.QdrantPort = 6334
	}
	if cfg.Retrieval.EmbeddingURL == "" {
		cfg.Retrieval.EmbeddingURL = "http://localhost:8081/v1"
	}
	if cfg.Retrieval.EmbeddingModel == "" {
		cfg.Retrieval.EmbeddingModel = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "interview"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "interviewd"
	}
	if cfg.Observability.SamplingRate == 0 {
		cfg.Observability.SamplingRate = 1.0
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Interview.MaxFollowUps < 1 {
		return fmt.Errorf("interview.max_follow_ups must be >= 1, got %d", c.Interview.MaxFollowUps)
	}
	if c.Interview.ContextTopK < 1 {
		return fmt.Errorf("interview.context_top_k must be >= 1, got %d", c.Interview.ContextTopK)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be >= 1, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second cannot be negative")
	}

	switch c.Retrieval.Backend {
	case "none", "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported retrieval backend %q (want none, chromem or qdrant)", c.Retrieval.Backend)
	}
	if c.Retrieval.Backend == "qdrant" && (c.Retrieval.QdrantPort < 1 || c.Retrieval.QdrantPort > 65535) {
		return fmt.Errorf("invalid qdrant port: %d", c.Retrieval.QdrantPort)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1 {
		return fmt.Errorf("observability.sampling_rate must be within [0, 1], got %v", c.Observability.SamplingRate)
	}

	return nil
}
