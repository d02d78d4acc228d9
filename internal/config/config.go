// Package config provides hierarchical configuration loading for Fieldwork.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Fieldwork service.
type Config struct {
	Server    Server    `yaml:"server"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	LLM       LLM       `yaml:"llm"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	Cache     Cache     `yaml:"cache"`
	Engine    Engine    `yaml:"engine"`
	Workspace Workspace `yaml:"workspace"`
	Clock     Clock     `yaml:"clock"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds dashboard HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Postgres holds the optional trail archive connection configuration.
// An empty DSN disables the archive.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds JetStream configuration. An empty URL disables publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// LLM holds model provider configuration.
type LLM struct {
	Provider        string        `yaml:"provider"` // "openai", "anthropic" or "scripted"
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"` // override for proxies and test servers
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	CallsPerMinute  int           `yaml:"calls_per_minute"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DefaultPriceIn  float64       `yaml:"default_price_in"`  // USD per 1K input tokens for unknown models
	DefaultPriceOut float64       `yaml:"default_price_out"` // USD per 1K output tokens for unknown models
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for provider calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds per-IP rate limiter configuration for the dashboard.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Cache holds the in-process model response cache configuration.
type Cache struct {
	Enabled   bool          `yaml:"enabled"`
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Engine holds reasoning loop configuration.
type Engine struct {
	MaxIterations int           `yaml:"max_iterations"`
	StepDelay     time.Duration `yaml:"step_delay"`
}

// Workspace holds output directory configuration.
type Workspace struct {
	WorkpaperDir string `yaml:"workpaper_dir"`
	EvidenceDir  string `yaml:"evidence_dir"`
	ResultsDir   string `yaml:"results_dir"`
	TasksDir     string `yaml:"tasks_dir"`
	KnowledgeDir string `yaml:"knowledge_dir"`
}

// Clock holds simulated time configuration. CompressionRatio is the number
// of simulated days per real day.
type Clock struct {
	CompressionRatio float64 `yaml:"compression_ratio"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8090",
			CORSOrigin: "http://localhost:3000",
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		NATS: NATS{
			URL: "",
		},
		LLM: LLM{
			Provider:        "openai",
			Model:           "gpt-5",
			Temperature:     0.7,
			MaxTokens:       4096,
			CallsPerMinute:  10,
			RequestTimeout:  120 * time.Second,
			DefaultPriceIn:  0.015,
			DefaultPriceOut: 0.045,
		},
		Logging: Logging{
			Level:   "info",
			Service: "fieldwork",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Cache: Cache{
			Enabled:   false,
			MaxSizeMB: 64,
			TTL:       time.Hour,
		},
		Engine: Engine{
			MaxIterations: 10,
			StepDelay:     500 * time.Millisecond,
		},
		Workspace: Workspace{
			WorkpaperDir: "output/workpapers",
			EvidenceDir:  "output/evidence",
			ResultsDir:   "output/test_results",
			TasksDir:     "tasks",
			KnowledgeDir: "knowledge",
		},
		Clock: Clock{
			CompressionRatio: 7,
		},
		Telemetry: Telemetry{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
	}
}
