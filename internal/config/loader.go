package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "fieldwork.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FIELDWORK_PORT")
	setString(&cfg.Server.CORSOrigin, "FIELDWORK_CORS_ORIGIN")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FIELDWORK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FIELDWORK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FIELDWORK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FIELDWORK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FIELDWORK_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.LLM.Provider, "FIELDWORK_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "FIELDWORK_LLM_MODEL")
	setString(&cfg.LLM.APIKey, "FIELDWORK_LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "FIELDWORK_LLM_BASE_URL")
	setFloat64(&cfg.LLM.Temperature, "FIELDWORK_LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "FIELDWORK_LLM_MAX_TOKENS")
	setInt(&cfg.LLM.CallsPerMinute, "FIELDWORK_LLM_CALLS_PER_MINUTE")
	setDuration(&cfg.LLM.RequestTimeout, "FIELDWORK_LLM_REQUEST_TIMEOUT")

	// Provider-native key variables win only when the generic one is unset.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
		default:
			setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		}
	}

	setString(&cfg.Logging.Level, "FIELDWORK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FIELDWORK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "FIELDWORK_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "FIELDWORK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FIELDWORK_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "FIELDWORK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "FIELDWORK_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "FIELDWORK_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "FIELDWORK_RATE_MAX_IDLE_TIME")

	setBool(&cfg.Cache.Enabled, "FIELDWORK_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxSizeMB, "FIELDWORK_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "FIELDWORK_CACHE_TTL")

	setInt(&cfg.Engine.MaxIterations, "FIELDWORK_MAX_ITERATIONS")
	setDuration(&cfg.Engine.StepDelay, "FIELDWORK_STEP_DELAY")

	setString(&cfg.Workspace.WorkpaperDir, "FIELDWORK_WORKPAPER_DIR")
	setString(&cfg.Workspace.EvidenceDir, "FIELDWORK_EVIDENCE_DIR")
	setString(&cfg.Workspace.ResultsDir, "FIELDWORK_RESULTS_DIR")
	setString(&cfg.Workspace.TasksDir, "FIELDWORK_TASKS_DIR")
	setString(&cfg.Workspace.KnowledgeDir, "FIELDWORK_KNOWLEDGE_DIR")

	setFloat64(&cfg.Clock.CompressionRatio, "FIELDWORK_CLOCK_COMPRESSION")

	setBool(&cfg.Telemetry.Enabled, "FIELDWORK_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "FIELDWORK_OTEL_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.LLM.Provider == "" {
		return errors.New("llm.provider is required")
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if cfg.LLM.CallsPerMinute < 1 {
		return errors.New("llm.calls_per_minute must be >= 1")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Engine.MaxIterations < 1 {
		return errors.New("engine.max_iterations must be >= 1")
	}
	if cfg.Clock.CompressionRatio <= 0 {
		return errors.New("clock.compression_ratio must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
