// Package config holds the clinicaleval configuration: defaults, file and
// environment loading, and validation.
//
// Precedence, highest first:
//  1. Command-line flags (applied by the caller)
//  2. CLINICALEVAL_* environment variables
//  3. Configuration file (YAML, or JSON which YAML accepts)
//  4. DefaultConfig
package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/extraction"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults.
const (
	DefaultSamplesDir      = "samples"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultRedisAddr       = "localhost:6379"
	DefaultReportTTL       = 7 * 24 * time.Hour
	DefaultKeyPrefix       = "clinicaleval:report:"
	DefaultTemporalHost    = "localhost:7233"
	DefaultNamespace       = "default"
	DefaultTaskQueue       = "clinical-evaluation"
	DefaultWorkflowTimeout = 30 * time.Minute
	DefaultRequestTimeout  = 2 * time.Minute
)

// Config is the complete application configuration.
type Config struct {
	SamplesDir   string `koanf:"samples_dir" json:"samples_dir" validate:"required"`
	OutputDir    string `koanf:"output_dir" json:"output_dir"`
	ReportFormat string `koanf:"report_format" json:"report_format" validate:"oneof=json yaml"`
	MatchMode    string `koanf:"match_mode" json:"match_mode"`
	ByClass      bool   `koanf:"by_class" json:"by_class"`

	// MetricsAddr serves Prometheus metrics from worker and predict when set.
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr"`

	Log        LogConfig        `koanf:"log" json:"log"`
	Redis      RedisConfig      `koanf:"redis" json:"redis"`
	Temporal   TemporalConfig   `koanf:"temporal" json:"temporal"`
	Extraction ExtractionConfig `koanf:"extraction" json:"extraction"`
	Events     EventsConfig     `koanf:"events" json:"events"`
}

// EventsConfig bounds the worker's event deduplication window.
type EventsConfig struct {
	DedupCapacity int           `koanf:"dedup_capacity" json:"dedup_capacity" validate:"min=1"`
	DedupTTL      time.Duration `koanf:"dedup_ttl" json:"dedup_ttl" validate:"gt=0"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" json:"format" validate:"oneof=text json"`
}

// RedisConfig locates the report store.
type RedisConfig struct {
	Enabled   bool          `koanf:"enabled" json:"enabled"`
	Addr      string        `koanf:"addr" json:"addr" validate:"required_if=Enabled true"`
	Password  string        `koanf:"password" json:"-"`
	DB        int           `koanf:"db" json:"db" validate:"min=0,max=15"`
	TTL       time.Duration `koanf:"ttl" json:"ttl" validate:"min=0"`
	KeyPrefix string        `koanf:"key_prefix" json:"key_prefix"`
}

// TemporalConfig locates the Temporal frontend and names the task queue.
type TemporalConfig struct {
	HostPort        string        `koanf:"host_port" json:"host_port" validate:"required"`
	Namespace       string        `koanf:"namespace" json:"namespace" validate:"required"`
	TaskQueue       string        `koanf:"task_queue" json:"task_queue" validate:"required"`
	WorkflowTimeout time.Duration `koanf:"workflow_timeout" json:"workflow_timeout" validate:"min=0"`
}

// ExtractionConfig configures the remote extraction service and the options
// forwarded to it.
type ExtractionConfig struct {
	Endpoint          string        `koanf:"endpoint" json:"endpoint" validate:"omitempty,url"`
	APIKeyEnv         string        `koanf:"api_key_env" json:"api_key_env"`
	ModelID           string        `koanf:"model_id" json:"model_id"`
	ModelURL          string        `koanf:"model_url" json:"model_url"`
	UseOllama         bool          `koanf:"use_ollama" json:"use_ollama"`
	Temperature       float64       `koanf:"temperature" json:"temperature"`
	MaxTokens         int           `koanf:"max_tokens" json:"max_tokens"`
	Passes            int           `koanf:"passes" json:"passes"`
	MaxWorkers        int           `koanf:"max_workers" json:"max_workers"`
	MaxCharBuffer     int           `koanf:"max_char_buffer" json:"max_char_buffer"`
	RequestsPerSecond float64       `koanf:"requests_per_second" json:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" json:"burst" validate:"min=1"`
	Timeout           time.Duration `koanf:"timeout" json:"timeout" validate:"min=0"`

	MaxAttempts        int           `koanf:"max_attempts" json:"max_attempts" validate:"min=1"`
	BreakerThreshold   int           `koanf:"breaker_threshold" json:"breaker_threshold" validate:"min=1"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout" json:"breaker_open_timeout" validate:"gt=0"`
}

// DefaultConfig returns a configuration that runs a local evaluation of
// ./samples with partial matching and no external services.
func DefaultConfig() *Config {
	opts := extraction.DefaultOptions()
	retry := extraction.DefaultRetryConfig()
	breaker := extraction.DefaultBreakerConfig()
	return &Config{
		SamplesDir:   DefaultSamplesDir,
		ReportFormat: FormatJSON,
		MatchMode:    domain.DefaultMatchMode.String(),
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Redis: RedisConfig{
			Addr:      DefaultRedisAddr,
			TTL:       DefaultReportTTL,
			KeyPrefix: DefaultKeyPrefix,
		},
		Temporal: TemporalConfig{
			HostPort:        DefaultTemporalHost,
			Namespace:       DefaultNamespace,
			TaskQueue:       DefaultTaskQueue,
			WorkflowTimeout: DefaultWorkflowTimeout,
		},
		Extraction: ExtractionConfig{
			APIKeyEnv:         extraction.DefaultAPIKeyEnv,
			ModelID:           opts.ModelID,
			Temperature:       opts.Temperature,
			MaxTokens:         opts.MaxTokens,
			Passes:            opts.Passes,
			MaxWorkers:        opts.MaxWorkers,
			MaxCharBuffer:     opts.MaxCharBuffer,
			RequestsPerSecond: extraction.DefaultRequestsPerSec,
			Burst:             extraction.DefaultRequestBurst,
			Timeout:           DefaultRequestTimeout,

			MaxAttempts:        retry.MaxAttempts,
			BreakerThreshold:   breaker.FailureThreshold,
			BreakerOpenTimeout: breaker.OpenTimeout,
		},
		Events: EventsConfig{
			DedupCapacity: events.DefaultDedupCapacity,
			DedupTTL:      events.DefaultDedupTTL,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section, including the extraction options. The
// match mode is accepted exactly when domain.ParseMatchMode accepts it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	if _, err := domain.ParseMatchMode(c.MatchMode); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	opts := c.Extraction.Options()
	if err := opts.Validate(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// Mode returns the configured match mode. Validate guarantees it parses.
func (c *Config) Mode() domain.MatchMode {
	mode, err := domain.ParseMatchMode(c.MatchMode)
	if err != nil {
		return domain.DefaultMatchMode
	}
	return mode
}

// Options converts the section into engine options.
func (e ExtractionConfig) Options() extraction.Options {
	url := e.ModelURL
	if e.UseOllama && url == "" {
		url = extraction.DefaultOllamaModelURL
	}
	return extraction.Options{
		ModelID:       e.ModelID,
		ModelURL:      url,
		Temperature:   e.Temperature,
		MaxTokens:     e.MaxTokens,
		Passes:        e.Passes,
		MaxWorkers:    e.MaxWorkers,
		MaxCharBuffer: e.MaxCharBuffer,
		UseOllama:     e.UseOllama,
	}
}

// HTTPConfig builds the transport settings. The API key is read from the
// variable named by APIKeyEnv through lookup.
func (e ExtractionConfig) HTTPConfig(lookup func(string) (string, bool)) extraction.HTTPConfig {
	var key string
	if e.APIKeyEnv != "" && lookup != nil {
		key, _ = lookup(e.APIKeyEnv)
	}
	return extraction.HTTPConfig{
		Endpoint:          e.Endpoint,
		APIKey:            key,
		RequestsPerSecond: e.RequestsPerSecond,
		Burst:             e.Burst,
		Timeout:           e.Timeout,
	}
}

// RetryConfig returns the retry policy with the configured attempt budget.
func (e ExtractionConfig) RetryConfig() extraction.RetryConfig {
	cfg := extraction.DefaultRetryConfig()
	cfg.MaxAttempts = e.MaxAttempts
	return cfg
}

// BreakerConfig returns the circuit breaker settings.
func (e ExtractionConfig) BreakerConfig() extraction.BreakerConfig {
	cfg := extraction.DefaultBreakerConfig()
	cfg.FailureThreshold = e.BreakerThreshold
	cfg.OpenTimeout = e.BreakerOpenTimeout
	return cfg
}
