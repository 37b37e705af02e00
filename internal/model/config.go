package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete runtime configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Risk         RiskConfig         `yaml:"risk" mapstructure:"risk"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the optional model-backed classifier and risk signal
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ClassifierConfig controls the primary classification strategy
type ClassifierConfig struct {
	UseModel       bool          `yaml:"use_model" mapstructure:"use_model"`             // Try the model strategy before rules
	CallTimeout    time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`       // Per-clause model deadline
	RetryAfter     time.Duration `yaml:"retry_after" mapstructure:"retry_after"`         // Cool-down after a failed model load
	RiskSignal     bool          `yaml:"risk_signal" mapstructure:"risk_signal"`         // Ask the model for a risk verdict
	MaxHeaderWords int           `yaml:"max_header_words" mapstructure:"max_header_words"`
}

// Calibration maps a raw [0,1] score into a display range: min(Ceiling, Floor + raw*Scale)
type Calibration struct {
	Floor   float64 `yaml:"floor" mapstructure:"floor"`
	Ceiling float64 `yaml:"ceiling" mapstructure:"ceiling"`
	Scale   float64 `yaml:"scale" mapstructure:"scale"`
}

// Apply rescales a raw score into the calibrated range
func (c Calibration) Apply(raw float64) float64 {
	v := c.Floor + raw*c.Scale
	if v > c.Ceiling {
		return c.Ceiling
	}
	return v
}

// RiskConfig holds scoring thresholds and per-contract-type calibrations
type RiskConfig struct {
	Calibrations         map[string]Calibration `yaml:"calibrations" mapstructure:"calibrations"` // Keyed by upper-case contract type
	SuggestionThreshold  float64                `yaml:"suggestion_threshold" mapstructure:"suggestion_threshold"`
	ClauseAlertThreshold float64                `yaml:"clause_alert_threshold" mapstructure:"clause_alert_threshold"`
	ComplianceThreshold  float64                `yaml:"compliance_threshold" mapstructure:"compliance_threshold"`
	DefaultContractType  string                 `yaml:"default_contract_type" mapstructure:"default_contract_type"`
}

// CalibrationFor returns the calibration registered for a contract type
func (r RiskConfig) CalibrationFor(contractType string) (Calibration, bool) {
	c, ok := r.Calibrations[strings.ToUpper(strings.TrimSpace(contractType))]
	return c, ok
}

// HTTPConfig configures document fetching by URL
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitingConfig applies per-host limits to fetches and model calls
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig configures memoization of model results
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"` // Adds a disk layer when set
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	ClauseWorkers int `yaml:"clause_workers" mapstructure:"clause_workers"` // Per-request classification/scoring fan-out
	BatchWorkers  int `yaml:"batch_workers" mapstructure:"batch_workers"`   // Documents analyzed in parallel by `batch`
}

// StoreConfig selects the contract persistence backend
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	UploadDir      string        `yaml:"upload_dir" mapstructure:"upload_dir"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format        string `yaml:"format" mapstructure:"format"` // json, markdown
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   30,
			MaxTokens: 256,
		},
		Classifier: ClassifierConfig{
			UseModel:       true,
			CallTimeout:    10 * time.Second,
			RetryAfter:     time.Minute,
			RiskSignal:     false,
			MaxHeaderWords: 5,
		},
		Risk: RiskConfig{
			Calibrations: map[string]Calibration{
				"NDA": {Floor: 0, Ceiling: 20, Scale: 20},
				"MSA": {Floor: 70, Ceiling: 85, Scale: 15},
			},
			SuggestionThreshold:  0.6,
			ClauseAlertThreshold: 0.8,
			ComplianceThreshold:  0.7,
			DefaultContractType:  "NDA",
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Clausewise/0.1 (+https://github.com/ppiankov/clausewise)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			ClauseWorkers: 4,
			BatchWorkers:  4,
		},
		Store: StoreConfig{
			Driver:   "sqlite",
			DSN:      "clausewise.db",
			MaxConns: 10,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 60 * time.Second,
			MaxUploadBytes: 20 << 20,
			UploadDir:      "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format:        "json",
			IncludeFooter: true,
		},
	}
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	for name, cal := range c.Risk.Calibrations {
		if cal.Scale < 0 {
			return fmt.Errorf("%w: calibration %s has negative scale", ErrInvalidConfig, name)
		}
		if cal.Ceiling < cal.Floor {
			return fmt.Errorf("%w: calibration %s ceiling %.2f below floor %.2f", ErrInvalidConfig, name, cal.Ceiling, cal.Floor)
		}
	}
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("%w: unsupported store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Concurrency.ClauseWorkers <= 0 {
		return fmt.Errorf("%w: concurrency.clause_workers must be positive", ErrInvalidConfig)
	}
	if c.Concurrency.BatchWorkers <= 0 {
		return fmt.Errorf("%w: concurrency.batch_workers must be positive", ErrInvalidConfig)
	}
	switch c.Output.Format {
	case "json", "markdown", "md":
	default:
		return fmt.Errorf("%w: unsupported output format %q", ErrInvalidConfig, c.Output.Format)
	}
	return nil
}
