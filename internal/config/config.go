// Package config defines the application configuration. Values are layered by
// viper: built-in defaults, then the config file, then VULNDETECTIVE_*
// environment variables, then CLI flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Screener ScreenerConfig `mapstructure:"screener" yaml:"screener"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Merger   MergerConfig   `mapstructure:"merger" yaml:"merger"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Acquire  AcquireConfig  `mapstructure:"acquire" yaml:"acquire"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json".
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // Megabytes before rotation.
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // Days.
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig configures batch orchestration and the shared provider budget.
type EngineConfig struct {
	// MaxConcurrentUnits bounds how many SourceUnits are analyzed at once.
	MaxConcurrentUnits int `mapstructure:"max_concurrent_units" yaml:"max_concurrent_units"`
	// ProviderRate is the shared token-bucket refill rate, in provider
	// requests per second, across all in-flight analyses.
	ProviderRate float64 `mapstructure:"provider_rate" yaml:"provider_rate"`
	// ProviderBurst is the token-bucket capacity.
	ProviderBurst int `mapstructure:"provider_burst" yaml:"provider_burst"`
}

// ScreenerConfig tunes the deterministic pattern screener.
type ScreenerConfig struct {
	// DefaultConfidence is assigned to rules that do not carry their own.
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`
}

// RetryConfig is the explicit, inspectable retry policy for transient
// provider failures.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// AnalyzerConfig tunes chunking and concurrency of the semantic pass.
type AnalyzerConfig struct {
	// MaxChunkLines is the provider context budget expressed in source lines.
	MaxChunkLines int `mapstructure:"max_chunk_lines" yaml:"max_chunk_lines"`
	// OverlapLines is the margin shared by adjacent chunks. It must be large
	// enough to contain the longest realistic vulnerable construct.
	OverlapLines int `mapstructure:"overlap_lines" yaml:"overlap_lines"`
	// ChunkConcurrency bounds concurrent provider calls for one SourceUnit.
	ChunkConcurrency int `mapstructure:"chunk_concurrency" yaml:"chunk_concurrency"`
	// Temperature is passed through to the model for analysis requests.
	Temperature float32     `mapstructure:"temperature" yaml:"temperature"`
	Retry       RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// MergerConfig holds the reconciliation policy constants. These are empirical
// tuning knobs, not derived values.
type MergerConfig struct {
	// SpanTolerance widens the overlap test by this many lines.
	SpanTolerance int `mapstructure:"span_tolerance" yaml:"span_tolerance"`
	// AgreementBonus is added to the max confidence when both passes agree.
	AgreementBonus float64 `mapstructure:"agreement_bonus" yaml:"agreement_bonus"`
	// AmbiguityWindow is the near-miss gap, in lines, that triggers a merge
	// ambiguity warning while keeping the findings distinct.
	AmbiguityWindow int `mapstructure:"ambiguity_window" yaml:"ambiguity_window"`
}

// LLMProvider identifies a supported model provider backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the connection to the AI model provider.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AcquireConfig tunes source acquisition.
type AcquireConfig struct {
	MaxFileSize int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DatabaseConfig holds the optional findings store connection. Persistence is
// disabled when the URL is empty.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vulndetective")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.max_concurrent_units", 5)
	v.SetDefault("engine.provider_rate", 2.0)
	v.SetDefault("engine.provider_burst", 4)

	// -- Screener --
	v.SetDefault("screener.default_confidence", 0.6)

	// -- Analyzer --
	v.SetDefault("analyzer.max_chunk_lines", 400)
	v.SetDefault("analyzer.overlap_lines", 50)
	v.SetDefault("analyzer.chunk_concurrency", 4)
	v.SetDefault("analyzer.temperature", 0.2)
	v.SetDefault("analyzer.retry.max_attempts", 3)
	v.SetDefault("analyzer.retry.initial_interval", "500ms")
	v.SetDefault("analyzer.retry.max_interval", "15s")
	v.SetDefault("analyzer.retry.multiplier", 2.0)

	// -- Merger --
	v.SetDefault("merger.span_tolerance", 0)
	v.SetDefault("merger.agreement_bonus", 0.2)
	v.SetDefault("merger.ambiguity_window", 3)

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "120s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)

	// -- Acquire --
	v.SetDefault("acquire.max_file_size", 1<<20)
	v.SetDefault("acquire.timeout", "30s")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper creates a validated configuration from a viper instance.
func NewFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.api_key", "VULNDETECTIVE_LLM_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("database.url", "VULNDETECTIVE_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrentUnits <= 0 {
		return fmt.Errorf("engine.max_concurrent_units must be a positive integer")
	}
	if c.Engine.ProviderRate <= 0 {
		return fmt.Errorf("engine.provider_rate must be positive")
	}
	if c.Engine.ProviderBurst <= 0 {
		return fmt.Errorf("engine.provider_burst must be a positive integer")
	}
	if c.Analyzer.MaxChunkLines <= 0 {
		return fmt.Errorf("analyzer.max_chunk_lines must be a positive integer")
	}
	if c.Analyzer.OverlapLines < 0 || c.Analyzer.OverlapLines >= c.Analyzer.MaxChunkLines {
		return fmt.Errorf("analyzer.overlap_lines must be non-negative and smaller than max_chunk_lines")
	}
	if c.Analyzer.ChunkConcurrency <= 0 {
		return fmt.Errorf("analyzer.chunk_concurrency must be a positive integer")
	}
	if c.Analyzer.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("analyzer.retry.max_attempts must be a positive integer")
	}
	if c.Merger.AgreementBonus < 0 || c.Merger.AgreementBonus > 1 {
		return fmt.Errorf("merger.agreement_bonus must be between 0.0 and 1.0")
	}
	if c.Screener.DefaultConfidence < 0 || c.Screener.DefaultConfidence > 1 {
		return fmt.Errorf("screener.default_confidence must be between 0.0 and 1.0")
	}
	return nil
}
