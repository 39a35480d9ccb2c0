package config

import (
	"fmt"
	"time"
)

// StateConfig represents the sizing and durable slots of the pipeline state
type StateConfig struct {
	Capacity    int
	TTL         time.Duration
	CacheSlot   string
	DedupSlot   string
	CounterSlot string
}

// PipelineConfig represents the run scheduling configuration
type PipelineConfig struct {
	MinInterval time.Duration
}

// FilterConfig represents the item filtering configuration
type FilterConfig struct {
	IdentityStrategy string
	AllowedAuthors   []string
	MaxTextSize      int
}

// ClassifierConfig represents the configuration for the classification gateway
type ClassifierConfig struct {
	Provider    string
	FilterRules string
}

// HTTPConfig represents the configuration for the HTTP decision service
type HTTPConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// StoreConfig represents the durable slot store configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// SourceConfig represents the feed source configuration
type SourceConfig struct {
	Path  string
	Watch bool
}

// SinkConfig represents the hide effect configuration
type SinkConfig struct {
	Type string
	Path string
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetState returns the pipeline state configuration
func (c *Config) GetState() (StateConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return StateConfig{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	capacity := c.GetInt("cache.capacity")
	if capacity <= 0 {
		return StateConfig{}, fmt.Errorf("invalid cache capacity: %d", capacity)
	}

	return StateConfig{
		Capacity:    capacity,
		TTL:         ttl,
		CacheSlot:   c.GetString("cache.slot"),
		DedupSlot:   c.GetString("dedup.slot"),
		CounterSlot: c.GetString("pipeline.counter_slot"),
	}, nil
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() (PipelineConfig, error) {
	interval, err := c.GetDuration("pipeline.min_interval")
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid pipeline min interval: %w", err)
	}
	return PipelineConfig{MinInterval: interval}, nil
}

// GetFilter returns the filtering configuration
func (c *Config) GetFilter() FilterConfig {
	return FilterConfig{
		IdentityStrategy: c.GetString("identity.strategy"),
		AllowedAuthors:   c.GetStringSlice("filter.allowed_authors"),
		MaxTextSize:      c.GetInt("filter.max_text_size"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:    c.GetString("classifier.provider"),
		FilterRules: c.GetString("classifier.filter_rules"),
	}
}

// GetHTTP returns the HTTP decision service configuration
func (c *Config) GetHTTP() (HTTPConfig, error) {
	timeout, err := c.GetDuration("http.timeout")
	if err != nil {
		return HTTPConfig{}, fmt.Errorf("invalid http timeout: %w", err)
	}
	return HTTPConfig{
		Endpoint: c.GetString("http.endpoint"),
		Timeout:  timeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetStore returns the slot store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetSource returns the feed source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Path:  c.GetString("source.path"),
		Watch: c.GetBool("source.watch"),
	}
}

// GetSink returns the hide effect configuration
func (c *Config) GetSink() SinkConfig {
	return SinkConfig{
		Type: c.GetString("sink.type"),
		Path: c.GetString("sink.path"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
