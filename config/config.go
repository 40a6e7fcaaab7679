// Package config loads ipometa settings from the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teilomillet/ipometa/internal/logging"
)

const (
	DefaultProvider         = "openrouter"
	DefaultModel            = "x-ai/grok-4-fast"
	DefaultMasterPromptPath = "data/master_prompt.json"
	DefaultFeedbackLogPath  = "data/feedback_log.json"
)

// Config holds every tunable of the optimizer and its front ends.
type Config struct {
	Provider    string        `env:"IPO_PROVIDER" envDefault:"openrouter" validate:"required,oneof=openrouter openai"`
	Model       string        `env:"IPO_MODEL" envDefault:"x-ai/grok-4-fast" validate:"required"`
	Endpoint    string        `env:"IPO_ENDPOINT" validate:"omitempty,url"`
	APIKey      string        `env:"IPO_API_KEY"`
	Temperature float64       `env:"IPO_TEMPERATURE" envDefault:"0.7" validate:"gte=0,lte=2"`
	MaxTokens   int           `env:"IPO_MAX_TOKENS" envDefault:"2048" validate:"gte=1"`
	Timeout     time.Duration `env:"IPO_TIMEOUT" envDefault:"0s" validate:"gte=0"`
	MaxRetries  int           `env:"IPO_MAX_RETRIES" envDefault:"0" validate:"gte=0"`
	RetryDelay  time.Duration `env:"IPO_RETRY_DELAY" envDefault:"2s"`
	RateLimit   float64       `env:"IPO_RATE_LIMIT" envDefault:"0" validate:"gte=0"`
	RateBurst   int           `env:"IPO_RATE_BURST" envDefault:"1" validate:"gte=1"`

	MasterPromptPath string `env:"IPO_MASTER_PROMPT_PATH" envDefault:"data/master_prompt.json" validate:"required"`
	FeedbackLogPath  string `env:"IPO_FEEDBACK_LOG_PATH" envDefault:"data/feedback_log.json" validate:"required"`

	Addr     string `env:"IPO_ADDR" envDefault:":7860"`
	AppTitle string `env:"IPO_APP_TITLE" envDefault:"IPO-Meta Prompt Optimizer"`
	AppURL   string `env:"IPO_APP_URL" envDefault:"https://github.com/teilomillet/ipometa"`

	// OpenRouter routing: models tried after Model, or let OpenRouter choose.
	FallbackModels []string `env:"IPO_FALLBACK_MODELS" envSeparator:"," validate:"omitempty,dive,modelid"`
	AutoRoute      bool     `env:"IPO_AUTO_ROUTE"`

	LogLevel logging.LogLevel `env:"IPO_LOG_LEVEL" envDefault:"WARN"`
	// ExtraHeaders is read as "Name:value,Name:value".
	ExtraHeaders map[string]string `env:"IPO_EXTRA_HEADERS"`
	Logger       logging.Logger

	// keyFromProvider is set when APIKey came from the provider's own
	// variable, so a later SetProvider swaps it.
	keyFromProvider bool
}

// LoadConfig parses the environment. The API key falls back to the
// provider-specific variable (OPENROUTER_API_KEY, OPENAI_API_KEY).
func LoadConfig() (*Config, error) {
	cfg := &Config{ExtraHeaders: make(map[string]string)}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		cfg.resolveProviderKey()
	}
	return cfg, nil
}

func providerKeyVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

func (c *Config) resolveProviderKey() {
	c.APIKey = os.Getenv(providerKeyVar(c.Provider))
	c.keyFromProvider = c.APIKey != ""
}

type ConfigOption func(*Config)

// NewConfig returns the defaults without reading the environment.
func NewConfig() *Config {
	return &Config{
		Provider:         DefaultProvider,
		Model:            DefaultModel,
		Temperature:      0.7,
		MaxTokens:        2048,
		RetryDelay:       2 * time.Second,
		RateBurst:        1,
		MasterPromptPath: DefaultMasterPromptPath,
		FeedbackLogPath:  DefaultFeedbackLogPath,
		Addr:             ":7860",
		AppTitle:         "IPO-Meta Prompt Optimizer",
		AppURL:           "https://github.com/teilomillet/ipometa",
		LogLevel:         logging.LogLevelWarn,
		ExtraHeaders:     make(map[string]string),
	}
}

// SetProvider switches provider. A key taken from the previous provider's
// variable (OPENROUTER_API_KEY, ...) is replaced by the new provider's.
func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
		if c.keyFromProvider || c.APIKey == "" {
			c.resolveProviderKey()
		}
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		c.APIKey = apiKey
		c.keyFromProvider = false
	}
}

// SetFallbackModels lists OpenRouter models tried when Model is unavailable.
func SetFallbackModels(models ...string) ConfigOption {
	return func(c *Config) {
		c.FallbackModels = models
	}
}

func SetAutoRoute(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AutoRoute = enabled
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = retryDelay
	}
}

// SetRateLimit caps outbound requests per second; 0 disables limiting.
func SetRateLimit(perSecond float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RateLimit = perSecond
		if burst < 1 {
			burst = 1
		}
		c.RateBurst = burst
	}
}

func SetMasterPromptPath(path string) ConfigOption {
	return func(c *Config) {
		c.MasterPromptPath = path
	}
}

func SetFeedbackLogPath(path string) ConfigOption {
	return func(c *Config) {
		c.FeedbackLogPath = path
	}
}

func SetAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.Addr = addr
	}
}

func SetLogLevel(level logging.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// SetLogger replaces the logger built from LogLevel.
func SetLogger(logger logging.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}

// GetLogger returns the configured logger, building a default one on first use.
func (c *Config) GetLogger() logging.Logger {
	if c.Logger == nil {
		c.Logger = logging.NewLogger(c.LogLevel)
	}
	return c.Logger
}
