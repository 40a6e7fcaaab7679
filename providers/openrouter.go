package providers

import (
	"encoding/json"
	"fmt"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
)

const (
	openRouterEndpoint     = "https://openrouter.ai/api/v1/chat/completions"
	openRouterDefaultModel = "openrouter/auto"
)

// OpenRouterProvider implements the Provider interface for the OpenRouter API.
// OpenRouter fronts many hosted models behind one OpenAI-compatible endpoint,
// with optional fallback models and automatic routing.
type OpenRouterProvider struct {
	apiKey       string
	model        string
	endpoint     string
	appTitle     string
	appURL       string
	extraHeaders map[string]string
	options      map[string]any
	logger       logging.Logger
}

// NewOpenRouterProvider creates a provider for the given API key and model
// (e.g. "x-ai/grok-4-fast", "anthropic/claude-3.5-sonnet").
func NewOpenRouterProvider(apiKey, model string, extraHeaders map[string]string) *OpenRouterProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OpenRouterProvider{
		apiKey:       apiKey,
		model:        model,
		endpoint:     openRouterEndpoint,
		appTitle:     "IPO-Meta Prompt Optimizer",
		appURL:       "https://github.com/teilomillet/ipometa",
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       logging.NewNopLogger(),
	}
}

func (p *OpenRouterProvider) SetLogger(logger logging.Logger) {
	p.logger = logger
}

// Name returns "openrouter".
func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) Endpoint() string {
	return p.endpoint
}

func (p *OpenRouterProvider) SetEndpoint(endpoint string) {
	if endpoint != "" {
		p.endpoint = endpoint
	}
}

// SetOption sets a body option. Besides the standard sampling options it
// understands:
//   - fallback_models: []string tried after the primary model
//   - auto_route: bool, lets OpenRouter pick the model
func (p *OpenRouterProvider) SetOption(key string, value any) {
	p.options[key] = value
}

// SetDefaultOptions copies sampling settings and app attribution from cfg.
func (p *OpenRouterProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
	if cfg.AppTitle != "" {
		p.appTitle = cfg.AppTitle
	}
	if cfg.AppURL != "" {
		p.appURL = cfg.AppURL
	}
	p.SetEndpoint(cfg.Endpoint)
	if len(cfg.FallbackModels) > 0 {
		p.SetOption("fallback_models", cfg.FallbackModels)
	}
	if cfg.AutoRoute {
		p.SetOption("auto_route", true)
	}
	p.logger.Debug("Default options set", "provider", p.Name(), "temperature", cfg.Temperature, "max_tokens", cfg.MaxTokens)
}

func (p *OpenRouterProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

// Headers returns the HTTP headers required for OpenRouter API requests.
func (p *OpenRouterProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
		"HTTP-Referer":  p.appURL,
		"X-Title":       p.appTitle,
	}
	for key, value := range p.extraHeaders {
		headers[key] = value
	}
	return headers
}

// PrepareRequest creates a chat completion request for the OpenRouter API.
func (p *OpenRouterProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	body := chatCompletionBody(p.model, req, p.options, options)

	if fallbackModels, ok := body["fallback_models"].([]string); ok {
		body["models"] = append([]string{p.model}, fallbackModels...)
		delete(body, "fallback_models")
	} else if autoRoute, ok := body["auto_route"].(bool); ok {
		if autoRoute {
			body["model"] = openRouterDefaultModel
		}
		delete(body, "auto_route")
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

// ParseResponse extracts the completion text from the OpenRouter API response.
func (p *OpenRouterProvider) ParseResponse(body []byte) (*Response, error) {
	resp, err := parseChatCompletion("OpenRouter", body)
	if err != nil {
		return nil, err
	}
	if resp.ID != "" {
		p.logger.Debug("Generation ID", "id", resp.ID)
	}
	if resp.Model != "" && resp.Model != p.model {
		p.logger.Info("Model used", "requested", p.model, "actual", resp.Model)
	}
	return resp, nil
}
