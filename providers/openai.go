package providers

import (
	"encoding/json"
	"fmt"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider talks to OpenAI or any endpoint speaking the same
// chat-completions dialect.
type OpenAIProvider struct {
	apiKey       string
	model        string
	endpoint     string
	extraHeaders map[string]string
	options      map[string]any
	logger       logging.Logger
}

func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		model:        model,
		endpoint:     openAIEndpoint,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       logging.NewNopLogger(),
	}
}

func (p *OpenAIProvider) Name() string                    { return "openai" }
func (p *OpenAIProvider) Endpoint() string                { return p.endpoint }
func (p *OpenAIProvider) SetLogger(logger logging.Logger) { p.logger = logger }

func (p *OpenAIProvider) SetEndpoint(endpoint string) {
	if endpoint != "" {
		p.endpoint = endpoint
	}
}

func (p *OpenAIProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Option set", "key", key, "value", value)
}

func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
	p.SetEndpoint(cfg.Endpoint)
}

func (p *OpenAIProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *OpenAIProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *OpenAIProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	data, err := json.Marshal(chatCompletionBody(p.model, req, p.options, options))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

func (p *OpenAIProvider) ParseResponse(body []byte) (*Response, error) {
	return parseChatCompletion("OpenAI", body)
}
