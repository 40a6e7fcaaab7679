package providers

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
)

// MockProvider implements the Provider interface for testing purposes. It
// ignores the HTTP body it is handed and replies from a queue of texts.
type MockProvider struct {
	mu           sync.Mutex
	endpoint     string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       logging.Logger

	responseText string
	responses    []string
	currentIndex int
	shouldError  bool
	errorMsg     string
	lastRequest  *Request
	requestsSeen int
}

func NewMockProvider(endpoint, model string, extraHeaders map[string]string) *MockProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &MockProvider{
		endpoint:     endpoint,
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       logging.NewNopLogger(),
		responseText: "This is a mock response",
	}
}

// SetMockResponse configures the default reply text.
func (p *MockProvider) SetMockResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = response
}

// SetMockError makes PrepareRequest and ParseResponse fail.
func (p *MockProvider) SetMockError(shouldError bool, errorMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shouldError = shouldError
	p.errorMsg = errorMsg
}

// SetResponses queues replies; once exhausted ParseResponse fails.
func (p *MockProvider) SetResponses(responses []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.currentIndex = 0
}

// LastRequest returns the most recent request and how many were prepared.
func (p *MockProvider) LastRequest() (*Request, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRequest, p.requestsSeen
}

func (p *MockProvider) Name() string                    { return "mock" }
func (p *MockProvider) Endpoint() string                { return p.endpoint }
func (p *MockProvider) SetEndpoint(endpoint string)     { p.endpoint = endpoint }
func (p *MockProvider) SetOption(key string, value any) { p.options[key] = value }
func (p *MockProvider) SetLogger(logger logging.Logger) { p.logger = logger }

func (p *MockProvider) SetExtraHeaders(headers map[string]string) { p.extraHeaders = headers }

func (p *MockProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
}

func (p *MockProvider) Headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *MockProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return nil, errors.New(p.errorMsg)
	}
	p.lastRequest = req
	p.requestsSeen++
	return json.Marshal(chatCompletionBody(p.model, req, p.options, options))
}

func (p *MockProvider) ParseResponse(_ []byte) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return nil, errors.New(p.errorMsg)
	}
	if len(p.responses) == 0 {
		return &Response{Content: Text{Value: p.responseText}, Model: p.model}, nil
	}
	if p.currentIndex >= len(p.responses) {
		return nil, errors.New("mock responses exhausted")
	}
	text := p.responses[p.currentIndex]
	p.currentIndex++
	return &Response{Content: Text{Value: text}, Model: p.model}, nil
}
