// Package providers implements the chat-completion providers the optimizer can
// talk to. Every provider turns a Request into a JSON body for its endpoint and
// parses the endpoint's reply back into a Response.
package providers

import (
	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
)

// Provider defines the interface that all LLM providers must implement.
type Provider interface {
	// Core identification and configuration
	Name() string
	Endpoint() string
	SetEndpoint(endpoint string)
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger logging.Logger)

	// Request and response handling
	PrepareRequest(req *Request, options map[string]any) ([]byte, error)
	ParseResponse(body []byte) (*Response, error)
}

// ProviderConstructor creates a provider instance for a model and API key.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider
