// Package llm sends chat requests to a provider over HTTP and holds the
// shared validation, schema and token helpers.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/providers"
)

// LLM is the chat capability the optimizer depends on.
type LLM interface {
	Chat(ctx context.Context, system, user string) (*providers.Response, error)
	Model() string
}

// Client is the HTTP implementation of LLM.
type Client struct {
	Provider   providers.Provider
	Options    map[string]any
	client     *http.Client
	logger     logging.Logger
	model      string
	limiter    *rate.Limiter
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient builds a client for cfg.Provider from the registry. A nil registry
// means every known provider.
func NewClient(cfg *config.Config, registry *providers.ProviderRegistry) (*Client, error) {
	if registry == nil {
		registry = providers.NewProviderRegistry()
	}
	provider, err := registry.Get(cfg.Provider, cfg.APIKey, cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeProvider, "failed to create provider", err)
	}
	return NewClientWithProvider(cfg, provider), nil
}

// NewClientWithProvider wires an already constructed provider.
func NewClientWithProvider(cfg *config.Config, provider providers.Provider) *Client {
	logger := cfg.GetLogger()
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)

	limiter := rate.NewLimiter(rate.Inf, cfg.RateBurst)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Client{
		Provider:   provider,
		Options:    make(map[string]any),
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		model:      cfg.Model,
		limiter:    limiter,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

// SetHTTPClient swaps the transport, mostly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.client = hc
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends one system + user exchange. With MaxRetries at its default of 0
// exactly one attempt is made.
func (c *Client) Chat(ctx context.Context, system, user string) (*providers.Response, error) {
	req := providers.NewRequest(system, user)

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		c.logger.Debug("Sending chat request", "provider", c.Provider.Name(), "model", c.model, "attempt", attempt+1)

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Warn("Chat attempt failed", "error", err, "attempt", attempt+1)

		if attempt < c.MaxRetries {
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	if c.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed to generate after %d attempts: %w", c.MaxRetries+1, lastErr)
}

func (c *Client) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.RetryDelay):
		return nil
	}
}

func (c *Client) attempt(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewLLMError(ErrorTypeRateLimit, "rate limiter wait failed", err)
	}

	reqBody, err := c.Provider.PrepareRequest(req, c.Options)
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range c.Provider.Headers() {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error", "provider", c.Provider.Name(), "status", resp.StatusCode, "body", truncate(string(body), 512))
		return nil, statusError(resp.StatusCode, body)
	}

	result, err := c.Provider.ParseResponse(body)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}

	c.logger.Debug("Chat completed", "provider", c.Provider.Name(), "elapsed", time.Since(start))
	return result, nil
}
