package providers

import (
	"encoding/json"
	"errors"
	"fmt"
)

// chatCompletionBody assembles an OpenAI-style chat completion request.
// Per-call options win over provider defaults.
func chatCompletionBody(model string, req *Request, defaults, options map[string]any) map[string]any {
	body := map[string]any{}
	for k, v := range options {
		body[k] = v
	}
	for k, v := range defaults {
		if _, exists := body[k]; !exists {
			body[k] = v
		}
	}
	body["model"] = model

	messages := make([]map[string]any, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{
			"role":    RoleSystem,
			"content": req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]any{
			"role":    m.Role,
			"content": m.Content,
		})
	}
	body["messages"] = messages
	return body
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
	Usage *struct {
		PromptTokens        int64 `json:"prompt_tokens"`
		CompletionTokens    int64 `json:"completion_tokens"`
		PromptTokensDetails *struct {
			CachedTokens int64 `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

var errNoChoices = errors.New("invalid chat completion response: no choices")

// parseChatCompletion extracts the first choice of a chat completion reply.
func parseChatCompletion(provider string, body []byte) (*Response, error) {
	var cr chatCompletionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat response: %w", err)
	}
	if cr.Error != nil && cr.Error.Message != "" {
		return nil, fmt.Errorf("%s API error: %s", provider, cr.Error.Message)
	}
	// Blank content is passed through; the caller decides what an empty
	// reply means.
	if len(cr.Choices) == 0 {
		return nil, errNoChoices
	}

	resp := &Response{
		Content:      Text{Value: cr.Choices[0].Message.Content},
		ID:           cr.ID,
		Model:        cr.Model,
		FinishReason: cr.Choices[0].FinishReason,
	}
	if cr.Usage != nil {
		var cached int64
		if cr.Usage.PromptTokensDetails != nil {
			cached = cr.Usage.PromptTokensDetails.CachedTokens
		}
		resp.Usage = NewUsage(cr.Usage.PromptTokens, cached, cr.Usage.CompletionTokens)
	}
	return resp, nil
}
