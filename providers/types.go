package providers

// Roles used in chat-completion messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is the provider-neutral shape of one chat call.
type Request struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// NewRequest builds the usual system + single user message request.
func NewRequest(system, user string) *Request {
	return &Request{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	}
}

// Message represents a single message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents the parsed reply of a provider.
type Response struct {
	Content      Content
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Content is a sealed interface for response payloads. Only text exists today.
type Content interface {
	isContent()
}

// Text represents text content in a response.
type Text struct {
	Value string
}

func (t Text) isContent() {}

// AsText returns the text content, or "" for other content kinds.
func (r *Response) AsText() string {
	if r == nil {
		return ""
	}
	if t, ok := r.Content.(Text); ok {
		return t.Value
	}
	return ""
}

// Usage is the token accounting reported by the endpoint.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	TotalTokens       int64 `json:"total_tokens"`
}

func NewUsage(inputTokens, cachedInputTokens, outputTokens int64) *Usage {
	return &Usage{
		InputTokens:       inputTokens,
		CachedInputTokens: cachedInputTokens,
		OutputTokens:      outputTokens,
		TotalTokens:       inputTokens + outputTokens,
	}
}
