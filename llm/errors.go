package llm

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// ErrorType says which stage of a chat call failed.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeProvider:       "ProviderError",
	ErrorTypeRequest:        "RequestError",
	ErrorTypeResponse:       "ResponseError",
	ErrorTypeAPI:            "APIError",
	ErrorTypeRateLimit:      "RateLimitError",
	ErrorTypeAuthentication: "AuthenticationError",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "UnknownError"
}

// LLMError is what Client.Chat returns. StatusCode is set only for replies
// that arrived with a non-200 status.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err == nil {
		return e.Type.String() + ": " + e.Message
	}
	return fmt.Sprintf("%s (%s): %v", e.Type, e.Message, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// TypeString is the name shown in log fields and user-facing messages.
func (e *LLMError) TypeString() string { return e.Type.String() }

func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{Type: errType, Message: message, Err: err}
}

// statusError classifies a non-200 reply. The body, cut to 512 bytes, becomes
// the wrapped error.
func statusError(status int, body []byte) *LLMError {
	errType := ErrorTypeAPI
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	}
	e := NewLLMError(errType, fmt.Sprintf("API error: status code %d", status), nil)
	e.StatusCode = status
	if len(body) > 0 {
		e.Err = errors.New(truncate(string(body), 512))
	}
	return e
}

// IsErrorType reports whether err wraps an LLMError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var le *LLMError
	return errors.As(err, &le) && le.Type == t
}

// truncate keeps at most n bytes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
