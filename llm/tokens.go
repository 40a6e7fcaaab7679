package llm

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/teilomillet/ipometa/internal/logging"
)

// TokenCounter estimates the token length of a text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with a tiktoken encoding. The encoding is loaded on
// first use; when none can be loaded it falls back to a chars/4 estimate.
type TiktokenCounter struct {
	model  string
	logger logging.Logger

	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// offlineBpe makes tiktoken read its encodings from files embedded in the
// binary instead of downloading them on first use.
var offlineBpe sync.Once

func NewTokenCounter(model string, logger logging.Logger) *TiktokenCounter {
	offlineBpe.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TiktokenCounter{model: model, logger: logger}
}

// baseModelName strips a routing prefix such as "openai/".
func baseModelName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}

func (c *TiktokenCounter) load() {
	enc, err := tiktoken.EncodingForModel(baseModelName(c.model))
	if err != nil {
		c.logger.Debug("No tiktoken encoding for model, using cl100k_base", "model", c.model, "error", err)
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		c.logger.Warn("Failed to load tiktoken encoding, estimating tokens", "error", err)
		return
	}
	c.encoding = enc
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.load)
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
