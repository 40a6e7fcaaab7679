// Package optimizer rewrites a vague question into a structured prompt and
// answers it, both in one model call.
package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/llm"
	"github.com/teilomillet/ipometa/store"
)

// PromptSource supplies the master prompt. It is read on every run.
type PromptSource interface {
	Load() store.MasterPromptConfig
}

// Result is what Run hands back to a front end. Err is set when the model
// call failed; OptimizedPrompt then holds the displayable error.
type Result struct {
	OptimizedPrompt string
	FinalResponse   string
	PromptTokens    int
	Parsed          bool
	Err             error
}

type Option func(*Optimizer)

func WithLogger(logger logging.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithTokenCounter enables prompt token estimates in Result.PromptTokens.
func WithTokenCounter(counter llm.TokenCounter) Option {
	return func(o *Optimizer) {
		o.tokens = counter
	}
}

type Optimizer struct {
	llm     llm.LLM
	prompts PromptSource
	logger  logging.Logger
	tokens  llm.TokenCounter
}

func New(client llm.LLM, prompts PromptSource, opts ...Option) *Optimizer {
	o := &Optimizer{
		llm:     client,
		prompts: prompts,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ComposeSystemMessage joins the stored instruction with MetaInstruction.
func ComposeSystemMessage(stored string) string {
	return stored + " " + MetaInstruction
}

// Run optimizes input and answers it. It never returns an error: every
// failure becomes text in the Result.
func (o *Optimizer) Run(ctx context.Context, input string) Result {
	if strings.TrimSpace(input) == "" {
		return Result{OptimizedPrompt: EmptyInputMessage, FinalResponse: Placeholder}
	}

	master := o.prompts.Load()
	system := ComposeSystemMessage(master.SystemMessage)
	user := userInputPrefix + input

	var promptTokens int
	if o.tokens != nil {
		promptTokens = o.tokens.Count(system) + o.tokens.Count(user)
		o.logger.Debug("Prompt size", "tokens", promptTokens, "model", o.llm.Model())
	}

	start := time.Now()
	resp, err := o.llm.Chat(ctx, system, user)
	if err != nil {
		o.logger.Error("Optimization request failed", "error", err, "elapsed", time.Since(start))
		return Result{
			OptimizedPrompt: fmt.Sprintf(connectErrorFmt, err),
			FinalResponse:   Placeholder,
			PromptTokens:    promptTokens,
			Err:             err,
		}
	}

	optimized, final, ok := SplitResponse(resp.AsText())
	if !ok {
		o.logger.Warn("Model reply had no blank-line separator", "model", o.llm.Model())
		optimized = ParseErrorNotice
	}
	o.logger.Info("Optimization complete", "model", o.llm.Model(), "parsed", ok, "elapsed", time.Since(start))

	return Result{
		OptimizedPrompt: optimized,
		FinalResponse:   final,
		PromptTokens:    promptTokens,
		Parsed:          ok,
	}
}

// SplitResponse cuts the trimmed reply at its first blank line. Without one,
// ok is false and final holds the whole reply.
func SplitResponse(raw string) (optimized, final string, ok bool) {
	raw = strings.TrimSpace(raw)
	before, after, found := strings.Cut(raw, separator)
	if !found {
		return "", raw, false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}
