// Package session carries one interaction from the optimize action to the
// feedback action. The front end owns the Session and passes it to both
// Workflow calls.
package session

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/teilomillet/ipometa/feedback"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/optimizer"
)

const (
	RatingLabelUp   = "👍 Excellent"
	RatingLabelDown = "👎 Needs Work"

	NoQueryMessage = "Error: Please run a query first before providing feedback."
)

// Session is the request-scoped state between Submit and Feedback.
type Session struct {
	ID              string
	OriginalPrompt  string
	OptimizedPrompt string
	FinalResponse   string
}

// New starts a session with a fresh ID.
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Ready reports whether a query has been run and not yet rated.
func (s *Session) Ready() bool {
	return s != nil && s.OriginalPrompt != ""
}

func (s *Session) clear() {
	s.OriginalPrompt = ""
	s.OptimizedPrompt = ""
	s.FinalResponse = ""
}

// Runner is the optimizer capability Submit needs.
type Runner interface {
	Run(ctx context.Context, input string) optimizer.Result
}

// Recorder is the feedback capability Feedback needs.
type Recorder interface {
	AppendRecord(rec feedback.Record) string
}

// Workflow implements the two user actions.
type Workflow struct {
	runner   Runner
	recorder Recorder
	logger   logging.Logger
}

func NewWorkflow(runner Runner, recorder Recorder, logger logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Workflow{runner: runner, recorder: recorder, logger: logger}
}

// Submit runs the optimizer and stores the texts on sess.
func (w *Workflow) Submit(ctx context.Context, sess *Session, input string) optimizer.Result {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	res := w.runner.Run(ctx, input)
	if strings.TrimSpace(input) == "" {
		// Nothing was sent, so there is nothing to rate.
		sess.clear()
		return res
	}

	sess.OriginalPrompt = input
	sess.OptimizedPrompt = res.OptimizedPrompt
	sess.FinalResponse = res.FinalResponse
	w.logger.Debug("Session updated", "session", sess.ID, "parsed", res.Parsed)
	return res
}

// Feedback logs the rating for the last Submit and clears the session texts.
func (w *Workflow) Feedback(sess *Session, label string) string {
	if !sess.Ready() {
		return NoQueryMessage
	}
	rating := ParseRating(label)
	status := w.recorder.AppendRecord(feedback.Record{
		SessionID:       validSessionID(sess.ID),
		OriginalPrompt:  sess.OriginalPrompt,
		OptimizedPrompt: sess.OptimizedPrompt,
		FinalResponse:   sess.FinalResponse,
		Rating:          rating,
	})
	sess.clear()
	return status
}

// ParseRating maps a thumbs label or a short answer to 1 (up) or 0 (down).
func ParseRating(label string) int {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case strings.ToLower(RatingLabelUp), "👍", "up", "1", "good", "y", "yes", "+":
		return feedback.RatingUp
	default:
		return feedback.RatingDown
	}
}

// validSessionID drops IDs that did not come from us, e.g. a tampered form field.
func validSessionID(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}
