package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/ipometa/feedback"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/optimizer"
)

type stubRunner struct {
	result optimizer.Result
	inputs []string
}

func (s *stubRunner) Run(_ context.Context, input string) optimizer.Result {
	s.inputs = append(s.inputs, input)
	return s.result
}

func newWorkflow(t *testing.T) (*Workflow, *stubRunner, *feedback.Sink) {
	t.Helper()
	runner := &stubRunner{result: optimizer.Result{OptimizedPrompt: "opt", FinalResponse: "final", Parsed: true}}
	sink := feedback.New(filepath.Join(t.TempDir(), "feedback_log.json"), logging.NewMockLogger())
	return NewWorkflow(runner, sink, logging.NewMockLogger()), runner, sink
}

func TestSubmitThenFeedback(t *testing.T) {
	w, runner, sink := newWorkflow(t)
	sess := New()
	_, err := uuid.Parse(sess.ID)
	require.NoError(t, err)

	res := w.Submit(context.Background(), sess, "vague question")
	assert.Equal(t, "opt", res.OptimizedPrompt)
	assert.Equal(t, []string{"vague question"}, runner.inputs)
	assert.Equal(t, "vague question", sess.OriginalPrompt)
	assert.Equal(t, "opt", sess.OptimizedPrompt)
	assert.Equal(t, "final", sess.FinalResponse)

	status := w.Feedback(sess, RatingLabelUp)
	assert.Equal(t, feedback.StatusLogged, status)
	assert.False(t, sess.Ready())
	assert.Empty(t, sess.OptimizedPrompt)

	records, err := sink.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "vague question", records[0].OriginalPrompt)
	assert.Equal(t, "opt", records[0].OptimizedPrompt)
	assert.Equal(t, "final", records[0].FinalResponse)
	assert.Equal(t, 1, records[0].Rating)
	assert.Equal(t, sess.ID, records[0].SessionID)
}

func TestFeedbackWithoutQuery(t *testing.T) {
	w, _, sink := newWorkflow(t)

	assert.Equal(t, NoQueryMessage, w.Feedback(&Session{}, RatingLabelUp))
	assert.Equal(t, NoQueryMessage, w.Feedback(nil, RatingLabelDown))

	records, err := sink.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFeedbackTwiceNeedsNewQuery(t *testing.T) {
	w, _, _ := newWorkflow(t)
	sess := New()
	w.Submit(context.Background(), sess, "q")

	assert.Equal(t, feedback.StatusLogged, w.Feedback(sess, "down"))
	assert.Equal(t, NoQueryMessage, w.Feedback(sess, "down"))
}

func TestBlankSubmitLeavesNothingToRate(t *testing.T) {
	w, runner, sink := newWorkflow(t)
	runner.result = optimizer.Result{OptimizedPrompt: optimizer.EmptyInputMessage, FinalResponse: optimizer.Placeholder}

	sess := New()
	w.Submit(context.Background(), sess, "  \t")
	assert.False(t, sess.Ready())
	assert.Empty(t, sess.OptimizedPrompt)
	assert.Equal(t, NoQueryMessage, w.Feedback(sess, RatingLabelUp))

	records, err := sink.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBlankSubmitClearsEarlierQuery(t *testing.T) {
	w, _, _ := newWorkflow(t)
	sess := New()
	w.Submit(context.Background(), sess, "first question")
	require.True(t, sess.Ready())

	w.Submit(context.Background(), sess, "   ")
	assert.False(t, sess.Ready())
}

func TestSubmitAssignsMissingID(t *testing.T) {
	w, _, sink := newWorkflow(t)
	sess := &Session{}
	w.Submit(context.Background(), sess, "q")
	assert.NotEmpty(t, sess.ID)

	sess.ID = "forged"
	w.Feedback(sess, "up")
	records, _ := sink.Records()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].SessionID)
}

func TestParseRating(t *testing.T) {
	up := []string{RatingLabelUp, "👍", "up", "UP", " y ", "yes", "1", "good", "+"}
	down := []string{RatingLabelDown, "👎", "down", "n", "0", "", "meh"}
	for _, l := range up {
		assert.Equal(t, 1, ParseRating(l), l)
	}
	for _, l := range down {
		assert.Equal(t, 0, ParseRating(l), l)
	}
}
