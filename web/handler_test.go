package web

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/ipometa/feedback"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/optimizer"
	"github.com/teilomillet/ipometa/session"
)

type stubRunner struct{ result optimizer.Result }

func (s stubRunner) Run(_ context.Context, input string) optimizer.Result {
	if strings.TrimSpace(input) == "" {
		return optimizer.Result{OptimizedPrompt: optimizer.EmptyInputMessage, FinalResponse: optimizer.Placeholder}
	}
	return s.result
}

func newTestServer(t *testing.T) (*httptest.Server, *feedback.Sink) {
	t.Helper()
	sink := feedback.New(filepath.Join(t.TempDir(), "feedback_log.json"), logging.NewMockLogger())
	runner := stubRunner{result: optimizer.Result{OptimizedPrompt: "Persona: <expert>", FinalResponse: "Answer & more"}}
	wf := session.NewWorkflow(runner, sink, logging.NewMockLogger())
	srv := httptest.NewServer(NewServer(wf, "IPO-Meta", logging.NewMockLogger()).Routes())
	t.Cleanup(srv.Close)
	return srv, sink
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	html := body(t, resp)
	assert.Contains(t, html, "<title>IPO-Meta</title>")
	assert.Contains(t, html, `name="input"`)
	assert.Contains(t, html, "Waiting for feedback...")
	assert.NotContains(t, html, `name="session_id"`)
}

func TestOptimizeEscapesAndCarriesSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.PostForm(srv.URL+"/optimize", url.Values{"input": {"what is <b>?"}})
	require.NoError(t, err)
	html := body(t, resp)

	assert.Contains(t, html, "Persona: &lt;expert&gt;")
	assert.Contains(t, html, "Answer &amp; more")
	assert.Contains(t, html, "what is &lt;b&gt;?")
	assert.NotContains(t, html, "<expert>")
	assert.Contains(t, html, `name="session_id" value="`)
	assert.Contains(t, html, `name="original_prompt" value="what is &lt;b&gt;?"`)
}

func TestFeedbackRoundTrip(t *testing.T) {
	srv, sink := newTestServer(t)

	form := url.Values{
		"session_id":       {"4f9c2a7e-1d2b-4c3a-9e8f-0a1b2c3d4e5f"},
		"original_prompt":  {"vague"},
		"optimized_prompt": {"opt"},
		"final_response":   {"final"},
		"rating":           {session.RatingLabelUp},
	}
	resp, err := http.PostForm(srv.URL+"/feedback", form)
	require.NoError(t, err)
	html := body(t, resp)
	assert.Contains(t, html, feedback.StatusLogged)
	assert.Contains(t, html, `name="original_prompt" value=""`)

	records, err := sink.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "vague", records[0].OriginalPrompt)
	assert.Equal(t, 1, records[0].Rating)
	assert.Equal(t, "4f9c2a7e-1d2b-4c3a-9e8f-0a1b2c3d4e5f", records[0].SessionID)
}

func TestFeedbackWithoutQuery(t *testing.T) {
	srv, sink := newTestServer(t)

	resp, err := http.PostForm(srv.URL+"/feedback", url.Values{"rating": {session.RatingLabelDown}})
	require.NoError(t, err)
	assert.Contains(t, body(t, resp), "Error: Please run a query first before providing feedback.")

	records, _ := sink.Records()
	assert.Empty(t, records)
}

func TestBlankOptimizeCannotBeRated(t *testing.T) {
	srv, sink := newTestServer(t)

	resp, err := http.PostForm(srv.URL+"/optimize", url.Values{"input": {"   "}})
	require.NoError(t, err)
	html := body(t, resp)
	assert.Contains(t, html, optimizer.EmptyInputMessage)
	assert.Contains(t, html, `name="original_prompt" value=""`)

	resp, err = http.PostForm(srv.URL+"/feedback", url.Values{"original_prompt": {""}, "rating": {session.RatingLabelUp}})
	require.NoError(t, err)
	assert.Contains(t, body(t, resp), session.NoQueryMessage)

	records, err := sink.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/optimize")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPageRendersPlaceholders(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Page(View{Title: "T"}).Render(context.Background(), &sb))
	html := sb.String()
	assert.Contains(t, html, `<pre id="final_response_area">---</pre>`)
	assert.Contains(t, html, session.RatingLabelUp)
	assert.Contains(t, html, session.RatingLabelDown)
}

func TestPageRendersSessionFields(t *testing.T) {
	var buf bytes.Buffer
	sess := &session.Session{ID: "id-1", OriginalPrompt: `say "hi"`, OptimizedPrompt: "o", FinalResponse: "f"}

	require.NoError(t, Page(View{Title: "T", Session: sess, Status: "done"}).Render(context.Background(), &buf))

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, `<input type="hidden" name="session_id" value="id-1">`)
	assert.Contains(t, html, `name="original_prompt" value="say &#34;hi&#34;"`)
	assert.Contains(t, html, `<output id="feedback_status">done</output>`)
	assert.Contains(t, html, `<textarea id="optimized_prompt" rows="4" readonly></textarea>`)
}
