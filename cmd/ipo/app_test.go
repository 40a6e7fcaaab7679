package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/feedback"
	"github.com/teilomillet/ipometa/internal/logging"
)

const completion = `{"choices":[{"message":{"role":"assistant","content":"Persona: chef\n\nBoil the pasta."}}]}`

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer, *bytes.Buffer, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, completion)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetAPIKey("key"),
		config.SetEndpoint(server.URL),
		config.SetMasterPromptPath(filepath.Join(dir, "master_prompt.json")),
		config.SetFeedbackLogPath(filepath.Join(dir, "feedback_log.json")),
		config.SetLogger(logging.NewMockLogger()),
	)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := &app{cfg: cfg, stdin: strings.NewReader(stdin), stdout: stdout, stderr: stderr}
	return a, stdout, stderr, cfg.FeedbackLogPath
}

func readLog(t *testing.T, path string) []feedback.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []feedback.Record
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestAskWithRating(t *testing.T) {
	a, stdout, _, logPath := newTestApp(t, "")

	code := a.run(context.Background(), []string{"ask", "-rating", "up", "how", "to", "cook", "pasta"})

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "[Optimized Prompt]:\nPersona: chef")
	assert.Contains(t, stdout.String(), "[Final Response]:\nBoil the pasta.")
	assert.Contains(t, stdout.String(), feedback.StatusLogged)

	records := readLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, "how to cook pasta", records[0].OriginalPrompt)
	assert.Equal(t, feedback.RatingUp, records[0].Rating)
}

func TestDefaultCommandIsAsk(t *testing.T) {
	a, stdout, _, logPath := newTestApp(t, "")

	code := a.run(context.Background(), []string{"pasta?"})

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Boil the pasta.")
	assert.NoFileExists(t, logPath)
}

func TestInteractiveLoop(t *testing.T) {
	a, stdout, _, logPath := newTestApp(t, "pasta?\nn\n\nexit\n")

	code := a.run(context.Background(), nil)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Boil the pasta.")
	assert.Contains(t, stdout.String(), "Please enter a question.")

	records := readLog(t, logPath)
	require.Len(t, records, 1)
	assert.Equal(t, feedback.RatingDown, records[0].Rating)
}

func TestProviderFlagUsesThatProvidersKey(t *testing.T) {
	var auth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, completion)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv("IPO_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("IPO_ENDPOINT", server.URL)
	t.Setenv("IPO_MASTER_PROMPT_PATH", filepath.Join(dir, "master_prompt.json"))
	t.Setenv("IPO_FEEDBACK_LOG_PATH", filepath.Join(dir, "feedback_log.json"))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	config.ApplyOptions(cfg, config.SetLogger(logging.NewMockLogger()))
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := &app{cfg: cfg, stdin: strings.NewReader(""), stdout: stdout, stderr: stderr}

	require.Equal(t, 0, a.run(context.Background(), []string{"ask", "-provider", "openai", "pasta?"}), stderr.String())
	assert.Equal(t, []string{"Bearer sk-openai"}, auth)
}

func TestProviderFlagWithoutItsKey(t *testing.T) {
	t.Setenv("IPO_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	config.ApplyOptions(cfg, config.SetLogger(logging.NewMockLogger()))
	stderr := &bytes.Buffer{}
	a := &app{cfg: cfg, stdin: strings.NewReader(""), stdout: &bytes.Buffer{}, stderr: stderr}

	assert.Equal(t, 1, a.run(context.Background(), []string{"ask", "-provider", "openai", "pasta?"}))
	assert.Contains(t, stderr.String(), "no API key configured")
}

func TestFallbackModelsFlag(t *testing.T) {
	var got struct {
		Models []string `json:"models"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = io.WriteString(w, completion)
	}))
	t.Cleanup(server.Close)

	a, _, stderr, _ := newTestApp(t, "")
	a.cfg.Endpoint = server.URL

	code := a.run(context.Background(), []string{"ask", "-fallback-models", "openai/gpt-4o,anthropic/claude-3.5-sonnet", "pasta?"})
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, []string{"x-ai/grok-4-fast", "openai/gpt-4o", "anthropic/claude-3.5-sonnet"}, got.Models)
}

func TestAskMissingKey(t *testing.T) {
	a, _, stderr, _ := newTestApp(t, "")
	a.cfg.APIKey = ""

	code := a.run(context.Background(), []string{"ask", "pasta?"})

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestFeedbackSummaryCommand(t *testing.T) {
	a, stdout, _, logPath := newTestApp(t, "")
	sink := feedback.New(logPath, logging.NewNopLogger())
	sink.Append("a", "b", "c", feedback.RatingUp)
	sink.Append("a", "b", "c", feedback.RatingDown)

	require.Equal(t, 0, a.run(context.Background(), []string{"feedback", "-json"}))

	var sum feedback.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &sum))
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Positive)
	assert.InDelta(t, 0.5, sum.PositiveRate, 1e-9)
}

func TestSchemaCommand(t *testing.T) {
	a, stdout, _, _ := newTestApp(t, "")

	require.Equal(t, 0, a.run(context.Background(), []string{"schema", "master"}))
	assert.Contains(t, stdout.String(), "system_message")

	assert.Equal(t, 1, a.run(context.Background(), []string{"schema", "bogus"}))
}

func TestHelp(t *testing.T) {
	a, stdout, _, _ := newTestApp(t, "")
	assert.Equal(t, 0, a.run(context.Background(), []string{"help"}))
	assert.Contains(t, stdout.String(), "Commands:")
}
