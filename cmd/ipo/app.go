package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teilomillet/ipometa/config"
	"github.com/teilomillet/ipometa/feedback"
	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/llm"
	"github.com/teilomillet/ipometa/optimizer"
	"github.com/teilomillet/ipometa/providers"
	"github.com/teilomillet/ipometa/session"
	"github.com/teilomillet/ipometa/store"
	"github.com/teilomillet/ipometa/web"
)

const usage = `Usage: ipo [command] [flags] [question...]

Commands:
  ask       optimize and answer a question (default; interactive without a question)
  serve     serve the HTML form
  feedback  summarize the feedback log
  schema    print the JSON Schema of the stored documents (master|feedback)
`

type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	registry *providers.ProviderRegistry
}

// run dispatches a command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	cmd := "ask"
	if len(args) > 0 {
		switch args[0] {
		case "ask", "serve", "feedback", "schema":
			cmd, args = args[0], args[1:]
		case "help", "-h", "-help", "--help":
			fmt.Fprint(a.stdout, usage)
			return 0
		}
	}

	var err error
	switch cmd {
	case "serve":
		err = a.serve(ctx, args)
	case "feedback":
		err = a.feedbackSummary(args)
	case "schema":
		err = a.schema(args)
	default:
		err = a.ask(ctx, args)
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commonFlags registers the model overrides shared by ask and serve.
func (a *app) commonFlags(fs *flag.FlagSet) func() {
	model := fs.String("model", "", "model identifier (default from IPO_MODEL)")
	provider := fs.String("provider", "", "provider: "+strings.Join(a.providerRegistry().Names(), ", "))
	fallbacks := fs.String("fallback-models", "", "comma-separated OpenRouter fallback models")
	autoRoute := fs.Bool("auto-route", false, "let OpenRouter pick the model")
	temperature := fs.Float64("temperature", -1, "sampling temperature")
	maxTokens := fs.Int("max-tokens", 0, "maximum output tokens")
	timeout := fs.Duration("timeout", 0, "HTTP timeout (0 = none)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error, off)")

	return func() {
		var opts []config.ConfigOption
		if *model != "" {
			opts = append(opts, config.SetModel(*model))
		}
		if *provider != "" {
			opts = append(opts, config.SetProvider(*provider))
		}
		if *fallbacks != "" {
			opts = append(opts, config.SetFallbackModels(strings.Split(*fallbacks, ",")...))
		}
		if *autoRoute {
			opts = append(opts, config.SetAutoRoute(true))
		}
		if *temperature >= 0 {
			opts = append(opts, config.SetTemperature(*temperature))
		}
		if *maxTokens > 0 {
			opts = append(opts, config.SetMaxTokens(*maxTokens))
		}
		if *timeout > 0 {
			opts = append(opts, config.SetTimeout(*timeout))
		}
		if *logLevel != "" {
			if level, err := logging.ParseLevel(*logLevel); err == nil {
				opts = append(opts, config.SetLogLevel(level))
			} else {
				fmt.Fprintf(a.stderr, "Ignoring %v\n", err)
			}
		}
		config.ApplyOptions(a.cfg, opts...)
	}
}

func (a *app) providerRegistry() *providers.ProviderRegistry {
	if a.registry == nil {
		a.registry = providers.NewProviderRegistry()
	}
	return a.registry
}

// workflow builds the optimizer stack from the final configuration.
func (a *app) workflow() (*session.Workflow, error) {
	if err := llm.ValidateConfig(a.cfg); err != nil {
		return nil, err
	}
	logger := a.cfg.GetLogger()
	logger.SetLevel(a.cfg.LogLevel)

	client, err := llm.NewClient(a.cfg, a.providerRegistry())
	if err != nil {
		return nil, err
	}
	opt := optimizer.New(client, store.NewFromConfig(a.cfg),
		optimizer.WithLogger(logger),
		optimizer.WithTokenCounter(llm.NewTokenCounter(a.cfg.Model, logger)),
	)
	return session.NewWorkflow(opt, feedback.NewFromConfig(a.cfg), logger), nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	apply := a.commonFlags(fs)
	rating := fs.String("rating", "", "log this rating without prompting (up|down)")
	interactive := fs.Bool("rate", false, "ask for a rating after the answer")
	verbose := fs.Bool("verbose", false, "show token estimate and session id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	apply()

	wf, err := a.workflow()
	if err != nil {
		return err
	}
	in := bufio.NewScanner(a.stdin)

	question := strings.Join(fs.Args(), " ")
	if question == "" {
		return a.repl(ctx, wf, in, *verbose)
	}

	sess := session.New()
	res := wf.Submit(ctx, sess, question)
	a.printResult(res, sess, *verbose)

	switch {
	case *rating != "":
		fmt.Fprintln(a.stdout, wf.Feedback(sess, *rating))
	case *interactive:
		a.promptRating(wf, sess, in)
	}
	return nil
}

func (a *app) repl(ctx context.Context, wf *session.Workflow, in *bufio.Scanner, verbose bool) error {
	fmt.Fprintln(a.stdout, "Ask a question (empty line to skip, \"exit\" to quit).")
	for {
		fmt.Fprint(a.stdout, "> ")
		if !in.Scan() {
			fmt.Fprintln(a.stdout)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sess := session.New()
		res := wf.Submit(ctx, sess, line)
		a.printResult(res, sess, verbose)
		if sess.OriginalPrompt != "" {
			a.promptRating(wf, sess, in)
		}
	}
}

func (a *app) promptRating(wf *session.Workflow, sess *session.Session, in *bufio.Scanner) {
	fmt.Fprint(a.stdout, "Did the optimized prompt give a good response? [y/n, enter to skip]: ")
	if !in.Scan() {
		fmt.Fprintln(a.stdout)
		return
	}
	answer := strings.TrimSpace(in.Text())
	if answer == "" {
		fmt.Fprintln(a.stdout, "Feedback skipped.")
		return
	}
	fmt.Fprintln(a.stdout, wf.Feedback(sess, answer))
}

func (a *app) printResult(res optimizer.Result, sess *session.Session, verbose bool) {
	fmt.Fprintf(a.stdout, "\n[Optimized Prompt]:\n%s\n\n[Final Response]:\n%s\n\n", res.OptimizedPrompt, res.FinalResponse)
	if verbose {
		fmt.Fprintf(a.stdout, "[session %s, ~%d prompt tokens]\n", sess.ID, res.PromptTokens)
	}
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	apply := a.commonFlags(fs)
	addr := fs.String("addr", a.cfg.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	apply()

	wf, err := a.workflow()
	if err != nil {
		return err
	}
	logger := a.cfg.GetLogger()
	srv := &http.Server{
		Addr:              *addr,
		Handler:           web.NewServer(wf, a.cfg.AppTitle, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(a.stdout, "Serving %s on %s\n", a.cfg.AppTitle, *addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down", "addr", *addr)
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *app) feedbackSummary(args []string) error {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sum, err := feedback.NewFromConfig(a.cfg).Summarize()
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	fmt.Fprintf(a.stdout, "%d ratings: %d 👍, %d 👎 (%.0f%% positive)\n",
		sum.Total, sum.Positive, sum.Negative, sum.PositiveRate*100)
	return nil
}

func (a *app) schema(args []string) error {
	docs := map[string]any{
		"master":   &store.MasterPromptConfig{},
		"feedback": &[]feedback.Record{},
	}
	names := args
	if len(names) == 0 {
		names = []string{"master", "feedback"}
	}
	for _, name := range names {
		doc, ok := docs[name]
		if !ok {
			return fmt.Errorf("unknown document %q (want master or feedback)", name)
		}
		data, err := llm.DocumentSchema(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s\n", data)
	}
	return nil
}
