// Package web serves the optimizer as a single HTML form.
package web

import (
	"context"
	"io"
	"net/http"

	"github.com/teilomillet/ipometa/internal/logging"
	"github.com/teilomillet/ipometa/session"
)

type component interface {
	Render(ctx context.Context, w io.Writer) error
}

// AppResp is what a controller hands back for rendering.
type AppResp struct {
	Error     error
	Code      int
	Component component
}

// Controller handles one route.
type Controller interface {
	Handle(w http.ResponseWriter, r *http.Request) *AppResp
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(w http.ResponseWriter, r *http.Request) *AppResp

func (f ControllerFunc) Handle(w http.ResponseWriter, r *http.Request) *AppResp { return f(w, r) }

// AppHandler renders a controller's component and logs its error.
type AppHandler struct {
	c      Controller
	logger logging.Logger
}

func (h AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.c.Handle(w, r)
	if resp.Error != nil {
		h.logger.Error("Request failed", "path", r.URL.Path, "error", resp.Error)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if resp.Code != 0 {
		w.WriteHeader(resp.Code)
	}
	if resp.Component == nil {
		return
	}
	if err := resp.Component.Render(r.Context(), w); err != nil {
		h.logger.Error("Render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "templ: failed to render template", http.StatusInternalServerError)
	}
}

// Server wires the workflow to HTTP routes.
type Server struct {
	workflow *session.Workflow
	title    string
	logger   logging.Logger
}

func NewServer(workflow *session.Workflow, title string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{workflow: workflow, title: title, logger: logger}
}

// Routes returns the mux serving the form.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.handler(s.index))
	mux.Handle("POST /optimize", s.handler(s.optimize))
	mux.Handle("POST /feedback", s.handler(s.feedback))
	return mux
}

func (s *Server) handler(f ControllerFunc) http.Handler {
	return AppHandler{c: f, logger: s.logger}
}

func (s *Server) index(_ http.ResponseWriter, _ *http.Request) *AppResp {
	return &AppResp{Code: http.StatusOK, Component: Page(View{Title: s.title})}
}

func (s *Server) optimize(_ http.ResponseWriter, r *http.Request) *AppResp {
	if err := r.ParseForm(); err != nil {
		return &AppResp{Error: err, Code: http.StatusBadRequest, Component: Page(View{Title: s.title, Status: "Error: could not read the form."})}
	}
	input := r.PostFormValue("input")
	sess := session.New()
	res := s.workflow.Submit(r.Context(), sess, input)

	return &AppResp{
		Error: res.Err,
		Code:  http.StatusOK,
		Component: Page(View{
			Title:     s.title,
			Input:     input,
			Optimized: res.OptimizedPrompt,
			Final:     res.FinalResponse,
			Session:   sess,
		}),
	}
}

func (s *Server) feedback(_ http.ResponseWriter, r *http.Request) *AppResp {
	if err := r.ParseForm(); err != nil {
		return &AppResp{Error: err, Code: http.StatusBadRequest, Component: Page(View{Title: s.title, Status: "Error: could not read the form."})}
	}
	sess := &session.Session{
		ID:              r.PostFormValue("session_id"),
		OriginalPrompt:  r.PostFormValue("original_prompt"),
		OptimizedPrompt: r.PostFormValue("optimized_prompt"),
		FinalResponse:   r.PostFormValue("final_response"),
	}
	status := s.workflow.Feedback(sess, r.PostFormValue("rating"))

	return &AppResp{Code: http.StatusOK, Component: Page(View{Title: s.title, Status: status, Session: sess})}
}
