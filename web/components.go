package web

import "github.com/teilomillet/ipometa/session"

//go:generate templ generate

const (
	emptyOutput   = "---"
	waitingStatus = "Waiting for feedback..."
)

// View is everything the page can show.
type View struct {
	Title     string
	Input     string
	Optimized string
	Final     string
	Status    string
	Session   *session.Session
}

func (v View) finalText() string {
	if v.Final == "" {
		return emptyOutput
	}
	return v.Final
}

func (v View) statusText() string {
	if v.Status == "" {
		return waitingStatus
	}
	return v.Status
}
