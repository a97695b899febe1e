package tui

import "github.com/mmcdole/yama/internal/service"

// Message types for the TUI

// BackendEventMsg carries one event from the backend
type BackendEventMsg struct {
	Event service.Event
}

// BackendClosedMsg signals that the event stream has ended
type BackendClosedMsg struct{}

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// TickMsg is a general tick message for animations
type TickMsg struct{}
