package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/yama/internal/service"
)

// sendTimeout bounds how long a key press may wait on a full command queue
const sendTimeout = 5 * time.Second

// Backend is the part of service.Backend the UI talks to
type Backend interface {
	Send(ctx context.Context, cmd service.Command) error
	Events() <-chan service.Event
}

// ListenCmd reads the next backend event. Every BackendEventMsg handler
// issues it again, so the stream is pumped one event at a time.
func ListenCmd(events <-chan service.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return BackendClosedMsg{}
		}
		return BackendEventMsg{Event: ev}
	}
}

// SendCmd queues a command for the backend
func SendCmd(b Backend, cmd service.Command) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := b.Send(ctx, cmd); err != nil {
			return ErrMsg{Err: err, Context: fmt.Sprintf("sending %T", cmd)}
		}
		return nil
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}
