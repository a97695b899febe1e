package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/yama/internal/service"
)

// handleKeyMsg routes key presses by application state
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.State {
	case StateRecovery:
		return m.handleRecoveryKey(msg)
	case StateFiltering:
		return m.handleFilterKey(msg)
	case StateHelp:
		// Any key closes help
		m.State = StateBrowsing
		return m, nil
	case StateLoading:
		if key.Matches(msg, Keys.Quit) {
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m.quit()

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		m.Focus = PaneTitles
		cmd := m.FilterInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Escape):
		if m.Focus == PaneEpisodes {
			m.Focus = PaneTitles
		} else if m.FilterInput.Value() != "" {
			m.FilterInput.SetValue("")
			m.refilter()
		}

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-m.listLen())
	case key.Matches(msg, Keys.End):
		m.moveCursor(m.listLen())

	case key.Matches(msg, Keys.Left):
		m.Focus = PaneTitles

	case key.Matches(msg, Keys.Right):
		return m.openTitle()

	case key.Matches(msg, Keys.Play):
		if m.Focus == PaneTitles {
			return m.openTitle()
		}
		return m.watchSelected()

	case key.Matches(msg, Keys.MarkWatched):
		if t, ok := m.selectedTitle(); ok && m.Focus == PaneEpisodes {
			return m, SendCmd(m.backend, service.MarkEpisode{Title: t, Episode: m.episodeCursor})
		}

	case key.Matches(msg, Keys.MarkPrevious):
		if t, ok := m.selectedTitle(); ok && m.Focus == PaneEpisodes {
			return m, SendCmd(m.backend, service.MarkPrevious{Title: t, Episode: m.episodeCursor})
		}

	case key.Matches(msg, Keys.Refresh):
		if t, ok := m.selectedTitle(); ok {
			m.pendingEpisodes[t] = true
			return m, SendCmd(m.backend, service.LoadEpisodes{Title: t, Refresh: true})
		}

	case key.Matches(msg, Keys.RefreshMetadata):
		if t, ok := m.selectedTitle(); ok {
			m.setStatus("Fetching metadata...")
			return m, SendCmd(m.backend, service.RefreshMetadata{Title: t})
		}

	case key.Matches(msg, Keys.ChangePath):
		m.State = StateRecovery
		m.PathModal.Show("Series path", "", "")
	}

	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.FilterInput.SetValue("")
		fallthrough
	case "enter":
		m.FilterInput.Blur()
		m.State = StateBrowsing
		m.refilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.titleCursor = 0
	m.refilter()
	return m, cmd
}

func (m Model) handleRecoveryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	modal, cmd, submitted := m.PathModal.Update(msg)
	m.PathModal = modal

	if submitted {
		root := strings.TrimSpace(m.PathModal.Value())
		if root == "" {
			return m, nil
		}
		m.PathModal.Hide()
		m.State = StateLoading
		m.setStatus("Scanning " + root)
		return m, SendCmd(m.backend, service.Restart{Root: root})
	}

	if !m.PathModal.IsVisible() {
		// Cancelled; without a library there is nothing to go back to
		if m.Cache.Len() == 0 {
			return m.quit()
		}
		m.State = StateBrowsing
	}
	return m, cmd
}

// openTitle focuses the episode list, loading it on first use
func (m Model) openTitle() (tea.Model, tea.Cmd) {
	t, ok := m.selectedTitle()
	if !ok {
		return m, nil
	}
	m.Focus = PaneEpisodes
	m.episodeCursor = 0

	if tc, _ := m.Cache.Title(t); tc.Loaded() || m.pendingEpisodes[t] {
		return m, nil
	}
	m.pendingEpisodes[t] = true
	return m, SendCmd(m.backend, service.LoadEpisodes{Title: t})
}

func (m Model) watchSelected() (tea.Model, tea.Cmd) {
	t, ok := m.selectedTitle()
	if !ok {
		return m, nil
	}
	ep, ok := m.selectedEpisode()
	if !ok {
		return m, nil
	}
	m.setStatus("Playing " + ep.Name)
	return m, SendCmd(m.backend, service.WatchEpisode{Title: t, Episode: m.episodeCursor})
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	return m, SendCmd(m.backend, service.Shutdown{})
}

// listLen is the length of the focused list
func (m Model) listLen() int {
	if m.Focus == PaneTitles {
		return len(m.visible)
	}
	t, ok := m.selectedTitle()
	if !ok {
		return 0
	}
	tc, _ := m.Cache.Title(t)
	return tc.Len()
}

func (m *Model) moveCursor(delta int) {
	n := m.listLen()
	if m.Focus == PaneTitles {
		prev := m.titleCursor
		m.titleCursor = clamp(m.titleCursor+delta, n)
		if m.titleCursor != prev {
			m.episodeCursor = 0
		}
		return
	}
	m.episodeCursor = clamp(m.episodeCursor+delta, n)
}
