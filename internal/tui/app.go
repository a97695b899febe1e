package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/yama/internal/cache"
	"github.com/mmcdole/yama/internal/service"
	"github.com/mmcdole/yama/internal/tui/components"
	"github.com/mmcdole/yama/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateLoading ApplicationState = iota
	StateBrowsing
	StateFiltering
	StateHelp
	StateRecovery
)

// Pane is the column that has focus
type Pane int

const (
	PaneTitles Pane = iota
	PaneEpisodes
)

const tickInterval = 100 * time.Millisecond

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState
	Focus Pane

	backend Backend

	// Snapshot received from the backend; only this model writes to it
	Cache cache.Cache

	// Indexes of the titles shown, after filtering
	visible       []int
	titleCursor   int
	episodeCursor int

	pendingEpisodes map[int]bool

	FilterInput textinput.Model
	PathModal   components.InputModal

	Width  int
	Height int

	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
	quitting     bool
}

// NewModel creates a new application model
func NewModel(backend Backend) Model {
	fi := textinput.New()
	fi.Prompt = "/"
	fi.PromptStyle = styles.FilterPromptStyle
	fi.Placeholder = "filter titles"
	fi.PlaceholderStyle = styles.DimStyle

	return Model{
		State:           StateLoading,
		backend:         backend,
		pendingEpisodes: make(map[int]bool),
		FilterInput:     fi,
		PathModal:       components.NewInputModal("/path/to/series"),
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenCmd(m.backend.Events()),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case BackendEventMsg:
		if _, ok := msg.Event.(service.Exit); ok {
			return m, tea.Quit
		}
		m = m.applyEvent(msg.Event)
		return m, ListenCmd(m.backend.Events())

	case BackendClosedMsg:
		return m, tea.Quit

	case ErrMsg:
		m.setError(msg)
		if m.quitting {
			// The backend is gone; nothing will answer the shutdown
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

// applyEvent folds a backend event into the snapshot
func (m Model) applyEvent(ev service.Event) Model {
	switch ev := ev.(type) {
	case service.Ready:
		m.Cache = ev.Cache
		m.State = StateBrowsing
		m.Focus = PaneTitles
		m.titleCursor, m.episodeCursor = 0, 0
		m.pendingEpisodes = make(map[int]bool)
		m.FilterInput.SetValue("")
		m.refilter()
		m.PathModal.Hide()

		if n := len(ev.Report.Failed); n > 0 {
			m.setError(fmt.Errorf("%d of %d titles have no metadata", n, m.Cache.Len()))
		} else {
			m.setStatus(fmt.Sprintf("%d titles", m.Cache.Len()))
		}

	case service.Recovery:
		m.State = StateRecovery
		m.PathModal.Show("Series path", ev.Err.Error(), "")

	case service.EpisodesLoaded:
		delete(m.pendingEpisodes, ev.Title)
		m.Cache.SetTitle(ev.Title, ev.Cache)
		if t, ok := m.selectedTitle(); ok && t == ev.Title {
			m.episodeCursor = clamp(m.episodeCursor, ev.Cache.Len())
		}

	case service.EpisodesUpdated:
		for _, ec := range ev.Episodes {
			m.Cache.SetEpisode(ev.Title, ec)
		}

	case service.TitleUpdated:
		m.Cache.SetTitleMeta(ev.Title, ev.Meta)
		m.setStatus("Metadata updated")

	case service.Error:
		// Errors are not tied to a title, so a failed load clears them all
		clear(m.pendingEpisodes)
		m.setError(ev.Err)
	}
	return m
}

// refilter recomputes the visible titles and keeps the cursor in range
func (m *Model) refilter() {
	m.visible = m.Cache.Filter(m.FilterInput.Value())
	m.titleCursor = clamp(m.titleCursor, len(m.visible))
}

// selectedTitle returns the library index of the highlighted title
func (m Model) selectedTitle() (int, bool) {
	if m.titleCursor < 0 || m.titleCursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[m.titleCursor], true
}

func (m Model) selectedEpisode() (cache.EpisodeCache, bool) {
	t, ok := m.selectedTitle()
	if !ok {
		return cache.EpisodeCache{}, false
	}
	return m.Cache.Episode(t, m.episodeCursor)
}

func (m *Model) setStatus(s string) {
	m.StatusMsg = s
	m.StatusIsErr = false
}

func (m *Model) setError(err error) {
	m.StatusMsg = err.Error()
	m.StatusIsErr = true
}

// clamp keeps a cursor within [0, n)
func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	return max(cursor, 0)
}
