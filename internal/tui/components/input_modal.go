package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/yama/internal/tui/styles"
)

const modalWidth = 48

// InputModal is a single-line text prompt, used to ask for a series path
type InputModal struct {
	visible bool
	title   string
	message string
	input   textinput.Model
}

// NewInputModal creates a hidden modal
func NewInputModal(placeholder string) InputModal {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	ti.Width = modalWidth - 2
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return InputModal{
		input: ti,
	}
}

// Show displays the modal with a title, a message below it, and an initial value
func (m *InputModal) Show(title, message, value string) {
	m.visible = true
	m.title = title
	m.message = message
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// Hide dismisses the modal
func (m *InputModal) Hide() {
	m.visible = false
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m InputModal) IsVisible() bool {
	return m.visible
}

// Value returns the current input value
func (m InputModal) Value() string {
	return m.input.Value()
}

// Update handles input events, returns (modal, cmd, submitted)
func (m InputModal) Update(msg tea.Msg) (InputModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, false
}

// View renders the input modal
func (m InputModal) View() string {
	if !m.visible {
		return ""
	}

	line := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	parts := []string{line.Bold(true).Foreground(styles.White).Render(m.title)}
	if m.message != "" {
		parts = append(parts, line.Foreground(styles.Red).Render(m.message))
	}
	parts = append(parts, line.Render(""), line.Render(m.input.View()))

	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
