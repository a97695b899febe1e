package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/yama/internal/cache"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/tui/styles"
)

// Layout proportions
const (
	TitleColumnPercent   = 30
	EpisodeColumnPercent = 35

	MinColumnWidth = 15

	// Single footer line
	ChromeHeight = 1
)

// View renders the application
func (m Model) View() string {
	if m.Width == 0 || m.Height == 0 {
		return ""
	}

	switch m.State {
	case StateLoading:
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center,
			RenderSpinner(m.SpinnerFrame)+" "+styles.DimStyle.Render("Loading library..."))
	case StateRecovery:
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.PathModal.View())
	case StateHelp:
		return m.renderHelp()
	}

	bodyHeight := m.Height - ChromeHeight
	titleWidth := max(m.Width*TitleColumnPercent/100, MinColumnWidth)
	episodeWidth := max(m.Width*EpisodeColumnPercent/100, MinColumnWidth)
	detailsWidth := max(m.Width-titleWidth-episodeWidth, MinColumnWidth)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderColumn(m.renderTitles(titleWidth-4, bodyHeight-2), titleWidth, bodyHeight, m.Focus == PaneTitles),
		m.renderColumn(m.renderEpisodes(episodeWidth-4, bodyHeight-2), episodeWidth, bodyHeight, m.Focus == PaneEpisodes),
		m.renderColumn(m.renderDetails(detailsWidth-4), detailsWidth, bodyHeight, false),
	)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) renderColumn(content string, width, height int, active bool) string {
	border := styles.InactiveBorder
	if active {
		border = styles.ActiveBorder
	}
	return border.
		Width(width - 2).
		Height(height - 2).
		MaxHeight(height).
		Padding(0, 1).
		Render(content)
}

func (m Model) renderTitles(width, height int) string {
	var rows []string
	if m.State == StateFiltering || m.FilterInput.Value() != "" {
		rows = append(rows, m.FilterInput.View())
		height--
	}
	if len(m.visible) == 0 {
		return strings.Join(append(rows, styles.DimStyle.Render("No titles")), "\n")
	}

	start := scrollStart(m.titleCursor, len(m.visible), height)
	for i := start; i < len(m.visible) && i < start+height; i++ {
		name, _ := m.Cache.TitleName(m.visible[i])
		rows = append(rows, styles.RenderListRow(
			[]styles.RowPart{{Text: styles.Truncate(name, width-2)}},
			i == m.titleCursor, width))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderEpisodes(width, height int) string {
	t, ok := m.selectedTitle()
	if !ok {
		return ""
	}
	tc, _ := m.Cache.Title(t)
	if !tc.Loaded() {
		if m.pendingEpisodes[t] {
			return RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading episodes...")
		}
		return styles.DimStyle.Render("Press enter to load episodes")
	}
	if tc.Len() == 0 {
		return styles.DimStyle.Render("No episodes")
	}

	var rows []string
	start := scrollStart(m.episodeCursor, tc.Len(), height)
	for i := start; i < tc.Len() && i < start+height; i++ {
		ep, _ := tc.Episode(i)
		rows = append(rows, RenderEpisodeItem(ep, m.Focus == PaneEpisodes && i == m.episodeCursor, width))
	}
	return strings.Join(rows, "\n")
}

// RenderEpisodeItem renders one episode row: status, number, name, and time
func RenderEpisodeItem(ep cache.EpisodeCache, selected bool, width int) string {
	status := styles.RenderWatchStatus(ep.Watched, ep.Started)
	num := fmt.Sprintf("%02d ", ep.Number)
	clock := " " + domain.FormatTime(ep.Seconds)

	nameWidth := width - 2 - lipgloss.Width(status) - 1 - len(num) - len(clock)
	name := styles.Truncate(ep.Name, nameWidth)
	if gap := nameWidth - lipgloss.Width(name); gap > 0 {
		name += strings.Repeat(" ", gap)
	}

	dim := styles.DimGray
	return styles.RenderListRow([]styles.RowPart{
		{Text: status + " "},
		{Text: num, Foreground: &dim},
		{Text: name},
		{Text: clock, Foreground: &dim},
	}, selected, width)
}

// renderDetails shows the selected episode, or the selected title
func (m Model) renderDetails(width int) string {
	var meta cache.MetaCache
	if ep, ok := m.selectedEpisode(); ok && m.Focus == PaneEpisodes {
		meta = ep.Meta
	} else if t, ok := m.selectedTitle(); ok {
		tc, _ := m.Cache.Title(t)
		meta = tc.Meta
	} else {
		return ""
	}
	return RenderMeta(meta, width)
}

// RenderMeta renders a details pane
func RenderMeta(meta cache.MetaCache, width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(wordWrap(meta.Title, width)))
	b.WriteString("\n\n")
	b.WriteString(styles.SubtitleStyle.Render(wrapLines(meta.Description, width)))
	if meta.Thumbnail != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.DimStyle.Render(styles.Truncate(meta.Thumbnail, width)))
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	if m.StatusIsErr {
		left = styles.ErrorStyle.Render(m.StatusMsg)
	} else {
		left = styles.DimStyle.Render(m.StatusMsg)
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		left = styles.Truncate(m.StatusMsg, max(m.Width-lipgloss.Width(right)-1, 0))
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
NAVIGATION                      EPISODES
  j/k        Up/down               Enter  Play/resume
  h/l        Titles/episodes       w      Toggle watched
  g/Home     First item            W      Toggle all before
  G/End      Last item             r      Rescan episodes

TITLES                          OTHER
  /          Filter                R      Refetch metadata
  Esc        Clear filter          S      Change series path
                                   q      Quit
                                   ?      This help

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// scrollStart returns the first visible row that keeps cursor on screen
func scrollStart(cursor, n, height int) int {
	if height <= 0 || n <= height {
		return 0
	}
	start := cursor - height/2
	return min(max(start, 0), n-height)
}

// wrapLines word-wraps each line of text, keeping blank lines
func wrapLines(text string, width int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wordWrap(line, width)
	}
	return strings.Join(lines, "\n")
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}
