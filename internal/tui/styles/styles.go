package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Sakura     = lipgloss.Color("#F472B6")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Sakura)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Sakura)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Raw watch status characters (unstyled)
const (
	UnplayedChar   = "●"
	InProgressChar = "◐"
	PlayedChar     = "✓"
)

// Pre-rendered watch status indicators
var (
	UnplayedDot   = lipgloss.NewStyle().Foreground(Sakura).Render(UnplayedChar)
	InProgressDot = lipgloss.NewStyle().Foreground(Sakura).Render(InProgressChar)
	PlayedCheck   = lipgloss.NewStyle().Foreground(Green).Render(PlayedChar)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Sakura).
			Padding(1, 2).
			Background(SlateDark)
)

var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Sakura)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Sakura).
				Bold(true)
)

// SpinnerFrames are the frames of the loading spinner
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// RenderWatchStatus renders the watch status indicator
func RenderWatchStatus(watched, started bool) string {
	if watched {
		return PlayedCheck
	}
	if started {
		return InProgressDot
	}
	return UnplayedDot
}

// RowPart represents a part of a row with optional foreground color
type RowPart struct {
	Text       string
	Foreground *lipgloss.Color
}

// RenderListRow renders a complete list row with uniform background when selected.
// Each part is styled separately to avoid ANSI reset codes clearing the background.
func RenderListRow(parts []RowPart, selected bool, width int) string {
	var b strings.Builder
	visibleLen := 0

	for _, part := range parts {
		style := lipgloss.NewStyle()
		switch {
		case part.Foreground != nil:
			style = style.Foreground(*part.Foreground)
		case selected:
			style = style.Foreground(White)
		default:
			style = style.Foreground(LightGray)
		}
		if selected {
			style = style.Background(SlateLight)
		}
		b.WriteString(style.Render(part.Text))
		visibleLen += lipgloss.Width(part.Text)
	}

	pad := lipgloss.NewStyle()
	if selected {
		pad = pad.Background(SlateLight)
	}
	// One cell of margin on each side
	if n := width - visibleLen - 2; n > 0 {
		b.WriteString(pad.Render(strings.Repeat(" ", n)))
	}
	margin := pad.Render(" ")

	return margin + b.String() + margin
}
