package styles

import (
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// ContentBorderStyle separates the data view from the bars around it.
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	HelpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)
)

// Status is the connection state shown in the status bar.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

var statusGlyphs = map[Status]struct {
	glyph string
	color lipgloss.TerminalColor
}{
	StatusDisconnected: {"○", colors.Red},
	StatusConnecting:   {"◌", colors.Yellow},
	StatusConnected:    {"●", colors.Green},
	StatusError:        {"✗", colors.Red},
}

// Render draws the status glyph in its color.
func (s Status) Render() string {
	g, ok := statusGlyphs[s]
	if !ok {
		g = statusGlyphs[StatusDisconnected]
	}
	return lipgloss.NewStyle().Foreground(g.color).Bold(true).Render(g.glyph)
}
