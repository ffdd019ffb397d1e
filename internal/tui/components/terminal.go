package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal is the scrolling data view. It follows the newest line until the
// user scrolls up, and resumes following once scrolled back to the bottom.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	lines     []string
	follow    bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = max(height, 1)
	t.render()
}

// SetFormatOptions hides timestamps and/or RX indicators.
func (t *Terminal) SetFormatOptions(hideTimestamps, hideIndicators bool) {
	t.formatter.SetDecorations(!hideTimestamps, !hideIndicators)
}

func (t *Terminal) AddMessage(msg DataReceivedMsg) {
	t.lines = append(t.lines, t.formatter.FormatMessage(msg))
	t.render()
}

// RefreshDisplayWithRawData re-formats the whole history, used after a
// display toggle.
func (t *Terminal) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	t.lines = t.formatter.FormatMessages(rawData)
	t.render()
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Clear() {
	t.lines = nil
	t.follow = true
	t.viewport.SetContent("")
}

// Following reports whether new lines scroll the view.
func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) ToggleHex()        { t.formatter.ToggleHex() }
func (t *Terminal) ToggleASCII()      { t.formatter.ToggleASCII() }
func (t *Terminal) ToggleTimestamps() { t.formatter.ToggleTimestamps() }
func (t *Terminal) ToggleIndicators() { t.formatter.ToggleIndicators() }

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

// Update only forwards resize and mouse events so the viewport does not
// swallow key bindings.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
	default:
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	if _, ok := msg.(tea.MouseMsg); ok {
		t.follow = t.viewport.AtBottom()
	}
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
