package components

import (
	"strings"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxInputHistory = 100

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

const (
	asciiPlaceholder = "Type message and press Enter to send..."
	hexPlaceholder   = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
)

// Input is the single-line send field of the connect view, with a
// shell-like history.
type Input struct {
	textInput    textinput.Model
	sendingMode  SendingMode
	history      []string
	historyIndex int
	pending      string // input being edited before history navigation began
	width        int
}

func NewInput(mode SendingMode) *Input {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Prompt = ""

	i := &Input{
		textInput:    ti,
		sendingMode:  mode,
		historyIndex: -1,
	}
	i.setPlaceholder()
	return i
}

func (i *Input) setPlaceholder() {
	i.textInput.Placeholder = asciiPlaceholder
	if i.sendingMode == SendingModeHex {
		i.textInput.Placeholder = hexPlaceholder
	}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border(2) + padding(2) + prompt(1) + space(1)
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Focused() bool {
	return i.textInput.Focused()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) ToggleSendingMode() {
	if i.sendingMode == SendingModeASCII {
		i.sendingMode = SendingModeHex
	} else {
		i.sendingMode = SendingModeASCII
	}
	i.setPlaceholder()
}

func (i *Input) GetSendingMode() SendingMode {
	return i.sendingMode
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

var inputBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colors.Surface2).
	Padding(0, 1)

func (i *Input) View() string {
	symbol, color := ">", colors.Green
	if i.sendingMode == SendingModeHex {
		symbol, color = "#", colors.Yellow
	}
	prompt := lipgloss.NewStyle().Foreground(color).Bold(true).Render(symbol)

	content := i.textInput.View()
	if !i.Focused() {
		content = lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Render("Press 'i' to type")
	}

	// Unsized boxes keep their natural width until the first resize.
	style := inputBoxStyle
	if i.width > 0 {
		style = style.Width(max(i.width-4, 10))
	}
	if i.Focused() {
		style = style.BorderForeground(colors.Green)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", content))
}

// AddToHistory records a sent line, skipping blanks and repeats of the last
// entry.
func (i *Input) AddToHistory(line string) {
	i.historyIndex = -1
	i.pending = ""

	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(i.history); n > 0 && i.history[n-1] == line {
		return
	}

	i.history = append(i.history, line)
	if len(i.history) > maxInputHistory {
		i.history = i.history[1:]
	}
}

// HistoryUp recalls the previous line.
func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	switch {
	case i.historyIndex == -1:
		i.pending = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	case i.historyIndex > 0:
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

// HistoryDown moves forward in history, restoring the edited line past the
// newest entry.
func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.pending)
	i.pending = ""
}
