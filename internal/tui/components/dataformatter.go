package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// DataReceivedMsg carries one chunk read from or written to the port.
type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	// Status replaces the data display with a local notice, e.g. a failed
	// send.
	Status string
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:        showHex,
			ShowASCII:      showASCII,
			ShowTimestamps: true,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

// SetDecorations controls the timestamp and RX prefix of each line.
func (df *DataFormatter) SetDecorations(showTimestamps, showIndicators bool) {
	df.mode.ShowTimestamps = showTimestamps
	df.mode.ShowIndicators = showIndicators
}

var (
	rxStyle        = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true)
	txStyle        = lipgloss.NewStyle().Foreground(colors.Peach).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(colors.Red)
	timestampStyle = lipgloss.NewStyle().Foreground(colors.Subtext0)
)

// printableASCII replaces bytes outside 0x20..0x7e with dots so that device
// output cannot inject terminal control sequences.
func printableASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	var parts []string

	if msg.Status != "" {
		parts = append(parts, statusStyle.Render(msg.Status))
	} else {
		if df.mode.ShowHex {
			parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
		}
		if df.mode.ShowASCII {
			parts = append(parts, "ASCII: "+printableASCII(msg.Data))
		}
		// If both are disabled, show raw bytes count
		if !df.mode.ShowHex && !df.mode.ShowASCII {
			parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
		}
	}

	body := strings.Join(parts, "  ")

	var prefix []string
	if df.mode.ShowTimestamps {
		prefix = append(prefix, timestampStyle.Render("["+msg.Timestamp.Format("15:04:05.000")+"]"))
	}
	switch {
	case msg.IsTX:
		prefix = append(prefix, txStyle.Render("↗ TX"))
	case df.mode.ShowIndicators:
		prefix = append(prefix, rxStyle.Render("↙ RX"))
	}
	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + ": " + body
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

func (df *DataFormatter) ToggleIndicators() {
	df.mode.ShowIndicators = !df.mode.ShowIndicators
}
