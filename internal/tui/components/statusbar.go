package components

import (
	"fmt"

	serial "github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

type ConnectionInfo struct {
	BaudRate    int
	FlowControl serial.FlowControl
	DataBits    int
	StopBits    int
	Parity      serial.Parity
}

// NewConnectionInfo copies the line settings shown in the status bar.
func NewConnectionInfo(config serial.Config) *ConnectionInfo {
	return &ConnectionInfo{
		BaudRate:    config.BaudRate,
		FlowControl: config.FlowControl,
		DataBits:    config.DataBits,
		StopBits:    config.StopBits,
		Parity:      config.Parity,
	}
}

// String renders the settings as e.g. "115200 baud 8N1 None".
func (c *ConnectionInfo) String() string {
	return fmt.Sprintf("%d baud %d%s%d %s", c.BaudRate, c.DataBits, c.Parity, c.StopBits, c.FlowControl)
}

type StatusBar struct {
	portPath       string
	status         styles.Status
	err            error
	width          int
	rxBytes        int64
	connectionInfo *ConnectionInfo
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		status:   styles.StatusDisconnected,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) SetConnecting() {
	sb.status = styles.StatusConnecting
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.status = styles.StatusConnected
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.status = styles.StatusDisconnected
	sb.err = err
	if err != nil {
		sb.status = styles.StatusError
	}
}

// AddRxBytes adds to the received byte counter.
func (sb *StatusBar) AddRxBytes(n int) {
	sb.rxBytes += int64(n)
}

func (sb *StatusBar) ResetRxBytes() {
	sb.rxBytes = 0
}

// Render draws the single-line status bar: mode, port, connection state on
// the left; line settings, received bytes and time on the right.
func (sb *StatusBar) Render(mode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)

	portStyle := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1)

	details := "⚡ serial"
	if sb.connectionInfo != nil {
		details = "⚡ " + sb.connectionInfo.String()
	}
	if sb.err != nil {
		details = sb.err.Error()
	}
	detailStyle := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1)

	rxStyle := lipgloss.NewStyle().
		Foreground(colors.Sky).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left,
		modeStyle.Render(mode),
		portStyle.Render(sb.portPath),
		sb.status.Render(),
		divider,
	)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left,
		detailStyle.Render(details),
		divider,
		rxStyle.Render(fmt.Sprintf("RX %d", sb.rxBytes)),
		divider,
		timeStyle.Render(timestamp),
	)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
