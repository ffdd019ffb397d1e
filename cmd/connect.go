/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/allbin/go-serialport/host"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with an interactive send/receive terminal.

Received data is polled and displayed as in 'listen'. Press 'i' to type a
message and Enter to send it; Tab switches between ASCII and hex input.
ASCII lines are sent with the --line-ending appended.

Example usage:
  serialctl connect /dev/ttyUSB0
  serialctl connect /dev/ttyUSB0 --baud 9600 --hex
  serialctl connect /dev/ttyUSB0 --line-ending crlf`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		poll, _ := cmd.Flags().GetDuration("poll")
		hexMode, _ := cmd.Flags().GetBool("hex")
		ending, _ := cmd.Flags().GetString("line-ending")
		writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
		logFile, _ := cmd.Flags().GetString("log-file")

		eol, err := parseLineEnding(ending)
		if err != nil {
			exitf("Error: %v\n", err)
		}
		opts, err := portOptions()
		if err != nil {
			exitf("Error: %v\n", err)
		}
		config, err := resolveConfig(opts)
		if err != nil {
			exitf("Error: %v\n", err)
		}
		tuiLogger, err := fileLogger(logFile)
		if err != nil {
			exitf("Error opening log file: %v\n", err)
		}
		defer tuiLogger.Sync()

		sp := host.New(host.WithLogger(tuiLogger), host.WithPortOptions(opts...))
		mode := components.SendingModeASCII
		if hexMode {
			mode = components.SendingModeHex
		}
		m := &connectModel{
			listenModel:  newListenModel(args[0], sp, components.NewConnectionInfo(config), poll),
			input:        components.NewInput(mode),
			keys:         keys.NewConnectKeys(),
			lineEnding:   eol,
			writeTimeout: writeTimeout,
		}
		m.terminal.SetFormatOptions(false, false)

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		_, err = p.Run()
		m.Cleanup()
		if err != nil {
			exitf("Error: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Duration("poll", 16*time.Millisecond, "Polling interval (one frame)")
	connectCmd.Flags().Bool("hex", false, "Start in hex input mode")
	connectCmd.Flags().String("line-ending", "lf", "Appended to ASCII lines: none, lf, cr, crlf")
	connectCmd.Flags().Duration("write-timeout", time.Second, "Maximum time to spend sending one message")
	connectCmd.Flags().String("log-file", "", "Write diagnostics to this file")
}

func parseLineEnding(s string) (string, error) {
	switch s {
	case "none", "":
		return "", nil
	case "lf":
		return "\n", nil
	case "cr":
		return "\r", nil
	case "crlf":
		return "\r\n", nil
	default:
		return "", fmt.Errorf("invalid line ending %q (want none, lf, cr or crlf)", s)
	}
}

// fileLogger returns a development logger writing to path, or a no-op
// logger when path is empty. The TUI owns the terminal so nothing may log
// to stderr while it runs.
func fileLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	zc := zap.NewDevelopmentConfig()
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	return zc.Build()
}

// connectModel extends the listen view with a send field.
type connectModel struct {
	*listenModel
	input        *components.Input
	keys         keys.ConnectKeys
	lineEnding   string
	writeTimeout time.Duration
}

// payload converts the input line to the bytes to send and the bytes to
// echo in the history.
func (m *connectModel) payload(line string) (send, echo []byte, err error) {
	if m.input.GetSendingMode() == components.SendingModeHex {
		data, err := parseHexString(line)
		if err != nil {
			return nil, nil, err
		}
		if len(data) == 0 {
			return nil, nil, fmt.Errorf("empty hex input")
		}
		return data, data, nil
	}
	return []byte(line + m.lineEnding), []byte(line), nil
}

func (m *connectModel) send() {
	line := m.input.Value()
	if line == "" {
		return
	}

	data, echo, err := m.payload(line)
	if err != nil {
		m.notice(fmt.Sprintf("invalid hex input: %v", err))
		return
	}
	if !m.GetPort().IsOpen() {
		m.notice("port not open")
		return
	}

	n, err := writeAll(m.GetPort(), data, time.Now().Add(m.writeTimeout))
	if err != nil {
		m.notice(fmt.Sprintf("send failed after %d bytes: %v", n, err))
		return
	}

	tx := components.DataReceivedMsg{Timestamp: time.Now(), Data: echo, IsTX: true}
	m.AddRawData(tx)
	m.terminal.AddMessage(tx)
	m.input.AddToHistory(line)
	m.input.SetValue("")
}

// notice shows a local message in the data view without storing it.
func (m *connectModel) notice(text string) {
	m.terminal.AddMessage(components.DataReceivedMsg{
		Timestamp: time.Now(),
		Status:    text,
	})
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// input box (3 lines with border) and status bar
		m.input.SetWidth(msg.Width)
		_, cmd := m.listenModel.Update(tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 3})
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.input.Focused() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Enter):
				m.send()
				return m, nil
			case key.Matches(msg, m.keys.Up):
				m.input.HistoryUp()
				return m, nil
			case key.Matches(msg, m.keys.Down):
				m.input.HistoryDown()
				return m, nil
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Insert):
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.ToggleSendMode):
			m.input.ToggleSendingMode()
			return m, nil
		}
	}

	_, cmd := m.listenModel.Update(msg)
	return m, cmd
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	mode := "NORMAL"
	switch {
	case m.input.Focused():
		mode = "INSERT " + m.input.GetSendingMode().String()
	case m.IsPaused():
		mode = "PAUSED"
	}

	sections := []string{styles.ContentBorderStyle.Render(content), m.input.View()}
	if m.help.ShowAll {
		sections = append(sections, styles.HelpBoxStyle.Render(m.help.View(m.keys)))
	}
	sections = append(sections, m.statusBar.Render(mode, m.now.Format("15:04:05")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
