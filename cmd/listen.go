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
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

The port is polled once per frame (--poll): whenever bytes are buffered they
are read without blocking and appended to the view. Features include:
- Timestamped hex and ASCII display
- Pause/resume without closing the port
- Connection status and received byte counter

Diagnostics are written to --log-file since the terminal is taken over by
the display.

Example usage:
  serialctl listen /dev/ttyUSB0
  serialctl listen /dev/ttyUSB0 --baud 9600
  serialctl listen /dev/ttyUSB0 --raw --log-file listen.log`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		rawMode, _ := cmd.Flags().GetBool("raw")
		poll, _ := cmd.Flags().GetDuration("poll")
		logFile, _ := cmd.Flags().GetString("log-file")

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
		m := newListenModel(args[0], sp, components.NewConnectionInfo(config), poll)
		switch {
		case rawMode:
			m.terminal.SetFormatOptions(true, true)
		case noTimestamps:
			m.terminal.SetFormatOptions(true, !showIndicators)
		default:
			m.terminal.SetFormatOptions(false, !showIndicators)
		}

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		_, err = p.Run()
		m.Cleanup()
		if err != nil {
			exitf("Error: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX indicators (off by default)")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
	listenCmd.Flags().Duration("poll", 16*time.Millisecond, "Polling interval (one frame)")
	listenCmd.Flags().String("log-file", "", "Write diagnostics to this file")
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
	poll      time.Duration
	baud      uint32
	now       time.Time
}

func newListenModel(portPath string, sp *host.SerialPort, info *components.ConnectionInfo, poll time.Duration) *listenModel {
	m := &listenModel{
		SerialModel: models.NewSerialModel(portPath, sp),
		terminal:    components.NewTerminal(80, 20),
		statusBar:   components.NewStatusBar(portPath),
		help:        help.New(),
		keys:        keys.NewTerminalKeys(),
		poll:        poll,
		baud:        uint32(info.BaudRate),
		now:         time.Now(),
	}
	m.statusBar.SetConnectionInfo(info)
	m.statusBar.SetConnecting()
	return m
}

// openPortCmd binds the port on the update loop's behalf.
func (m *listenModel) openPortCmd() tea.Cmd {
	sp, path, baud := m.GetPort(), m.GetPortPath(), m.baud
	return func() tea.Msg {
		if !sp.Open(path, baud) {
			return models.ConnectionStatusMsg{Error: fmt.Errorf("could not open %s at %d baud", path, baud)}
		}
		return models.ConnectionStatusMsg{Connected: true}
	}
}

func (m *listenModel) Init() tea.Cmd {
	return m.openPortCmd()
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Status bar is single line
		m.terminal.SetSize(msg.Width, msg.Height-1)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)
		cmds = append(cmds, m.terminal.Update(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.terminal.Update(msg))

	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetDisconnected(msg.Error)
			break
		}
		m.statusBar.SetConnected()
		cmds = append(cmds, models.PollCmd(m.poll))

	case models.PollMsg:
		m.now = time.Time(msg)
		if data, ok := m.Poll(m.now); ok {
			m.AddRawData(data)
			m.terminal.AddMessage(data)
			m.statusBar.AddRxBytes(len(data.Data))
		}
		if !m.GetPort().IsOpen() {
			m.SetConnected(false)
			m.statusBar.SetDisconnected(nil)
			break
		}
		cmds = append(cmds, models.PollCmd(m.poll))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.ClearData()
			m.terminal.Clear()
			m.statusBar.ResetRxBytes()

		case key.Matches(msg, m.keys.Pause):
			m.TogglePause()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
			m.terminal.RefreshDisplayWithRawData(m.GetRawData())

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()
			m.terminal.RefreshDisplayWithRawData(m.GetRawData())

		case key.Matches(msg, m.keys.ToggleTimestamps):
			m.terminal.ToggleTimestamps()
			m.terminal.RefreshDisplayWithRawData(m.GetRawData())

		case key.Matches(msg, m.keys.ToggleIndicators):
			m.terminal.ToggleIndicators()
			m.terminal.RefreshDisplayWithRawData(m.GetRawData())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	mode := "LISTEN"
	if m.IsPaused() {
		mode = "PAUSED"
	}
	statusBar := m.statusBar.Render(mode, m.now.Format("15:04:05"))

	sections := []string{styles.ContentBorderStyle.Render(content)}
	if m.help.ShowAll {
		sections = append(sections, styles.HelpBoxStyle.Render(m.help.View(m.keys)))
	}
	sections = append(sections, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
