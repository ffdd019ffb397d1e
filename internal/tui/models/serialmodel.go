package models

import (
	"time"

	"github.com/allbin/go-serialport/host"
	"github.com/allbin/go-serialport/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// maxHistory bounds the number of received chunks kept for re-rendering.
const maxHistory = 5000

type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// PollMsg asks the model to check the port for new data.
type PollMsg time.Time

// PollCmd schedules the next PollMsg.
func PollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}

// SerialModel is the shared state of TUI commands bound to one port. All
// access happens on the bubbletea update loop, so it needs no locking.
type SerialModel struct {
	port     *host.SerialPort
	portPath string

	connected bool
	paused    bool
	rawData   []components.DataReceivedMsg
	err       error
	ready     bool
}

func NewSerialModel(portPath string, port *host.SerialPort) *SerialModel {
	return &SerialModel{
		port:     port,
		portPath: portPath,
		rawData:  make([]components.DataReceivedMsg, 0),
	}
}

func (m *SerialModel) GetPort() *host.SerialPort {
	return m.port
}

func (m *SerialModel) GetPortPath() string {
	return m.portPath
}

func (m *SerialModel) IsConnected() bool {
	return m.connected
}

func (m *SerialModel) SetConnected(connected bool) {
	m.connected = connected
}

func (m *SerialModel) GetError() error {
	return m.err
}

func (m *SerialModel) SetError(err error) {
	m.err = err
}

func (m *SerialModel) IsReady() bool {
	return m.ready
}

func (m *SerialModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *SerialModel) IsPaused() bool {
	return m.paused
}

// TogglePause stops or resumes draining the port. While paused, incoming
// bytes pile up in the kernel buffer.
func (m *SerialModel) TogglePause() bool {
	m.paused = !m.paused
	return m.paused
}

func (m *SerialModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

func (m *SerialModel) AddRawData(msg components.DataReceivedMsg) {
	m.rawData = append(m.rawData, msg)
	if over := len(m.rawData) - maxHistory; over > 0 {
		m.rawData = append(m.rawData[:0], m.rawData[over:]...)
	}
}

func (m *SerialModel) ClearData() {
	m.rawData = make([]components.DataReceivedMsg, 0)
}

// Poll drains whatever the port has buffered. It never blocks; ok is false
// when nothing arrived, the model is paused or the port is closed.
func (m *SerialModel) Poll(now time.Time) (msg components.DataReceivedMsg, ok bool) {
	if m.paused || m.port == nil || !m.port.IsOpen() {
		return msg, false
	}
	if m.port.Available() == 0 {
		return msg, false
	}
	data := m.port.Read()
	if len(data) == 0 {
		return msg, false
	}
	return components.DataReceivedMsg{Timestamp: now, Data: data}, true
}

// Cleanup releases the port.
func (m *SerialModel) Cleanup() {
	if m.port != nil {
		m.port.Close()
	}
}
