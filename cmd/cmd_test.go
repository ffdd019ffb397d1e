package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/creack/pty"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	serial "github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/host"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/models"
)

// setViper overrides key for the duration of the test.
func setViper(t *testing.T, key string, value any) {
	t.Helper()
	old := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, old) })
}

func newPTY(t *testing.T) (string, *os.File) {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	name := slave.Name()
	require.NoError(t, slave.Close())
	t.Cleanup(func() { master.Close() })
	return name, master
}

func openHost(t *testing.T, name string) *host.SerialPort {
	t.Helper()
	sp := host.New()
	require.True(t, sp.Open(name, 115200))
	t.Cleanup(func() { sp.Close() })
	return sp
}

func TestParseSignalState(t *testing.T) {
	for _, s := range []string{"high", "ON", "true", "1"} {
		state, err := parseSignalState(s)
		require.NoError(t, err, s)
		require.True(t, state, s)
	}
	for _, s := range []string{"low", "Off", "false", "0"} {
		state, err := parseSignalState(s)
		require.NoError(t, err, s)
		require.False(t, state, s)
	}
	_, err := parseSignalState("maybe")
	require.Error(t, err)
}

func TestParseHexString(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"48656c6c6f", []byte("Hello"), false},
		{"48 65 6C 6C 6F", []byte("Hello"), false},
		{"0x01 0X02", []byte{0x01, 0x02}, false},
		{"de:ad:be:ef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"", []byte{}, false},
		{"123", nil, true},
		{"zz", nil, true},
	}
	for _, tt := range tests {
		got, err := parseHexString(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSignalMask(t *testing.T) {
	mask, err := parseSignalMask(nil)
	require.NoError(t, err)
	require.Equal(t, serial.SignalAll, mask)

	mask, err = parseSignalMask([]string{"cts", " DSR "})
	require.NoError(t, err)
	require.Equal(t, serial.SignalCTS|serial.SignalDSR, mask)

	mask, err = parseSignalMask([]string{"cd", "ri"})
	require.NoError(t, err)
	require.Equal(t, serial.SignalDCD|serial.SignalRI, mask)

	_, err = parseSignalMask([]string{"rts"})
	require.Error(t, err)
}

func TestParseBaudRate(t *testing.T) {
	rate, err := parseBaudRate("9600")
	require.NoError(t, err)
	require.Equal(t, uint32(9600), rate)

	for _, s := range []string{"12345", "-1", "fast", ""} {
		_, err := parseBaudRate(s)
		require.ErrorIs(t, err, serial.ErrInvalidBaudRate, s)
	}
}

func TestParseLineEnding(t *testing.T) {
	for in, want := range map[string]string{"none": "", "lf": "\n", "cr": "\r", "crlf": "\r\n"} {
		got, err := parseLineEnding(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := parseLineEnding("lfcr")
	require.Error(t, err)
}

func TestFilterPorts(t *testing.T) {
	ports := []serial.PortDescriptor{
		{Name: "/dev/ttyS0", Description: "Standard serial port"},
		{Name: "/dev/ttyUSB0", Kind: serial.KindUSB, USB: &serial.USBInfo{VendorID: 0x0403}},
		{Name: "/dev/ttyAMA0"},
		{Name: "/dev/ttyACM0", Kind: serial.KindUSB, USB: &serial.USBInfo{VendorID: 0x2341}},
	}

	names := func(ps []serial.PortDescriptor) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	got, err := filterPorts(ports, "usb")
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyACM0"}, names(got))

	got, err = filterPorts(ports, "standard")
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyS0"}, names(got))

	got, err = filterPorts(ports, "ARM")
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyAMA0"}, names(got))

	got, err = filterPorts(ports, "all")
	require.NoError(t, err)
	require.Len(t, got, 4)

	_, err = filterPorts(ports, "bluetooth")
	require.Error(t, err)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "Hi·", preview([]byte("Hi\n"), 10))
	require.Equal(t, "abc...", preview([]byte("abcdef"), 3))
	require.Empty(t, preview(nil, 3))
}

func TestFormatPortInfo(t *testing.T) {
	s := formatPortInfo(&serial.PortDescriptor{Name: "/dev/ttyS0", Description: "Standard serial port"})
	require.Contains(t, s, "Port Information: /dev/ttyS0")
	require.NotContains(t, s, "USB Device Information")

	s = formatPortInfo(&serial.PortDescriptor{
		Name: "/dev/ttyUSB0",
		Kind: serial.KindUSB,
		USB:  &serial.USBInfo{VendorID: 0x403, ProductID: 0x6001, SerialNumber: "A123"},
	})
	require.Contains(t, s, "Vendor ID:    0403")
	require.Contains(t, s, "Product ID:   6001")
	require.Contains(t, s, "A123")
	require.NotContains(t, s, "Manufacturer")
}

func TestPortOptions(t *testing.T) {
	setViper(t, "baud", 9600)
	setViper(t, "read-timeout", 500*time.Millisecond)
	setViper(t, "flow-control", "RTSCTS")
	setViper(t, "initial-rts", true)

	opts, err := portOptions()
	require.NoError(t, err)
	config, err := resolveConfig(opts)
	require.NoError(t, err)
	require.Equal(t, 9600, config.BaudRate)
	require.Equal(t, 500*time.Millisecond, config.ReadTimeout)
	require.Equal(t, serial.FlowControlRTSCTS, config.FlowControl)
	require.NotNil(t, config.InitialRTS)
	require.True(t, *config.InitialRTS)
}

func TestPortOptionsInvalid(t *testing.T) {
	setViper(t, "flow-control", "xonxoff")
	_, err := portOptions()
	require.Error(t, err)
}

func TestResolveConfigRejectsBadBaud(t *testing.T) {
	setViper(t, "baud", 12345)
	opts, err := portOptions()
	require.NoError(t, err)
	_, err = resolveConfig(opts)
	require.ErrorIs(t, err, serial.ErrInvalidBaudRate)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = newLogger("chatty")
	require.Error(t, err)
}

func TestFileLogger(t *testing.T) {
	l, err := fileLogger("")
	require.NoError(t, err)
	l.Info("dropped")

	path := t.TempDir() + "/serialctl.log"
	l, err = fileLogger(path)
	require.NoError(t, err)
	l.Info("written")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "written")
}

func TestWriteAll(t *testing.T) {
	name, master := newPTY(t)
	sp := openHost(t, name)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		_, err := io.ReadFull(master, buf)
		if err != nil {
			buf = nil
		}
		got <- buf
	}()

	n, err := writeAll(sp, []byte("hello"), time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	select {
	case data := <-got:
		require.Equal(t, []byte("hello"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("data never reached the peer")
	}
}

func TestWriteAllStalledPeerTimesOut(t *testing.T) {
	name, _ := newPTY(t)
	sp := openHost(t, name)

	data := make([]byte, 1<<20)
	start := time.Now()
	n, err := writeAll(sp, data, time.Now().Add(100*time.Millisecond))
	require.Error(t, err)
	require.Less(t, n, len(data))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestWriteAllClosedPort(t *testing.T) {
	n, err := writeAll(host.New(), []byte("x"), time.Now().Add(time.Second))
	require.Error(t, err)
	require.Zero(t, n)
}

func TestPollCapture(t *testing.T) {
	name, master := newPTY(t)
	sp := openHost(t, name)

	_, err := master.Write([]byte("captured"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	total, err := pollCapture(ctx, sp, &out, 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(8), total)
	require.Equal(t, "captured", out.String())
}

func TestPollCaptureClosedPort(t *testing.T) {
	var out bytes.Buffer
	_, err := pollCapture(context.Background(), host.New(), &out, time.Millisecond)
	require.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPollCaptureOutputError(t *testing.T) {
	name, master := newPTY(t)
	sp := openHost(t, name)

	_, err := master.Write([]byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = pollCapture(ctx, sp, failingWriter{}, 10*time.Millisecond)
	require.ErrorContains(t, err, "disk full")
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestListenModel(t *testing.T, name string) *listenModel {
	t.Helper()
	info := components.NewConnectionInfo(serial.DefaultConfig())
	m := newListenModel(name, host.New(), info, 10*time.Millisecond)
	t.Cleanup(m.Cleanup)
	return m
}

func TestListenModelOpenFailure(t *testing.T) {
	m := newTestListenModel(t, "/dev/ttyNONEXISTENT999")

	msg := m.Init()()
	status, ok := msg.(models.ConnectionStatusMsg)
	require.True(t, ok)
	require.False(t, status.Connected)
	require.Error(t, status.Error)

	m.Update(status)
	require.False(t, m.IsConnected())
	require.Error(t, m.GetError())
}

func TestListenModelReceives(t *testing.T) {
	name, master := newPTY(t)
	m := newTestListenModel(t, name)

	_, cmd := m.Update(m.Init()())
	require.NotNil(t, cmd)
	require.True(t, m.IsConnected())
	require.True(t, m.GetPort().IsOpen())

	_, err := master.Write([]byte("ping"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m.Update(models.PollMsg(time.Now()))
		return len(m.GetRawData()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []byte("ping"), m.GetRawData()[0].Data)

	m.Update(keyPress('p'))
	require.True(t, m.IsPaused())
	require.Contains(t, m.View(), "PAUSED")

	m.Update(keyPress('c'))
	require.Empty(t, m.GetRawData())

	_, cmd = m.Update(keyPress('q'))
	require.NotNil(t, cmd)
}

func TestConnectPayload(t *testing.T) {
	m := &connectModel{
		input:      components.NewInput(components.SendingModeASCII),
		lineEnding: "\r\n",
	}

	send, echo, err := m.payload("AT")
	require.NoError(t, err)
	require.Equal(t, []byte("AT\r\n"), send)
	require.Equal(t, []byte("AT"), echo)

	m.input.ToggleSendingMode()
	send, echo, err = m.payload("01 02")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, send)
	require.Equal(t, send, echo)

	_, _, err = m.payload("0")
	require.Error(t, err)
}

func TestConnectSend(t *testing.T) {
	name, master := newPTY(t)
	m := &connectModel{
		listenModel:  newTestListenModel(t, name),
		input:        components.NewInput(components.SendingModeASCII),
		lineEnding:   "\n",
		writeTimeout: time.Second,
	}
	m.Update(m.Init()())
	require.True(t, m.GetPort().IsOpen())

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 3)
		if _, err := io.ReadFull(master, buf); err != nil {
			buf = nil
		}
		got <- buf
	}()

	m.input.SetValue("hi")
	m.send()
	require.Empty(t, m.input.Value())
	require.Len(t, m.GetRawData(), 1)
	require.True(t, m.GetRawData()[0].IsTX)

	select {
	case data := <-got:
		require.Equal(t, []byte("hi\n"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("data never reached the peer")
	}
}

func TestSignalReportPrint(t *testing.T) {
	in := 3
	report := signalReport{
		Port:    "/dev/ttyUSB0",
		Signals: serial.ModemSignals{CTS: true, DTR: true},
		Input:   &in,
	}

	var buf bytes.Buffer
	report.print(&buf)
	out := buf.String()
	require.Contains(t, out, "Modem Signals for /dev/ttyUSB0")
	require.Contains(t, out, "CTS (Clear To Send):       HIGH")
	require.Contains(t, out, "DSR (Data Set Ready):      LOW")
	require.Contains(t, out, "Input queue:  3 bytes")
	require.NotContains(t, out, "Output queue")
}

func TestOutputLineCommands(t *testing.T) {
	for _, name := range []string{"rts", "dtr"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, c.Name())
		require.NotNil(t, c.Flags().Lookup("pulse"))
	}
}
