package serial

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSignalMaskToTIOCM(t *testing.T) {
	tests := []struct {
		name     string
		mask     SignalMask
		expected int
	}{
		{"CTS only", SignalCTS, unix.TIOCM_CTS},
		{"DSR only", SignalDSR, unix.TIOCM_DSR},
		{"RI only", SignalRI, unix.TIOCM_RI},
		{"DCD only", SignalDCD, unix.TIOCM_CAR},
		{"CTS and DSR", SignalCTS | SignalDSR, unix.TIOCM_CTS | unix.TIOCM_DSR},
		{"All", SignalAll, unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := signalMaskToTIOCM(tt.mask); got != tt.expected {
				t.Errorf("signalMaskToTIOCM(%v) = %#x, want %#x", tt.mask, got, tt.expected)
			}
		})
	}
}

func TestDetectSignalChanges(t *testing.T) {
	tests := []struct {
		name     string
		old, new int
		expected SignalMask
	}{
		{"no change", unix.TIOCM_CTS | unix.TIOCM_DSR, unix.TIOCM_CTS | unix.TIOCM_DSR, 0},
		{"CTS raised", 0, unix.TIOCM_CTS, SignalCTS},
		{"RI raised", 0, unix.TIOCM_RI, SignalRI},
		{"carrier raised", 0, unix.TIOCM_CAR, SignalDCD},
		{"CTS dropped", unix.TIOCM_CTS, 0, SignalCTS},
		{"two inputs", unix.TIOCM_DSR, unix.TIOCM_CTS, SignalCTS | SignalDSR},
		{"outputs ignored", 0, unix.TIOCM_RTS | unix.TIOCM_DTR, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectSignalChanges(tt.old, tt.new); got != tt.expected {
				t.Errorf("detectSignalChanges(%#x, %#x) = %v, want %v", tt.old, tt.new, got, tt.expected)
			}
		})
	}
}

func TestDecodeModemStatus(t *testing.T) {
	got := decodeModemStatus(unix.TIOCM_CTS | unix.TIOCM_RI | unix.TIOCM_DTR)
	want := ModemSignals{CTS: true, RI: true, DTR: true}
	if got != want {
		t.Errorf("decodeModemStatus = %+v, want %+v", got, want)
	}
	if got := decodeModemStatus(0); got != (ModemSignals{}) {
		t.Errorf("decodeModemStatus(0) = %+v", got)
	}
}

func TestWaitForSignalChangeInvalidMask(t *testing.T) {
	p := &Port{}
	ctx := context.Background()

	for _, mask := range []SignalMask{0, SignalAll << 1, -1} {
		if _, _, err := p.WaitForSignalChange(ctx, mask); !errors.Is(err, ErrInvalidSignalMask) {
			t.Errorf("WaitForSignalChange(%v) error = %v, want %v", mask, err, ErrInvalidSignalMask)
		}
	}
}

func TestModemSignalsOnClosedPort(t *testing.T) {
	p := &Port{}

	if _, err := p.GetModemSignals(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("GetModemSignals() error = %v, want %v", err, ErrPortClosed)
	}
	if err := p.SetRTS(true); !errors.Is(err, ErrPortClosed) {
		t.Errorf("SetRTS() error = %v, want %v", err, ErrPortClosed)
	}
	if err := p.SetDTR(false); !errors.Is(err, ErrPortClosed) {
		t.Errorf("SetDTR() error = %v, want %v", err, ErrPortClosed)
	}
	if _, err := p.GetRTS(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("GetRTS() error = %v, want %v", err, ErrPortClosed)
	}
	if _, _, err := p.WaitForSignalChange(context.Background(), SignalCTS); !errors.Is(err, ErrPortClosed) {
		t.Errorf("WaitForSignalChange() error = %v, want %v", err, ErrPortClosed)
	}
}

// Pseudo-terminals carry no modem lines, so signal ioctls must fail cleanly
// without disturbing the data path.
func TestModemSignalsOnPTY(t *testing.T) {
	port, master := openPTY(t)

	if _, err := port.GetModemSignals(); err == nil {
		t.Error("expected GetModemSignals to fail on a pty")
	}
	if err := port.SetRTS(true); err == nil {
		t.Error("expected SetRTS to fail on a pty")
	}

	if _, err := port.Write([]byte("ok")); err != nil {
		t.Fatalf("Write after failed ioctl: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := master.Read(buf); err != nil {
		t.Fatalf("master read: %v", err)
	}
}

func TestWaitForSignalChangeCancelled(t *testing.T) {
	port, _ := openPTY(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := port.WaitForSignalChange(ctx, SignalCTS)
	if err == nil {
		t.Fatal("expected an error")
	}
	// TIOCMGET is refused on a pty before the wait starts; on a real UART
	// the context deadline ends the wait instead.
	t.Logf("WaitForSignalChange on pty: %v", err)
}

// stubModem replaces the kernel modem calls. Each value sent on events ends
// one TIOCMIWAIT round with that line status.
func stubModem(t *testing.T) (events chan int, rounds *atomic.Int32) {
	t.Helper()
	events = make(chan int)
	rounds = new(atomic.Int32)
	var status atomic.Int64

	oldWait, oldRead := waitModemChange, readModemStatus
	waitModemChange = func(fd, bits int) error {
		rounds.Add(1)
		status.Store(int64(<-events))
		return nil
	}
	readModemStatus = func(fd int) (int, error) {
		return int(status.Load()), nil
	}
	t.Cleanup(func() { waitModemChange, readModemStatus = oldWait, oldRead })
	return events, rounds
}

func TestWaitForSignalChangeSharesKernelWait(t *testing.T) {
	events, rounds := stubModem(t)
	port, _ := openPTY(t)
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, _, err := port.WaitForSignalChange(ctx, SignalCTS)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	require.Equal(t, int32(1), rounds.Load())
	require.LessOrEqual(t, runtime.NumGoroutine(), before+1)

	type result struct {
		signals ModemSignals
		changed SignalMask
		err     error
	}
	done := make(chan result, 1)
	go func() {
		signals, changed, err := port.WaitForSignalChange(context.Background(), SignalCTS)
		done <- result{signals, changed, err}
	}()

	// a change on an unmonitored line keeps the caller waiting
	events <- unix.TIOCM_DSR
	select {
	case r := <-done:
		t.Fatalf("returned on DSR change: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}

	events <- unix.TIOCM_DSR | unix.TIOCM_CTS
	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, SignalCTS, r.changed)
		require.True(t, r.signals.CTS)
		require.True(t, r.signals.DSR)
	case <-time.After(2 * time.Second):
		t.Fatal("CTS change not reported")
	}
}

func TestCloseReleasesModemWaiter(t *testing.T) {
	events, _ := stubModem(t)
	port, _ := openPTY(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, _, err := port.WaitForSignalChange(ctx, SignalCTS)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, port.Close())
	_, _, err = port.WaitForSignalChange(context.Background(), SignalCTS)
	require.ErrorIs(t, err, ErrPortClosed)

	port.modem.mu.Lock()
	require.True(t, port.modem.hasFD, "descriptor closed under a wait in flight")
	port.modem.mu.Unlock()

	events <- 0
	require.Eventually(t, func() bool {
		port.modem.mu.Lock()
		defer port.modem.mu.Unlock()
		return !port.modem.hasFD && port.modem.pending == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSignalMaskString(t *testing.T) {
	tests := []struct {
		mask SignalMask
		want string
	}{
		{0, "none"},
		{SignalCTS, "CTS"},
		{SignalDSR | SignalDCD, "DSR|DCD"},
		{SignalAll, "CTS|DSR|RI|DCD"},
	}
	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.want {
			t.Errorf("SignalMask(%d).String() = %q, want %q", int(tt.mask), got, tt.want)
		}
	}
}
