package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Port is an open serial device. It owns exactly one OS handle, released by
// Close. Data transfer and signal calls may run concurrently with Close; a
// Port must not be copied.
type Port struct {
	mu     sync.RWMutex // guards config
	file   *os.File
	conn   syscall.RawConn
	name   string
	config Config
	closed atomic.Bool
	modem  modemWaiter
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (*Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	// O_NONBLOCK keeps open(2) from waiting on carrier detect and lets the
	// runtime poller drive reads and writes.
	flags := os.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK
	if config.WriteMode == WriteModeSynced {
		flags |= os.O_SYNC
	}

	file, err := os.OpenFile(device, flags, 0)
	if err != nil {
		return nil, classifyOpenError(device, err)
	}

	conn, err := file.SyscallConn()
	if err != nil {
		return nil, multierr.Append(err, file.Close())
	}

	p := &Port{
		file:   file,
		conn:   conn,
		name:   device,
		config: config,
	}

	err = p.control(func(fd int) error {
		return setupPort(fd, config)
	})
	if err != nil {
		return nil, multierr.Append(err, file.Close())
	}

	return p, nil
}

// setupPort applies termios, exclusivity and initial signal levels.
func setupPort(fd int, config Config) error {
	if err := configurePort(fd, config); err != nil {
		return err
	}

	if config.Exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			return fmt.Errorf("failed to lock port: %w", err)
		}
	}

	if config.InitialRTS != nil {
		if err := setModemBit(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			return fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		if err := setModemBit(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			return fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}
	return nil
}

// configurePort puts the line into raw mode with the configured framing
func configurePort(fd int, config Config) error {
	speed, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY | unix.INPCK
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.CSTOPB | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CRTSCTS
	termios.Cflag |= unix.CREAD | unix.CLOCAL

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}
	if config.Parity != ParityNone {
		termios.Iflag |= unix.INPCK
	}

	if config.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	// Reads return as soon as one byte is there; timeouts come from deadlines.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	applySpeed(termios, speed)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// control runs fn against the live descriptor.
func (p *Port) control(fn func(fd int) error) error {
	var opErr error
	err := p.conn.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	})
	if err != nil {
		return p.mapErr(err)
	}
	return opErr
}

// mapErr folds the os package's closed-file error into ErrPortClosed.
func (p *Port) mapErr(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return ErrPortClosed
	}
	return err
}

func (p *Port) ensureOpen() error {
	if p.conn == nil || p.closed.Load() {
		return ErrPortClosed
	}
	return nil
}

// Name returns the device path the port was opened with
func (p *Port) Name() string {
	return p.name
}

// Config returns a copy of the active configuration
func (p *Port) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// BaudRate returns the currently applied baud rate
func (p *Port) BaudRate() int {
	return p.Config().BaudRate
}

// Close closes the serial port
func (p *Port) Close() error {
	if p.file == nil || !p.closed.CompareAndSwap(false, true) {
		return ErrPortClosed
	}
	p.modem.close()
	return p.file.Close()
}

// SetBaudRate changes the line speed of the open port without reopening it
func (p *Port) SetBaudRate(rate int) error {
	speed, err := getBaudRate(rate)
	if err != nil {
		return err
	}
	if err := p.ensureOpen(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.control(func(fd int) error {
		termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return fmt.Errorf("failed to get termios: %w", err)
		}
		applySpeed(termios, speed)
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
			return fmt.Errorf("failed to set termios: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.config.BaudRate = rate
	return nil
}

// Write issues a single non-blocking write and returns how many bytes the
// kernel accepted, which may be fewer than len(data). A full output buffer
// yields (0, nil); use WriteContext to wait for room.
func (p *Port) Write(data []byte) (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	var n int
	err := p.control(func(fd int) error {
		var err error
		for {
			n, err = unix.Write(fd, data)
			if err != unix.EINTR {
				break
			}
		}
		if err == unix.EAGAIN {
			n, err = 0, nil
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// writeWait is Write that parks on the poller while the output buffer is
// full, bounded only by the write deadline.
func (p *Port) writeWait(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	var n int
	var opErr error
	err := p.conn.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), data)
		return opErr != unix.EAGAIN && opErr != unix.EINTR
	})
	if err != nil {
		return 0, p.mapErr(err)
	}
	if opErr != nil {
		return 0, opErr
	}
	return n, nil
}

// Read blocks until at least one byte is available or the read deadline
// passes.
func (p *Port) Read(buf []byte) (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	n, err := p.file.Read(buf)
	return n, p.mapErr(err)
}

// ReadAvailable returns whatever is buffered in the kernel right now. It
// never blocks; an empty slice with a nil error means nothing was pending.
func (p *Port) ReadAvailable() ([]byte, error) {
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}

	buf := []byte{}
	var opErr error
	err := p.conn.Read(func(fd uintptr) bool {
		available, err := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
		if err != nil {
			opErr = fmt.Errorf("failed to query input queue: %w", err)
			return true
		}
		if available == 0 {
			return true
		}
		buf = make([]byte, available)
		n, err := unix.Read(int(fd), buf)
		switch {
		case err == unix.EAGAIN:
			buf = buf[:0]
		case err != nil:
			opErr = err
		default:
			buf = buf[:n]
		}
		return true
	})
	if err != nil {
		return nil, p.mapErr(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	return buf, nil
}

// ReadExact reads exactly n bytes, waiting at most Config.ReadTimeout for
// them to arrive.
func (p *Port) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read size %d", ErrInvalidConfig, n)
	}
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}

	timeout := p.Config().ReadTimeout
	if timeout == 0 {
		// Deadlines in the past fail before reading, so check the queue.
		waiting, err := p.InputWaiting()
		if err != nil {
			return nil, err
		}
		if waiting < n {
			return nil, fmt.Errorf("%w: %d of %d bytes buffered", ErrReadTimeout, waiting, n)
		}
	} else {
		if err := p.file.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, p.mapErr(err)
		}
		defer p.file.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(p.file, buf); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrReadTimeout, timeout)
		}
		return nil, p.mapErr(err)
	}
	return buf, nil
}

// WriteContext writes data, waiting for room in the output buffer until ctx
// is done.
func (p *Port) WriteContext(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}

	stop := p.bindDeadline(ctx, p.file.SetWriteDeadline)
	defer stop()

	n, err := p.writeWait(data)
	return n, contextErr(ctx, err)
}

// ReadContext reads data with context timeout support
func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}

	stop := p.bindDeadline(ctx, p.file.SetReadDeadline)
	defer stop()

	n, err := p.Read(buf)
	return n, contextErr(ctx, err)
}

// contextErr reports a deadline hit caused by ctx as the context's own error.
func contextErr(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		// the file deadline can fire just ahead of the context timer
		return context.DeadlineExceeded
	}
	return err
}

// bindDeadline mirrors ctx onto a file deadline until the returned func runs.
func (p *Port) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = set(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Now())
	})
	return func() {
		stop()
		_ = set(time.Time{})
	}
}

// InputWaiting returns the number of received bytes not yet read
func (p *Port) InputWaiting() (int, error) {
	return p.queryInt(unix.TIOCINQ)
}

// OutputWaiting returns the number of bytes written but not yet transmitted
func (p *Port) OutputWaiting() (int, error) {
	return p.queryInt(unix.TIOCOUTQ)
}

func (p *Port) queryInt(req uint) (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	var v int
	err := p.control(func(fd int) error {
		var err error
		v, err = unix.IoctlGetInt(fd, req)
		return err
	})
	return v, err
}

// Drain waits until all output written to the port has been transmitted
func (p *Port) Drain() error {
	return p.ioctlSet(unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *Port) FlushInput() error {
	return p.ioctlSet(unix.TCFLSH, unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *Port) FlushOutput() error {
	return p.ioctlSet(unix.TCFLSH, unix.TCOFLUSH)
}

func (p *Port) ioctlSet(req uint, arg int) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	return p.control(func(fd int) error {
		return unix.IoctlSetInt(fd, req, arg)
	})
}
