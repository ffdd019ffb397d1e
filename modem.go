package serial

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"
)

// GetModemSignals returns current state of all modem control signals
func (p *Port) GetModemSignals() (ModemSignals, error) {
	if err := p.ensureOpen(); err != nil {
		return ModemSignals{}, err
	}

	var status int
	err := p.control(func(fd int) error {
		var err error
		status, err = readModemStatus(fd)
		return err
	})
	if err != nil {
		return ModemSignals{}, err
	}
	return decodeModemStatus(status), nil
}

// SetRTS manually sets the RTS signal state
// When true, asserts RTS (signals readiness to receive)
// When false, deasserts RTS (signals not ready)
func (p *Port) SetRTS(state bool) error {
	return p.setSignal(unix.TIOCM_RTS, state)
}

// SetDTR sets the DTR signal state
func (p *Port) SetDTR(state bool) error {
	return p.setSignal(unix.TIOCM_DTR, state)
}

// GetRTS returns current RTS signal state
func (p *Port) GetRTS() (bool, error) {
	signals, err := p.GetModemSignals()
	return signals.RTS, err
}

// GetDTR returns current DTR signal state
func (p *Port) GetDTR() (bool, error) {
	signals, err := p.GetModemSignals()
	return signals.DTR, err
}

func (p *Port) setSignal(bit int, state bool) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	return p.control(func(fd int) error {
		return setModemBit(fd, bit, state)
	})
}

// WaitForSignalChange blocks until any monitored input signal changes state
// or ctx is done. It returns the new signal states and which signals changed.
//
// TIOCMIWAIT cannot be interrupted, so each Port keeps at most one wait in
// the kernel and every caller shares it. A caller that gives up leaves that
// wait parked until the next line event; Close does not wake it, but the
// descriptor it holds is released as soon as it returns.
func (p *Port) WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 || mask&^SignalAll != 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}
	if err := p.ensureOpen(); err != nil {
		return ModemSignals{}, 0, err
	}
	if err := ctx.Err(); err != nil {
		return ModemSignals{}, 0, err
	}

	var oldStatus int
	err := p.control(func(fd int) error {
		var err error
		oldStatus, err = readModemStatus(fd)
		return err
	})
	if err != nil {
		return ModemSignals{}, 0, err
	}

	for {
		ev, err := p.modem.next(p.dupFD)
		if err != nil {
			return ModemSignals{}, 0, err
		}
		select {
		case <-ev.done:
			if ev.err != nil {
				return ModemSignals{}, 0, p.mapErr(ev.err)
			}
			if changed := detectSignalChanges(oldStatus, ev.status) & mask; changed != 0 {
				return decodeModemStatus(ev.status), changed, nil
			}
			oldStatus = ev.status
		case <-ctx.Done():
			return ModemSignals{}, 0, ctx.Err()
		}
	}
}

// dupFD returns a private copy of the port's descriptor for the modem
// waiter, so the number it waits on is never recycled under it.
func (p *Port) dupFD() (int, error) {
	var dup int
	err := p.control(func(fd int) error {
		var err error
		dup, err = unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
		return err
	})
	return dup, err
}

// Kernel calls behind the modem waiter.
var (
	waitModemChange = func(fd, bits int) error {
		return unix.IoctlSetInt(fd, unix.TIOCMIWAIT, bits)
	}
	readModemStatus = getModemStatus
)

// modemEvent is one TIOCMIWAIT round. done is closed once status and err
// are set.
type modemEvent struct {
	done   chan struct{}
	status int
	err    error
}

// modemWaiter runs at most one TIOCMIWAIT at a time for a Port. It owns a
// duplicated descriptor which only it closes, and only while no wait is in
// flight.
type modemWaiter struct {
	mu      sync.Mutex
	fd      int
	hasFD   bool
	pending *modemEvent
	closed  bool
}

// next returns the wait in flight, starting one if there is none.
func (w *modemWaiter) next(dup func() (int, error)) (*modemEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrPortClosed
	}
	if w.pending != nil {
		return w.pending, nil
	}
	if !w.hasFD {
		fd, err := dup()
		if err != nil {
			return nil, err
		}
		w.fd, w.hasFD = fd, true
	}

	ev := &modemEvent{done: make(chan struct{})}
	w.pending = ev
	go w.run(ev, w.fd)
	return ev, nil
}

func (w *modemWaiter) run(ev *modemEvent, fd int) {
	err := waitModemChange(fd, signalMaskToTIOCM(SignalAll))

	w.mu.Lock()
	switch {
	case w.closed:
		err = ErrPortClosed
		w.release()
	case err == nil:
		ev.status, err = readModemStatus(fd)
	}
	ev.err = err
	w.pending = nil
	w.mu.Unlock()

	close(ev.done)
}

// close stops new waits. The descriptor is released now if idle, otherwise
// by the wait in flight when it returns.
func (w *modemWaiter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.pending == nil {
		w.release()
	}
}

func (w *modemWaiter) release() {
	if w.hasFD {
		unix.Close(w.fd)
		w.hasFD = false
	}
}
