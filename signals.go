package serial

import (
	"strings"

	"golang.org/x/sys/unix"
)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowControlNone:
		return "None"
	case FlowControlRTSCTS:
		return "RTS/CTS"
	default:
		return "Unknown"
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// SignalMask identifies which input signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD

	SignalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD
)

var signalBits = []struct {
	mask SignalMask
	bit  int
	name string
}{
	{SignalCTS, unix.TIOCM_CTS, "CTS"},
	{SignalDSR, unix.TIOCM_DSR, "DSR"},
	{SignalRI, unix.TIOCM_RI, "RI"},
	{SignalDCD, unix.TIOCM_CAR, "DCD"},
}

func (m SignalMask) String() string {
	var names []string
	for _, s := range signalBits {
		if m&s.mask != 0 {
			names = append(names, s.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// setModemBit raises or clears one output line (TIOCM_RTS, TIOCM_DTR).
func setModemBit(fd int, bit int, level bool) error {
	req := uint(unix.TIOCMBIC)
	if level {
		req = unix.TIOCMBIS
	}
	return unix.IoctlSetPointerInt(fd, req, bit)
}

func decodeModemStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// signalMaskToTIOCM converts SignalMask to unix TIOCM bits
func signalMaskToTIOCM(mask SignalMask) int {
	var bits int
	for _, s := range signalBits {
		if mask&s.mask != 0 {
			bits |= s.bit
		}
	}
	return bits
}

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(oldStatus, newStatus int) SignalMask {
	var changed SignalMask
	for _, s := range signalBits {
		if (oldStatus&s.bit != 0) != (newStatus&s.bit != 0) {
			changed |= s.mask
		}
	}
	return changed
}
