package host

import (
	"math"

	"go.uber.org/zap"

	serial "github.com/allbin/go-serialport"
)

const msgNotOpen = "port not open"

// SerialPort is a serial port handle for a polling host. It starts out
// closed; Open binds it to a device and Close releases the device again.
type SerialPort struct {
	logger   *zap.Logger
	portOpts []serial.Option

	port *serial.Port
	log  *zap.Logger // logger scoped to the bound device
}

// New returns a closed SerialPort.
func New(opts ...Option) *SerialPort {
	s := &SerialPort{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.logger
	return s
}

// Open binds the port to the named device at baudRate, 8N1. A handle that
// is already bound is released first, so on failure the port is closed.
func (s *SerialPort) Open(name string, baudRate uint32) bool {
	if s.port != nil {
		s.release()
	}

	log := s.logger.With(zap.String("port", name))
	if baudRate == 0 || baudRate > math.MaxInt32 {
		log.Error("failed to open port", zap.Uint32("baud", baudRate), zap.Error(serial.ErrInvalidBaudRate))
		return false
	}

	opts := append(append([]serial.Option{}, s.portOpts...), serial.WithBaudRate(int(baudRate)))
	port, err := serial.Open(name, opts...)
	if err != nil {
		log.Error("failed to open port", zap.Uint32("baud", baudRate), zap.Error(err))
		return false
	}

	s.port = port
	s.log = log
	log.Debug("port opened", zap.Uint32("baud", baudRate))
	return true
}

// Close releases the device. Closing a closed port does nothing.
func (s *SerialPort) Close() error {
	if s.port == nil {
		return nil
	}
	return s.release()
}

func (s *SerialPort) release() error {
	err := s.port.Close()
	if err != nil {
		s.log.Error("failed to close port", zap.Error(err))
	} else {
		s.log.Debug("port closed")
	}
	s.port = nil
	s.log = s.logger
	return err
}

// IsOpen reports whether a device is bound.
func (s *SerialPort) IsOpen() bool {
	return s.port != nil
}

// Name returns the bound device path, or "" when closed.
func (s *SerialPort) Name() string {
	if s.port == nil {
		return ""
	}
	return s.port.Name()
}

func (s *SerialPort) notOpen(op string) {
	s.log.Error(msgNotOpen, zap.String("op", op))
}

// SetBaudRate changes the speed of the open port. A rejected rate leaves the
// port open at its previous speed.
func (s *SerialPort) SetBaudRate(baudRate uint32) bool {
	if s.port == nil {
		s.notOpen("set_baud_rate")
		return false
	}
	if baudRate > math.MaxInt32 {
		s.log.Error("failed to set baud rate", zap.Uint32("baud", baudRate), zap.Error(serial.ErrInvalidBaudRate))
		return false
	}
	if err := s.port.SetBaudRate(int(baudRate)); err != nil {
		s.log.Error("failed to set baud rate", zap.Uint32("baud", baudRate), zap.Error(err))
		return false
	}
	return true
}

// maxWrite caps one Write so its count fits in an int32.
var maxWrite = math.MaxInt32

// Write hands data to the OS without waiting and returns how many bytes it
// took, which can be fewer than len(data) and is 0 while the output buffer
// is full. At most math.MaxInt32 bytes are offered per call so the count
// always fits the result. It returns -1
// on failure.
func (s *SerialPort) Write(data []byte) int32 {
	if s.port == nil {
		s.notOpen("write")
		return -1
	}
	if len(data) > maxWrite {
		data = data[:maxWrite]
	}
	n, err := s.port.Write(data)
	if err != nil {
		s.log.Error("failed to write", zap.Int("len", len(data)), zap.Error(err))
		return -1
	}
	return int32(n)
}

// Read returns the bytes buffered right now without waiting for more. The
// result is empty both when nothing is pending and on failure.
func (s *SerialPort) Read() []byte {
	if s.port == nil {
		s.notOpen("read")
		return []byte{}
	}
	data, err := s.port.ReadAvailable()
	if err != nil {
		s.log.Error("failed to read", zap.Error(err))
		return []byte{}
	}
	return data
}

// ReadExact blocks until size bytes arrive or the read timeout passes. It
// returns an empty slice on timeout or failure.
func (s *SerialPort) ReadExact(size int32) []byte {
	if s.port == nil {
		s.notOpen("read_exact")
		return []byte{}
	}
	data, err := s.port.ReadExact(int(size))
	if err != nil {
		s.log.Error("failed to read exact", zap.Int32("size", size), zap.Error(err))
		return []byte{}
	}
	return data
}

// SetRTS asserts or clears Request To Send.
func (s *SerialPort) SetRTS(level bool) {
	if s.port == nil {
		s.notOpen("set_rts")
		return
	}
	if err := s.port.SetRTS(level); err != nil {
		s.log.Error("failed to set RTS", zap.Bool("level", level), zap.Error(err))
	}
}

// SetDTR asserts or clears Data Terminal Ready.
func (s *SerialPort) SetDTR(level bool) {
	if s.port == nil {
		s.notOpen("set_dtr")
		return
	}
	if err := s.port.SetDTR(level); err != nil {
		s.log.Error("failed to set DTR", zap.Bool("level", level), zap.Error(err))
	}
}

func (s *SerialPort) signals(op string) (serial.ModemSignals, bool) {
	if s.port == nil {
		s.notOpen(op)
		return serial.ModemSignals{}, false
	}
	signals, err := s.port.GetModemSignals()
	if err != nil {
		s.log.Error("failed to read modem signals", zap.String("op", op), zap.Error(err))
		return serial.ModemSignals{}, false
	}
	return signals, true
}

// GetCTS reports Clear To Send.
func (s *SerialPort) GetCTS() bool {
	signals, _ := s.signals("get_cts")
	return signals.CTS
}

// GetDSR reports Data Set Ready.
func (s *SerialPort) GetDSR() bool {
	signals, _ := s.signals("get_dsr")
	return signals.DSR
}

// GetRI reports Ring Indicator.
func (s *SerialPort) GetRI() bool {
	signals, _ := s.signals("get_ri")
	return signals.RI
}

// GetCD reports Carrier Detect.
func (s *SerialPort) GetCD() bool {
	signals, _ := s.signals("get_cd")
	return signals.DCD
}

// Available returns how many received bytes Read would return now.
func (s *SerialPort) Available() int32 {
	return s.queue("available", (*serial.Port).InputWaiting)
}

// Remains returns how many written bytes are still waiting to go out.
func (s *SerialPort) Remains() int32 {
	return s.queue("remains", (*serial.Port).OutputWaiting)
}

func (s *SerialPort) queue(op string, query func(*serial.Port) (int, error)) int32 {
	if s.port == nil {
		s.notOpen(op)
		return 0
	}
	n, err := query(s.port)
	if err != nil {
		s.log.Error("failed to query buffer", zap.String("op", op), zap.Error(err))
		return 0
	}
	return int32(n)
}
