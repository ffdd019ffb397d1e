package host

import (
	"time"

	"go.uber.org/zap"

	serial "github.com/allbin/go-serialport"
)

// Option configures a SerialPort.
type Option func(*SerialPort)

// WithLogger sets the diagnostic sink. A nil logger discards diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *SerialPort) {
		if logger == nil {
			logger = zap.NewNop()
		}
		s.logger = logger
	}
}

// WithReadTimeout bounds ReadExact. It must be a multiple of 100ms up to
// 25.5s; other values make Open fail.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *SerialPort) {
		s.portOpts = append(s.portOpts, serial.WithReadTimeout(timeout))
	}
}

// WithPortOptions passes line settings through to serial.Open. The baud rate
// given to Open always wins over a WithBaudRate passed here.
func WithPortOptions(opts ...serial.Option) Option {
	return func(s *SerialPort) {
		s.portOpts = append(s.portOpts, opts...)
	}
}
