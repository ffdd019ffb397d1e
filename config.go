package serial

import "time"

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// maxReadTimeout mirrors the VTIME range of 0-255 deciseconds.
const maxReadTimeout = 25500 * time.Millisecond

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
	ReadTimeout time.Duration // Upper bound for ReadExact
	WriteMode   WriteMode     // Controls write synchronization behavior
	Exclusive   bool          // TIOCEXCL after open

	InitialRTS *bool
	InitialDTR *bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      ParityNone,
		FlowControl: FlowControlNone,
		ReadTimeout: 2500 * time.Millisecond,
		WriteMode:   WriteModeBuffered,
		Exclusive:   true,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc != FlowControlNone && fc != FlowControlRTSCTS {
			return ErrInvalidConfig
		}
		c.FlowControl = fc
		return nil
	}
}

// WithReadTimeout bounds how long ReadExact may block. The timeout must be a
// multiple of 100ms between 0 and 25.5s; zero makes ReadExact fail unless the
// requested bytes are already buffered.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > maxReadTimeout || timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return WithWriteMode(WriteModeSynced)
}

// WithExclusive controls whether the port is locked with TIOCEXCL so that
// further opens by unprivileged processes fail with ErrDeviceInUse.
func WithExclusive(exclusive bool) Option {
	return func(c *Config) error {
		c.Exclusive = exclusive
		return nil
	}
}

// WithInitialRTS sets the RTS level applied right after the port is opened
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets the DTR level applied right after the port is opened
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}
