package serial

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrReadTimeout      = errors.New("read operation timed out")
	ErrEnumeration      = errors.New("failed to enumerate serial ports")

	// Signal monitoring errors
	ErrInvalidSignalMask = errors.New("invalid signal mask")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// classifyOpenError maps the errno of a failed open(2) onto the sentinel
// errors so callers can use errors.Is regardless of the platform message.
func classifyOpenError(device string, err error) error {
	var sentinel error
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		sentinel = ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		sentinel = ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		sentinel = ErrDeviceInUse
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
	return fmt.Errorf("failed to open %s: %w (%v)", device, sentinel, err)
}
