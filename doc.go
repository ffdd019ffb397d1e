// Package serial provides port discovery and duplex byte-stream access to
// serial (UART and USB-serial) devices on Linux.
//
// The package is the error-returning core. Hosts that want a call surface
// where failures become plain values (false, -1, empty slices) plus a log
// entry should use the host subpackage instead.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0", serial.WithBaudRate(9600))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))  // n may be less than 5
//	data, err := port.ReadAvailable()      // never blocks
//	frame, err := port.ReadExact(16)       // bounded by the read timeout
//
// # Port Discovery
//
// ListPorts reports the ports visible in sysfs, in kernel order, with USB
// identity where the device has one:
//
//	ports, err := serial.ListPorts()
//	for _, p := range ports {
//	    if p.IsUSB() {
//	        fmt.Printf("%s %04x:%04x %s\n", p.Name, p.USB.VendorID, p.USB.ProductID, p.USB.Product)
//	    }
//	}
//
// A listed port may already be gone, or held by another process, by the time
// it is opened.
//
// # Control Signals and Buffers
//
//	signals, err := port.GetModemSignals() // CTS, DSR, RI, DCD, RTS, DTR
//	err = port.SetRTS(true)
//	err = port.SetDTR(false)
//	pending, err := port.InputWaiting()   // bytes readable without blocking
//	queued, err := port.OutputWaiting()   // bytes not yet transmitted
//
// # USB Reset
//
// Hung USB adapters can be reset without unplugging them. They come back
// under a possibly different name, so look them up again by serial number:
//
//	err = serial.ResetUSBDeviceBySerial(ctx, "FT123456")
//	desc, err := serial.WaitForUSBDevice(ctx, "FT123456")
//
// # Error Handling
//
// Failures are reported with wrapped sentinel errors; use errors.Is:
//
//	if errors.Is(err, serial.ErrDeviceInUse) {
//	    // another process holds the port
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
//   - ReadTimeout: 2.5 seconds
//   - WriteMode: Buffered
//   - Exclusive: true (TIOCEXCL)
package serial
