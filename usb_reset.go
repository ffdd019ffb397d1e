package serial

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// usbresetTool is the usbutils helper that issues USBDEVFS_RESET.
const usbresetTool = "usbreset"

// reenumeratePoll is how often WaitForUSBDevice rescans sysfs.
var reenumeratePoll = 100 * time.Millisecond

// ResetUSBDevice performs a USB-level reset of the device behind portPath.
// It recovers adapters that stopped answering without replugging them.
//
// The usbreset utility (usbutils) must be installed and the caller usually
// needs root. Errors:
//   - ErrDeviceNotFound when portPath is not a serial device
//   - ErrUSBInfoNotAvailable when the port is not USB or lacks bus/device numbers
//   - ErrUSBResetNotAvailable when usbreset is not in PATH
//
// The device re-enumerates afterwards and may come back under another name;
// use WaitForUSBDevice with its serial number to find it again.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}
	return resetUSB(ctx, *info)
}

// ResetUSBDeviceBySerial resets the USB adapter reporting serialNumber. This
// is stable across reboots and reorderings where the port path is not.
func ResetUSBDeviceBySerial(ctx context.Context, serialNumber string) error {
	info, found, err := findUSBBySerial(serialNumber)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no USB port with serial %s", ErrDeviceNotFound, serialNumber)
	}
	return resetUSB(ctx, info)
}

func resetUSB(ctx context.Context, info PortDescriptor) error {
	if !info.IsUSB() {
		return ErrUSBInfoNotAvailable
	}
	usbPath, err := formatUSBPath(info.USB.BusNumber, info.USB.DeviceNumber)
	if err != nil {
		return err
	}
	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	output, err := exec.CommandContext(ctx, usbresetTool, usbPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("usbreset %s failed: %w (output: %s)", usbPath, err, output)
	}
	return nil
}

// WaitForUSBDevice polls the port list until a USB port reporting
// serialNumber is present, and returns it. It gives up when ctx is done.
func WaitForUSBDevice(ctx context.Context, serialNumber string) (PortDescriptor, error) {
	ticker := time.NewTicker(reenumeratePoll)
	defer ticker.Stop()

	for {
		info, found, err := findUSBBySerial(serialNumber)
		if err != nil || found {
			return info, err
		}

		select {
		case <-ctx.Done():
			return PortDescriptor{}, fmt.Errorf("waiting for USB serial %s: %w", serialNumber, ctx.Err())
		case <-ticker.C:
		}
	}
}

func findUSBBySerial(serialNumber string) (PortDescriptor, bool, error) {
	ports, err := ListPorts()
	if err != nil {
		return PortDescriptor{}, false, err
	}
	for _, port := range ports {
		if port.IsUSB() && port.USB.SerialNumber == serialNumber {
			return port, true, nil
		}
	}
	return PortDescriptor{}, false, nil
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath(usbresetTool)
	return err == nil
}

// formatUSBPath builds the zero-padded BBB/DDD form usbreset expects.
func formatUSBPath(bus, device string) (string, error) {
	b, err := strconv.Atoi(bus)
	if err != nil {
		return "", ErrUSBInfoNotAvailable
	}
	d, err := strconv.Atoi(device)
	if err != nil {
		return "", ErrUSBInfoNotAvailable
	}
	return fmt.Sprintf("%03d/%03d", b, d), nil
}
