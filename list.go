package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Locations consulted during enumeration. Tests point them at fake trees.
var (
	sysClassTTY = "/sys/class/tty"
	devDir      = "/dev"

	// isDeviceNode decides whether a /dev entry is usable as a port.
	isDeviceNode = isCharacterDevice
)

// Device name patterns for communication-capable serial ports
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// maxUSBDepth bounds the walk from a tty device up to its USB device node.
const maxUSBDepth = 4

// ListPorts returns the serial ports currently visible in sysfs, in the
// order the kernel lists them. Entries without a backing device (virtual
// terminals, pseudo-terminals) and UART slots reported as absent are left
// out.
func ListPorts() ([]PortDescriptor, error) {
	dir, err := os.Open(sysClassTTY)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	defer dir.Close()

	// Readdirnames keeps directory order, unlike os.ReadDir.
	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	ports := make([]PortDescriptor, 0, len(names))
	for _, name := range names {
		if !matchesSerialPattern(name) {
			continue
		}
		classDir := filepath.Join(sysClassTTY, name)
		if _, err := os.Stat(filepath.Join(classDir, "device")); err != nil {
			continue
		}
		if readSysfsFile(filepath.Join(classDir, "type")) == "0" {
			// serial core reports PORT_UNKNOWN for unpopulated UART slots
			continue
		}
		path := filepath.Join(devDir, name)
		if !isDeviceNode(path) {
			continue
		}
		ports = append(ports, describePort(name, path))
	}

	return ports, nil
}

// GetPortInfo returns the descriptor of a single device path
func GetPortInfo(portPath string) (*PortDescriptor, error) {
	if !isDeviceNode(portPath) {
		return nil, ErrDeviceNotFound
	}
	d := describePort(filepath.Base(portPath), portPath)
	return &d, nil
}

func matchesSerialPattern(name string) bool {
	for _, pattern := range serialPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func describePort(name, path string) PortDescriptor {
	d := PortDescriptor{
		Name:        path,
		Description: getPortDescription(name),
		Kind:        KindOther,
	}
	if usb, ok := readUSBInfo(name); ok {
		d.Kind = KindUSB
		d.USB = usb
	}
	return d
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// readUSBInfo follows /sys/class/tty/<name>/device up to the USB device
// directory (the first ancestor with idVendor). Ports whose ids are missing
// or unparsable are not treated as USB.
func readUSBInfo(name string) (*USBInfo, bool) {
	dir, err := filepath.EvalSymlinks(filepath.Join(sysClassTTY, name, "device"))
	if err != nil {
		return nil, false
	}

	var iface string
	for i := 0; i < maxUSBDepth; i++ {
		if iface == "" {
			iface = readSysfsFile(filepath.Join(dir, "bInterfaceNumber"))
		}
		if vendor := readSysfsFile(filepath.Join(dir, "idVendor")); vendor != "" {
			vid, err := strconv.ParseUint(vendor, 16, 16)
			if err != nil {
				return nil, false
			}
			pid, err := strconv.ParseUint(readSysfsFile(filepath.Join(dir, "idProduct")), 16, 16)
			if err != nil {
				return nil, false
			}
			return &USBInfo{
				VendorID:        uint16(vid),
				ProductID:       uint16(pid),
				SerialNumber:    readSysfsFile(filepath.Join(dir, "serial")),
				Manufacturer:    readSysfsFile(filepath.Join(dir, "manufacturer")),
				Product:         readSysfsFile(filepath.Join(dir, "product")),
				InterfaceNumber: iface,
				BusNumber:       readSysfsFile(filepath.Join(dir, "busnum")),
				DeviceNumber:    readSysfsFile(filepath.Join(dir, "devnum")),
			}, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, false
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "" if
// it cannot be read.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
