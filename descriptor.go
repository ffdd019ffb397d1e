package serial

import "encoding/json"

// PortKind tells USB-attached ports apart from everything else.
type PortKind int

const (
	KindOther PortKind = iota
	KindUSB
)

func (k PortKind) String() string {
	if k == KindUSB {
		return "usb"
	}
	return "other"
}

// USBInfo carries the USB identity of a port. String fields the device does
// not report are left empty.
type USBInfo struct {
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Manufacturer string
	Product      string

	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
}

// PortDescriptor is a snapshot of one port seen during enumeration. Being
// listed does not mean the device can still be opened.
type PortDescriptor struct {
	Name        string // device path, e.g. /dev/ttyUSB0
	Description string
	Kind        PortKind
	USB         *USBInfo // set only when Kind is KindUSB
}

// IsUSB reports whether the descriptor carries USB metadata.
func (d PortDescriptor) IsUSB() bool {
	return d.Kind == KindUSB && d.USB != nil
}

// Map returns the descriptor in its host-facing form: "name" always, plus
// "type", "vid", "pid", "sn", "manufacture" and "product" for USB ports.
func (d PortDescriptor) Map() map[string]any {
	m := map[string]any{"name": d.Name}
	if d.IsUSB() {
		m["type"] = "usb"
		m["vid"] = d.USB.VendorID
		m["pid"] = d.USB.ProductID
		m["sn"] = d.USB.SerialNumber
		m["manufacture"] = d.USB.Manufacturer
		m["product"] = d.USB.Product
	}
	return m
}

// MarshalJSON encodes the descriptor using the keys of Map.
func (d PortDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}
