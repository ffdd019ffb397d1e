package serial

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatUSBPath(t *testing.T) {
	tests := []struct {
		bus, device string
		expected    string
		wantErr     bool
	}{
		{"5", "7", "005/007", false},
		{"1", "2", "001/002", false},
		{"123", "456", "123/456", false},
		{"1", "10", "001/010", false},
		{"", "10", "", true},
		{"1", "x", "", true},
	}

	for _, tt := range tests {
		got, err := formatUSBPath(tt.bus, tt.device)
		if tt.wantErr {
			if !errors.Is(err, ErrUSBInfoNotAvailable) {
				t.Errorf("formatUSBPath(%q, %q) error = %v, want ErrUSBInfoNotAvailable", tt.bus, tt.device, err)
			}
			continue
		}
		if err != nil || got != tt.expected {
			t.Errorf("formatUSBPath(%q, %q) = %q, %v; want %q", tt.bus, tt.device, got, err, tt.expected)
		}
	}
}

func TestResetUSBDeviceBySerialNotFound(t *testing.T) {
	f := newFakeSysfs(t)
	f.populate()

	err := ResetUSBDeviceBySerial(context.Background(), "NONEXISTENT_SERIAL")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ResetUSBDeviceBySerial error = %v, want ErrDeviceNotFound", err)
	}
}

func TestResetUSBDeviceNonUSB(t *testing.T) {
	f := newFakeSysfs(t)
	f.populate()

	ctx := context.Background()
	if err := ResetUSBDevice(ctx, f.dev+"/ttyS0"); !errors.Is(err, ErrUSBInfoNotAvailable) {
		t.Errorf("ResetUSBDevice(ttyS0) error = %v, want ErrUSBInfoNotAvailable", err)
	}
	if err := ResetUSBDevice(ctx, f.dev+"/ttyUSB42"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ResetUSBDevice(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestResetUSBDeviceWithoutTool(t *testing.T) {
	if IsUSBResetAvailable() {
		t.Skip("usbreset is installed; not resetting real hardware from a test")
	}
	f := newFakeSysfs(t)
	f.populate()

	if err := ResetUSBDeviceBySerial(context.Background(), "FT123456"); !errors.Is(err, ErrUSBResetNotAvailable) {
		t.Errorf("ResetUSBDeviceBySerial error = %v, want ErrUSBResetNotAvailable", err)
	}
}

func TestWaitForUSBDevice(t *testing.T) {
	f := newFakeSysfs(t)
	f.populate()

	prev := reenumeratePoll
	reenumeratePoll = 5 * time.Millisecond
	t.Cleanup(func() { reenumeratePoll = prev })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port, err := WaitForUSBDevice(ctx, "FT123456")
	if err != nil {
		t.Fatalf("WaitForUSBDevice: %v", err)
	}
	if port.Name != filepath.Join(f.dev, "ttyUSB0") {
		t.Errorf("WaitForUSBDevice returned %s, want ttyUSB0", port.Name)
	}
}

func TestWaitForUSBDeviceReappears(t *testing.T) {
	f := newFakeSysfs(t)

	prev := reenumeratePoll
	reenumeratePoll = 5 * time.Millisecond
	t.Cleanup(func() { reenumeratePoll = prev })

	go func() {
		time.Sleep(30 * time.Millisecond)
		f.addUSBDevice("usb3/3-1", map[string]string{
			"idVendor":  "10c4",
			"idProduct": "ea60",
			"serial":    "CP2102-1",
		})
		f.addTTY("ttyUSB3", "usb3/3-1/3-1:1.0/ttyUSB3", true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port, err := WaitForUSBDevice(ctx, "CP2102-1")
	if err != nil {
		t.Fatalf("WaitForUSBDevice: %v", err)
	}
	if port.USB.VendorID != 0x10c4 {
		t.Errorf("VendorID = %04x, want 10c4", port.USB.VendorID)
	}
}

func TestWaitForUSBDeviceTimeout(t *testing.T) {
	f := newFakeSysfs(t)
	f.populate()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := WaitForUSBDevice(ctx, "GONE"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForUSBDevice error = %v, want context.DeadlineExceeded", err)
	}
}
