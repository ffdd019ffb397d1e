package serial

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}
	if config.FlowControl != FlowControlNone {
		t.Errorf("Expected FlowControl None, got %v", config.FlowControl)
	}
	if config.ReadTimeout != 2500*time.Millisecond {
		t.Errorf("Expected ReadTimeout 2.5s, got %v", config.ReadTimeout)
	}
	if !config.Exclusive {
		t.Error("Expected Exclusive to default to true")
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	opts := []Option{
		WithBaudRate(9600),
		WithDataBits(7),
		WithStopBits(2),
		WithParity(ParityEven),
		WithFlowControl(FlowControlRTSCTS),
		WithSyncWrite(),
		WithExclusive(false),
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			t.Fatalf("option failed: %v", err)
		}
	}

	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}
	if config.FlowControl != FlowControlRTSCTS {
		t.Errorf("Expected FlowControl RTS/CTS, got %v", config.FlowControl)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("Expected WriteModeSynced, got %v", config.WriteMode)
	}
	if config.Exclusive {
		t.Error("Expected Exclusive false")
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"baud 123456", WithBaudRate(123456), ErrInvalidBaudRate},
		{"baud 0", WithBaudRate(0), ErrInvalidBaudRate},
		{"data bits 9", WithDataBits(9), ErrInvalidConfig},
		{"data bits 4", WithDataBits(4), ErrInvalidConfig},
		{"stop bits 3", WithStopBits(3), ErrInvalidConfig},
		{"parity out of range", WithParity(Parity(42)), ErrInvalidConfig},
		{"flow control out of range", WithFlowControl(FlowControl(7)), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			if err := tt.opt(&config); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestWithInitialSignals(t *testing.T) {
	for _, state := range []bool{true, false} {
		config := DefaultConfig()
		if err := WithInitialRTS(state)(&config); err != nil {
			t.Fatalf("WithInitialRTS(%v) returned error: %v", state, err)
		}
		if err := WithInitialDTR(state)(&config); err != nil {
			t.Fatalf("WithInitialDTR(%v) returned error: %v", state, err)
		}
		if config.InitialRTS == nil || *config.InitialRTS != state {
			t.Errorf("InitialRTS = %v, want %v", config.InitialRTS, state)
		}
		if config.InitialDTR == nil || *config.InitialDTR != state {
			t.Errorf("InitialDTR = %v, want %v", config.InitialDTR, state)
		}
	}
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{4000000, false},
		{123456, true},
		{-9600, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if !errors.Is(err, ErrInvalidBaudRate) {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
			if IsStandardBaudRate(test.input) {
				t.Errorf("IsStandardBaudRate(%d) = true", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %d", test.input)
		}
	}
}
