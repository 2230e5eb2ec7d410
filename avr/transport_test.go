package avr

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial"

	"i4.energy/across/avrctl/dialect"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{
		PortName: "",
	}

	transport, err := dialer.Dial(context.Background())

	if err == nil {
		t.Fatal("expected error for empty port name")
	}
	if transport != nil {
		t.Error("expected nil transport for empty port name")
	}
	if err.Error() != "avr: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyUSB0",
	}

	transport, err := dialer.Dial(nil)

	if err == nil {
		t.Fatal("expected error for nil context")
	}
	if transport != nil {
		t.Error("expected nil transport for nil context")
	}
	if err.Error() != "avr: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport, err := dialer.Dial(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport for canceled context")
	}
}

func TestSerialDialer_Dial_NonexistentPort(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
		BaudRate: 19200,
	}

	transport, err := dialer.Dial(context.Background())

	if err == nil {
		t.Error("expected error for nonexistent port")
	}
	if transport != nil {
		t.Error("expected nil transport for nonexistent port")
	}
}

func TestNewSerialDialer(t *testing.T) {
	tests := []struct {
		name     string
		settings dialect.SerialSettings
		expected serial.Mode
		wantErr  bool
	}{
		{
			name:     "Anthem defaults",
			settings: dialect.SerialSettings{BaudRate: 19200, DataBits: 8, Parity: "none", StopBits: 1},
			expected: serial.Mode{BaudRate: 19200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			name:     "Even parity two stop bits",
			settings: dialect.SerialSettings{BaudRate: 9600, DataBits: 7, Parity: "Even", StopBits: 2},
			expected: serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{
			name:     "One and a half stop bits",
			settings: dialect.SerialSettings{BaudRate: 4800, DataBits: 8, Parity: "odd", StopBits: 1.5},
			expected: serial.Mode{BaudRate: 4800, DataBits: 8, Parity: serial.OddParity, StopBits: serial.OnePointFiveStopBits},
		},
		{
			name:     "Unknown parity",
			settings: dialect.SerialSettings{BaudRate: 9600, DataBits: 8, Parity: "sometimes", StopBits: 1},
			wantErr:  true,
		},
		{
			name:     "Unknown stop bits",
			settings: dialect.SerialSettings{BaudRate: 9600, DataBits: 8, Parity: "none", StopBits: 3},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer, err := NewSerialDialer("/dev/ttyUSB0", tt.settings)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dialer.PortName != "/dev/ttyUSB0" {
				t.Errorf("expected port /dev/ttyUSB0, got %q", dialer.PortName)
			}
			if *dialer.Mode != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, *dialer.Mode)
			}
		})
	}
}
