package avr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"

	"i4.energy/across/avrctl/dialect"
)

//go:generate mockgen -source=transport.go -destination=mock_transport_test.go -package=avr

// Transport represents an established, bidirectional byte stream to a
// receiver.
//
// A Transport is assumed to be already connected. Typical implementations
// are serial ports, TCP bridges to an RS-232 port server, or in-memory fakes
// used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a receiver.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation and deadlines of ctx.
	Dial(ctx context.Context) (Transport, error)
}

// bufferResetter is implemented by transports that can discard bytes
// queued in the driver, such as go.bug.st/serial ports.
type bufferResetter interface {
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// SerialDialer opens a receiver over a local serial port using
// go.bug.st/serial.
type SerialDialer struct {
	PortName string
	// BaudRate is used with 8N1 framing when Mode is nil.
	BaudRate int
	Mode     *serial.Mode
}

// NewSerialDialer returns a SerialDialer for portName using the line
// settings of a device model.
func NewSerialDialer(portName string, settings dialect.SerialSettings) (SerialDialer, error) {
	mode, err := serialMode(settings)
	if err != nil {
		return SerialDialer{}, err
	}
	return SerialDialer{PortName: portName, BaudRate: mode.BaudRate, Mode: mode}, nil
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("avr: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("avr: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 19200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("avr: open %s: %w", d.PortName, err)
	}
	return port, nil
}

func serialMode(s dialect.SerialSettings) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
	}

	switch strings.ToLower(s.Parity) {
	case "", "none", "n":
		mode.Parity = serial.NoParity
	case "odd", "o":
		mode.Parity = serial.OddParity
	case "even", "e":
		mode.Parity = serial.EvenParity
	case "mark", "m":
		mode.Parity = serial.MarkParity
	case "space", "s":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("avr: unsupported parity %q", s.Parity)
	}

	switch s.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("avr: unsupported stop bits %v", s.StopBits)
	}

	return mode, nil
}
