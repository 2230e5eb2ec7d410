package avr

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoDialect is returned when an Engine is constructed without a
	// Dialect.
	//
	// This indicates a configuration error. The dialect supplies templates,
	// response patterns and timing for everything the engine sends.
	ErrNoDialect = errors.New("no dialect configured")

	// ErrNoDialer is returned by Connect when the Engine has no Dialer. Use
	// Attach to hand over a transport opened elsewhere.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotConnected is returned when the transport did not reach the
	// connected state within the caller's patience, or was lost and has not
	// been replaced since.
	//
	// Callers may retry later; reconnecting is up to whoever owns the
	// Dialer.
	ErrNotConnected = errors.New("receiver not connected")

	// ErrReadTimeout is matched by *ReadTimeoutError. The connection stays
	// usable after a timeout.
	ErrReadTimeout = errors.New("timed out waiting for reply")

	// ErrConnectionLost is returned when the transport closed or failed
	// during a transaction. The engine is disconnected afterwards.
	ErrConnectionLost = errors.New("connection lost")

	// ErrAlreadyClosed is returned when Close is called on an Engine that
	// has already been closed, and by every operation afterwards.
	ErrAlreadyClosed = errors.New("engine already closed")

	// ErrLoopRunning is returned when Run is called while another Run is
	// still active.
	ErrLoopRunning = errors.New("loop already running")
)

// ReadTimeoutError reports a reply that did not complete in time. Partial
// holds whatever bytes arrived before the deadline.
type ReadTimeoutError struct {
	Command string
	Timeout time.Duration
	Partial []byte
}

func (e *ReadTimeoutError) Error() string {
	if len(e.Partial) == 0 {
		return fmt.Sprintf("no reply to %q within %v", e.Command, e.Timeout)
	}
	return fmt.Sprintf("incomplete reply to %q within %v: received %q", e.Command, e.Timeout, e.Partial)
}

// Is makes errors.Is(err, ErrReadTimeout) hold.
func (e *ReadTimeoutError) Is(target error) bool {
	return target == ErrReadTimeout
}
