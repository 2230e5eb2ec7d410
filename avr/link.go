package avr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	// chunkBuffer is how many reads the pump may run ahead of the loop.
	chunkBuffer = 16
	// readSize is the size of a single transport read.
	readSize = 256
)

// State is the connection state of an Engine.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// session is one attached transport and the pump reading from it.
type session struct {
	transport Transport
	chunks    chan []byte

	once   sync.Once
	closed chan struct{}
	err    error
}

func newSession(t Transport) *session {
	return &session{
		transport: t,
		chunks:    make(chan []byte, chunkBuffer),
		closed:    make(chan struct{}),
	}
}

// close records the cause and closes the transport. Only the first call
// has an effect.
func (s *session) close(cause error) (err error) {
	s.once.Do(func() {
		s.err = cause
		close(s.closed)
		err = s.transport.Close()
	})
	return err
}

// flush discards chunks that arrived while nobody was listening and asks
// the driver to drop whatever it still holds.
func (s *session) flush(logger *slog.Logger) {
	var stale []byte
	for drained := false; !drained; {
		select {
		case chunk := <-s.chunks:
			stale = append(stale, chunk...)
		default:
			drained = true
		}
	}
	if len(stale) > 0 {
		logger.Debug("discarding stale input", "bytes", len(stale), "data", string(stale))
	}

	if r, ok := s.transport.(bufferResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			logger.Debug("reset input buffer", "error", err)
		}
		if err := r.ResetOutputBuffer(); err != nil {
			logger.Debug("reset output buffer", "error", err)
		}
	}
}

// link tracks the current session and lets callers wait for one.
type link struct {
	logger *slog.Logger

	mu      sync.Mutex
	current *session
	// up is closed while a session is attached.
	up chan struct{}
	// lost is why the previous session ended; nil before the first one.
	lost error
}

func newLink(logger *slog.Logger) *link {
	return &link{logger: logger, up: make(chan struct{})}
}

// attach makes t the current transport and starts pumping it. A previous
// transport is closed.
func (l *link) attach(t Transport) {
	s := newSession(t)

	l.mu.Lock()
	prev := l.current
	l.current = s
	l.lost = nil
	if prev == nil {
		close(l.up)
	}
	l.mu.Unlock()

	if prev != nil {
		if err := prev.close(errors.New("transport replaced")); err != nil {
			l.logger.Debug("close replaced transport", "error", err)
		}
	}

	l.logger.Info("connected")
	go l.pump(s)
}

// pump is the sole reader of a session's transport.
func (l *link) pump(s *session) {
	buf := make([]byte, readSize)
	for {
		n, err := s.transport.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- bytes.Clone(buf[:n]):
			case <-s.closed:
				return
			}
		}
		if err != nil {
			l.drop(s, err)
			return
		}
	}
}

// drop marks s as lost if it is still current and closes it.
func (l *link) drop(s *session, cause error) {
	l.mu.Lock()
	if l.current == s {
		l.current = nil
		l.lost = cause
		l.up = make(chan struct{})
		l.logger.Warn("connection lost", "error", cause)
	}
	l.mu.Unlock()

	if err := s.close(cause); err != nil {
		l.logger.Debug("close lost transport", "error", err)
	}
}

// session returns the current session, waiting for one to be attached if
// none ever was. After a loss it fails immediately.
func (l *link) session(ctx context.Context) (*session, error) {
	for {
		l.mu.Lock()
		s, lost, up := l.current, l.lost, l.up
		l.mu.Unlock()

		if s != nil {
			return s, nil
		}
		if lost != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, lost)
		}

		select {
		case <-up:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, ctx.Err())
		}
	}
}

// wait blocks until a session is attached, even after a loss.
func (l *link) wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		s, up := l.current, l.up
		l.mu.Unlock()
		if s != nil {
			return nil
		}
		select {
		case <-up:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *link) state() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		return Connected
	}
	return Disconnected
}

// close detaches and closes the current transport, if any.
func (l *link) close() error {
	l.mu.Lock()
	s := l.current
	l.current = nil
	l.lost = ErrAlreadyClosed
	if s != nil {
		l.up = make(chan struct{})
	}
	l.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.close(ErrAlreadyClosed)
}
