package avr

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
)

// resettableTransport looks like a serial port to flush.
type resettableTransport struct {
	*MockTransport
	*MockbufferResetter
}

func TestSessionFlush(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)
	resetter := NewMockbufferResetter(ctrl)

	gomock.InOrder(
		resetter.EXPECT().ResetInputBuffer().Return(nil),
		resetter.EXPECT().ResetOutputBuffer().Return(errors.New("not supported")),
	)

	s := newSession(resettableTransport{transport, resetter})
	s.chunks <- []byte("P1P1\n")
	s.chunks <- []byte("P2")

	s.flush(discardLogger())

	if n := len(s.chunks); n != 0 {
		t.Errorf("expected stale chunks to be discarded, %d left", n)
	}
}

func waitForState(t *testing.T, l *link, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for l.state() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected state %v, got %v", want, l.state())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLink(t *testing.T) {
	t.Run("Waits for the first attach", func(t *testing.T) {
		l := newLink(discardLogger())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := l.session(ctx); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}

		tr := NewTestTransport()
		go func() {
			time.Sleep(10 * time.Millisecond)
			l.attach(tr)
		}()
		s, err := l.session(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.transport != tr {
			t.Error("expected the attached transport")
		}
		l.close()
	})

	t.Run("Pump ignores zero length reads", func(t *testing.T) {
		l := newLink(discardLogger())
		tr := NewTestTransport()
		l.attach(tr)
		defer l.close()

		s, _ := l.session(context.Background())
		tr.SendData("")
		tr.SendData("P1")

		select {
		case chunk := <-s.chunks:
			if string(chunk) != "P1" {
				t.Errorf("expected %q, got %q", "P1", chunk)
			}
		case <-time.After(time.Second):
			t.Fatal("no chunk received")
		}
	})

	t.Run("Loss fails fast until the next attach", func(t *testing.T) {
		l := newLink(discardLogger())
		tr := NewTestTransport()
		l.attach(tr)

		tr.Close()
		waitForState(t, l, Disconnected)

		_, err := l.session(context.Background())
		if !errors.Is(err, ErrNotConnected) || !errors.Is(err, io.EOF) {
			t.Errorf("expected ErrNotConnected caused by io.EOF, got: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			done <- l.wait(ctx)
		}()

		l.attach(NewTestTransport())
		if err := <-done; err != nil {
			t.Errorf("unexpected error from wait(): %v", err)
		}
		if _, err := l.session(context.Background()); err != nil {
			t.Errorf("unexpected error after reattach: %v", err)
		}
		l.close()
	})

	t.Run("Attach replaces the previous transport", func(t *testing.T) {
		l := newLink(discardLogger())
		first := NewTestTransport()
		second := NewTestTransport()
		l.attach(first)
		l.attach(second)
		defer l.close()

		if _, err := first.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("expected the first transport to be closed, got: %v", err)
		}
		if s := l.state(); s != Connected {
			t.Errorf("expected connected, got %v", s)
		}
	})
}
