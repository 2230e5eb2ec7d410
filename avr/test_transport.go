package avr

import (
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. Reads block until data is queued, like a real serial port.
//
// Every write and read is recorded in order, see Log. If Reply is set it is
// called for each write and a non-nil result is queued as the receiver's
// answer.
type TestTransport struct {
	Reply func(payload []byte) []byte

	mu       sync.Mutex
	readChan chan []byte
	closed   bool
	writes   [][]byte
	log      []string
}

// NewTestTransport creates a new test transport.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 16),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	data := append([]byte(nil), p...)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	t.writes = append(t.writes, data)
	t.log = append(t.log, "write "+string(data))
	reply := t.Reply
	t.mu.Unlock()

	if reply != nil {
		if answer := reply(data); answer != nil {
			t.SendData(string(answer))
		}
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	n = copy(p, data)

	t.mu.Lock()
	t.log = append(t.log, "read "+string(data[:n]))
	t.mu.Unlock()
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the receiver.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Writes returns the payloads written so far.
func (t *TestTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

// Log returns the writes and reads seen so far, in order.
func (t *TestTransport) Log() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.log...)
}
