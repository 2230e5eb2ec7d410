package avr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// lineReader assembles chunks from a session into terminated replies.
type lineReader struct {
	terminator []byte
	logger     *slog.Logger
}

// ReadLine collects input until the terminator shows up at or after offset
// skip, and returns everything before it, including the first skip bytes.
// Anything after the terminator is dropped.
func (r *lineReader) ReadLine(ctx context.Context, s *session, skip int, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var buf []byte
	for {
		select {
		case chunk := <-s.chunks:
			buf = append(buf, chunk...)
			if line, ok := r.frame(buf, skip); ok {
				return line, nil
			}

		case <-s.closed:
			// The pump may have queued data before the stream ended.
			for drained := false; !drained; {
				select {
				case chunk := <-s.chunks:
					buf = append(buf, chunk...)
				default:
					drained = true
				}
			}
			if line, ok := r.frame(buf, skip); ok {
				return line, nil
			}
			if len(buf) > 0 {
				r.logger.Info("incomplete reply before connection loss", "data", string(buf))
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionLost, s.err)

		case <-timer.C:
			return nil, &ReadTimeoutError{Timeout: timeout, Partial: buf}

		case <-ctx.Done():
			if len(buf) > 0 {
				r.logger.Info("reply abandoned", "data", string(buf))
			}
			return nil, fmt.Errorf("read reply: %w", ctx.Err())
		}
	}
}

func (r *lineReader) frame(buf []byte, skip int) ([]byte, bool) {
	if skip > len(buf) {
		return nil, false
	}
	i := bytes.Index(buf[skip:], r.terminator)
	if i < 0 {
		return nil, false
	}
	end := skip + i
	if rest := buf[end+len(r.terminator):]; len(rest) > 0 {
		r.logger.Info("discarding trailing bytes", "data", string(rest))
	}
	return bytes.Clone(buf[:end]), true
}
