package avr

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces the minimum spacing between transmissions, plus one-shot
// holds for devices that go quiet after certain commands.
type Throttle struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration

	// last is when the previous transmission left; zero before the first.
	last time.Time

	// hold keeps the next transmission back until holdFrom+hold.
	hold     time.Duration
	holdFrom time.Time
	// holdSeq counts DelayNext calls; a hold is consumed by the send that
	// waited for it.
	holdSeq   uint64
	waitedSeq uint64
}

// NewThrottle returns a Throttle spacing transmissions at least interval
// apart. A nil clock means the system clock.
func NewThrottle(interval time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{clock: clock, interval: interval}
}

// Interval returns the minimum spacing.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Delay reports how long a transmission would have to wait right now.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay(t.clock.Now())
}

func (t *Throttle) delay(now time.Time) time.Duration {
	var wait time.Duration

	if !t.last.IsZero() {
		// A clock that moved backwards counts as no time elapsed.
		elapsed := max(now.Sub(t.last), 0)
		if elapsed < t.interval {
			wait = t.interval - elapsed
		}
	}

	if t.hold > 0 {
		since := max(now.Sub(t.holdFrom), 0)
		if remaining := t.hold - since; remaining > wait {
			wait = remaining
		}
	}

	return wait
}

// Wait blocks until the next transmission is allowed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	wait := t.delay(t.clock.Now())
	t.waitedSeq = t.holdSeq
	t.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.clock.After(wait):
		return nil
	}
}

// RecordSend notes that a transmission left at now and consumes any hold
// the preceding Wait honored.
func (t *Throttle) RecordSend(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = now
	if t.hold > 0 && t.waitedSeq == t.holdSeq {
		t.hold = 0
		t.holdFrom = time.Time{}
	}
}

// DelayNext holds the next transmission back for at least d from now,
// regardless of the normal spacing. Overlapping holds keep the later end.
func (t *Throttle) DelayNext(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if t.hold > 0 && t.holdFrom.Add(t.hold).After(now.Add(d)) {
		return
	}
	t.hold = d
	t.holdFrom = now
	t.holdSeq++
}
