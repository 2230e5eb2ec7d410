package avr

import (
	"context"
	"time"

	"i4.energy/across/avrctl/dialect"
)

// Controller is the zone level API of a receiver.
type Controller interface {
	SendCommand(ctx context.Context, name string, args dialect.Args, waitForReply bool) (dialect.Status, error)
	SetPower(ctx context.Context, zone int, on bool) error
	SetMute(ctx context.Context, zone int, on bool) error
	ToggleMute(ctx context.Context, zone int) error
	SetVolume(ctx context.Context, zone, level int) error
	VolumeUp(ctx context.Context, zone int) error
	VolumeDown(ctx context.Context, zone int) error
	SetSource(ctx context.Context, zone int, source string) error
	ZoneStatus(ctx context.Context, zone int) (dialect.Status, error)
	DelayNextRequest(d time.Duration)
}

var _ Controller = (*Engine)(nil)

// SetPower switches a zone on or off. After power on the receiver is given
// its warm-up delay before the next command goes out.
func (e *Engine) SetPower(ctx context.Context, zone int, on bool) error {
	command := "power_off"
	if on {
		command = "power_on"
	}
	if e.closed.Load() {
		return ErrAlreadyClosed
	}
	payload, err := e.dialect.Format(command, dialect.Args{"zone": zone})
	if err != nil {
		return err
	}
	tx := Transaction{Command: command, Payload: payload}
	if on {
		tx.HoldAfter = e.dialect.PowerOnDelay()
	}
	_, err = e.Do(ctx, tx)
	return err
}

// SetMute mutes or unmutes a zone.
func (e *Engine) SetMute(ctx context.Context, zone int, on bool) error {
	command := "mute_off"
	if on {
		command = "mute_on"
	}
	return e.fire(ctx, command, dialect.Args{"zone": zone})
}

// ToggleMute flips the mute state of a zone.
func (e *Engine) ToggleMute(ctx context.Context, zone int) error {
	return e.fire(ctx, "mute_toggle", dialect.Args{"zone": zone})
}

// SetVolume sets an absolute level, clamped to the dialect's range.
func (e *Engine) SetVolume(ctx context.Context, zone, level int) error {
	return e.fire(ctx, "set_volume", dialect.Args{"zone": zone, "volume": level})
}

// VolumeUp raises the volume of a zone by one step.
func (e *Engine) VolumeUp(ctx context.Context, zone int) error {
	return e.fire(ctx, "volume_up", dialect.Args{"zone": zone})
}

// VolumeDown lowers the volume of a zone by one step.
func (e *Engine) VolumeDown(ctx context.Context, zone int) error {
	return e.fire(ctx, "volume_down", dialect.Args{"zone": zone})
}

// SetSource selects an input by its source code, e.g. "5" or "d".
func (e *Engine) SetSource(ctx context.Context, zone int, source string) error {
	return e.fire(ctx, "set_source", dialect.Args{"zone": zone, "source": source})
}

// ZoneStatus queries a zone. A powered-off zone reports only zone and
// power=false; an unrecognized reply yields a nil Status.
func (e *Engine) ZoneStatus(ctx context.Context, zone int) (dialect.Status, error) {
	return e.SendCommand(ctx, "zone_status", dialect.Args{"zone": zone}, true)
}

func (e *Engine) fire(ctx context.Context, command string, args dialect.Args) error {
	_, err := e.SendCommand(ctx, command, args, false)
	return err
}
