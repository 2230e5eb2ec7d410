package dialect

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

var errNotNumeric = errors.New("not a number")

// Args holds the values substituted into a command template, keyed by
// placeholder name.
type Args map[string]any

// Format renders the command name with args into wire bytes, terminator
// included.
//
// Volume-setting commands have their level clamped to [0, MaxVolume] before
// the template is executed. The args map is never modified.
func (d *Dialect) Format(name string, args Args) ([]byte, error) {
	tmpl, ok := d.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in dialect %s", ErrUnknownCommand, name, d.name)
	}

	if d.volumeCommands[name] {
		if v, ok := args[d.volumeArg]; ok {
			level, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%v: %v", ErrInvalidArgument, d.volumeArg, v, err)
			}
			args = maps.Clone(args)
			args[d.volumeArg] = ClampVolume(level, d.maxVolume)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(args)); err != nil {
		return nil, fmt.Errorf("%w: command %q: %v", ErrMissingArgument, name, err)
	}
	buf.Write(d.terminator)

	return d.encoding.Encode(buf.String())
}

// ClampVolume limits level to the range [0, limit].
func ClampVolume(level, limit int) int {
	return max(0, min(level, limit))
}

// toInt interprets numeric argument values; fractions are truncated.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(min(n, math.MaxInt32)), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(min(n, math.MaxInt32)), nil
	case float32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
