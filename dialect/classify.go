package dialect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Status is the structured result of a classified reply. Values are either
// strings, as captured, or booleans for fields the dialect declares boolean.
type Status map[string]any

// Classify matches text against the dialect's response patterns in
// declaration order. The first pattern that matches wins; its named captures
// become the returned Status.
//
// ok is false when no pattern matches. This is not an error: devices push
// unsolicited status and occasionally garbled text.
func (d *Dialect) Classify(text string) (name string, status Status, ok bool) {
	for _, r := range d.responses {
		loc := r.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}

		status = make(Status)
		for i, field := range r.re.SubexpNames() {
			if i == 0 || field == "" || loc[2*i] < 0 {
				continue
			}
			value := text[loc[2*i]:loc[2*i+1]]
			status[field] = coerce(value, r.booleans[field])
		}
		return r.name, status, true
	}
	return "", nil, false
}

// coerce maps "0"/"1" to booleans for boolean fields. Any other value is
// kept as captured.
func coerce(value string, boolean bool) any {
	if boolean {
		switch value {
		case "0":
			return false
		case "1":
			return true
		}
	}
	return value
}

// Bool returns the boolean value of key.
func (s Status) Bool(key string) (value, ok bool) {
	value, ok = s[key].(bool)
	return value, ok
}

// String returns the value of key formatted as text.
func (s Status) String(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// Float parses the value of key as a decimal number, e.g. a volume in dB.
func (s Status) Float(key string) (float64, bool) {
	str, ok := s.String(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses the value of key as an integer, e.g. a zone number.
func (s Status) Int(key string) (int, bool) {
	str, ok := s.String(key)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, false
	}
	return i, true
}

// Keys returns the field names in sorted order.
func (s Status) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
