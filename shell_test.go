package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"i4.energy/across/avrctl/dialect"
)

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadLine() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestRunShell(t *testing.T) {
	m := testModel(t)
	d, err := m.Dialect()
	if err != nil {
		t.Fatalf("unexpected error from Dialect(): %v", err)
	}

	ctrl := &fakeController{status: dialect.Status{"zone": "2", "power": false}}
	input := &scriptedInput{lines: []string{
		"# warm up",
		"power 1 on",
		"",
		"volume 1 40",
		"volume 1 up",
		"mute 2 toggle",
		"source 1 tuner",
		"status 2",
		"fire am_tune channel=540",
		"bogus",
		"power 1",
		"quit",
		"power 1 off",
	}}
	var out bytes.Buffer

	if err := runShell(context.Background(), input, ctrl, m, d, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"power 1 true",
		"volume 1 40",
		"volume 1 up",
		"mute 2 toggle",
		"source 1 4",
		"status 2",
		"send am_tune map[channel:540] false",
	}
	if calls := ctrl.Calls(); !slices.Equal(calls, expected) {
		t.Errorf("expected calls %q, got %q", expected, calls)
	}

	text := out.String()
	if !strings.Contains(text, `unknown shell command "bogus"`) {
		t.Errorf("expected unknown command error in output, got:\n%s", text)
	}
	if !strings.Contains(text, "usage: power <zone> on|off") {
		t.Errorf("expected usage error in output, got:\n%s", text)
	}
	if !strings.Contains(text, "power") || !strings.Contains(text, "off") {
		t.Errorf("expected rendered status in output, got:\n%s", text)
	}
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"zone=2", "source=d", "channel=0540"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := dialect.Args{"zone": 2, "source": "d", "channel": 540}
	for key, value := range expected {
		if args[key] != value {
			t.Errorf("%s: expected %v (%T), got %v (%T)", key, value, value, args[key], args[key])
		}
	}

	if _, err := parseArgs([]string{"zone"}); !errors.Is(err, dialect.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestParseZone(t *testing.T) {
	m := testModel(t)

	tests := []struct {
		input   string
		zone    int
		wantErr bool
	}{
		{"1", 1, false},
		{"3", 3, false},
		{"4", 0, true},
		{"main", 0, true},
	}
	for _, tt := range tests {
		zone, err := parseZone(m, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.input, err)
		}
		if zone != tt.zone {
			t.Errorf("%q: expected zone %d, got %d", tt.input, tt.zone, zone)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	m := testModel(t)

	out := renderStatus(m, 1, dialect.Status{"zone": "1", "power": true, "source": "5", "volume": "-35.5", "mute": false})
	for _, want := range []string{"Anthem D2 zone 1", "DVD", "(5)", "-35.5", "on", "off"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "power") > strings.Index(out, "mute") {
		t.Errorf("expected power before mute:\n%s", out)
	}

	if out := renderStatus(m, 2, nil); !strings.Contains(out, "no status reported") {
		t.Errorf("expected placeholder for missing status, got:\n%s", out)
	}
}
