package avr_test

import (
	"errors"
	"testing"
	"time"

	"i4.energy/across/avrctl/avr"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialect when no dialect provided", func(t *testing.T) {
		_, err := avr.NewConfigBuilder().Build()

		if !errors.Is(err, avr.ErrNoDialect) {
			t.Errorf("expected ErrNoDialect, got: %v", err)
		}
	})

	t.Run("Timing defaults come from the dialect", func(t *testing.T) {
		config, err := avr.NewConfigBuilder().WithDialect(anthem(t)).Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		tests := []struct {
			name     string
			got      time.Duration
			expected time.Duration
		}{
			{"MinSendInterval", config.MinSendInterval, 200 * time.Millisecond},
			{"ReadTimeout", config.ReadTimeout, 2 * time.Second},
			{"ConnectTimeout", config.ConnectTimeout, avr.DefaultConnectTimeout},
			{"RequestTimeout", config.RequestTimeout, avr.DefaultRequestTimeout},
		}
		for _, tt := range tests {
			if tt.got != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, tt.got)
			}
		}
		if config.Logger == nil || config.Clock == nil {
			t.Error("expected logger and clock defaults")
		}
	})

	t.Run("Overrides are kept", func(t *testing.T) {
		config, err := avr.NewConfigBuilder().
			WithDialect(anthem(t)).
			WithMinSendInterval(time.Second).
			WithReadTimeout(3 * time.Second).
			WithConnectTimeout(time.Minute).
			WithRequestTimeout(2 * time.Minute).
			Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		if config.MinSendInterval != time.Second {
			t.Errorf("expected 1s, got %v", config.MinSendInterval)
		}
		if config.ReadTimeout != 3*time.Second {
			t.Errorf("expected 3s, got %v", config.ReadTimeout)
		}
		if config.ConnectTimeout != time.Minute {
			t.Errorf("expected 1m, got %v", config.ConnectTimeout)
		}
		if config.RequestTimeout != 2*time.Minute {
			t.Errorf("expected 2m, got %v", config.RequestTimeout)
		}
	})
}
