package avr

import (
	"log/slog"
	"time"

	"i4.energy/across/avrctl/dialect"
)

// Config controls an Engine. Zero durations fall back to defaults, see
// setDefaults.
type Config struct {
	Dialect *dialect.Dialect
	Dialer  Dialer
	Logger  *slog.Logger
	Clock   Clock

	// MinSendInterval overrides the dialect's minimum spacing between
	// transmissions.
	MinSendInterval time.Duration
	// ReadTimeout overrides the dialect's reply timeout.
	ReadTimeout time.Duration
	// ConnectTimeout bounds how long a command waits for the receiver to
	// come online.
	ConnectTimeout time.Duration
	// RequestTimeout bounds a whole transaction when the caller's context
	// carries no deadline.
	RequestTimeout time.Duration
}

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

func (c *Config) validate() error {
	if c.Dialect == nil {
		return ErrNoDialect
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.MinSendInterval == 0 && c.Dialect != nil {
		c.MinSendInterval = c.Dialect.MinInterval()
	}
	if c.ReadTimeout == 0 && c.Dialect != nil {
		c.ReadTimeout = c.Dialect.Timeout()
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// ConfigBuilder assembles a Config step by step.
//
//	config, err := avr.NewConfigBuilder().
//		WithDialect(d).
//		WithDialer(dialer).
//		Build()
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialect sets the protocol the engine speaks.
func (b *ConfigBuilder) WithDialect(d *dialect.Dialect) *ConfigBuilder {
	b.config.Dialect = d
	return b
}

// WithDialer sets how Connect opens a transport.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithLogger sets the logger.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// WithClock replaces the system clock used for send spacing.
func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.Clock = c
	return b
}

// WithMinSendInterval overrides the dialect's spacing between sends.
func (b *ConfigBuilder) WithMinSendInterval(d time.Duration) *ConfigBuilder {
	b.config.MinSendInterval = d
	return b
}

// WithReadTimeout overrides the dialect's reply timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.config.ReadTimeout = d
	return b
}

// WithConnectTimeout sets how long a command waits for a transport.
func (b *ConfigBuilder) WithConnectTimeout(d time.Duration) *ConfigBuilder {
	b.config.ConnectTimeout = d
	return b
}

// WithRequestTimeout bounds commands whose context has no deadline.
func (b *ConfigBuilder) WithRequestTimeout(d time.Duration) *ConfigBuilder {
	b.config.RequestTimeout = d
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
