package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP gateway listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the receiver's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate overrides the baud rate of the receiver series when non-zero
	BaudRate int
	// Series names the receiver model from the catalog (e.g. "anthem_d2")
	Series string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// Timeout bounds a single command including queueing
	Timeout time.Duration
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.Series = "anthem_d2"
		c.LogLevel = "info"
		c.Timeout = 10 * time.Second
		return nil
	}
}

// configKeys maps configuration keys to their environment variables.
var configKeys = map[string]string{
	"bind_address": "BIND_ADDRESS",
	"serial_port":  "SERIAL_PORT",
	"baud_rate":    "BAUD_RATE",
	"series":       "SERIES",
	"log_level":    "LOG_LEVEL",
	"timeout":      "TIMEOUT",
}

// WithFile loads configuration from a file. The format follows the file
// extension (yaml, json, toml). An empty path is a no-op.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return apply(c, v)
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		v := viper.New()
		for key, env := range configKeys {
			if err := v.BindEnv(key, env); err != nil {
				return err
			}
		}
		return apply(c, v)
	}
}

func apply(c *Config, v *viper.Viper) error {
	if v.IsSet("bind_address") {
		c.BindAddress = v.GetString("bind_address")
	}
	if v.IsSet("serial_port") {
		c.SerialPort = v.GetString("serial_port")
	}
	if v.IsSet("baud_rate") {
		b, err := strconv.Atoi(v.GetString("baud_rate"))
		if err != nil {
			return fmt.Errorf("baud_rate: %w", err)
		}
		c.BaudRate = b
	}
	if v.IsSet("series") {
		c.Series = v.GetString("series")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("timeout") {
		d, err := time.ParseDuration(v.GetString("timeout"))
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// WithFlags loads configuration from command-line flags that were set
// explicitly
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, e := strconv.Atoi(f.Value.String()); e == nil {
					c.BaudRate = b
				}
			case "series":
				c.Series = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "timeout":
				if d, e := time.ParseDuration(f.Value.String()); e == nil {
					c.Timeout = d
				} else {
					err = fmt.Errorf("timeout: %w", e)
				}
			}
		})
		return err
	}
}
