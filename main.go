package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/avrctl/avr"
	"i4.energy/across/avrctl/dialect"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by all subcommands once flags are parsed.
type cli struct {
	config *Config
	logger *slog.Logger
	model  dialect.Model
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "avrctl",
		Short: "Control A/V receivers over RS-232",
		Long: `avrctl talks to A/V receivers and surround processors over their RS-232
control port.

Single commands can be issued directly, an interactive shell keeps the
connection open between commands, and serve exposes the receiver through
an HTTP gateway.

Example usage:
  avrctl power 1 on
  avrctl volume 1 40
  avrctl status 1
  avrctl send tuner_frequency --reply
  avrctl --series anthem_avm30 serve --bind-address :8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Configuration file (yaml, json or toml)")
	flags.String("serial-port", "/dev/ttyUSB0", "Serial port the receiver is connected to")
	flags.Int("baud-rate", 0, "Baud rate (default: the series' own)")
	flags.String("series", "anthem_d2", "Receiver series, see 'avrctl models'")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Duration("timeout", 10*time.Second, "Time allowed for a single command")

	root.AddCommand(
		c.powerCommand(),
		c.muteCommand(),
		c.volumeCommand(),
		c.sourceCommand(),
		c.statusCommand(),
		c.sendCommand(),
		c.modelsCommand(),
		c.shellCommand(),
		c.serveCommand(),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv(), WithFlags(cmd.Flags()))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c.config = config
	c.logger = newLogger(config.LogLevel, cmd.Name() == "serve", cmd.ErrOrStderr())

	model, err := dialect.LookupModel(config.Series)
	if err != nil {
		return err
	}
	c.model = model
	return nil
}

// newLogger builds a JSON logger for long running processes and a text
// logger for interactive use.
func newLogger(level string, json bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newEngine builds an engine for the configured series and port and starts
// its loop. The engine is not connected yet.
func (c *cli) newEngine(ctx context.Context) (*avr.Engine, context.CancelFunc, error) {
	d, err := c.model.Dialect()
	if err != nil {
		return nil, nil, err
	}

	settings := c.model.Serial
	if c.config.BaudRate > 0 {
		settings.BaudRate = c.config.BaudRate
	}
	dialer, err := avr.NewSerialDialer(c.config.SerialPort, settings)
	if err != nil {
		return nil, nil, err
	}

	engineConfig, err := avr.NewConfigBuilder().
		WithDialect(d).
		WithDialer(dialer).
		WithLogger(c.logger).
		WithReadTimeout(settings.Timeout).
		WithRequestTimeout(c.config.Timeout).
		Build()
	if err != nil {
		return nil, nil, err
	}

	e, err := avr.New(engineConfig)
	if err != nil {
		return nil, nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := e.Run(loopCtx); err != nil && loopCtx.Err() == nil {
			c.logger.Error("Engine loop stopped", "error", err)
		}
	}()

	stop := func() {
		cancel()
		if err := e.Close(); err != nil {
			c.logger.Debug("Close engine", "error", err)
		}
	}
	return e, stop, nil
}

// withEngine connects to the receiver, runs fn and disconnects.
func (c *cli) withEngine(ctx context.Context, fn func(ctx context.Context, e *avr.Engine) error) error {
	e, stop, err := c.newEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if err := e.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, e)
}
