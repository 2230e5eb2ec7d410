package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"i4.energy/across/avrctl/avr"
	"i4.energy/across/avrctl/dialect"
)

var errUsage = errors.New("usage")

// action is a receiver operation shared by the subcommands and the shell.
type action struct {
	name    string
	usage   string
	short   string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error
}

func (a action) check(args []string) error {
	if len(args) < a.minArgs || (a.maxArgs >= 0 && len(args) > a.maxArgs) {
		return fmt.Errorf("%w: %s %s", errUsage, a.name, a.usage)
	}
	return nil
}

var actions = []action{
	{
		name: "power", usage: "<zone> on|off", short: "Switch a zone on or off",
		minArgs: 2, maxArgs: 2,
		run: func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error {
			zone, err := parseZone(m, args[0])
			if err != nil {
				return err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			return ctrl.SetPower(ctx, zone, on)
		},
	},
	{
		name: "mute", usage: "<zone> on|off|toggle", short: "Mute, unmute or toggle mute of a zone",
		minArgs: 2, maxArgs: 2,
		run: func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error {
			zone, err := parseZone(m, args[0])
			if err != nil {
				return err
			}
			if strings.EqualFold(args[1], "toggle") {
				return ctrl.ToggleMute(ctx, zone)
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			return ctrl.SetMute(ctx, zone, on)
		},
	},
	{
		name: "volume", usage: "<zone> <level>|up|down", short: "Set or step the volume of a zone",
		minArgs: 2, maxArgs: 2,
		run: func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error {
			zone, err := parseZone(m, args[0])
			if err != nil {
				return err
			}
			switch strings.ToLower(args[1]) {
			case "up", "+":
				return ctrl.VolumeUp(ctx, zone)
			case "down", "-":
				return ctrl.VolumeDown(ctx, zone)
			}
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("volume level %q: %w", args[1], dialect.ErrInvalidArgument)
			}
			return ctrl.SetVolume(ctx, zone, level)
		},
	},
	{
		name: "source", usage: "<zone> <code|name>", short: "Select the input of a zone",
		minArgs: 2, maxArgs: -1,
		run: func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error {
			zone, err := parseZone(m, args[0])
			if err != nil {
				return err
			}
			code, err := parseSource(m, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return ctrl.SetSource(ctx, zone, code)
		},
	},
	{
		name: "status", usage: "<zone>", short: "Show the status of a zone",
		minArgs: 1, maxArgs: 1,
		run: func(ctx context.Context, ctrl avr.Controller, m dialect.Model, args []string, out io.Writer) error {
			zone, err := parseZone(m, args[0])
			if err != nil {
				return err
			}
			status, err := ctrl.ZoneStatus(ctx, zone)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderStatus(m, zone, status))
			return nil
		},
	},
}

// send runs any command of the dialect by name.
func send(ctx context.Context, ctrl avr.Controller, name string, pairs []string, reply bool, out io.Writer) error {
	args, err := parseArgs(pairs)
	if err != nil {
		return err
	}
	status, err := ctrl.SendCommand(ctx, name, args, reply)
	if err != nil {
		return err
	}
	if reply {
		fmt.Fprintln(out, renderReply(name, status))
	}
	return nil
}

func findAction(name string) (action, bool) {
	i := slices.IndexFunc(actions, func(a action) bool { return a.name == name })
	if i < 0 {
		return action{}, false
	}
	return actions[i], true
}

func (c *cli) actionCommand(name string) *cobra.Command {
	a, _ := findAction(name)
	return &cobra.Command{
		Use:   a.name + " " + a.usage,
		Short: a.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.check(args); err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e *avr.Engine) error {
				return a.run(ctx, e, c.model, args, cmd.OutOrStdout())
			})
		},
	}
}

func (c *cli) powerCommand() *cobra.Command  { return c.actionCommand("power") }
func (c *cli) muteCommand() *cobra.Command   { return c.actionCommand("mute") }
func (c *cli) volumeCommand() *cobra.Command { return c.actionCommand("volume") }
func (c *cli) sourceCommand() *cobra.Command { return c.actionCommand("source") }
func (c *cli) statusCommand() *cobra.Command { return c.actionCommand("status") }

func (c *cli) sendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <command> [key=value...]",
		Short: "Send any command of the receiver's protocol",
		Long: `Send a command from the receiver's protocol by name, filling its
placeholders from key=value pairs.

Example usage:
  avrctl send power_status zone=2 --reply
  avrctl send am_tune channel=540
  avrctl send set_time hour=7 min=5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, _ := cmd.Flags().GetBool("reply")
			return c.withEngine(cmd.Context(), func(ctx context.Context, e *avr.Engine) error {
				return send(ctx, e, args[0], args[1:], reply, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolP("reply", "r", false, "Wait for and print the receiver's reply")
	return cmd
}

func (c *cli) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported receiver series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := dialect.Models()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModels(models))
			return nil
		},
	}
}

func parseZone(m dialect.Model, s string) (int, error) {
	zone, err := strconv.Atoi(s)
	if err != nil || !m.HasZone(zone) {
		return 0, fmt.Errorf("%w: zone %q", dialect.ErrInvalidArgument, s)
	}
	return zone, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", dialect.ErrInvalidArgument, s)
}

// parseSource accepts a source code or, case-insensitively, its label.
func parseSource(m dialect.Model, s string) (string, error) {
	if _, ok := m.Sources[s]; ok || len(m.Sources) == 0 {
		return s, nil
	}
	for code, label := range m.Sources {
		if strings.EqualFold(label, s) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: source %q", dialect.ErrInvalidArgument, s)
}

// parseArgs turns key=value pairs into command arguments. Integer values
// are passed as numbers so templates can pad them.
func parseArgs(pairs []string) (dialect.Args, error) {
	args := make(dialect.Args, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", dialect.ErrInvalidArgument, pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			args[key] = n
		} else {
			args[key] = value
		}
	}
	return args, nil
}
