package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"i4.energy/across/avrctl/avr"
	"i4.energy/across/avrctl/dialect"
)

const (
	historyFileName = ".avrctl_history"
	historySize     = 500
	shellPrompt     = "avr> "
)

func (c *cli) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with the receiver",
		Long: `Open the receiver once and issue commands interactively.

Commands:
  power <zone> on|off
  mute <zone> on|off|toggle
  volume <zone> <level>|up|down
  source <zone> <code|name>
  status <zone>
  send <command> [key=value...]   waits for the reply
  fire <command> [key=value...]   does not wait
  commands                        list the protocol's commands
  quit

Input is read line by line when stdin is not a terminal, so scripts can be
piped in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e *avr.Engine) error {
				editor, err := newLineEditor(os.Stdin)
				if err != nil {
					return err
				}
				defer editor.Close()
				return runShell(ctx, editor, e, c.model, e.Dialect(), cmd.OutOrStdout())
			})
		},
	}
}

// lineEditor reads shell input with line editing and history on a
// terminal, and plainly otherwise.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
}

func newLineEditor(in *os.File) (*lineEditor, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return &lineEditor{scanner: bufio.NewScanner(in)}, nil
	}

	var historyPath string
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, historyFileName)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:                 shellPrompt,
		HistoryFile:            historyPath,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init line editor: %w", err)
	}
	return &lineEditor{rl: rl}, nil
}

// ReadLine returns io.EOF at end of input or on interrupt.
func (le *lineEditor) ReadLine() (string, error) {
	if le.rl != nil {
		line, err := le.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			le.rl.SaveToHistory(line)
		}
		return line, nil
	}

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(le.scanner.Text()), nil
}

func (le *lineEditor) Close() error {
	if le.rl != nil {
		return le.rl.Close()
	}
	return nil
}

type lineReader interface {
	ReadLine() (string, error)
}

// runShell executes commands until input ends. Command errors are printed
// and do not end the session.
func runShell(ctx context.Context, in lineReader, ctrl avr.Controller, m dialect.Model, d *dialect.Dialect, out io.Writer) error {
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if err := execLine(ctx, ctrl, m, d, fields, out); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(out, offStyle.Render("error:"), err)
		}
	}
}

var errQuit = errors.New("quit")

func execLine(ctx context.Context, ctrl avr.Controller, m dialect.Model, d *dialect.Dialect, fields []string, out io.Writer) error {
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return errQuit
	case "commands":
		fmt.Fprintln(out, strings.Join(d.Commands(), "\n"))
		return nil
	case "send", "fire":
		if len(args) == 0 {
			return fmt.Errorf("%w: %s <command> [key=value...]", errUsage, name)
		}
		return send(ctx, ctrl, args[0], args[1:], name == "send", out)
	}

	a, ok := findAction(name)
	if !ok {
		return fmt.Errorf("unknown shell command %q", name)
	}
	if err := a.check(args); err != nil {
		return err
	}
	return a.run(ctx, ctrl, m, args, out)
}
