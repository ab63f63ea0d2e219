// Package interactive provides the interactive command-line interface
// for airctrl.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/airctrl-protocol/airctrl-go/pkg/client"
	"github.com/airctrl-protocol/airctrl-go/pkg/control"
	"github.com/airctrl-protocol/airctrl-go/pkg/coordinator"
	"github.com/airctrl-protocol/airctrl-go/pkg/inspect"
	"github.com/airctrl-protocol/airctrl-go/pkg/model"
)

// commandTimeout bounds each device write issued from the prompt.
const commandTimeout = 30 * time.Second

// Shell handles interactive mode for airctrl.
type Shell struct {
	co        *coordinator.Coordinator
	modelID   string
	logger    *slog.Logger
	rl        *readline.Instance
	formatter *inspect.Formatter

	humidifier *control.Humidifier
	buttons    []*control.FilterResetButton

	unwatch func()
}

// New creates a new interactive shell. modelID is optional: without it
// the filter and humidifier commands are unavailable.
func New(co *coordinator.Coordinator, modelID string, logger *slog.Logger) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "airctrl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := &Shell{
		co:        co,
		modelID:   modelID,
		logger:    logger,
		rl:        rl,
		formatter: inspect.NewFormatter(),
	}

	if modelID != "" {
		s.buttons, err = control.NewFilterResetButtons(co, modelID, nil, logger)
		if err != nil && !errors.Is(err, control.ErrUnsupportedModel) {
			rl.Close()
			return nil, err
		}

		s.humidifier, err = control.NewHumidifier(co, modelID, nil, logger)
		if err != nil && !errors.Is(err, control.ErrUnsupportedModel) {
			rl.Close()
			return nil, err
		}
	}

	return s, nil
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.stopWatch()

	if c, ok := s.co.Client().(*client.Client); ok {
		fmt.Fprintf(s.rl.Stdout(), "Connected to %s (connection %s)\n", c.Host(), c.ID())
	}
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "status", "s":
			s.cmdStatus()

		case "get", "g":
			s.cmdGet(args)

		case "set", "w":
			s.cmdSet(ctx, args)

		case "watch":
			s.cmdWatch()

		case "unwatch":
			s.stopWatch()

		case "filters", "f":
			s.cmdFilters()

		case "reset":
			s.cmdReset(ctx, args)

		case "humidity":
			s.cmdHumidity(ctx, args)

		case "on":
			s.cmdHumidifierPower(ctx, true)

		case "off":
			s.cmdHumidifierPower(ctx, false)

		case "reconnect":
			s.co.Reconnect()
			fmt.Fprintln(s.rl.Stdout(), "Reconnect requested")

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
airctrl Commands:
  Status:
    status                 - Print the latest status snapshot
    get <key>              - Print one status attribute
    watch                  - Print every status update as it arrives
    unwatch                - Stop printing updates

  Control:
    set <key> <value>      - Write a control value
    reconnect              - Force a connection rebuild

  Filters (requires -model):
    filters                - Show filter lifetimes
    reset <filter-key>     - Reset a filter after replacement

  Humidifier (requires a 2-in-1 -model):
    humidity <percent>     - Set the target humidity
    on                     - Switch humidification on
    off                    - Switch humidification off

  General:
    help                   - Show this help
    quit                   - Exit`)
}

func (s *Shell) cmdStatus() {
	st := s.co.Status()
	if st == nil {
		fmt.Fprintln(s.rl.Stdout(), "No status yet")
		return
	}

	fmt.Fprintln(s.rl.Stdout(), s.formatter.FormatStatus(st))
}

func (s *Shell) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: get <key>")
		return
	}

	st := s.co.Status()
	if st == nil {
		fmt.Fprintln(s.rl.Stdout(), "No status yet")
		return
	}

	value, ok := st[args[0]]
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "No attribute %q\n", args[0])
		return
	}
	fmt.Fprintln(s.rl.Stdout(), s.formatter.FormatValue(args[0], value))
}

func (s *Shell) cmdSet(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: set <key> <value>")
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()

	if err := s.co.Client().SetControlValue(ctx, args[0], parseValue(args[1])); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s = %s\n", args[0], args[1])
}

func (s *Shell) cmdWatch() {
	if s.unwatch != nil {
		fmt.Fprintln(s.rl.Stdout(), "Already watching")
		return
	}

	s.unwatch = s.co.AddListener(func() {
		out, err := json.Marshal(s.co.Status())
		if err != nil {
			return
		}
		fmt.Fprintf(s.rl.Stdout(), "[UPDATE] %s\n", out)
	})
	fmt.Fprintln(s.rl.Stdout(), "Watching for updates (unwatch to stop)")
}

func (s *Shell) stopWatch() {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
}

func (s *Shell) cmdFilters() {
	if len(s.buttons) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No filter information (set -model, and check the device reports filters)")
		return
	}

	for _, b := range s.buttons {
		remaining, ok := b.Remaining()
		if !ok {
			fmt.Fprintf(s.rl.Stdout(), "  %-24s unknown\n", b.Label())
			continue
		}
		fmt.Fprintf(s.rl.Stdout(), "  %-24s %d hours left (%s)\n", b.Label(), remaining, b.Filter())
	}
}

func (s *Shell) cmdReset(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: reset <filter-key> (see 'filters')")
		return
	}

	for _, b := range s.buttons {
		if string(b.Filter()) != args[0] {
			continue
		}

		ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
		defer cancelCmd()

		if err := b.Press(ctx); err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Reset failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.rl.Stdout(), "%s reset\n", b.Label())
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "No filter %q\n", args[0])
}

func (s *Shell) cmdHumidity(ctx context.Context, args []string) {
	if s.humidifier == nil {
		s.printNoHumidifier()
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: humidity <percent>")
		return
	}

	percent, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Not a number: %s\n", args[0])
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()

	if err := s.humidifier.SetTargetHumidity(ctx, percent); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Target humidity %d%%\n", percent)
}

func (s *Shell) cmdHumidifierPower(ctx context.Context, on bool) {
	if s.humidifier == nil {
		s.printNoHumidifier()
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()

	var err error
	if on {
		err = s.humidifier.TurnOn(ctx)
	} else {
		err = s.humidifier.TurnOff(ctx)
	}
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Failed: %v\n", err)
		return
	}

	if on {
		fmt.Fprintln(s.rl.Stdout(), "Humidification on")
	} else {
		fmt.Fprintln(s.rl.Stdout(), "Humidification off")
	}
}

func (s *Shell) printNoHumidifier() {
	if s.modelID == "" {
		fmt.Fprintln(s.rl.Stdout(), "Set -model to enable humidifier commands")
		return
	}
	if caps, ok := model.Lookup(s.modelID); ok && caps.Humidifier == nil {
		fmt.Fprintf(s.rl.Stdout(), "%s has no humidifier\n", s.modelID)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Humidifier unavailable")
}

// parseValue maps a CLI string to the JSON value the device expects.
func parseValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}
