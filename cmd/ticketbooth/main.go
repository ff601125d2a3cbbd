// Command ticketbooth browses events and books tickets against a
// Ticketbooth API.  Configuration comes from the environment (see .env).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/iliyamo/ticketbooth/internal/booking"
	"github.com/iliyamo/ticketbooth/internal/config"
	"github.com/iliyamo/ticketbooth/internal/logging"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitConflict = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line; args[0] is the program name.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newCLI(stdout, stderr).RunContext(ctx, args)
	if err == nil {
		return exitOK
	}
	code := exitError
	var (
		exit     cli.ExitCoder
		missing  cli.RequiredFlagsErr
		conflict *booking.ConflictError
	)
	switch {
	case errors.As(err, &conflict):
		code = exitConflict
	case errors.As(err, &missing):
		code = exitUsage
	case errors.As(err, &exit):
		code = exit.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(stderr, "ticketbooth: %s\n", msg)
	}
	return code
}

// runner carries the collaborators built by the Before hook of the
// running command.
type runner struct {
	out io.Writer
	app *app
}

func (s *runner) setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(c.App.ErrWriter, cfg.Env, cfg.LogLevel)
	a, err := newApp(c.Context, cfg, log, s.out)
	if err != nil {
		return err
	}
	s.app = a
	return nil
}

func (s *runner) teardown(*cli.Context) error {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
	return nil
}

// action adapts a command body to cli.ActionFunc.
func (s *runner) action(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error { return fn(c, s.app) }
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit(err.Error(), exitUsage)
}

func newCLI(stdout, stderr io.Writer) *cli.App {
	s := &runner{out: stdout}
	cmds := commands(s)
	for _, cmd := range cmds {
		cmd.Before = s.setup
		cmd.After = s.teardown
		cmd.OnUsageError = usageError
	}
	return &cli.App{
		Name:           "ticketbooth",
		Usage:          "browse events and book tickets",
		Writer:         stdout,
		ErrWriter:      stderr,
		Commands:       cmds,
		OnUsageError:   usageError,
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return cli.Exit(fmt.Sprintf("unknown command %q", c.Args().First()), exitUsage)
			}
			_ = cli.ShowAppHelp(c)
			return cli.Exit("", exitUsage)
		},
	}
}
