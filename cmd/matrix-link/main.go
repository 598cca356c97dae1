// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrix-link/lib/config"
	"github.com/bureau-foundation/matrix-link/lib/relay"
	"github.com/bureau-foundation/matrix-link/lib/version"
	"github.com/bureau-foundation/matrix-link/messaging"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command-line flags.
type options struct {
	configPaths []string
	fromEnv     bool
	timeout     time.Duration
	verbose     bool
	showVersion bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flags := pflag.NewFlagSet("matrix-link", pflag.ContinueOnError)
	flags.StringArrayVar(&opts.configPaths, "config", nil,
		"config file to probe, repeatable; replaces the default search list")
	flags.BoolVar(&opts.fromEnv, "env", false,
		"read matrix_username, matrix_password, matrix_host and matrix_room_name from the environment instead of a file")
	flags.DurationVar(&opts.timeout, "timeout", 0, "deadline for the whole run, e.g. 30s (0 means none)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request at debug level")
	flags.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flags.SortFlags = false
	return flags
}

// usageError is a problem with the command line. run prints it with the
// usage text and exits with exitUsage.
type usageError struct {
	message string
}

func (e *usageError) Error() string {
	return e.message
}

// run parses args, sends the message, and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := newFlagSet(&opts)
	flags.SetOutput(io.Discard)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flags)
			return exitSuccess
		}
		return reportUsage(stderr, flags, err)
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "matrix-link %s\n", version.Info())
		return exitSuccess
	}

	err := execute(opts, flags.Args(), stderr)
	var usageErr *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &usageErr):
		return reportUsage(stderr, flags, err)
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
}

func reportUsage(stderr io.Writer, flags *pflag.FlagSet, err error) int {
	fmt.Fprintf(stderr, "error: %v\n\n", err)
	printUsage(stderr, flags)
	return exitUsage
}

func execute(opts options, positional []string, stderr io.Writer) error {
	switch {
	case len(positional) == 0:
		return &usageError{"the message argument is required"}
	case len(positional) > 1:
		return &usageError{fmt.Sprintf("expected exactly one message argument, got %d (quote the message)", len(positional))}
	case positional[0] == "":
		return &usageError{"the message must not be empty"}
	}
	if opts.fromEnv && len(opts.configPaths) > 0 {
		return &usageError{"--env and --config are mutually exclusive"}
	}
	message := positional[0]

	logger := newLogger(stderr, opts.verbose)

	var cfg config.Config
	var err error
	if opts.fromEnv {
		cfg, err = config.LoadEnvironment()
	} else {
		cfg, err = config.Load(opts.configPaths)
	}
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", "config", cfg, "from_env", opts.fromEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.ServerURL,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create matrix client: %w", err)
	}

	receipt, err := relay.Send(ctx, relay.Params{
		Client:  client,
		Config:  cfg,
		Message: message,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Debug("run complete",
		"user_id", receipt.UserID,
		"room_id", receipt.RoomID,
		"event_id", receipt.EventID,
	)
	return nil
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: matrix-link [flags] <message>

Logs in to the configured Matrix homeserver, joins the configured room,
sends <message> as an m.text event, and logs out.

Configuration is read from the first existing file among:
  %s
or, with --env, from the matrix_* environment variables.

Flags:
%s`, strings.Join(config.DefaultPaths, "\n  "), flags.FlagUsages())
}
