package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gmvsync/internal/config"
	"github.com/JonMunkholm/gmvsync/internal/core"
	"github.com/JonMunkholm/gmvsync/internal/logging"
	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// Exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
	exitUsage   = 3
	exitStore   = 4
)

// exitError carries the process exit code of a failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps err to a process exit code.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, reconcile.ErrStructural) {
		return exitConfig
	}
	code := core.MapError(err).Code
	switch {
	case strings.HasPrefix(code, "CFG"):
		return exitConfig
	case strings.HasPrefix(code, "DB"):
		return exitStore
	default:
		return exitFailure
	}
}

type rootOptions struct {
	envFile string
	base    string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "gmvsync",
		Short:         "Import GMV organisation and personnel exports into the contact database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the configuration (overrides the environment)")
	cmd.PersistentFlags().StringVar(&opts.base, "base", "", "Base folder holding the import folders (overrides GMV_BASE_FOLDER)")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return withExit(exitUsage, err)
	})

	cmd.AddCommand(newRunCmd(&opts))
	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newFoldersCmd(&opts))
	return cmd
}

// Execute runs the CLI and exits with the mapped exit code on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if msg := core.FormatUserError(err); core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, msg)
		}
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(exitCode(err))
	}
}

// loadConfig loads the env file, the configuration and sets up logging.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	// Overload overwrites existing env vars
	if err := godotenv.Overload(opts.envFile); err != nil {
		if opts.envFile != ".env" || !errors.Is(err, os.ErrNotExist) {
			return nil, withExit(exitConfig, fmt.Errorf("load %s: %w", opts.envFile, err))
		}
		slog.Debug("no .env file found, using environment variables")
	}
	if opts.base != "" {
		os.Setenv("GMV_BASE_FOLDER", opts.base)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, withExit(exitConfig, err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// usageArgs wraps a cobra argument validator so that its failures exit
// with the usage code.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withExit(exitUsage, v(cmd, args))
	}
}
