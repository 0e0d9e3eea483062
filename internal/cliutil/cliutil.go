// Package cliutil holds the flag and exit handling shared by the commands.
package cliutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildinginthecloud/site/internal/logging"
	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// ErrFailed signals a failed run whose report was already printed. Execute
// exits with status 1 without printing it again.
var ErrFailed = errors.New("run failed")

// LogOptions are the logging flags of every command.
type LogOptions struct {
	Level  string
	Format string
}

// Register adds --log-level and --log-format to cmd.
func (o *LogOptions) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.Level, "log-level", "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&o.Format, "log-format", logging.FormatConsole, "log format: console or json")
}

// Logger builds the logger selected by the flags. Logs go to stderr.
func (o LogOptions) Logger() (*zap.Logger, error) {
	logger, err := logging.New(logging.Config{Level: o.Level, Format: o.Format})
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return logger, nil
}

// Environment returns the deployment stage named by args, defaulting to
// sitemeta.DefaultEnvironment.
func Environment(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return sitemeta.DefaultEnvironment, nil
	}
	env := args[0]
	if !sitemeta.ValidEnvironment(env) {
		return "", fmt.Errorf("invalid environment %q: must be one of %s", env, strings.Join(sitemeta.Environments, ", "))
	}
	return env, nil
}

// EnvironmentArg accepts an optional dev|prod positional argument.
func EnvironmentArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := Environment(args)
	return err
}

// RollbackNotice is printed by commands that accept --rollback without
// anything to roll back.
const RollbackNotice = "Nothing to roll back: use deploy --rollback to destroy the stack"

// AcceptRollback registers --rollback on a read-only command. The flag is
// accepted so the commands share one interface with deploy; Notify prints
// RollbackNotice when it was set.
func AcceptRollback(cmd *cobra.Command) *Rollback {
	r := &Rollback{}
	cmd.Flags().BoolVar(&r.set, "rollback", false, "no-op, use deploy --rollback")
	return r
}

// Rollback records a --rollback flag registered by AcceptRollback.
type Rollback struct {
	set bool
}

// Notify writes RollbackNotice to w if --rollback was given and reports
// whether it was.
func (r *Rollback) Notify(w io.Writer) bool {
	if r.set {
		fmt.Fprintln(w, RollbackNotice)
	}
	return r.set
}

// Execute runs cmd with a context cancelled on SIGINT or SIGTERM and exits
// with status 1 on error.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cmd, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
