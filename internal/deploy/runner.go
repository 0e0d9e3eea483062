package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	Dir string
}

// String renders the command line.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands.
type Runner interface {
	// Run executes c with its output streamed to the user.
	Run(ctx context.Context, c Command) error
	// Output executes c and returns its trimmed standard output.
	Output(ctx context.Context, c Command) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	//nolint:gosec // G204: commands are built from fixed program names and validated config
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := r.command(ctx, c)
	cmd.Stdout = orDefault(r.Stdout, os.Stdout)
	cmd.Stderr = orDefault(r.Stderr, os.Stderr)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// Output implements Runner.
func (r ExecRunner) Output(ctx context.Context, c Command) (string, error) {
	var stderr bytes.Buffer
	cmd := r.command(ctx, c)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func orDefault(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

// dryRunner prints commands instead of running them. Read-only commands
// executed through Output still run.
type dryRunner struct {
	next Runner
	out  io.Writer
}

// DryRun wraps next so that Run only prints what would be executed.
func DryRun(next Runner, out io.Writer) Runner {
	return dryRunner{next: next, out: out}
}

func (r dryRunner) Run(_ context.Context, c Command) error {
	fmt.Fprintf(r.out, "[DRY RUN] Would run: %s\n", c)
	return nil
}

func (r dryRunner) Output(ctx context.Context, c Command) (string, error) {
	return r.next.Output(ctx, c)
}
