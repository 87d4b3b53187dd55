package monitor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
)

// SensorRunner produces the raw text of one sensor tool invocation.
type SensorRunner interface {
	Run(ctx context.Context) (string, error)
}

// CommandRunner runs an external command and captures its standard output.
// Standard error is discarded. A spawn failure, non-zero exit or timeout is
// the only failure signal.
type CommandRunner struct {
	Name    string
	Args    []string
	Timeout time.Duration // zero means no timeout beyond ctx
}

// NewCommandRunner returns a runner for name with args.
func NewCommandRunner(timeout time.Duration, name string, args ...string) *CommandRunner {
	return &CommandRunner{Name: name, Args: args, Timeout: timeout}
}

// Run executes the command and returns its standard output.
func (r *CommandRunner) Run(ctx context.Context) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.WrapWithCode(ctx.Err(), errors.ErrExec,
				fmt.Sprintf("%s timed out after %s", r.Name, r.Timeout),
				"The tool may be hung on a sensor. Try raising the timeout in amdtop.yaml.")
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("%s exited with code %d", r.Name, exitErr.ExitCode()),
				"Run it by hand to see its error output.")
		}
		return "", errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Couldn't run %s", r.Name),
			"Make sure the command exists and is executable.")
	}

	return stdout.String(), nil
}

// LookPathCheck returns a capability check that passes when name resolves
// on PATH.
func LookPathCheck(name string) CheckFunc {
	return func(context.Context) error {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found in PATH", name)
		}
		return nil
	}
}
