// Package procdrv runs the external tools that fetch, build, install and
// test products.
package procdrv

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is added to the environment of the current process. Later
	// entries override earlier ones.
	Env []string

	// Stdout receives both stdout and stderr of Run. Nil means os.Stdout.
	Stdout io.Writer
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs commands.
type Runner interface {
	// Run runs the command to completion and returns its exit code. The
	// error is only set when the command could not run at all, or was
	// stopped by the context.
	Run(ctx context.Context, cmd *Command) (int, error)

	// Output runs the command and returns its stdout. A non-zero exit is
	// an error.
	Output(ctx context.Context, cmd *Command) (string, error)
}

// ExecRunner runs commands as subprocesses.
type ExecRunner struct{}

func (r *ExecRunner) cmd(ctx context.Context, c *Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

// Run runs the command as a subprocess.
func (r *ExecRunner) Run(ctx context.Context, c *Command) (int, error) {
	cmd := r.cmd(ctx, c)
	out := c.Stdout
	if out == nil {
		out = os.Stdout
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		exitErr := new(exec.ExitError)
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// Output runs the command as a subprocess and returns its stdout.
func (r *ExecRunner) Output(ctx context.Context, c *Command) (string, error) {
	cmd := r.cmd(ctx, c)
	buf := new(bytes.Buffer)
	cmd.Stdout = buf
	if c.Stdout != nil {
		cmd.Stderr = c.Stdout
	}
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
