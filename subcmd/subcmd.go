// Package subcmd runs the subcommands of a command line tool.
package subcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/platformbuild/pbuild/errutil"
)

// Env holds the environment variables a command sees. Commands read it
// instead of the process environment, so tests can set their own.
type Env struct {
	Env map[string]string
}

// NewEnv makes an environment out of "key=value" pairs, as returned by
// os.Environ.
func NewEnv(environ []string) *Env {
	m := make(map[string]string, len(environ))
	for _, e := range environ {
		k, v, _ := strings.Cut(e, "=")
		m[k] = v
	}
	return &Env{Env: m}
}

// Get returns the value of the variable, or an empty string if it is not
// set.
func (e *Env) Get(key string) string { return e.Env[key] }

// Lookup returns the value of the variable, and false if it is not set.
func (e *Env) Lookup(key string) (string, bool) {
	v, ok := e.Env[key]
	return v, ok
}

// Subcmd is one subcommand.
type Subcmd struct {
	Name string // Name of the sub command.
	Help string // Single line help string.

	// Run runs the command with the arguments after its name.
	Run func(name string, args []string, env *Env) error
}

func printHelp(w io.Writer, subs []*Subcmd) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Help)
	}
	tw.Flush()
}

var (
	ErrInvalidFormat  = errors.New("invalid format")
	ErrUnknownCommand = errors.New("unknown subcommand")
)

// ExitError is an error that asks for a specific exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code for the error a command returned: 0 for
// nil, the code of an ExitError, 1 for any other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// RunMain runs the subcommand named by args[1] with the given environment.
// A nil args means os.Args, and a nil env means the process environment.
func RunMain(env *Env, subs []*Subcmd, args []string) error {
	if args == nil {
		args = os.Args
	}
	if env == nil {
		env = NewEnv(os.Environ())
	}

	if len(args) == 0 {
		return errutil.Wrap(ErrInvalidFormat, "no args found")
	}
	if len(args) <= 1 {
		printHelp(os.Stderr, subs)
		return errutil.Wrap(ErrInvalidFormat, "need a subcommand")
	}

	sub := args[1]
	for _, cmd := range subs {
		if cmd.Name == sub {
			return cmd.Run(sub, args[2:], env)
		}
	}

	switch sub {
	case "help", "-h", "-help", "--help":
		printHelp(os.Stdout, subs)
		return nil
	}

	printHelp(os.Stderr, subs)
	return fmt.Errorf("%w: %q", ErrUnknownCommand, sub)
}
