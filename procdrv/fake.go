package procdrv

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// FakeRunner is a Runner for tests. It records every command and answers
// with scripted results, matched on the command line's prefix.
type FakeRunner struct {
	// Calls are the command lines run so far.
	Calls []string

	// Codes maps a command line prefix to the exit code of matching
	// commands. Commands that match nothing exit with 0.
	Codes map[string]int

	// Outputs maps a command line prefix to the stdout of Output.
	Outputs map[string]string

	// Hooks run when a matching command runs, before it exits, for
	// example to create the install directory the way make install would.
	Hooks map[string]func(cmd *Command) error
}

// NewFakeRunner makes an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Codes:   make(map[string]int),
		Outputs: make(map[string]string),
		Hooks:   make(map[string]func(cmd *Command) error),
	}
}

// match finds the value of the longest prefix of line in m.
func match[T any](m map[string]T, line string) (T, bool) {
	var found T
	best := -1
	for prefix, v := range m {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			found, best = v, len(prefix)
		}
	}
	return found, best >= 0
}

func (r *FakeRunner) call(c *Command) (string, error) {
	line := c.String()
	r.Calls = append(r.Calls, line)
	if hook, ok := match(r.Hooks, line); ok {
		if err := hook(c); err != nil {
			return line, fmt.Errorf("hook of %q: %w", line, err)
		}
	}
	return line, nil
}

// Run records the command and returns its scripted exit code.
func (r *FakeRunner) Run(_ context.Context, c *Command) (int, error) {
	line, err := r.call(c)
	if err != nil {
		return -1, err
	}
	if c.Stdout != nil {
		io.WriteString(c.Stdout, line+"\n")
	}
	code, _ := match(r.Codes, line)
	return code, nil
}

// Output records the command and returns its scripted output.
func (r *FakeRunner) Output(_ context.Context, c *Command) (string, error) {
	line, err := r.call(c)
	if err != nil {
		return "", err
	}
	if code, _ := match(r.Codes, line); code != 0 {
		return "", fmt.Errorf("%q exited with %d", line, code)
	}
	out, _ := match(r.Outputs, line)
	return out, nil
}

// Ran reports whether a command line starting with prefix was run.
func (r *FakeRunner) Ran(prefix string) bool {
	for _, line := range r.Calls {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
