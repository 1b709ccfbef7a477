// Package errutil implements the Wrap and Wrapf functions from
// github.com/pkg/errors by using fmt.Errorf, and a List type that collects
// several independent errors, such as the problems found while validating an
// application file.
package errutil

import (
	"fmt"
	"strings"
)

// Wrap annotates `err` with the provided `msg`. It always returns a non-empty
// error that is not nil, even when err is nil or msg is empty.
func Wrap(err error, msg string) error {
	if msg == "" {
		msg = "<wrapped error with no message>"
	}

	if err == nil {
		return fmt.Errorf("%s: <nil error>", msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf annotates `err` with the provided format string and arguments.
func Wrapf(err error, f string, args ...any) error {
	return Wrap(err, fmt.Sprintf(f, args...))
}

// List is an ordered collection of errors. The zero value is ready to use.
type List struct {
	errs []error
}

// Add appends err to the list. Nil errors are ignored.
func (l *List) Add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Addf appends a formatted error to the list.
func (l *List) Addf(f string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(f, args...))
}

// Len returns the number of collected errors.
func (l *List) Len() int { return len(l.errs) }

// Errors returns the collected errors.
func (l *List) Errors() []error { return l.errs }

// Err returns nil if the list is empty, the only error if there is one,
// or the list itself otherwise.
func (l *List) Err() error {
	switch len(l.errs) {
	case 0:
		return nil
	case 1:
		return l.errs[0]
	}
	return l
}

func (l *List) Error() string {
	lines := make([]string, 0, len(l.errs)+1)
	lines = append(lines, fmt.Sprintf("%d errors:", len(l.errs)))
	for _, err := range l.errs {
		lines = append(lines, "  - "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap makes errors.Is and errors.As look into every collected error.
func (l *List) Unwrap() []error { return l.errs }
