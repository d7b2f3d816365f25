package ide

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrIO matches IOError.
var ErrIO = errors.New("io failure")

// IO is the boundary through which the executor touches the outside world.
type IO interface {
	// OpenOutput creates or truncates path for writing. overwrite=false
	// asks the implementation to keep an existing file.
	OpenOutput(path string, overwrite bool) (io.WriteCloser, error)
	// StartProcess launches args[0] with the remaining args in dir. The
	// executor neither waits for nor reads from the process.
	StartProcess(ctx context.Context, cmd Command, dir string, interactive bool, args []string) error
	// ReportError surfaces a failed execution. It is called at most once
	// per execution.
	ReportError(cmd Command, err error)
}

// IOError wraps a failure raised by the IO boundary.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ide: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ide: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
