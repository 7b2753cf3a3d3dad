package classpath

import (
	"errors"
	"fmt"
)

var (
	// ErrNestingTooDeep indicates a nested archive chain exceeded the configured depth.
	ErrNestingTooDeep = errors.New("nested archive depth exceeded")

	// ErrEntryConsumed indicates the current entry of a sequential cursor was already opened.
	ErrEntryConsumed = errors.New("archive entry already consumed")

	// ErrNoCurrentEntry indicates Open was called before Next.
	ErrNoCurrentEntry = errors.New("no current archive entry")
)

// ScanError is the fatal error returned by Scan. It wraps the first
// unrecoverable cause together with the operation and location that failed.
type ScanError struct {
	Op   string // e.g. "open", "read", "process"
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("classpath scan failed: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// fatal wraps err as a *ScanError unless it already is one.
func fatal(op, path string, err error) error {
	var se *ScanError
	if errors.As(err, &se) {
		return err
	}
	return &ScanError{Op: op, Path: path, Err: err}
}
