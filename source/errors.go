package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSource is the category of every extraction failure.
var ErrSource = errors.New("source error")

// UnreadableSourceError reports a file that could not be read or parsed.
type UnreadableSourceError struct {
	Ref FileRef
	Err error
}

func (e *UnreadableSourceError) Error() string {
	return fmt.Sprintf("unreadable source %s: %v", e.Ref, e.Err)
}

func (e *UnreadableSourceError) Unwrap() error { return e.Err }

// Is matches ErrSource.
func (e *UnreadableSourceError) Is(target error) bool { return target == ErrSource }

// IncompleteRecordError reports required keys missing from an otherwise
// usable record. It is not fatal: the partial record is returned with it.
type IncompleteRecordError struct {
	Ref     FileRef
	Missing []Key
}

func (e *IncompleteRecordError) Error() string {
	names := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		names[i] = k.String()
	}
	return fmt.Sprintf("incomplete record %s: missing %s", e.Ref, strings.Join(names, ", "))
}

// Is matches ErrSource.
func (e *IncompleteRecordError) Is(target error) bool { return target == ErrSource }
