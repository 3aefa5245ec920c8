package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGraphValidation is the category of every assembly validation failure.
var ErrGraphValidation = errors.New("graph validation failed")

// DanglingReferenceError reports a reference to an entity missing from the graph.
type DanglingReferenceError struct {
	Subject   string
	Predicate string
	Missing   string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference %s from <%s> <%s>", e.Missing, e.Subject, e.Predicate)
}

// Is matches ErrGraphValidation.
func (e *DanglingReferenceError) Is(target error) bool { return target == ErrGraphValidation }

// IncompleteEntityError reports a dataset missing required statements.
type IncompleteEntityError struct {
	Subject string
	Missing []string
}

func (e *IncompleteEntityError) Error() string {
	return fmt.Sprintf("incomplete entity %s: missing %s", e.Subject, strings.Join(e.Missing, ", "))
}

// Is matches ErrGraphValidation.
func (e *IncompleteEntityError) Is(target error) bool { return target == ErrGraphValidation }
