package query

import (
	"errors"
	"fmt"
	"time"
)

// ErrQuery matches every query failure. Queries never change store state.
var ErrQuery = errors.New("query error")

// MalformedQueryError reports a syntactically invalid pattern query.
type MalformedQueryError struct {
	Line, Column int
	Msg          string
}

func (e *MalformedQueryError) Error() string {
	if e.Line == 0 {
		return "malformed query: " + e.Msg
	}
	return fmt.Sprintf("malformed query at %d:%d: %s", e.Line, e.Column, e.Msg)
}

// Is makes MalformedQueryError match ErrQuery.
func (e *MalformedQueryError) Is(target error) bool { return target == ErrQuery }

// QueryTimeoutError reports a query that exceeded the evaluation bound.
type QueryTimeoutError struct {
	Timeout time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query exceeded %s", e.Timeout)
}

// Is makes QueryTimeoutError match ErrQuery.
func (e *QueryTimeoutError) Is(target error) bool { return target == ErrQuery }

// InvalidPageError reports bad pagination parameters.
type InvalidPageError struct {
	Offset, Limit int
	Reason        string
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("invalid page offset=%d limit=%d: %s", e.Offset, e.Limit, e.Reason)
}

// Is makes InvalidPageError match ErrQuery.
func (e *InvalidPageError) Is(target error) bool { return target == ErrQuery }
