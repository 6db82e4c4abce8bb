// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that can leave the pipeline carries a Kind so the CLI can decide
// between aborting the run and reporting the problem while still exiting cleanly.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConfigInvalid indicates a configuration value could not be parsed or is missing.
	ConfigInvalid Kind = "config_invalid"
	// ConnectFailed indicates the database could not be reached.
	ConnectFailed Kind = "connect_failed"
	// IntrospectFailed indicates the catalog queries failed.
	IntrospectFailed Kind = "introspect_failed"
	// ExecFailed indicates the generated statement was rejected by the database.
	ExecFailed Kind = "exec_failed"
	// EmptyQuery indicates no statement was produced for the question.
	EmptyQuery Kind = "empty_query"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
