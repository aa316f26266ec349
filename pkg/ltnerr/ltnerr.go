// Package ltnerr defines the structured error kinds returned across the
// module's external interfaces (spec §7).
package ltnerr

import "fmt"

// Kind enumerates the error kinds a caller can dispatch on.
type Kind string

const (
	MalformedInput     Kind = "malformed_input"
	OutOfBounds        Kind = "out_of_bounds"
	NoRoadNearby       Kind = "no_road_nearby"
	AlreadyFiltered    Kind = "already_filtered"
	NotInteriorRoad    Kind = "not_interior_road"
	Unroutable         Kind = "unroutable"
	InvalidIntersection Kind = "invalid_intersection"
	JournalEmpty       Kind = "journal_empty"
	ReentrantEdit      Kind = "reentrant_edit"
	Internal           Kind = "internal"
)

// Error is the typed error returned at module boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ltnerr.New(kind, "")) to match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error that also carries an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Of returns a sentinel of the given kind, suitable for errors.Is comparison.
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
