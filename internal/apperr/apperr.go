// Package apperr defines the error types shared by the quest, feedback and
// player services. Handlers map them to HTTP statuses and short messages;
// wrapped causes are logged, never shown to callers.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError: input rejected before any write happened.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError: the referenced document does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

// AlreadyCompletedError: approval requested for a completed quest.
type AlreadyCompletedError struct {
	QuestID string
}

func (e AlreadyCompletedError) Error() string {
	return fmt.Sprintf("quest %q already completed", e.QuestID)
}

// InvalidStateError: the requested transition is not allowed from the
// document's current state.
type InvalidStateError struct {
	Kind  string
	ID    string
	State string
	Op    string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %q in state %s", e.Op, e.Kind, e.ID, e.State)
}

// PlayerResolutionError: an assignment string matched no player by id,
// email or name.
type PlayerResolutionError struct {
	Ref string
}

func (e PlayerResolutionError) Error() string {
	return fmt.Sprintf("no player matches %q", e.Ref)
}

// ForbiddenError: the caller does not own the resource.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Reason
}

// PersistenceError: the document store failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store error op=%s", e.Op)
	}
	return fmt.Sprintf("store error op=%s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// Store wraps err as a PersistenceError unless it already is a domain error.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return PersistenceError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the typed errors above other than
// PersistenceError.
func IsDomain(err error) bool {
	var (
		ve ValidationError
		nf NotFoundError
		ac AlreadyCompletedError
		is InvalidStateError
		pr PlayerResolutionError
		fb ForbiddenError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ac) ||
		errors.As(err, &is) || errors.As(err, &pr) || errors.As(err, &fb)
}

// Message returns the text shown to an operator for err.
func Message(err error) string {
	var (
		ve ValidationError
		nf NotFoundError
		ac AlreadyCompletedError
		is InvalidStateError
		pr PlayerResolutionError
		fb ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &nf):
		return nf.Kind + " not found"
	case errors.As(err, &ac):
		return "quest already completed"
	case errors.As(err, &is):
		return fmt.Sprintf("%s is %s", is.Kind, is.State)
	case errors.As(err, &pr):
		return "player not found for assignment"
	case errors.As(err, &fb):
		return "not allowed"
	default:
		return "internal error"
	}
}
