package groupkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for GroupKit operations. They form the whole error taxonomy
// of the core: every operation failure unwraps to exactly one of them, so
// upstream layers can map them to transport-specific codes without GroupKit
// translating or wrapping anything on the way out.
var (
	// ErrNotFound is returned when a group, user or membership edge is absent.
	ErrNotFound = errors.New("groupkit: not found")

	// ErrForbidden is returned when the acting principal may not read or
	// mutate the target group's membership.
	ErrForbidden = errors.New("groupkit: forbidden")

	// ErrBadRequest is returned for malformed or self-referential input.
	ErrBadRequest = errors.New("groupkit: bad request")

	// ErrConflict is returned when the mutation would violate a graph
	// invariant: duplicate edge, containment cycle, or privacy nesting.
	ErrConflict = errors.New("groupkit: conflict")

	// ErrDatabaseError is returned when a store operation fails.
	ErrDatabaseError = errors.New("groupkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err      error  // Underlying sentinel error
	Message  string // Additional context
	GroupID  string // Group involved (if applicable)
	MemberID string // Member involved (if applicable)
	ActorID  string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithGroup adds group information to the error.
func (e *Error) WithGroup(groupID string) *Error {
	e.GroupID = groupID
	return e
}

// WithMember adds member information to the error.
func (e *Error) WithMember(memberID string) *Error {
	e.MemberID = memberID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsNotFound checks if an error reports an absent group, user or edge.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if an error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsBadRequest checks if an error is due to malformed input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsConflict checks if an error is a graph-invariant violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
