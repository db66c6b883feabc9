package booking

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable means the record store could not be reached. The core
// never retries it; callers decide.
var ErrStoreUnavailable = errors.New("record store unavailable")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError names the range that collided with the request. When the
// database rejected the write without telling us which hold won, Range is
// the requested range.
type ConflictError struct {
	RoomTypeID string
	Range      DateRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is not available for %s", e.RoomTypeID, e.Range)
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reservation %s not found", e.ID)
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}
