package domain

import (
	"fmt"

	"serrupro_backend/platform/apperr"
)

// ErrIllegalTransition builds the conflict returned when a transition is not
// permitted from the current state. The request state is left untouched.
func ErrIllegalTransition(from, to Status) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("transition %s → %s is not permitted", from, to)).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

// ErrUnauthorizedTransition builds the error returned when the edge exists
// but the actor may not drive it.
func ErrUnauthorizedTransition(from, to Status, actor Actor) *apperr.Error {
	return apperr.Forbidden(fmt.Sprintf("%s may not perform transition %s → %s", actor, from, to))
}

// IsIllegalTransition reports whether err is a transition conflict.
func IsIllegalTransition(err error) bool {
	return apperr.Is(err, apperr.KindConflict)
}
