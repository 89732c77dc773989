package services

import (
	"errors"
	"fmt"
)

// Terminal validation/admission failures are reported to the caller and
// never retried. Conflict errors are idempotent no-ops, not exceptions.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrQuestNotFound       = errors.New("quest not found")
	ErrAlreadyCheckedIn    = errors.New("already checked in at this location")
	ErrQuestNotCompleted   = errors.New("quest is not completed yet")
	ErrQuestAlreadyClaimed = errors.New("quest reward already claimed")
	ErrQuestExpired        = errors.New("quest has expired")
	ErrUsernameTaken       = errors.New("username already taken")

	// ErrPersistenceConflict marks a transient storage conflict; the engine
	// retries it a bounded number of times before surfacing a failure.
	ErrPersistenceConflict = errors.New("storage conflict")
)

// OutOfRangeError rejects a check-in attempt made too far from the
// location. Not an exceptional condition — the caller shows the measured
// distance to the user.
type OutOfRangeError struct {
	DistanceKm  float64
	ThresholdKm float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("out of range: %.0f m away, must be within %.0f m",
		e.DistanceKm*1000, e.ThresholdKm*1000)
}
