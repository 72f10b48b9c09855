package engine

import (
	"errors"
	"fmt"
)

// ErrEngineStopped is returned by host calls once the Run loop has exited.
var ErrEngineStopped = errors.New("playback engine stopped")

// GuardCode categorizes a start request that was ignored or adjusted.
type GuardCode string

const (
	// GuardNotReady: media sources have not all signaled readiness. Retriable.
	GuardNotReady GuardCode = "NOT_READY"

	// GuardEmptyPlan: the enabled commands compile to an empty plan.
	GuardEmptyPlan GuardCode = "EMPTY_PLAN"

	// GuardInvalidResumeTarget: the resume point was negative or at/past the
	// plan end. Playback restarts from 0.
	GuardInvalidResumeTarget GuardCode = "INVALID_RESUME_TARGET"

	// GuardAlreadyPlaying: start while playing is a no-op.
	GuardAlreadyPlaying GuardCode = "ALREADY_PLAYING"

	// GuardDegenerateCommand: a command with no positive duration was skipped.
	GuardDegenerateCommand GuardCode = "DEGENERATE_COMMAND"
)

// GuardError describes a guard condition on a start request.
//
// Guards are never returned as Go errors from host calls; they are carried
// in Outcome and forwarded to the Notifier. GuardError implements error so
// callers can use errors.As and the Is* helpers on Outcome.Err().
type GuardError struct {
	Code    GuardCode
	Message string
}

// Error implements the error interface.
func (e *GuardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasGuard(err error, code GuardCode) bool {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsNotReady returns true if the error is a NOT_READY guard.
// Uses errors.As to handle wrapped errors.
func IsNotReady(err error) bool {
	return hasGuard(err, GuardNotReady)
}

// IsEmptyPlan returns true if the error is an EMPTY_PLAN guard.
func IsEmptyPlan(err error) bool {
	return hasGuard(err, GuardEmptyPlan)
}

// IsAlreadyPlaying returns true if the error is an ALREADY_PLAYING guard.
func IsAlreadyPlaying(err error) bool {
	return hasGuard(err, GuardAlreadyPlaying)
}
