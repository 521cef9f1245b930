package task

import "errors"

// Sentinel errors surfaced at the submission and transition boundaries.
// Using sentinel variables allows callers to reliably detect error
// conditions via errors.Is instead of brittle string comparisons.

var (
	// ErrValidation indicates malformed task attributes – the submission is
	// rejected and no task is created.
	ErrValidation = errors.New("task: invalid attributes")

	// ErrDuplicateSource indicates the source reference already maps to a
	// non-rejected task.
	ErrDuplicateSource = errors.New("task: duplicate source reference")

	// ErrInvalidTransition indicates an illegal state transition attempt;
	// no mutation takes place.
	ErrInvalidTransition = errors.New("task: invalid state transition")

	// ErrTerminalState indicates an attempt to move a task out of a
	// terminal state.
	ErrTerminalState = errors.New("task: terminal state is immutable")

	// ErrInvalidState indicates the operation is not applicable in the
	// task's current state (e.g. recording a decision on a task that is not
	// awaiting one).
	ErrInvalidState = errors.New("task: operation not valid in current state")
)
