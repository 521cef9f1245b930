package classifier

import (
	"github.com/viant/taskgate/model/task"
)

// Rule is a single sensitivity predicate.  Implementations must be pure:
// no I/O, no side effects, deterministic for identical task attributes.
type Rule interface {
	// Name returns the stable rule identifier recorded in verdicts.
	Name() string

	// Evaluate reports whether the rule fires for the task and why.
	Evaluate(t *task.Task) (fired bool, reason string)
}
