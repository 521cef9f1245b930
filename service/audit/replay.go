package audit

import (
	"github.com/viant/taskgate/model/task"
)

// Replay folds an ordered entry chain back into the task's current state.
// The first entry records creation (From == To == CREATED); every later
// entry must continue where the previous one left off.  Replay is used after
// a crash when the task store may lag behind the log.
func Replay(entries []*Entry) (task.State, error) {
	if len(entries) == 0 {
		return "", ErrBrokenChain
	}
	first := entries[0]
	if first.Seq != 1 || first.From != task.StateCreated || first.To != task.StateCreated {
		return "", ErrBrokenChain
	}
	current := first.To
	for i := 1; i < len(entries); i++ {
		entry := entries[i]
		if entry.Seq != entries[i-1].Seq+1 || entry.From != current {
			return "", ErrBrokenChain
		}
		if !current.CanTransitionTo(entry.To) {
			return "", ErrBrokenChain
		}
		current = entry.To
	}
	return current, nil
}
