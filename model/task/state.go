package task

// State represents the current lifecycle state of a task.
type State string

const (
	StateCreated         State = "CREATED"
	StateClassified      State = "CLASSIFIED"
	StateAutoApproved    State = "AUTO_APPROVED"
	StatePendingApproval State = "PENDING_APPROVAL"
	StateEscalated       State = "ESCALATED"
	StateApproved        State = "APPROVED"
	StateRejected        State = "REJECTED"
	StateInProgress      State = "IN_PROGRESS"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// transitions is the legal transition table.  Terminal states have no
// outgoing edges; resubmission after rejection creates a new task and never
// reopens a terminal one.
var transitions = map[State][]State{
	StateCreated:         {StateClassified},
	StateClassified:      {StateAutoApproved, StatePendingApproval},
	StatePendingApproval: {StateApproved, StateRejected, StateEscalated},
	StateEscalated:       {StateApproved, StateRejected},
	StateAutoApproved:    {StateInProgress},
	StateApproved:        {StateInProgress},
	StateInProgress:      {StateCompleted, StateFailed},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s State) CanTransitionTo(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateCompleted, StateFailed:
		return true
	}
	return false
}

// IsApproved reports whether the task has been cleared for dispatch.
func (s State) IsApproved() bool {
	return s == StateAutoApproved || s == StateApproved
}

// AwaitsDecision reports whether a human decision may be recorded.
func (s State) AwaitsDecision() bool {
	return s == StatePendingApproval || s == StateEscalated
}
