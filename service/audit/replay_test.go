package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskgate/model/task"
)

func chain(states ...task.State) []*Entry {
	entries := []*Entry{{TaskID: "task-1", Seq: 1, From: task.StateCreated, To: task.StateCreated}}
	previous := task.StateCreated
	for i, state := range states {
		entries = append(entries, &Entry{TaskID: "task-1", Seq: i + 2, From: previous, To: state})
		previous = state
	}
	return entries
}

func TestReplay(t *testing.T) {
	testCases := []struct {
		name     string
		entries  []*Entry
		expected task.State
		hasError bool
	}{
		{
			name:     "creation only",
			entries:  chain(),
			expected: task.StateCreated,
		},
		{
			name:     "full journey",
			entries:  chain(task.StateClassified, task.StateAutoApproved, task.StateInProgress, task.StateCompleted),
			expected: task.StateCompleted,
		},
		{
			name:     "approval branch",
			entries:  chain(task.StateClassified, task.StatePendingApproval, task.StateEscalated, task.StateRejected),
			expected: task.StateRejected,
		},
		{
			name:     "empty chain",
			entries:  nil,
			hasError: true,
		},
		{
			name: "chain not anchored at creation",
			entries: []*Entry{
				{TaskID: "task-1", Seq: 1, From: task.StateClassified, To: task.StateAutoApproved},
			},
			hasError: true,
		},
		{
			name: "sequence gap",
			entries: []*Entry{
				{TaskID: "task-1", Seq: 1, From: task.StateCreated, To: task.StateCreated},
				{TaskID: "task-1", Seq: 3, From: task.StateCreated, To: task.StateClassified},
			},
			hasError: true,
		},
		{
			name: "illegal transition",
			entries: []*Entry{
				{TaskID: "task-1", Seq: 1, From: task.StateCreated, To: task.StateCreated},
				{TaskID: "task-1", Seq: 2, From: task.StateCreated, To: task.StateCompleted},
			},
			hasError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := Replay(tc.entries)
			if tc.hasError {
				assert.ErrorIs(t, err, ErrBrokenChain)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, state)
		})
	}
}
