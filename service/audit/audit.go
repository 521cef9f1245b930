// Package audit implements the append-only transition log.  The log is
// independent of the mutable task store and is the recovery source of truth:
// replaying a task's entries in order reconstructs its current state.
package audit

import (
	"context"
	"time"

	"github.com/viant/taskgate/model/task"
)

// Actor identifies who caused a transition.
type Actor string

const (
	ActorSystem  Actor = "system"
	ActorHuman   Actor = "human"
	ActorAdapter Actor = "external-tool"
)

// Entry records exactly one state transition.  Entries for a task form a
// strictly ordered chain by Seq; Seq is assigned by the lifecycle state
// machine, never by wall clock, since clocks can skew.
type Entry struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	Seq       int        `json:"seq"`
	From      task.State `json:"fromState"`
	To        task.State `json:"toState"`
	Actor     Actor      `json:"actor"`
	Detail    string     `json:"detail,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Service is the audit log contract.  Append is the only mutation.
type Service interface {
	// Append adds an entry to the log.  Entries must arrive with strictly
	// increasing per-task sequence numbers; anything else is rejected.
	Append(ctx context.Context, entry *Entry) error

	// List returns the ordered entry chain for a task.
	List(ctx context.Context, taskID string) ([]*Entry, error)

	// Since returns all entries recorded at or after the given instant,
	// across tasks, for external reporting.
	Since(ctx context.Context, since time.Time) ([]*Entry, error)
}
