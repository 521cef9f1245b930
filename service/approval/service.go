package approval

import (
	"context"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/messaging"
)

// Service defines the approval service interface.
type Service interface {
	// Notify announces that a task entered (or re-entered, escalated) the
	// review queue, publishing the matching event.
	Notify(ctx context.Context, aTask *task.Task) error

	// ListPending returns the reviewer-facing view of every task awaiting a
	// decision, escalated tasks included.
	ListPending(ctx context.Context) ([]*Request, error)

	// Decide applies a reviewer's decision to the identified task.
	Decide(ctx context.Context, taskID string, decision *task.Decision) (*task.Task, error)

	// Queue exposes the approval event stream.
	Queue() messaging.Queue[Event]
}
