package taskgate

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/taskgate/classifier"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dispatcher"
	"github.com/viant/taskgate/service/lease"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/messaging"
	"github.com/viant/taskgate/service/scheduler"
)

// Runtime is the engine façade collaborators interact with.
type Runtime struct {
	taskDAO         dao.Service[string, task.Task]
	auditService    audit.Service
	approvalService approval.Service
	machine         *machine.Service
	classifier      *classifier.Service
	registry        *adapter.Registry
	scheduler       *scheduler.Service
	dispatcher      *dispatcher.Service
	leases          *lease.Manager
	// queue is the shared dispatch queue (dispatcher inbound)
	queue messaging.Queue[dispatcher.Order]
}

// SubmitTask creates a task from an inbound event submission.
func (r *Runtime) SubmitTask(ctx context.Context, submission *task.Submission) (*task.Task, error) {
	return r.machine.Submit(ctx, submission)
}

// RecordDecision applies a human decision to a task awaiting one.
func (r *Runtime) RecordDecision(ctx context.Context, taskID string, decision *task.Decision) (*task.Task, error) {
	return r.approvalService.Decide(ctx, taskID, decision)
}

// RecordAdapterResult reports the terminal outcome of an asynchronous
// adapter action.
func (r *Runtime) RecordAdapterResult(ctx context.Context, taskID string, success bool, detail string) (*task.Task, error) {
	return r.machine.RecordResult(ctx, taskID, success, detail)
}

// CancelTask withdraws a task.
func (r *Runtime) CancelTask(ctx context.Context, taskID, cancelledBy, reason string) (*task.Task, error) {
	return r.machine.Cancel(ctx, taskID, cancelledBy, reason)
}

// Task returns a task by ID.  Both store backends present one contract
// here: an unknown ID is dao.ErrNotFound, never a nil task.
func (r *Runtime) Task(ctx context.Context, id string) (*task.Task, error) {
	aTask, err := r.taskDAO.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if aTask == nil {
		return nil, dao.ErrNotFound
	}
	return aTask, nil
}

// Tasks returns tasks matching the supplied criteria.
func (r *Runtime) Tasks(ctx context.Context, parameter ...*dao.Parameter) ([]*task.Task, error) {
	return r.taskDAO.List(ctx, parameter...)
}

// Audit returns a task's transition history in sequence order.
func (r *Runtime) Audit(ctx context.Context, taskID string) ([]*audit.Entry, error) {
	return r.auditService.List(ctx, taskID)
}

// Approvals exposes the review surface.
func (r *Runtime) Approvals() approval.Service {
	return r.approvalService
}

// Reconcile repairs tasks whose stored state lags their audit chain.
func (r *Runtime) Reconcile(ctx context.Context) error {
	return r.machine.Reconcile(ctx)
}

// WaitForTask blocks until the task reaches a terminal state or the timeout
// elapses.
func (r *Runtime) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*task.Task, error) {
	deadline := time.Now().Add(timeout)
	for {
		aTask, err := r.Task(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if aTask.State.IsTerminal() {
			return aTask, nil
		}
		if time.Now().After(deadline) {
			return aTask, fmt.Errorf("timeout waiting for task %q", taskID)
		}
		select {
		case <-ctx.Done():
			return aTask, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Start starts runtime
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.machine.Reconcile(ctx); err != nil {
		return err
	}
	if err := r.dispatcher.Start(ctx); err != nil {
		return err
	}
	go r.scheduler.Start(ctx)
	return nil
}

// Shutdown shutdowns runtime
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.scheduler.Shutdown()
	r.dispatcher.Shutdown()
	return nil
}
