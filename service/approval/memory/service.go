// Package memory provides the in-process approval service wired straight to
// the lifecycle state machine.
package memory

import (
	"context"
	"errors"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/messaging"
	qmem "github.com/viant/taskgate/service/messaging/memory"
)

type service struct {
	tasks   dao.Service[string, task.Task]
	machine *machine.Service

	// fan-out queue
	events messaging.Queue[approval.Event]
}

// New creates an approval service over the task store and state machine.
func New(tasks dao.Service[string, task.Task], aMachine *machine.Service, options ...Option) approval.Service {
	ret := &service{
		tasks:   tasks,
		machine: aMachine,
		events:  qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) Notify(ctx context.Context, aTask *task.Task) error {
	if aTask == nil {
		return errors.New("invalid task")
	}
	topic := approval.TopicRequestCreated
	if aTask.State == task.StateEscalated {
		topic = approval.TopicRequestEscalated
	}
	return s.events.Publish(ctx, &approval.Event{Topic: topic, Data: request(aTask)})
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	awaiting, err := s.tasks.List(ctx, dao.NewParameter("State",
		string(task.StatePendingApproval), string(task.StateEscalated)))
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(awaiting))
	for _, aTask := range awaiting {
		pending = append(pending, request(aTask))
	}
	return pending, nil
}

func (s *service) Decide(ctx context.Context, taskID string, decision *task.Decision) (*task.Task, error) {
	updated, err := s.machine.RecordDecision(ctx, taskID, decision)
	if err != nil {
		return nil, err
	}
	topic := approval.TopicDecisionRecorded
	if updated.State == task.StateEscalated {
		topic = approval.TopicRequestEscalated
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: topic, Data: updated.Decision})
	return updated, nil
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

func request(aTask *task.Task) *approval.Request {
	ret := &approval.Request{
		TaskID:      aTask.ID,
		Type:        aTask.Type,
		Priority:    aTask.Priority,
		PreviewText: aTask.PreviewText,
		Escalated:   aTask.State == task.StateEscalated,
		RequestedAt: aTask.RequestedAt,
	}
	if aTask.Verdict != nil {
		ret.Rules = aTask.Verdict.TriggeredRules
		ret.Reasons = aTask.Verdict.Reasons
		ret.Deadline = aTask.Verdict.Deadline
	}
	return ret
}

var _ approval.Service = (*service)(nil)
