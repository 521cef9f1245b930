package machine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
)

// Config controls decision handling on escalated tasks.
type Config struct {
	// HonorLateDecision permits a plain approve/reject on an ESCALATED task.
	// When false only an escalation authority may resolve it.
	HonorLateDecision bool `json:"honorLateDecision" yaml:"honorLateDecision"`

	// EscalationAuthorities lists actors allowed to resolve escalated tasks
	// regardless of HonorLateDecision.
	EscalationAuthorities []string `json:"escalationAuthorities,omitempty" yaml:"escalationAuthorities,omitempty"`
}

// DefaultConfig returns the default machine configuration.
func DefaultConfig() Config {
	return Config{HonorLateDecision: true}
}

// Service owns all task state mutations.
type Service struct {
	config    Config
	tasks     dao.Service[string, task.Task]
	log       audit.Service
	submitMux sync.Mutex
}

// New creates a lifecycle state machine over the supplied stores.
func New(config Config, tasks dao.Service[string, task.Task], log audit.Service) *Service {
	return &Service{config: config, tasks: tasks, log: log}
}

// Submit validates a submission, enforces the dedup invariant and creates
// the task in its initial state, recording the creation audit entry.
func (s *Service) Submit(ctx context.Context, submission *task.Submission) (*task.Task, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}
	// The duplicate check and the save must act as one step, otherwise two
	// concurrent submissions of the same source reference both pass the check.
	s.submitMux.Lock()
	defer s.submitMux.Unlock()

	predecessor, err := s.checkDuplicate(ctx, submission.SourceRef)
	if err != nil {
		return nil, err
	}

	aTask := task.New(submission)
	detail := "task submitted"
	if predecessor != nil {
		aTask.LineageOf = predecessor.ID
		detail = fmt.Sprintf("resubmission of rejected task %s", predecessor.ID)
		if diff := revisionDiff(predecessor.PreviewText, aTask.PreviewText); diff != "" {
			detail += "\n" + diff
		}
	}

	entry := s.newEntry(aTask, aTask.State, aTask.State, audit.ActorSystem, detail)
	if err = s.log.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record task creation: %w", err)
	}
	aTask.StateSeq = 1
	if err = s.tasks.Save(ctx, aTask); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return aTask, nil
}

// checkDuplicate enforces the dedup invariant: a source reference may only
// be resubmitted once every previous task carrying it was rejected.  It
// returns the most recent rejected predecessor, if any, for lineage.
func (s *Service) checkDuplicate(ctx context.Context, sourceRef string) (*task.Task, error) {
	existing, err := s.tasks.List(ctx, dao.NewParameter("SourceRef", sourceRef))
	if err != nil {
		return nil, fmt.Errorf("failed to check source reference: %w", err)
	}
	var predecessor *task.Task
	for _, candidate := range existing {
		if candidate.State != task.StateRejected {
			return nil, fmt.Errorf("%w: %s already maps to task %s in state %s",
				task.ErrDuplicateSource, sourceRef, candidate.ID, candidate.State)
		}
		predecessor = candidate
	}
	return predecessor, nil
}

// Transition validates legality, appends the audit entry and then applies
// the mutation – in that order, so a crash in between leaves the log ahead
// of the store and Reconcile can repair the difference.
func (s *Service) Transition(ctx context.Context, aTask *task.Task, to task.State, actor audit.Actor, detail string) error {
	if aTask == nil {
		return dao.ErrNilEntity
	}
	if aTask.State.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", task.ErrTerminalState, aTask.ID, aTask.State)
	}
	if !aTask.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", task.ErrInvalidTransition, aTask.State, to)
	}

	entry := s.newEntry(aTask, aTask.State, to, actor, detail)
	if err := s.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	aTask.State = to
	aTask.StateSeq = entry.Seq
	aTask.Touch()
	if to.IsTerminal() {
		now := clock.Now()
		aTask.CompletedAt = &now
	}
	if err := s.tasks.Save(ctx, aTask); err != nil {
		return fmt.Errorf("failed to save task after transition: %w", err)
	}
	return nil
}

// ApplyVerdict moves a created task through classification into either the
// auto-approved or the pending-approval branch.  A task whose verdict fired
// any rule can therefore never reach dispatch without passing the approval
// gate.
func (s *Service) ApplyVerdict(ctx context.Context, aTask *task.Task, verdict *task.Verdict) error {
	if aTask.State != task.StateCreated {
		return fmt.Errorf("%w: classify expects %s, task is %s", task.ErrInvalidState, task.StateCreated, aTask.State)
	}
	aTask.Verdict = verdict
	detail := "no rule fired"
	if verdict.RequiresApproval {
		detail = "rules fired: " + strings.Join(verdict.TriggeredRules, ", ")
	}
	if err := s.Transition(ctx, aTask, task.StateClassified, audit.ActorSystem, detail); err != nil {
		return err
	}
	next := task.StateAutoApproved
	detail = "no sensitivity detected"
	if verdict.RequiresApproval {
		next = task.StatePendingApproval
		detail = "awaiting human approval"
		if verdict.Deadline != nil {
			detail = fmt.Sprintf("awaiting human approval until %s", verdict.Deadline.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return s.Transition(ctx, aTask, next, audit.ActorSystem, detail)
}

// RecordDecision applies a human decision to a task awaiting one.
func (s *Service) RecordDecision(ctx context.Context, taskID string, decision *task.Decision) (*task.Task, error) {
	if err := decision.Validate(); err != nil {
		return nil, err
	}
	aTask, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !aTask.State.AwaitsDecision() {
		return nil, fmt.Errorf("%w: task %s is %s", task.ErrInvalidState, taskID, aTask.State)
	}
	if aTask.State == task.StateEscalated && !s.mayResolveEscalation(decision) {
		return nil, fmt.Errorf("%w: escalated task %s requires an escalation authority", task.ErrInvalidState, taskID)
	}

	decision.DecidedAt = clock.Now()
	var to task.State
	detail := fmt.Sprintf("decision %s by %s", decision.Kind, decision.DecidedBy)
	switch decision.Kind {
	case task.DecisionApprove:
		to = task.StateApproved
	case task.DecisionReject:
		to = task.StateRejected
		detail += ": " + decision.Reason
	case task.DecisionEscalate:
		if aTask.State == task.StateEscalated {
			return nil, fmt.Errorf("%w: task %s is already escalated", task.ErrInvalidState, taskID)
		}
		to = task.StateEscalated
		detail += ": " + decision.Reason
	}

	aTask.Decision = decision
	if err = s.Transition(ctx, aTask, to, audit.ActorHuman, detail); err != nil {
		return nil, err
	}
	return aTask, nil
}

func (s *Service) mayResolveEscalation(decision *task.Decision) bool {
	for _, authority := range s.config.EscalationAuthorities {
		if strings.EqualFold(authority, decision.DecidedBy) {
			return true
		}
	}
	return s.config.HonorLateDecision
}

// Escalate promotes an overdue pending-approval task to the escalation
// queue.  Called by the scheduler on SLA breach.
func (s *Service) Escalate(ctx context.Context, aTask *task.Task, detail string) error {
	if aTask.State != task.StatePendingApproval {
		return fmt.Errorf("%w: escalate expects %s, task is %s", task.ErrInvalidState, task.StatePendingApproval, aTask.State)
	}
	return s.Transition(ctx, aTask, task.StateEscalated, audit.ActorSystem, detail)
}

// MarkDispatched records acceptance by the action adapter.
func (s *Service) MarkDispatched(ctx context.Context, aTask *task.Task, detail string) error {
	if !aTask.State.IsApproved() {
		return fmt.Errorf("%w: dispatch expects an approved task, task is %s", task.ErrInvalidState, aTask.State)
	}
	return s.Transition(ctx, aTask, task.StateInProgress, audit.ActorSystem, detail)
}

// RecordResult applies the adapter's terminal result to an in-progress task.
func (s *Service) RecordResult(ctx context.Context, taskID string, success bool, detail string) (*task.Task, error) {
	aTask, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if aTask.State != task.StateInProgress {
		return nil, fmt.Errorf("%w: result expects %s, task is %s", task.ErrInvalidState, task.StateInProgress, aTask.State)
	}
	to := task.StateCompleted
	if !success {
		to = task.StateFailed
		aTask.Error = detail
	}
	if err = s.Transition(ctx, aTask, to, audit.ActorAdapter, detail); err != nil {
		return nil, err
	}
	return aTask, nil
}

// Cancel withdraws a task.  Tasks awaiting a decision reject immediately;
// an in-progress task only records the request – the adapter's terminal
// result decides its fate, since the external action may still be running.
func (s *Service) Cancel(ctx context.Context, taskID, cancelledBy, reason string) (*task.Task, error) {
	aTask, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "cancelled"
	}
	switch {
	case aTask.State.AwaitsDecision():
		aTask.Decision = &task.Decision{
			Kind:      task.DecisionReject,
			DecidedBy: cancelledBy,
			Reason:    reason,
			DecidedAt: clock.Now(),
		}
		detail := fmt.Sprintf("cancelled by %s: %s", cancelledBy, reason)
		if err = s.Transition(ctx, aTask, task.StateRejected, audit.ActorHuman, detail); err != nil {
			return nil, err
		}
	case aTask.State == task.StateInProgress:
		aTask.CancelRequested = true
		aTask.Touch()
		if err = s.tasks.Save(ctx, aTask); err != nil {
			return nil, fmt.Errorf("failed to record cancellation request: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: cannot cancel task in %s", task.ErrInvalidState, aTask.State)
	}
	return aTask, nil
}

// Reconcile repairs tasks whose stored state lags behind the audit log –
// the window a crash between audit append and task save leaves open.
func (s *Service) Reconcile(ctx context.Context) error {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, aTask := range tasks {
		entries, err := s.log.List(ctx, aTask.ID)
		if err != nil {
			return fmt.Errorf("failed to load audit chain for %s: %w", aTask.ID, err)
		}
		replayed, err := audit.Replay(entries)
		if err != nil {
			return fmt.Errorf("task %s: %w", aTask.ID, err)
		}
		if replayed == aTask.State {
			continue
		}
		aTask.State = replayed
		aTask.StateSeq = entries[len(entries)-1].Seq
		aTask.Touch()
		if err = s.tasks.Save(ctx, aTask); err != nil {
			return fmt.Errorf("failed to reconcile task %s: %w", aTask.ID, err)
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, taskID string) (*task.Task, error) {
	aTask, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if aTask == nil {
		return nil, dao.ErrNotFound
	}
	return aTask, nil
}

func (s *Service) newEntry(aTask *task.Task, from, to task.State, actor audit.Actor, detail string) *audit.Entry {
	return &audit.Entry{
		ID:        idgen.New(),
		TaskID:    aTask.ID,
		Seq:       aTask.StateSeq + 1,
		From:      from,
		To:        to,
		Actor:     actor,
		Detail:    detail,
		Timestamp: clock.Now(),
	}
}

// revisionDiff renders a unified diff between the rejected predecessor's
// preview text and the resubmission, so reviewers see what changed.
func revisionDiff(previous, current string) string {
	if previous == current {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: "rejected",
		ToFile:   "resubmitted",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
