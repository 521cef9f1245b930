package machine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/audit"
	amemory "github.com/viant/taskgate/service/audit/memory"
	"github.com/viant/taskgate/service/dao"
	tmemory "github.com/viant/taskgate/service/dao/task/memory"
)

func newService() (*Service, *tmemory.Service, *amemory.Service) {
	tasks := tmemory.New()
	log := amemory.New()
	return New(DefaultConfig(), tasks, log), tasks, log
}

func submission(sourceRef string) *task.Submission {
	return &task.Submission{
		SourceRef:   sourceRef,
		Type:        task.TypeGeneric,
		PreviewText: "hello",
	}
}

func TestService_Submit(t *testing.T) {
	service, _, log := newService()
	ctx := context.Background()

	aTask, err := service.Submit(ctx, submission("evt-1"))
	assert.NoError(t, err)
	assert.Equal(t, task.StateCreated, aTask.State)
	assert.Equal(t, task.PriorityMedium, aTask.Priority)

	entries, err := log.List(ctx, aTask.ID)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, task.StateCreated, entries[0].From)
		assert.Equal(t, task.StateCreated, entries[0].To)
	}
}

func TestService_Submit_Validation(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	testCases := []struct {
		name       string
		submission *task.Submission
	}{
		{name: "nil submission", submission: nil},
		{name: "missing source ref", submission: &task.Submission{Type: task.TypeGeneric}},
		{name: "unknown type", submission: &task.Submission{SourceRef: "evt-2", Type: "carrier_pigeon"}},
		{name: "unknown priority", submission: &task.Submission{SourceRef: "evt-3", Type: task.TypeGeneric, Priority: "extreme"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Submit(context.Background(), tc.submission)
			assert.ErrorIs(t, err, task.ErrValidation)
			_ = ctx
		})
	}
}

func TestService_Submit_Duplicate(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	first, err := service.Submit(ctx, submission("evt-1"))
	assert.NoError(t, err)

	// Duplicate while the first task is non-terminal.
	_, err = service.Submit(ctx, submission("evt-1"))
	assert.ErrorIs(t, err, task.ErrDuplicateSource)

	// Rejection unblocks resubmission and records lineage.
	_, err = service.RecordDecision(ctx, first.ID, &task.Decision{
		Kind: task.DecisionReject, DecidedBy: "reviewer", Reason: "wrong recipient"})
	assert.ErrorIs(t, err, task.ErrInvalidState) // not yet pending approval

	verdict := &task.Verdict{RequiresApproval: true, TriggeredRules: []string{"content-post"}}
	assert.NoError(t, service.ApplyVerdict(ctx, first, verdict))
	_, err = service.RecordDecision(ctx, first.ID, &task.Decision{
		Kind: task.DecisionReject, DecidedBy: "reviewer", Reason: "wrong recipient"})
	assert.NoError(t, err)

	resubmitted := submission("evt-1")
	resubmitted.PreviewText = "hello again"
	second, err := service.Submit(ctx, resubmitted)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.LineageOf)
}

func TestService_Submit_Concurrent(t *testing.T) {
	service, tasks, _ := newService()
	ctx := context.Background()

	const submitters = 8
	var wg sync.WaitGroup
	var created, refused int64
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Submit(ctx, submission("evt-1"))
			if err != nil {
				assert.ErrorIs(t, err, task.ErrDuplicateSource)
				atomic.AddInt64(&refused, 1)
				return
			}
			atomic.AddInt64(&created, 1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created)
	assert.EqualValues(t, submitters-1, refused)

	stored, err := tasks.List(ctx, dao.NewParameter("SourceRef", "evt-1"))
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestService_ApplyVerdict(t *testing.T) {
	ctx := context.Background()

	t.Run("approval required", func(t *testing.T) {
		service, _, log := newService()
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		verdict := &task.Verdict{RequiresApproval: true, TriggeredRules: []string{"financial-threshold"}}
		assert.NoError(t, service.ApplyVerdict(ctx, aTask, verdict))
		assert.Equal(t, task.StatePendingApproval, aTask.State)

		entries, _ := log.List(ctx, aTask.ID)
		assert.Len(t, entries, 3) // created, classified, pending approval
	})

	t.Run("auto approved", func(t *testing.T) {
		service, _, _ := newService()
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		assert.NoError(t, service.ApplyVerdict(ctx, aTask, &task.Verdict{}))
		assert.Equal(t, task.StateAutoApproved, aTask.State)
	})
}

func TestService_RecordDecision(t *testing.T) {
	ctx := context.Background()
	pending := func(service *Service) *task.Task {
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{RequiresApproval: true, TriggeredRules: []string{"legal-keyword"}})
		return aTask
	}

	t.Run("approve", func(t *testing.T) {
		service, _, _ := newService()
		aTask := pending(service)
		updated, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionApprove, DecidedBy: "reviewer"})
		assert.NoError(t, err)
		assert.Equal(t, task.StateApproved, updated.State)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		service, _, _ := newService()
		aTask := pending(service)
		_, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionReject, DecidedBy: "reviewer"})
		assert.ErrorIs(t, err, task.ErrValidation)
	})

	t.Run("escalate then resolve", func(t *testing.T) {
		service, _, _ := newService()
		aTask := pending(service)
		_, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{
			Kind: task.DecisionEscalate, DecidedBy: "reviewer", Reason: "above my pay grade"})
		assert.NoError(t, err)
		assert.Equal(t, task.StateEscalated, aTask.State)

		updated, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionApprove, DecidedBy: "director"})
		assert.NoError(t, err)
		assert.Equal(t, task.StateApproved, updated.State)
	})

	t.Run("escalated task guarded by authority list", func(t *testing.T) {
		tasks := tmemory.New()
		log := amemory.New()
		service := New(Config{HonorLateDecision: false, EscalationAuthorities: []string{"director"}}, tasks, log)
		aTask := pending(service)
		_, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{
			Kind: task.DecisionEscalate, DecidedBy: "reviewer", Reason: "sla breach"})
		assert.NoError(t, err)

		_, err = service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionApprove, DecidedBy: "reviewer"})
		assert.ErrorIs(t, err, task.ErrInvalidState)

		updated, err := service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionApprove, DecidedBy: "director"})
		assert.NoError(t, err)
		assert.Equal(t, task.StateApproved, updated.State)
	})
}

func TestService_TerminalImmutability(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	aTask, _ := service.Submit(ctx, submission("evt-1"))
	assert.NoError(t, service.ApplyVerdict(ctx, aTask, &task.Verdict{}))
	assert.NoError(t, service.MarkDispatched(ctx, aTask, "adapter accepted"))
	_, err := service.RecordResult(ctx, aTask.ID, true, "done")
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, aTask.State)

	err = service.Transition(ctx, aTask, task.StateInProgress, audit.ActorSystem, "reopen attempt")
	assert.ErrorIs(t, err, task.ErrTerminalState)

	_, err = service.RecordResult(ctx, aTask.ID, false, "late failure")
	assert.ErrorIs(t, err, task.ErrInvalidState)
}

func TestService_AuditMatchesTransitions(t *testing.T) {
	service, _, log := newService()
	ctx := context.Background()

	aTask, _ := service.Submit(ctx, submission("evt-1"))
	_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{RequiresApproval: true, TriggeredRules: []string{"hr-keyword"}})
	_, _ = service.RecordDecision(ctx, aTask.ID, &task.Decision{Kind: task.DecisionApprove, DecidedBy: "reviewer"})
	_ = service.MarkDispatched(ctx, aTask, "adapter accepted")
	_, _ = service.RecordResult(ctx, aTask.ID, true, "sent")

	entries, err := log.List(ctx, aTask.ID)
	assert.NoError(t, err)
	// created, classified, pending, approved, in-progress, completed
	assert.Len(t, entries, 6)
	assert.Equal(t, aTask.StateSeq, entries[len(entries)-1].Seq)

	state, err := audit.Replay(entries)
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, state)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending approval cancels to rejected", func(t *testing.T) {
		service, _, _ := newService()
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{RequiresApproval: true, TriggeredRules: []string{"content-post"}})

		updated, err := service.Cancel(ctx, aTask.ID, "owner", "")
		assert.NoError(t, err)
		assert.Equal(t, task.StateRejected, updated.State)
		assert.Equal(t, "cancelled", updated.Decision.Reason)
	})

	t.Run("in progress only records the request", func(t *testing.T) {
		service, _, _ := newService()
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{})
		_ = service.MarkDispatched(ctx, aTask, "adapter accepted")

		updated, err := service.Cancel(ctx, aTask.ID, "owner", "changed my mind")
		assert.NoError(t, err)
		assert.Equal(t, task.StateInProgress, updated.State)
		assert.True(t, updated.CancelRequested)
	})

	t.Run("terminal task cannot be cancelled", func(t *testing.T) {
		service, _, _ := newService()
		aTask, _ := service.Submit(ctx, submission("evt-1"))
		_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{})
		_ = service.MarkDispatched(ctx, aTask, "adapter accepted")
		_, _ = service.RecordResult(ctx, aTask.ID, false, "delivery failed")

		_, err := service.Cancel(ctx, aTask.ID, "owner", "")
		assert.ErrorIs(t, err, task.ErrInvalidState)
	})
}

func TestService_Reconcile(t *testing.T) {
	service, tasks, log := newService()
	ctx := context.Background()

	aTask, _ := service.Submit(ctx, submission("evt-1"))
	_ = service.ApplyVerdict(ctx, aTask, &task.Verdict{})

	// Simulate a crash after audit append but before the task save.
	stored, _ := tasks.Load(ctx, aTask.ID)
	assert.NoError(t, log.Append(ctx, &audit.Entry{
		ID: "wal", TaskID: aTask.ID, Seq: stored.StateSeq + 1,
		From: task.StateAutoApproved, To: task.StateInProgress,
		Actor: audit.ActorSystem, Detail: "adapter accepted",
	}))

	assert.NoError(t, service.Reconcile(ctx))
	repaired, _ := tasks.Load(ctx, aTask.ID)
	assert.Equal(t, task.StateInProgress, repaired.State)
	assert.Equal(t, 4, repaired.StateSeq)
}
