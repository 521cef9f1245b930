package taskgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
)

func newRuntime(t *testing.T, options ...Option) (*Runtime, func()) {
	t.Helper()
	config := DefaultConfig()
	config.Scheduler.PollingInterval = 5 * time.Millisecond
	options = append([]Option{WithConfig(config)}, options...)
	srv := New(options...)
	ctx, cancel := context.WithCancel(context.Background())
	rt := srv.Runtime()
	if err := rt.Start(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start runtime: %v", err)
	}
	return rt, func() {
		_ = rt.Shutdown(ctx)
		cancel()
	}
}

func TestRuntime_BenignTaskRunsUnattended(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	aTask, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef:   "evt-1",
		Type:        task.TypeGeneric,
		PreviewText: "weekly status update",
	})
	assert.NoError(t, err)

	done, err := rt.WaitForTask(ctx, aTask.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, done.State)

	// The audit chain narrates the full journey and replays to the same state.
	entries, err := rt.Audit(ctx, aTask.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 6)
	state, err := audit.Replay(entries)
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, state)
}

func TestRuntime_UnknownTask(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	_, err := rt.Task(ctx, "no-such-task")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	_, err = rt.WaitForTask(ctx, "no-such-task", 50*time.Millisecond)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestRuntime_SensitiveTaskWaitsForApproval(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	aTask, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef:   "evt-1",
		Type:        task.TypeContractRequest,
		PreviewText: "countersign the liability agreement",
	})
	assert.NoError(t, err)

	// The scheduler parks the task behind the approval gate.
	awaitTaskState(t, rt, aTask.ID, task.StatePendingApproval)

	pending, err := rt.Approvals().ListPending(ctx)
	assert.NoError(t, err)
	if assert.Len(t, pending, 1) {
		assert.Equal(t, aTask.ID, pending[0].TaskID)
		assert.Contains(t, pending[0].Rules, "legal-keyword")
	}

	_, err = rt.RecordDecision(ctx, aTask.ID, &task.Decision{
		Kind: task.DecisionApprove, DecidedBy: "reviewer"})
	assert.NoError(t, err)

	done, err := rt.WaitForTask(ctx, aTask.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, done.State)
}

func TestRuntime_RejectionAllowsResubmission(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	first, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef:   "evt-1",
		Type:        task.TypeContentPost,
		PreviewText: "announcing our unreleased roadmap",
	})
	assert.NoError(t, err)
	awaitTaskState(t, rt, first.ID, task.StatePendingApproval)

	// A duplicate of a live source reference is refused.
	_, err = rt.SubmitTask(ctx, &task.Submission{
		SourceRef: "evt-1", Type: task.TypeContentPost, PreviewText: "second copy"})
	assert.ErrorIs(t, err, task.ErrDuplicateSource)

	_, err = rt.RecordDecision(ctx, first.ID, &task.Decision{
		Kind: task.DecisionReject, DecidedBy: "reviewer", Reason: "tone it down"})
	assert.NoError(t, err)

	second, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef:   "evt-1",
		Type:        task.TypeContentPost,
		PreviewText: "announcing our public roadmap",
	})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.LineageOf)

	// The creation entry carries the revision diff against the rejection.
	entries, err := rt.Audit(ctx, second.ID)
	assert.NoError(t, err)
	if assert.NotEmpty(t, entries) {
		assert.Contains(t, entries[0].Detail, first.ID)
		assert.Contains(t, entries[0].Detail, "-announcing our unreleased roadmap")
		assert.Contains(t, entries[0].Detail, "+announcing our public roadmap")
	}
}

func TestRuntime_OverdueApprovalEscalates(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	restore := clock.Set(base)
	defer restore()

	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	aTask, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef: "evt-1",
		Type:      task.TypePaymentRequest,
		Priority:  task.PriorityHigh,
		Entities:  task.Entities{Amounts: []interface{}{"$2,500"}},
	})
	assert.NoError(t, err)
	awaitTaskState(t, rt, aTask.ID, task.StatePendingApproval)

	// Urgent tasks escalate five minutes after the request.
	clock.Set(base.Add(6 * time.Minute))
	awaitTaskState(t, rt, aTask.ID, task.StateEscalated)

	_, err = rt.RecordDecision(ctx, aTask.ID, &task.Decision{
		Kind: task.DecisionApprove, DecidedBy: "director"})
	assert.NoError(t, err)

	done, err := rt.WaitForTask(ctx, aTask.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, task.StateCompleted, done.State)
}

func TestRuntime_CancelPendingTask(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	aTask, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef:   "evt-1",
		Type:        task.TypePersonalContact,
		PreviewText: "reach out about the confidential merger",
	})
	assert.NoError(t, err)
	awaitTaskState(t, rt, aTask.ID, task.StatePendingApproval)

	cancelled, err := rt.CancelTask(ctx, aTask.ID, "owner", "no longer needed")
	assert.NoError(t, err)
	assert.Equal(t, task.StateRejected, cancelled.State)
}

func TestRuntime_TasksByState(t *testing.T) {
	rt, shutdown := newRuntime(t)
	defer shutdown()
	ctx := context.Background()

	_, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef: "evt-1", Type: task.TypeGeneric, PreviewText: "hello"})
	assert.NoError(t, err)
	aTask, err := rt.SubmitTask(ctx, &task.Submission{
		SourceRef: "evt-2", Type: task.TypeContractRequest, PreviewText: "nda review"})
	assert.NoError(t, err)
	awaitTaskState(t, rt, aTask.ID, task.StatePendingApproval)

	pending, err := rt.Tasks(ctx, dao.NewParameter("State", string(task.StatePendingApproval)))
	assert.NoError(t, err)
	if assert.Len(t, pending, 1) {
		assert.Equal(t, aTask.ID, pending[0].ID)
	}
}

func awaitTaskState(t *testing.T, rt *Runtime, taskID string, want task.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		loaded, err := rt.Task(context.Background(), taskID)
		assert.NoError(t, err)
		if loaded.State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %s", taskID, want)
}
