package scheduler

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/viant/taskgate/classifier"
	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dispatcher"
	"github.com/viant/taskgate/service/lease"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/messaging"
	"github.com/viant/taskgate/tracing"
)

// Config represents scheduler configuration
type Config struct {
	// PollingInterval is how often the scheduler scans for actionable tasks
	PollingInterval time.Duration

	// LeaseTTL bounds how long a scan may hold a task
	LeaseTTL time.Duration

	// MaxClassifyAttempts bounds classification retries before a task fails
	MaxClassifyAttempts int

	// ClassifyRetryDelay is the base backoff between classification attempts
	ClassifyRetryDelay time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval:     20 * time.Millisecond,
		LeaseTTL:            time.Minute,
		MaxClassifyAttempts: 3,
		ClassifyRetryDelay:  time.Second,
	}
}

// Service is the polling orchestrator.
type Service struct {
	config     Config
	owner      string
	tasks      dao.Service[string, task.Task]
	machine    *machine.Service
	classifier *classifier.Service
	approvals  approval.Service
	leases     *lease.Manager
	queue      messaging.Queue[dispatcher.Order]

	published  map[string]bool
	mux        sync.Mutex
	shutdownCh chan struct{}
}

// New creates a scheduler service
func New(owner string, config Config,
	tasks dao.Service[string, task.Task],
	aMachine *machine.Service,
	aClassifier *classifier.Service,
	approvals approval.Service,
	leases *lease.Manager,
	queue messaging.Queue[dispatcher.Order]) *Service {
	return &Service{
		config:     config,
		owner:      owner,
		tasks:      tasks,
		machine:    aMachine,
		classifier: aClassifier,
		approvals:  approvals,
		leases:     leases,
		queue:      queue,
		published:  make(map[string]bool),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins the scheduling loop
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if err := s.scan(ctx); err != nil {
				log.Printf("scheduler: scan failed: %v", err)
			}
		}
	}
}

// Shutdown stops the scheduling loop
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

// scan advances every actionable task one step.
func (s *Service) scan(ctx context.Context) error {
	candidates, err := s.tasks.List(ctx, dao.NewParameter("State",
		string(task.StateCreated),
		string(task.StatePendingApproval),
		string(task.StateAutoApproved),
		string(task.StateApproved),
	))
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	now := clock.Now()
	for _, aTask := range candidates {
		if !aTask.Ready(now) {
			continue
		}
		if err := s.leases.Acquire(aTask.ID, s.owner); err != nil {
			continue
		}
		if err := s.step(ctx, aTask, now); err != nil {
			log.Printf("scheduler: task %s: %v", aTask.ID, err)
		}
		s.leases.Release(aTask.ID, s.owner)
	}
	s.prunePublished(candidates)
	return nil
}

// prunePublished drops dispatch markers for tasks that left the approved
// states.  A dispatched task never re-enters them, so the marker set stays
// bounded by the tasks currently awaiting pickup.
func (s *Service) prunePublished(candidates []*task.Task) {
	awaiting := make(map[string]bool)
	for _, aTask := range candidates {
		if aTask.State.IsApproved() {
			awaiting[aTask.ID] = true
		}
	}
	s.mux.Lock()
	for id := range s.published {
		if !awaiting[id] {
			delete(s.published, id)
		}
	}
	s.mux.Unlock()
}

func (s *Service) step(ctx context.Context, aTask *task.Task, now time.Time) (err error) {
	switch aTask.State {
	case task.StateCreated:
		return s.classify(ctx, aTask)
	case task.StatePendingApproval:
		return s.escalateIfOverdue(ctx, aTask, now)
	case task.StateAutoApproved, task.StateApproved:
		return s.publishDispatch(ctx, aTask)
	}
	return nil
}

// classify runs the sensitivity rules and routes the task to the matching
// branch, notifying the approval surface when a review is needed.
func (s *Service) classify(ctx context.Context, aTask *task.Task) (err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Classify "+aTask.ID, "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"task.id": aTask.ID, "task.type": string(aTask.Type)})

	verdict, err := s.classifier.Classify(aTask)
	if err != nil {
		return s.handleClassifyFailure(ctx, aTask, err)
	}
	if err = s.machine.ApplyVerdict(ctx, aTask, verdict); err != nil {
		return err
	}
	if aTask.State == task.StatePendingApproval && s.approvals != nil {
		if nErr := s.approvals.Notify(ctx, aTask); nErr != nil {
			log.Printf("scheduler: failed to notify approval surface for %s: %v", aTask.ID, nErr)
		}
	}
	return nil
}

// handleClassifyFailure retries classification with exponential backoff.
func (s *Service) handleClassifyFailure(ctx context.Context, aTask *task.Task, cause error) error {
	aTask.ClassifyAttempts++
	aTask.Error = cause.Error()
	if aTask.ClassifyAttempts < s.config.MaxClassifyAttempts {
		delay := time.Duration(float64(s.config.ClassifyRetryDelay) * math.Pow(2, float64(aTask.ClassifyAttempts-1)))
		runAfter := clock.Now().Add(delay)
		aTask.RunAfter = &runAfter
		aTask.Touch()
		if err := s.tasks.Save(ctx, aTask); err != nil {
			return fmt.Errorf("failed to record classification retry: %w", err)
		}
		return nil
	}
	// Out of retries: park the task behind the approval gate rather than let
	// an unclassified action slip through.
	verdict := &task.Verdict{
		RequiresApproval: true,
		TriggeredRules:   []string{"classification-error"},
		Reasons:          []string{cause.Error()},
	}
	return s.machine.ApplyVerdict(ctx, aTask, verdict)
}

// escalateIfOverdue escalates a pending approval once its deadline passes.
func (s *Service) escalateIfOverdue(ctx context.Context, aTask *task.Task, now time.Time) error {
	if aTask.Verdict == nil || aTask.Verdict.Deadline == nil || now.Before(*aTask.Verdict.Deadline) {
		return nil
	}
	detail := fmt.Sprintf("approval deadline %s passed", aTask.Verdict.Deadline.Format(time.RFC3339))
	if err := s.machine.Escalate(ctx, aTask, detail); err != nil {
		return err
	}
	if s.approvals != nil {
		if err := s.approvals.Notify(ctx, aTask); err != nil {
			log.Printf("scheduler: failed to notify escalation for %s: %v", aTask.ID, err)
		}
	}
	return nil
}

// publishDispatch hands an approved task to the dispatcher exactly once.
func (s *Service) publishDispatch(ctx context.Context, aTask *task.Task) error {
	s.mux.Lock()
	already := s.published[aTask.ID]
	if !already {
		s.published[aTask.ID] = true
	}
	s.mux.Unlock()
	if already {
		return nil
	}
	if err := s.queue.Publish(ctx, &dispatcher.Order{TaskID: aTask.ID}); err != nil {
		s.mux.Lock()
		delete(s.published, aTask.ID)
		s.mux.Unlock()
		return fmt.Errorf("failed to publish dispatch order: %w", err)
	}
	return nil
}
