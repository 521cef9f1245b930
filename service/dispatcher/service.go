package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/messaging"
	"github.com/viant/taskgate/tracing"
)

// Order is the unit of work on the dispatch queue.
type Order struct {
	TaskID  string `json:"taskId"`
	Attempt int    `json:"attempt"`
}

// Config represents dispatcher configuration
type Config struct {
	// WorkerCount is the number of workers dispatching tasks
	WorkerCount int

	// MaxAttempts is the maximum number of dispatch attempts per task
	MaxAttempts int

	// RetryDelay is the base delay between dispatch attempts
	RetryDelay time.Duration
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 5,
		MaxAttempts: 3,
		RetryDelay:  3 * time.Second,
	}
}

// Service drives approved tasks through their adapters.
type Service struct {
	config   Config
	tasks    dao.Service[string, task.Task]
	machine  *machine.Service
	registry *adapter.Registry
	queue    messaging.Queue[Order]

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a dispatcher service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.tasks == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if s.machine == nil {
		return nil, fmt.Errorf("state machine is required")
	}
	if s.registry == nil {
		return nil, fmt.Errorf("adapter registry is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("dispatch queue is required")
	}
	return s, nil
}

// Queue exposes the dispatch queue the workers consume.
func (s *Service) Queue() messaging.Queue[Order] { return s.queue }

// Start launches the worker goroutines.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

// Shutdown stops the workers and waits for them to drain.
func (s *Service) Shutdown() {
	for _, worker := range s.workers {
		worker.cancelFn()
	}
	s.workerWg.Wait()
}

// run processes dispatch orders from the queue
func (w *worker) run() {
	defer w.service.workerWg.Done()

	for {
		// Block until we either get a message or the context is cancelled.
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			// Context was cancelled - graceful shutdown.
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			// Filesystem-backed queues return nil when nothing is due.
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if pErr := w.service.processOrder(w.ctx, msg); pErr != nil {
			log.Printf("dispatcher worker %d: failed to process order: %v", w.id, pErr)
		}
	}
}

// processOrder handles a single dispatch order
func (s *Service) processOrder(ctx context.Context, message messaging.Message[Order]) (err error) {
	order := message.T()
	ctx, span := tracing.StartSpan(ctx, "dispatcher.Dispatch "+order.TaskID, "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"task.id": order.TaskID})

	aTask, err := s.tasks.Load(ctx, order.TaskID)
	if err != nil || aTask == nil {
		// The task vanished or the order is stale; do not retry.
		return message.Ack()
	}

	switch {
	case aTask.State.IsApproved():
		if err = s.machine.MarkDispatched(ctx, aTask, "handed to adapter "+s.registry.Lookup(aTask.Type).Name()); err != nil {
			_ = message.Ack()
			return err
		}
	case aTask.State == task.StateInProgress && order.Attempt > 0:
		// Redelivery of a previously failed dispatch.
	default:
		// Stale order: the task moved on while the order sat in the queue.
		return message.Ack()
	}

	result, dispatchErr := s.registry.Lookup(aTask.Type).Dispatch(ctx, aTask)
	if dispatchErr != nil {
		return s.handleFailure(ctx, message, aTask, dispatchErr)
	}
	if result == nil {
		// Asynchronous adapter: the outcome arrives later via RecordResult.
		return message.Ack()
	}
	if _, err = s.machine.RecordResult(ctx, aTask.ID, result.Success, result.Detail); err != nil {
		_ = message.Ack()
		return err
	}
	return message.Ack()
}

// handleFailure retries the order with exponential backoff until the attempt
// budget is spent, then fails the task.
func (s *Service) handleFailure(ctx context.Context, message messaging.Message[Order], aTask *task.Task, dispatchErr error) error {
	aTask.Attempts++
	aTask.Error = dispatchErr.Error()
	aTask.Touch()
	if err := s.tasks.Save(ctx, aTask); err != nil {
		_ = message.Nack(err)
		return err
	}

	if retry, delay := s.shouldRetry(aTask.Attempts); retry {
		retryOrder := Order{TaskID: aTask.ID, Attempt: aTask.Attempts}
		time.AfterFunc(delay, func() {
			if err := s.queue.Publish(context.Background(), &retryOrder); err != nil {
				log.Printf("dispatcher: failed to requeue task %s: %v", aTask.ID, err)
			}
		})
		return message.Ack()
	}

	detail := fmt.Sprintf("dispatch failed after %d attempts: %v", aTask.Attempts, dispatchErr)
	if _, err := s.machine.RecordResult(ctx, aTask.ID, false, detail); err != nil {
		_ = message.Ack()
		return err
	}
	return message.Ack()
}

// shouldRetry returns (retry?, delay)
func (s *Service) shouldRetry(attempts int) (bool, time.Duration) {
	if attempts >= s.config.MaxAttempts {
		return false, 0
	}
	delay := float64(s.config.RetryDelay) * math.Pow(2, float64(attempts-1))
	return true, time.Duration(delay)
}
