// Package fs provides a filesystem dispatch outbox.  The queue encodes a
// message's lifecycle as the directory it sits in, so a restart can simply
// re-list the folders to recover in-flight work.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/service/messaging"
)

const (
	pendingDir    = "pending"
	processingDir = "processing"
	completedDir  = "completed"
	deadLetterDir = "dead-letter"
)

// Message implements messaging.Message backed by a file in the outbox.
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Error     string    `json:"error,omitempty"`
	Retries   int       `json:"retries"`
	NotBefore time.Time `json:"notBefore,omitempty"` // retry backoff gate
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack moves the message file to the completed directory.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.UpdatedAt = clock.Now()
	return m.queue.settle(context.Background(), m, completedDir)
}

// Nack returns the message to pending with a backoff gate, or parks it in
// the dead-letter directory once the retry budget is spent.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = clock.Now()
	if m.Retries > m.queue.config.MaxRetries {
		return m.queue.settle(context.Background(), m, deadLetterDir)
	}
	m.NotBefore = clock.Now().Add(m.queue.config.RetryDelay)
	return m.queue.settle(context.Background(), m, pendingDir)
}

// Config holds the outbox location and retry policy.
type Config struct {
	BasePath   string
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns a default outbox configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:   "/tmp/taskgate/outbox",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Queue implements a filesystem-backed messaging.Queue.
type Queue[T any] struct {
	fs     afs.Service
	config Config
	mu     sync.Mutex
}

// NewQueue creates the outbox, ensuring its directory layout exists.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	q := &Queue[T]{fs: fs, config: config}
	ctx := context.Background()
	for _, dir := range []string{pendingDir, processingDir, completedDir, deadLetterDir} {
		location := q.dir(dir)
		if exists, _ := fs.Exists(ctx, location); !exists {
			if err := fs.Create(ctx, location, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", location, err)
			}
		}
	}
	return q, nil
}

// Publish writes a new message file into the pending directory.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.upload(ctx, q.location(pendingDir, message.ID), data)
}

// Consume claims the oldest eligible pending message by moving its file to
// the processing directory.  It returns nil when nothing is due.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.dir(pendingDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	now := clock.Now()
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		message, err := q.read(ctx, object)
		if err != nil {
			// An unreadable file would wedge the queue head; park it.
			_ = q.fs.Move(ctx, object.URL(), path.Join(q.dir(deadLetterDir), "invalid-"+object.Name()))
			return nil, err
		}
		if now.Before(message.NotBefore) {
			continue
		}
		message.UpdatedAt = now
		message.queue = q
		data, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
		if err = q.upload(ctx, q.location(processingDir, message.ID), data); err != nil {
			return nil, fmt.Errorf("failed to claim message: %w", err)
		}
		if err = q.fs.Delete(ctx, object.URL()); err != nil {
			return nil, fmt.Errorf("failed to remove claimed message: %w", err)
		}
		return message, nil
	}
	return nil, nil
}

// Recover moves every in-flight message back to pending.  Called on startup
// so messages claimed by a crashed worker are redelivered.
func (q *Queue[T]) Recover(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.dir(processingDir))
	if err != nil {
		return fmt.Errorf("failed to list in-flight messages: %w", err)
	}
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		if err = q.fs.Move(ctx, object.URL(), path.Join(q.dir(pendingDir), object.Name())); err != nil {
			return fmt.Errorf("failed to recover message %s: %w", object.Name(), err)
		}
	}
	return nil
}

// DeadLetterSize returns the number of parked messages.
func (q *Queue[T]) DeadLetterSize(ctx context.Context) (int, error) {
	objects, err := q.fs.List(ctx, q.dir(deadLetterDir))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			count++
		}
	}
	return count, nil
}

// settle rewrites the message file in its destination directory and removes
// it from processing.
func (q *Queue[T]) settle(ctx context.Context, m *Message[T], destination string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err = q.upload(ctx, q.location(destination, m.ID), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", destination, err)
	}
	processing := q.location(processingDir, m.ID)
	if exists, _ := q.fs.Exists(ctx, processing); exists {
		if err = q.fs.Delete(ctx, processing); err != nil {
			return fmt.Errorf("failed to remove in-flight message: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) dir(name string) string {
	return path.Join(q.config.BasePath, name)
}

func (q *Queue[T]) location(dir, id string) string {
	return path.Join(q.dir(dir), id+".json")
}

func (q *Queue[T]) upload(ctx context.Context, location string, data []byte) error {
	return q.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) read(ctx context.Context, object storage.Object) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, object.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", object.URL(), err)
	}
	var message Message[T]
	if err = json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", object.URL(), err)
	}
	return &message, nil
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
