package fs

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/taskgate/internal/clock"
)

type order struct {
	TaskID string
}

func newTestQueue(t *testing.T) *Queue[order] {
	config := Config{
		BasePath:   path.Join(t.TempDir(), "outbox"),
		MaxRetries: 1,
		RetryDelay: time.Second,
	}
	queue, err := NewQueue[order](afs.New(), config)
	assert.NoError(t, err)
	return queue
}

func TestQueue_PublishConsumeAck(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &order{TaskID: "task-1"}))

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	if !assert.NotNil(t, msg) {
		return
	}
	assert.Equal(t, "task-1", msg.T().TaskID)
	assert.NoError(t, msg.Ack())

	// Queue drained.
	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestQueue_NackBackoffAndDeadLetter(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	restore := clock.Set(base)
	defer restore()

	queue := newTestQueue(t)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &order{TaskID: "task-1"}))

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("adapter unavailable")))

	// Backoff gate holds the retry back.
	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Nil(t, msg)

	clock.Set(base.Add(2 * time.Second))
	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	if !assert.NotNil(t, msg) {
		return
	}
	assert.NoError(t, msg.Nack(errors.New("adapter unavailable")))

	size, err := queue.DeadLetterSize(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestQueue_Recover(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &order{TaskID: "task-1"}))
	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, msg)

	// Simulate a worker crash: the claim is never acked.
	assert.NoError(t, queue.Recover(ctx))

	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	if assert.NotNil(t, msg) {
		assert.Equal(t, "task-1", msg.T().TaskID)
	}
}
