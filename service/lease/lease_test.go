package lease

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskgate/internal/clock"
)

func TestManager(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	restore := clock.Set(base)
	defer restore()

	manager := New(time.Minute)

	assert.NoError(t, manager.Acquire("task-1", "worker-a"))
	assert.ErrorIs(t, manager.Acquire("task-1", "worker-b"), ErrHeld)

	// Re-acquiring one's own lease extends it.
	assert.NoError(t, manager.Acquire("task-1", "worker-a"))

	owner, held := manager.Holder("task-1")
	assert.True(t, held)
	assert.Equal(t, "worker-a", owner)

	// Expiry allows takeover.
	clock.Set(base.Add(2 * time.Minute))
	assert.NoError(t, manager.Acquire("task-1", "worker-b"))
	assert.ErrorIs(t, manager.Renew("task-1", "worker-a"), ErrHeld)

	// Release by a non-owner leaves the lease in place.
	manager.Release("task-1", "worker-a")
	_, held = manager.Holder("task-1")
	assert.True(t, held)

	manager.Release("task-1", "worker-b")
	_, held = manager.Holder("task-1")
	assert.False(t, held)
}
