// Package lease provides per-task advisory leases guarding the scheduler's
// poll loop against concurrent processing of the same task.
package lease

import (
	"errors"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
)

// ErrHeld indicates the lease is already held and not yet expired.
var ErrHeld = errors.New("lease already held")

type lease struct {
	owner     string
	expiresAt time.Time
}

// Manager hands out time-bound exclusive leases keyed by task ID.  An
// expired lease may be taken over by any owner, so a crashed worker never
// wedges its task permanently.
type Manager struct {
	mux    sync.Mutex
	ttl    time.Duration
	leases map[string]*lease
}

// New creates a lease manager with the supplied time-to-live.
func New(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, leases: make(map[string]*lease)}
}

// Acquire takes the lease for taskID on behalf of owner.  It returns
// ErrHeld when another owner holds an unexpired lease.
func (m *Manager) Acquire(taskID, owner string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	now := clock.Now()
	if held, ok := m.leases[taskID]; ok && held.owner != owner && now.Before(held.expiresAt) {
		return ErrHeld
	}
	m.leases[taskID] = &lease{owner: owner, expiresAt: now.Add(m.ttl)}
	return nil
}

// Renew extends a held lease.  It returns ErrHeld when owner no longer
// holds the lease.
func (m *Manager) Renew(taskID, owner string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	held, ok := m.leases[taskID]
	if !ok || held.owner != owner {
		return ErrHeld
	}
	held.expiresAt = clock.Now().Add(m.ttl)
	return nil
}

// Release gives the lease back.  Releasing a lease held by someone else is
// a no-op.
func (m *Manager) Release(taskID, owner string) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if held, ok := m.leases[taskID]; ok && held.owner == owner {
		delete(m.leases, taskID)
	}
}

// Holder returns the current owner of the task's lease, if unexpired.
func (m *Manager) Holder(taskID string) (string, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	held, ok := m.leases[taskID]
	if !ok || clock.Now().After(held.expiresAt) {
		return "", false
	}
	return held.owner, true
}
