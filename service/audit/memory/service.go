package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/taskgate/service/audit"
)

// Service is an in-memory audit log.
type Service struct {
	mu      sync.RWMutex
	byTask  map[string][]*audit.Entry
	ordered []*audit.Entry
}

var _ audit.Service = (*Service)(nil)

// Append adds an entry, enforcing strict per-task sequence ordering.
func (s *Service) Append(_ context.Context, entry *audit.Entry) error {
	if entry == nil || entry.TaskID == "" {
		return audit.ErrBrokenChain
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.byTask[entry.TaskID]
	expected := 1
	if len(chain) > 0 {
		expected = chain[len(chain)-1].Seq + 1
	}
	if entry.Seq != expected {
		return audit.ErrOutOfOrder
	}
	clone := *entry
	s.byTask[entry.TaskID] = append(chain, &clone)
	s.ordered = append(s.ordered, &clone)
	return nil
}

// List returns the ordered chain for a task.
func (s *Service) List(_ context.Context, taskID string) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.byTask[taskID]
	out := make([]*audit.Entry, len(chain))
	copy(out, chain)
	return out, nil
}

// Since returns entries recorded at or after the given instant.
func (s *Service) Since(_ context.Context, since time.Time) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*audit.Entry
	for _, entry := range s.ordered {
		if !entry.Timestamp.Before(since) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// New creates a new in-memory audit log.
func New() *Service {
	return &Service{byTask: make(map[string][]*audit.Entry)}
}
