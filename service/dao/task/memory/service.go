package memory

import (
	"context"
	"sort"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dao/criteria"
	"github.com/viant/taskgate/service/dao/store"
)

// Service is an in-memory task store.
type Service struct {
	*store.MemoryStore[string, task.Task]
}

// Ensure Service implements dao.Service
var _ dao.Service[string, task.Task] = (*Service)(nil)

// List returns tasks matching the supplied filters, ordered by ID.  Task IDs
// are time ordered, so the result follows creation order.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*task.Task, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []*task.Task
	for _, candidate := range all {
		if criteria.Match(parameters, fieldOf(candidate)) {
			tasks = append(tasks, candidate)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func fieldOf(t *task.Task) func(name string) string {
	return func(name string) string {
		switch name {
		case "State":
			return string(t.State)
		case "SourceRef":
			return t.SourceRef
		case "Type":
			return string(t.Type)
		}
		return ""
	}
}

// New creates a new in-memory task store.
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[string, task.Task](
		func(t *task.Task) string { return t.ID })}
}
