package dispatcher

import (
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/machine"
	"github.com/viant/taskgate/service/messaging"
)

type Option func(*Service)

// WithTaskDAO sets the task store implementation
func WithTaskDAO(tasks dao.Service[string, task.Task]) Option {
	return func(s *Service) {
		s.tasks = tasks
	}
}

// WithMachine sets the lifecycle state machine
func WithMachine(aMachine *machine.Service) Option {
	return func(s *Service) {
		s.machine = aMachine
	}
}

// WithRegistry sets the adapter registry
func WithRegistry(registry *adapter.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithQueue sets the dispatch queue implementation
func WithQueue(queue messaging.Queue[Order]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
