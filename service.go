package taskgate

import (
	"time"

	"github.com/viant/taskgate/classifier"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
	appmemory "github.com/viant/taskgate/service/approval/memory"
	auditmemory "github.com/viant/taskgate/service/audit/memory"
	tmemory "github.com/viant/taskgate/service/dao/task/memory"
	"github.com/viant/taskgate/service/dispatcher"
	"github.com/viant/taskgate/service/lease"
	"github.com/viant/taskgate/service/machine"
	qmemory "github.com/viant/taskgate/service/messaging/memory"
	"github.com/viant/taskgate/service/scheduler"
)

type binding struct {
	taskType task.Type
	adapter  string
}

// Service wires the engine together.
type Service struct {
	runtime *Runtime

	config          *Config
	directory       classifier.Directory
	classifierRules []classifier.Rule
	adapters        []adapter.Adapter
	bindings        []binding
	schedulerOwner  string
	leaseTTL        time.Duration
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	r := s.runtime
	r.machine = machine.New(s.config.Machine, r.taskDAO, r.auditService)

	classifierOptions := []classifier.Option{}
	if s.directory != nil {
		classifierOptions = append(classifierOptions, classifier.WithDirectory(s.directory))
	}
	if len(s.classifierRules) > 0 {
		classifierOptions = append(classifierOptions, classifier.WithRules(s.classifierRules...))
	}
	r.classifier = classifier.New(s.config.Classifier, classifierOptions...)

	r.registry = adapter.NewRegistry()
	r.registry.Register(adapter.NewNop())
	r.registry.Register(adapter.NewPrinter(nil))
	for _, a := range s.adapters {
		r.registry.Register(a)
	}
	for _, b := range s.bindings {
		_ = r.registry.Bind(b.taskType, b.adapter)
	}

	if r.approvalService == nil {
		r.approvalService = appmemory.New(r.taskDAO, r.machine)
	}

	r.dispatcher, _ = dispatcher.New(
		dispatcher.WithTaskDAO(r.taskDAO),
		dispatcher.WithMachine(r.machine),
		dispatcher.WithRegistry(r.registry),
		dispatcher.WithQueue(r.queue),
		dispatcher.WithConfig(s.config.Dispatcher),
	)
	r.leases = lease.New(s.leaseTTL)
	r.scheduler = scheduler.New(s.schedulerOwner, s.config.Scheduler,
		r.taskDAO, r.machine, r.classifier, r.approvalService, r.leases, r.queue)
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.schedulerOwner == "" {
		s.schedulerOwner = "scheduler"
	}
	if s.leaseTTL <= 0 {
		s.leaseTTL = s.config.Scheduler.LeaseTTL
	}
	r := s.runtime
	if r.taskDAO == nil {
		r.taskDAO = tmemory.New()
	}
	if r.auditService == nil {
		r.auditService = auditmemory.New()
	}
	if r.queue == nil {
		r.queue = qmemory.NewQueue[dispatcher.Order](qmemory.DefaultConfig())
	}
}

// Runtime returns the engine runtime façade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// RegisterAdapter adds an action adapter after construction.
func (s *Service) RegisterAdapter(a adapter.Adapter) {
	s.runtime.registry.Register(a)
}

// New creates the engine service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
