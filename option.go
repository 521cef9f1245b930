package taskgate

import (
	"time"

	"github.com/viant/taskgate/classifier"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/adapter"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dispatcher"
	"github.com/viant/taskgate/service/messaging"
	"github.com/viant/taskgate/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithTaskDAO sets the task store implementation
func WithTaskDAO(store dao.Service[string, task.Task]) Option {
	return func(s *Service) { s.runtime.taskDAO = store }
}

// WithAuditService sets the audit log implementation
func WithAuditService(log audit.Service) Option {
	return func(s *Service) { s.runtime.auditService = log }
}

// WithApprovalService sets the approval service
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.runtime.approvalService = svc }
}

// WithDirectory sets the contacts directory used by the classifier
func WithDirectory(directory classifier.Directory) Option {
	return func(s *Service) { s.directory = directory }
}

// WithClassifierRules replaces the default classification rule set
func WithClassifierRules(rules ...classifier.Rule) Option {
	return func(s *Service) { s.classifierRules = rules }
}

// WithAdapters registers action adapters
func WithAdapters(adapters ...adapter.Adapter) Option {
	return func(s *Service) { s.adapters = append(s.adapters, adapters...) }
}

// WithBinding routes a task type to a named adapter
func WithBinding(taskType task.Type, adapterName string) Option {
	return func(s *Service) {
		s.bindings = append(s.bindings, binding{taskType: taskType, adapter: adapterName})
	}
}

// WithDispatchQueue sets the dispatch queue implementation
func WithDispatchQueue(queue messaging.Queue[dispatcher.Order]) Option {
	return func(s *Service) { s.runtime.queue = queue }
}

// WithSchedulerOwner names this instance in the per-task lease table
func WithSchedulerOwner(owner string) Option {
	return func(s *Service) { s.schedulerOwner = owner }
}

// WithLeaseTTL bounds how long a scheduler scan may hold a task
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Service) { s.leaseTTL = ttl }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
