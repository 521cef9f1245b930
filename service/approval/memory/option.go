package memory

import (
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/messaging"
)

type Option func(*service)

// WithEventQueue replaces the default in-memory event queue, letting callers
// bridge approval events onto durable transports.
func WithEventQueue(q messaging.Queue[approval.Event]) Option {
	return func(s *service) { s.events = q }
}
