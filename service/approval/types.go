package approval

import (
	"time"

	"github.com/viant/taskgate/model/task"
)

// Event is the envelope published on the approval event queue so external
// notifiers (chat bots, inboxes) can surface pending reviews.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *Request | *task.Decision
	Headers map[string]string `json:"headers,omitempty"` // optional - tenant, correlation-id etc.
}

// Standard event topics.
const (
	TopicRequestCreated   = "request.created"
	TopicRequestEscalated = "request.escalated"
	TopicDecisionRecorded = "decision.recorded"
)

// Request is the reviewer-facing projection of a task awaiting a decision.
type Request struct {
	TaskID      string        `json:"taskId"`
	Type        task.Type     `json:"type"`
	Priority    task.Priority `json:"priority"`
	PreviewText string        `json:"previewText,omitempty"`
	Rules       []string      `json:"rules"`             // classifier rules that fired
	Reasons     []string      `json:"reasons,omitempty"` // human readable rule reasons
	Escalated   bool          `json:"escalated"`
	Deadline    *time.Time    `json:"deadline,omitempty"` // approval SLA
	RequestedAt time.Time     `json:"requestedAt"`
}
