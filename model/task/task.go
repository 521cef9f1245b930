package task

import (
	"strings"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
)

// Type classifies what kind of action a task represents.  The enumeration is
// closed – submissions with an unknown type are rejected at the boundary.
type Type string

const (
	TypePaymentRequest  Type = "payment_request"
	TypeContractRequest Type = "contract_request"
	TypePersonalContact Type = "personal_contact"
	TypeContentPost     Type = "content_post"
	TypeFileOperation   Type = "file_operation"
	TypeGeneric         Type = "generic"
)

// Types returns all known task types.
func Types() []Type {
	return []Type{TypePaymentRequest, TypeContractRequest, TypePersonalContact,
		TypeContentPost, TypeFileOperation, TypeGeneric}
}

// IsValid reports whether t belongs to the closed enumeration.
func (t Type) IsValid() bool {
	for _, candidate := range Types() {
		if t == candidate {
			return true
		}
	}
	return false
}

// Priority represents task urgency, driving the approval SLA.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Entities holds structured values extracted from the inbound event by the
// upstream reasoning collaborator.  Amount values are loosely typed – JSON
// submissions may carry them as strings ("$1,500", "10K") or numbers.
type Entities struct {
	Amounts  []interface{} `json:"amounts,omitempty"`
	Contacts []string      `json:"contacts,omitempty"`
	Keywords []string      `json:"keywords,omitempty"`
}

// Task is the unit of potential action awaiting classification, approval and
// execution.  Tasks are created once, mutated only by the lifecycle state
// machine and never deleted.
type Task struct {
	ID          string   `json:"id"`
	SourceRef   string   `json:"sourceRef"`            // originating inbound event; dedup key
	LineageOf   string   `json:"lineageOf,omitempty"`  // rejected predecessor when resubmitted
	Type        Type     `json:"type"`
	Priority    Priority `json:"priority"`
	PreviewText string   `json:"previewText,omitempty"`
	Entities    Entities `json:"entities,omitempty"`

	State    State     `json:"state"`
	StateSeq int       `json:"stateSeq"` // monotonic per-task transition sequence
	Verdict  *Verdict  `json:"verdict,omitempty"`
	Decision *Decision `json:"decision,omitempty"`

	// Scheduler bookkeeping
	Attempts         int        `json:"attempts,omitempty"`         // dispatch attempts
	ClassifyAttempts int        `json:"classifyAttempts,omitempty"` // classification attempts
	RunAfter         *time.Time `json:"runAfter,omitempty"`         // retry backoff gate
	CancelRequested  bool       `json:"cancelRequested,omitempty"`
	Error            string     `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	RequestedAt time.Time  `json:"requestedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Submission carries the attributes a collaborator supplies when creating a
// task.  Everything else is owned by the engine.
type Submission struct {
	SourceRef   string    `json:"sourceRef"`
	Type        Type      `json:"type"`
	Priority    Priority  `json:"priority,omitempty"`
	PreviewText string    `json:"previewText,omitempty"`
	Entities    Entities  `json:"entities,omitempty"`
	RequestedAt time.Time `json:"requestedAt,omitempty"`
	LineageOf   string    `json:"lineageOf,omitempty"`
}

// Validate checks submission attributes; a failing submission never produces
// a task.
func (s *Submission) Validate() error {
	if s == nil {
		return ErrValidation
	}
	if strings.TrimSpace(s.SourceRef) == "" {
		return ErrValidation
	}
	if !s.Type.IsValid() {
		return ErrValidation
	}
	if s.Priority != "" && !s.Priority.IsValid() {
		return ErrValidation
	}
	return nil
}

// New creates a task in the initial state from a validated submission.
func New(submission *Submission) *Task {
	now := clock.Now()
	priority := submission.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	requestedAt := submission.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = now
	}
	return &Task{
		ID:          idgen.NewTaskID(),
		SourceRef:   submission.SourceRef,
		LineageOf:   submission.LineageOf,
		Type:        submission.Type,
		Priority:    priority,
		PreviewText: submission.PreviewText,
		Entities:    submission.Entities,
		State:       StateCreated,
		CreatedAt:   now,
		RequestedAt: requestedAt,
		UpdatedAt:   now,
	}
}

// Touch updates the modification timestamp.
func (t *Task) Touch() { t.UpdatedAt = clock.Now() }

// Ready reports whether the task's retry backoff (if any) has elapsed.
func (t *Task) Ready(now time.Time) bool {
	return t.RunAfter == nil || !now.Before(*t.RunAfter)
}
