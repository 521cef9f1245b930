package task

import (
	"strings"
	"time"
)

// DecisionKind enumerates the outcomes an approval surface may record.
type DecisionKind string

const (
	DecisionApprove  DecisionKind = "approve"
	DecisionReject   DecisionKind = "reject"
	DecisionEscalate DecisionKind = "escalate"
)

// Decision is the approval outcome attached to a task.  At most one decision
// exists per approval cycle; escalation starts a new cycle.
type Decision struct {
	Kind      DecisionKind `json:"kind"`
	DecidedBy string       `json:"decidedBy"`
	Reason    string       `json:"reason,omitempty"`
	DecidedAt time.Time    `json:"decidedAt"`
}

// Validate enforces decision invariants: reject and escalate require a
// reason so the audit trail always explains a negative outcome.
func (d *Decision) Validate() error {
	if d == nil {
		return ErrValidation
	}
	switch d.Kind {
	case DecisionApprove:
	case DecisionReject, DecisionEscalate:
		if strings.TrimSpace(d.Reason) == "" {
			return ErrValidation
		}
	default:
		return ErrValidation
	}
	if strings.TrimSpace(d.DecidedBy) == "" {
		return ErrValidation
	}
	return nil
}
