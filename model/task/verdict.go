package task

import "time"

// Verdict is the sensitivity classifier's determination for a task.  It is
// derived deterministically from task attributes and can be recomputed at
// any time; the copy kept on the task is a cache for the scheduler, not an
// independent source of truth.
type Verdict struct {
	RequiresApproval bool       `json:"requiresApproval"`
	TriggeredRules   []string   `json:"triggeredRules,omitempty"` // every rule that fired, in evaluation order
	Reasons          []string   `json:"reasons,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"` // decision SLA derived from priority
}
