// Package machine implements the lifecycle state machine.  It is the sole
// writer of the task store: every state change goes through Transition,
// which appends the audit entry first (write-ahead) and only then saves the
// task, so the audit log can always reconstruct current state after a
// crash.
package machine
