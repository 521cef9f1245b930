// Package scheduler drives the task lifecycle forward.  A polling loop
// classifies new tasks, escalates overdue approvals and publishes dispatch
// orders for approved tasks, taking a per-task lease before touching
// anything so concurrent schedulers never double-process.
package scheduler
