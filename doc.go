// Package taskgate provides a task lifecycle and approval gating engine.
//
// Inbound events become task records that flow through a strict lifecycle:
// rule-based sensitivity classification decides whether a task may proceed
// automatically or must wait for a human decision, every state change is
// coupled to an append-only audit entry, and approved tasks are handed to
// pluggable action adapters by a polling scheduler.  The engine comes with
// pluggable service layers such as:
//
//   - machine    – lifecycle state machine with audit-coupled transitions
//   - classifier – pure rule-based sensitivity classification
//   - scheduler  – polling orchestration with per-task leases
//   - dispatcher – adapter workers with bounded retries
//   - approval   – human-in-the-loop review surface
//
// Taskgate is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := taskgate.New()
//	rt  := srv.Runtime()
//	rt.Start(ctx)
//	aTask, _ := rt.SubmitTask(ctx, &task.Submission{SourceRef: "evt-1", Type: task.TypeGeneric})
//	done, _ := rt.WaitForTask(ctx, aTask.ID, time.Minute)
//
// For more details see the README and individual sub-packages.
package taskgate
