// Package dispatcher hosts the workers that hand approved tasks to their
// action adapters.  Every worker consumes dispatch orders from the queue
// published by the scheduler and records the adapter outcome through the
// lifecycle state machine.
package dispatcher
