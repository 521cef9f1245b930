// Package adapter defines the outbound action surface.  Once a task clears
// the approval gate the dispatcher hands it to the adapter registered for
// its type, which carries out the external side effect.
package adapter

import (
	"context"

	"github.com/viant/taskgate/model/task"
)

// Result is an adapter's terminal verdict on a dispatched task.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Adapter performs the external action a task represents.  Dispatch may
// return a nil result, meaning the action completes asynchronously and the
// outcome arrives later through the runtime's result endpoint.
type Adapter interface {
	Name() string
	Dispatch(ctx context.Context, aTask *task.Task) (*Result, error)
}
