package adapter

import (
	"context"

	"github.com/viant/taskgate/model/task"
)

// Nop is the default adapter.  It performs no external action and reports
// immediate success, useful for dry runs and tests.
type Nop struct{}

// NewNop creates a no-op adapter.
func NewNop() *Nop { return &Nop{} }

func (n *Nop) Name() string { return "nop" }

func (n *Nop) Dispatch(ctx context.Context, aTask *task.Task) (*Result, error) {
	return &Result{Success: true, Detail: "no action taken"}, nil
}
