package adapter

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/viant/taskgate/model/task"
)

// Printer writes a one-line description of each dispatched task, standing in
// for a real outbound integration during development.
type Printer struct {
	writer io.Writer
	mux    sync.Mutex
}

// NewPrinter creates a printer adapter; a nil writer defaults to stdout.
func NewPrinter(writer io.Writer) *Printer {
	if writer == nil {
		writer = os.Stdout
	}
	return &Printer{writer: writer}
}

func (p *Printer) Name() string { return "printer" }

func (p *Printer) Dispatch(ctx context.Context, aTask *task.Task) (*Result, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	_, err := fmt.Fprintf(p.writer, "[dispatch] task=%s type=%s priority=%s source=%s\n",
		aTask.ID, aTask.Type, aTask.Priority, aTask.SourceRef)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Detail: "printed"}, nil
}
