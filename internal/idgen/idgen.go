package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/viant/taskgate/internal/clock"
)

// NewFunc returns a new globally unique identifier as string. It is
// implemented as a thin wrapper so tests can stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new opaque unique identifier.
func New() string { return NewFunc() }

var taskSeq uint64

// NewTaskIDFunc produces time-ordered task identifiers.  The identifier
// embeds the creation timestamp followed by a process-wide monotonic
// sequence, so that lexical order follows creation order even when several
// tasks are created within the same clock tick.
var NewTaskIDFunc = func() string {
	seq := atomic.AddUint64(&taskSeq, 1)
	return fmt.Sprintf("%s-%06d-%s",
		clock.Now().UTC().Format("20060102T150405.000000000"),
		seq%1000000,
		uuid.New().String()[:8])
}

// NewTaskID returns a new time-ordered task identifier.
func NewTaskID() string { return NewTaskIDFunc() }
