package audit

import "errors"

var (
	// ErrOutOfOrder indicates an entry whose sequence number does not extend
	// the task's chain; the log rejects it to preserve strict ordering.
	ErrOutOfOrder = errors.New("audit: out of order entry")

	// ErrBrokenChain indicates replayed entries that do not form a legal,
	// contiguous transition chain.
	ErrBrokenChain = errors.New("audit: broken transition chain")
)
