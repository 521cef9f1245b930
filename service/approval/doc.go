// Package approval exposes the human-in-the-loop review surface.  Tasks the
// classifier flags as sensitive wait here until a reviewer records an
// approve, reject or escalate decision.
package approval
