package classifier

import "strings"

// Directory answers whether a contact is already known.  It abstracts the
// external contacts collaborator; implementations should answer from a
// local snapshot so rule evaluation stays deterministic.
type Directory interface {
	// IsKnown reports whether the contact is present in the directory.  Any
	// error means the directory is unavailable and the caller must treat the
	// contact as unknown.
	IsKnown(contact string) (bool, error)
}

// StaticDirectory is a map-backed Directory, keyed by lower-cased contact.
type StaticDirectory struct {
	contacts map[string]bool
}

// IsKnown reports directory membership.
func (d *StaticDirectory) IsKnown(contact string) (bool, error) {
	return d.contacts[strings.ToLower(strings.TrimSpace(contact))], nil
}

// NewStaticDirectory creates a directory from a list of known contacts.
func NewStaticDirectory(contacts ...string) *StaticDirectory {
	known := make(map[string]bool, len(contacts))
	for _, contact := range contacts {
		known[strings.ToLower(strings.TrimSpace(contact))] = true
	}
	return &StaticDirectory{contacts: known}
}
