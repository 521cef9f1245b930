// Package classifier implements sensitivity classification: a fixed, ordered
// set of independent predicate rules evaluated against a task's attributes.
// The verdict is the logical OR of all rules; every fired rule is recorded so
// downstream audit and human review see the full rationale.  Classification
// is pure and deterministic – identical task attributes always yield an
// identical verdict.
package classifier
