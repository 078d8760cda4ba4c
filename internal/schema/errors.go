package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a named column or table is absent from a set
// that was expected to contain it.
var ErrNotFound = errors.New("not found")

// DanglingReferenceError reports a foreign key that targets a table the
// introspector cannot supply. It aborts closure computation: no partial
// result is produced.
type DanglingReferenceError struct {
	From   QualifiedName
	Target QualifiedName
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: %s references %s, which cannot be fetched", e.From, e.Target)
}

// AmbiguousColumnError reports a column claimed by more than one foreign key.
// The engine cannot decide which reference the column belongs to, so mapping
// generation for the table aborts.
type AmbiguousColumnError struct {
	Table  QualifiedName
	Column string
}

func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("column %s.%s participates in more than one foreign key", e.Table, e.Column)
}

// MultipleAutoKeysError reports a table with more than one auto-incrementing
// column. A mapping can designate at most one.
type MultipleAutoKeysError struct {
	Table   QualifiedName
	Columns []string
}

func (e *MultipleAutoKeysError) Error() string {
	return fmt.Sprintf("table %s has multiple auto-increment columns: %s", e.Table, strings.Join(e.Columns, ", "))
}

// EmptyCandidatesError reports a canonical-unique choice over an empty
// candidate set. This is a contract violation by the caller, not a
// recoverable input condition.
type EmptyCandidatesError struct {
	Table QualifiedName
}

func (e *EmptyCandidatesError) Error() string {
	return fmt.Sprintf("table %s: canonical unique requested from an empty candidate set", e.Table)
}
