package store

import "fmt"

// ErrNotFound indicates an entity lookup failed.
type ErrNotFound struct {
	Type EntityType
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("entity not found: %s(%q)", e.Type, e.ID)
}

// ErrDimensionMismatch indicates an ingested vector does not match the
// store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	Key      Key
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: expected %d, got %d", e.Key, e.Expected, e.Actual)
}

// ErrDuplicateEntity indicates two entities share the same (type, identifier).
type ErrDuplicateEntity struct {
	Key Key
}

func (e *ErrDuplicateEntity) Error() string {
	return fmt.Sprintf("duplicate entity: %s", e.Key)
}

// ErrUnknownRelation indicates no relation is registered between two kinds.
type ErrUnknownRelation struct {
	From EntityType
	To   EntityType
}

func (e *ErrUnknownRelation) Error() string {
	return fmt.Sprintf("no relation registered for %s -> %s", e.From, e.To)
}
