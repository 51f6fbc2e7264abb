// Package store provides the read-only embedding store the query engine
// executes against: typed entity vectors with attributes, exact and pattern
// lookup, and the registry of shift-encoded relations between entity kinds.
package store

import (
	"fmt"
	"strings"
)

// EntityType enumerates the entity kinds in the knowledge base.
type EntityType int

const (
	EntityCommand EntityType = iota
	EntityJob
	EntityFeature
	EntityOutcome
	EntityConstraint
)

// EntityTypes lists all valid entity types in declaration order.
var EntityTypes = []EntityType{
	EntityCommand,
	EntityJob,
	EntityFeature,
	EntityOutcome,
	EntityConstraint,
}

func (t EntityType) String() string {
	switch t {
	case EntityCommand:
		return "command"
	case EntityJob:
		return "job"
	case EntityFeature:
		return "feature"
	case EntityOutcome:
		return "outcome"
	case EntityConstraint:
		return "constraint"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseEntityType resolves an entity-type keyword as it appears in queries.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(s) {
	case "command":
		return EntityCommand, nil
	case "job":
		return EntityJob, nil
	case "feature":
		return EntityFeature, nil
	case "outcome":
		return EntityOutcome, nil
	case "constraint":
		return EntityConstraint, nil
	default:
		return 0, fmt.Errorf("unknown entity type: %q", s)
	}
}

// EntityVector is one entity in the knowledge base: a fixed-dimension
// embedding plus numeric attributes used by comparisons and optimization.
type EntityVector struct {
	Embedding  []float32
	EntityType EntityType
	Identifier string
	Attributes map[string]float64
}

// Key uniquely identifies an entity within a store.
type Key struct {
	Type EntityType
	ID   string
}

func (k Key) String() string {
	return k.Type.String() + "(" + k.ID + ")"
}

// Key returns the entity's store key.
func (e *EntityVector) Key() Key {
	return Key{Type: e.EntityType, ID: e.Identifier}
}

// Attribute returns the named attribute, or 0 when absent.
func (e *EntityVector) Attribute(name string) float64 {
	return e.Attributes[name]
}

// Statistics summarizes a sealed store for the planner's cost model.
type Statistics struct {
	Dimension   int
	Size        int
	CountByType map[EntityType]int
}
