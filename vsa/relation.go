package vsa

import "fmt"

// Relation parameterizes a named directed relation between entity kinds as a
// circular shift plus a confidence weight in [0, 1]. Applying a relation
// rotates an entity vector into the related kind's subspace and scales it by
// the relation's weight.
type Relation struct {
	Name   string
	Shift  int
	Weight float64
}

// Compose chains two relations: shifts add, weights multiply. Chained `->`
// hops in a query compose this way before any similarity search runs.
func Compose(r1, r2 Relation) Relation {
	name := r1.Name
	if name != "" && r2.Name != "" {
		name = r1.Name + "∘" + r2.Name
	} else if r2.Name != "" {
		name = r2.Name
	}
	return Relation{
		Name:   name,
		Shift:  r1.Shift + r2.Shift,
		Weight: r1.Weight * r2.Weight,
	}
}

// Validate checks the weight range invariant.
func (r Relation) Validate() error {
	if r.Weight < 0 || r.Weight > 1 {
		return fmt.Errorf("relation %q: weight %v outside [0,1]", r.Name, r.Weight)
	}
	return nil
}

// Apply maps an entity vector through the relation:
// bind(v, shiftVector(r.Shift)) scaled by r.Weight. Binding with a unit
// impulse is exactly a circular shift, so the rotation is done directly.
func (r Relation) Apply(v []float32) []float32 {
	out := Permute(v, r.Shift)
	w := float32(r.Weight)
	for i := range out {
		out[i] *= w
	}
	return out
}

// Invert maps a vector back through the relation's shift. The weight is not
// divided back out; unbinding is approximate by design and the weight only
// rescales magnitude, which cosine comparison ignores.
func (r Relation) Invert(v []float32) []float32 {
	return Permute(v, -r.Shift)
}
