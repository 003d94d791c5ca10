// Package registry implements the Type Registry and blueprint propagation
// described in spec.md §4.2: the canonical home for each particle type's
// default component values, and the reset operation that re-derives an
// instance's components from them. The flat name→record shape mirrors the
// teacher's SystemRegistry (systems/registry.go); the instance bookkeeping
// needed for blueprint-edit resets is the "parent → children" index list
// called for in spec.md §9.
package registry

import (
	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
)

// Blueprint is the immutable-between-edits default component set for a
// particle type (§3, "Type blueprint"). A nil optional field means
// instances of this type do not carry that component.
type Blueprint struct {
	Name string

	Class    particle.Class
	Density  particle.Density
	Velocity particle.Velocity
	Priority particle.MotionPriority

	Momentum   *coord.Coord
	Palette    *particle.ColorPalette
	Flows      *particle.Flows
	Randomizes *particle.Randomizes
	Fire       *particle.Fire
	Burns      *particle.Burns
}

// Clone returns a deep-enough copy of the blueprint so that mutating a
// spawned instance's slices (e.g. its color palette) never aliases the
// blueprint's own slices.
func (b *Blueprint) Clone() *Blueprint {
	cp := *b
	if b.Momentum != nil {
		m := *b.Momentum
		cp.Momentum = &m
	}
	if b.Palette != nil {
		p := &particle.ColorPalette{Selected: b.Palette.Selected}
		p.Colors = append([]particle.RGBA(nil), b.Palette.Colors...)
		cp.Palette = p
	}
	if b.Flows != nil {
		f := *b.Flows
		cp.Flows = &f
	}
	if b.Randomizes != nil {
		r := *b.Randomizes
		cp.Randomizes = &r
	}
	if b.Fire != nil {
		f := *b.Fire
		cp.Fire = &f
	}
	if b.Burns != nil {
		cp.Burns = b.Burns.Clone()
	}
	return &cp
}
