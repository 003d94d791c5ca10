// Package particle defines the per-particle component data and the arena
// that owns it. The arena is a thin wrapper over mlange-42/ark's archetype
// ECS world: each particle is one ecs.Entity, and each optional component
// from spec.md's data model (§3) is its own ecs.Map1, added and removed
// independently the same way the teacher's game/factory.go attaches an
// optional NeuralGenome/Brain on top of a fixed fauna archetype.
package particle

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/fallingsand/coord"
)

// Density is the particle's resistance to displacement in a density-swap
// (§4.4). WallDensity is a sentinel used by Wall-class particles so "a wall
// never loses a density comparison" falls out of the ordinary `>` check
// instead of a special-cased material tag.
type Density uint32

const WallDensity Density = math.MaxUint32

// Velocity is the particle's per-tick micro-step budget (§3).
type Velocity struct {
	Current uint8
	Max     uint8
}

// Increment raises the current velocity by one, capped at Max.
func (v *Velocity) Increment() {
	if v.Current < v.Max {
		v.Current++
	}
}

// Decrement lowers the current velocity by one, floored at 1.
func (v *Velocity) Decrement() {
	if v.Current > 1 {
		v.Current--
	}
}

// Momentum is the directional offset of the particle's last free move.
// Its presence as a component (rather than a zero value) is what lets the
// movement engine distinguish "no momentum" from "momentum (0,0)" after a
// density-swap, per invariant 4 in spec.md §8.
type Momentum coord.Coord

// Group is an unordered bag of relative offsets tried in shuffled order.
type Group []coord.Coord

// MotionPriority is an ordered sequence of groups, higher priority first
// (§4.3).
type MotionPriority struct {
	Groups []Group
}

// AllOffsets returns every offset appearing anywhere in the priority, used
// by the movement engine's momentum short-circuit.
func (m MotionPriority) AllOffsets() []coord.Coord {
	var out []coord.Coord
	for _, g := range m.Groups {
		out = append(out, g...)
	}
	return out
}

// RGBA is a particle color, matching the asset file's "#RRGGBBAA" records.
type RGBA struct {
	R, G, B, A uint8
}

// ColorPalette is the particle's ordered color list and selected index,
// driven by the Flows and Randomizes color subsystems (§4.5).
type ColorPalette struct {
	Colors   []RGBA
	Selected int
}

// Current returns the palette's active color, or the zero color if empty.
func (c ColorPalette) Current() RGBA {
	if len(c.Colors) == 0 {
		return RGBA{}
	}
	return c.Colors[c.Selected%len(c.Colors)]
}

// Flows advances the selected palette index by one, with probability Rate,
// once per tick.
type Flows struct {
	Rate float64
}

// Randomizes picks a uniformly random palette index, with probability Rate,
// once per tick.
type Randomizes struct {
	Rate float64
}

// Fire is the fire-source component (§3, §4.5).
type Fire struct {
	BurnRadius       float32
	ChanceToSpread   float64
	DestroysOnSpread bool
}

// Reaction describes a burning particle's product spawn (§3, §4.5).
type Reaction struct {
	Produces string
	Chance   float64
}

// Burns is the flammability component (§3, §4.5).
type Burns struct {
	Duration       float64 // seconds
	TickRate       float64 // seconds
	DestroyChance  *float64
	Produces       *Reaction
	BurnPalette    []RGBA
	Spreads        *Fire
	IgnitesOnSpawn bool
}

// Clone deep-copies a Burns component so two particles (or a blueprint and
// an instance) never alias each other's pointers or slices.
func (b *Burns) Clone() *Burns {
	cp := *b
	if b.DestroyChance != nil {
		v := *b.DestroyChance
		cp.DestroyChance = &v
	}
	if b.Produces != nil {
		r := *b.Produces
		cp.Produces = &r
	}
	cp.BurnPalette = append([]RGBA(nil), b.BurnPalette...)
	if b.Spreads != nil {
		f := *b.Spreads
		cp.Spreads = &f
	}
	return &cp
}

// Burning is the active-combustion component attached by the reaction
// engine on ignition (§3, §4.5).
type Burning struct {
	Remaining float64 // seconds left before extinguishing/destroying
	Tick      float64 // seconds accumulated since the last product/tick event
}

// RNGStreams holds the three independent per-particle RNG sources required
// by §4.7: separating movement tie-breaks from color and reaction rolls
// keeps fall/flow patterns visually stable under reaction-mix changes.
type RNGStreams struct {
	Movement *rand.Rand
	Color    *rand.Rand
	Reaction *rand.Rand
}

// TypeName is the particle's current type-registry key (§3). Mutating it
// (via Mutate) triggers a full blueprint reset.
type TypeName struct {
	Name string
}

// Class is the material class a blueprint declares via its particle-
// definitions file flag (§6: exactly one of wall/solid/movable_solid/
// liquid/gas). It is carried per-instance, not just at the blueprint
// level, because the reaction engine's line-of-sight check (§4.5) needs to
// classify ray-marched cells without a registry lookup per step.
type Class uint8

const (
	ClassWall Class = iota
	ClassSolid
	ClassMovableSolid
	ClassLiquid
	ClassGas
)

// BlocksLineOfSight reports whether a particle of this class blocks fire
// propagation's line-of-sight ray (§4.5: "blocked by Wall/Solid/
// MovableSolid cells").
func (c Class) BlocksLineOfSight() bool {
	return c == ClassWall || c == ClassSolid || c == ClassMovableSolid
}
