package particle

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fallingsand/coord"
)

// Handle is a stable opaque particle identity, allocated at spawn and
// invalidated at despawn (§3). It wraps the dense ark entity rather than a
// UUID so the hot path never allocates; DebugLabel below gives callers a
// UUID-flavored string for logs/inspectors without paying that cost per
// particle (see DESIGN.md).
type Handle ecs.Entity

// DebugLabel derives a stable, allocation-cheap display label for a handle.
// It is deterministic (not random) so repeated calls for the same handle
// produce the same label within a run.
func (h Handle) DebugLabel() string {
	return uuid.NewSHA1(debugNamespace, []byte(fmt.Sprintf("%v", ecs.Entity(h)))).String()
}

var debugNamespace = uuid.MustParse("7b2b6e0a-7b77-4e66-9e9e-2a6d9a5c6b2e")

// Arena owns every live particle's component data. It is the "entity-
// component layout" called for in spec.md §9: a dense arena of particle
// records keyed by Handle, with the coordinate map and spatial index as
// external indices into it.
type Arena struct {
	world *ecs.World

	// base is the fixed archetype every particle carries regardless of
	// type: identity, position, velocity budget, density, fall/flow
	// pattern and RNG streams. Every other component below is optional and
	// attached/detached per-instance via its own Map1, the same way the
	// teacher's game/factory.go layers an optional NeuralGenome/Brain on
	// top of its fixed fauna archetype.
	base *ecs.Map7[TypeName, coord.Coord, Velocity, Density, MotionPriority, RNGStreams, Class]

	typeName *ecs.Map1[TypeName]
	class    *ecs.Map1[Class]
	coordM   *ecs.Map1[coord.Coord]
	velocity *ecs.Map1[Velocity]
	density  *ecs.Map1[Density]
	rng      *ecs.Map1[RNGStreams]
	priority *ecs.Map1[MotionPriority]

	momentum *ecs.Map1[Momentum]
	palette  *ecs.Map1[ColorPalette]
	flows    *ecs.Map1[Flows]
	randoms  *ecs.Map1[Randomizes]
	fire     *ecs.Map1[Fire]
	burns    *ecs.Map1[Burns]
	burning  *ecs.Map1[Burning]

	// fireFilter and burningFilter let the reaction engine enumerate every
	// fire source and every actively-burning particle without scanning the
	// whole arena, the same way the teacher's FeedingSystem queries a
	// Filter4 instead of walking every entity (systems/feeding.go).
	fireFilter    *ecs.Filter1[Fire]
	burningFilter *ecs.Filter1[Burning]
	flowsFilter   *ecs.Filter1[Flows]
	randomsFilter *ecs.Filter1[Randomizes]
}

// NewArena creates an empty particle arena.
func NewArena() *Arena {
	w := ecs.NewWorld()
	return &Arena{
		world:    w,
		base:     ecs.NewMap7[TypeName, coord.Coord, Velocity, Density, MotionPriority, RNGStreams, Class](w),
		typeName: ecs.NewMap1[TypeName](w),
		class:    ecs.NewMap1[Class](w),
		coordM:   ecs.NewMap1[coord.Coord](w),
		velocity: ecs.NewMap1[Velocity](w),
		density:  ecs.NewMap1[Density](w),
		rng:      ecs.NewMap1[RNGStreams](w),
		priority: ecs.NewMap1[MotionPriority](w),
		momentum: ecs.NewMap1[Momentum](w),
		palette:  ecs.NewMap1[ColorPalette](w),
		flows:    ecs.NewMap1[Flows](w),
		randoms:  ecs.NewMap1[Randomizes](w),
		fire:     ecs.NewMap1[Fire](w),
		burns:    ecs.NewMap1[Burns](w),
		burning:  ecs.NewMap1[Burning](w),

		fireFilter:    ecs.NewFilter1[Fire](w),
		burningFilter: ecs.NewFilter1[Burning](w),
		flowsFilter:   ecs.NewFilter1[Flows](w),
		randomsFilter: ecs.NewFilter1[Randomizes](w),
	}
}

// NewHandle allocates a particle with its required baseline components
// (type name, coord, velocity, density, motion priority, RNG streams,
// class) but none of the optional ones. Callers (the spawn pipeline)
// populate the rest from the type's blueprint.
func (a *Arena) NewHandle(typeName string, c coord.Coord, seed uint64) Handle {
	global := rand.New(rand.NewSource(int64(seed)))
	name := TypeName{Name: typeName}
	vel := Velocity{Current: 1, Max: 1}
	var density Density
	priority := MotionPriority{}
	streams := RNGStreams{
		Movement: rand.New(rand.NewSource(global.Int63())),
		Color:    rand.New(rand.NewSource(global.Int63())),
		Reaction: rand.New(rand.NewSource(global.Int63())),
	}
	var class Class
	e := a.base.NewEntity(&name, &c, &vel, &density, &priority, &streams, &class)
	return Handle(e)
}

// NumericID returns a stable small integer for h, suitable as a coherent-
// noise coordinate. It is not guaranteed unique across despawn/respawn at
// the same dense slot, which is fine for visual jitter.
func (a *Arena) NumericID(h Handle) uint32 { return ecs.Entity(h).ID() }

// Class returns the particle's material class.
func (a *Arena) Class(h Handle) Class { return *a.class.Get(a.e(h)) }

// SetClass overwrites the particle's material class (spawn/blueprint-reset
// only).
func (a *Arena) SetClass(h Handle, c Class) { *a.class.Get(a.e(h)) = c }

// Despawn removes a particle and all of its components from the arena.
func (a *Arena) Despawn(h Handle) {
	a.world.RemoveEntity(ecs.Entity(h))
}

// Alive reports whether h still refers to a live particle.
func (a *Arena) Alive(h Handle) bool {
	return a.world.Alive(ecs.Entity(h))
}

func (a *Arena) e(h Handle) ecs.Entity { return ecs.Entity(h) }

// FireHandles returns every live particle currently carrying a Fire
// component, for the reaction engine's per-tick fire propagation pass.
func (a *Arena) FireHandles() []Handle {
	var out []Handle
	q := a.fireFilter.Query()
	for q.Next() {
		out = append(out, Handle(q.Entity()))
	}
	return out
}

// BurningHandles returns every live particle currently carrying a Burning
// component, for the reaction engine's per-tick burn-timer pass.
func (a *Arena) BurningHandles() []Handle {
	var out []Handle
	q := a.burningFilter.Query()
	for q.Next() {
		out = append(out, Handle(q.Entity()))
	}
	return out
}

// FlowsHandles returns every live particle with a Flows color tag.
func (a *Arena) FlowsHandles() []Handle {
	var out []Handle
	q := a.flowsFilter.Query()
	for q.Next() {
		out = append(out, Handle(q.Entity()))
	}
	return out
}

// RandomizesHandles returns every live particle with a Randomizes color
// tag.
func (a *Arena) RandomizesHandles() []Handle {
	var out []Handle
	q := a.randomsFilter.Query()
	for q.Next() {
		out = append(out, Handle(q.Entity()))
	}
	return out
}

// TypeName returns the particle's current registered type name.
func (a *Arena) TypeName(h Handle) string { return a.typeName.Get(a.e(h)).Name }

// SetTypeName overwrites the particle's registered type name (used by
// Mutate before the blueprint reset runs).
func (a *Arena) SetTypeName(h Handle, name string) { a.typeName.Get(a.e(h)).Name = name }

// Coord returns the particle's current cell.
func (a *Arena) Coord(h Handle) coord.Coord { return *a.coordM.Get(a.e(h)) }

// SetCoord overwrites the particle's cell. Callers must keep this in sync
// with the coordinate map (§3 invariant: map entry's coord == record coord).
func (a *Arena) SetCoord(h Handle, c coord.Coord) { *a.coordM.Get(a.e(h)) = c }

// Velocity returns a pointer to the particle's velocity budget for in-place
// Increment/Decrement.
func (a *Arena) Velocity(h Handle) *Velocity { return a.velocity.Get(a.e(h)) }

// SetVelocity overwrites the particle's velocity budget (spawn/blueprint-
// reset only).
func (a *Arena) SetVelocity(h Handle, v Velocity) { *a.velocity.Get(a.e(h)) = v }

// Density returns the particle's density.
func (a *Arena) Density(h Handle) Density { return *a.density.Get(a.e(h)) }

// SetDensity overwrites the particle's density (spawn/blueprint-reset only).
func (a *Arena) SetDensity(h Handle, d Density) { *a.density.Get(a.e(h)) = d }

// Priority returns the particle's motion priority.
func (a *Arena) Priority(h Handle) MotionPriority { return *a.priority.Get(a.e(h)) }

// SetPriority overwrites the particle's motion priority.
func (a *Arena) SetPriority(h Handle, p MotionPriority) { *a.priority.Get(a.e(h)) = p }

// RNG returns the particle's three RNG streams.
func (a *Arena) RNG(h Handle) *RNGStreams { return a.rng.Get(a.e(h)) }

// Momentum returns the particle's momentum and whether it has one.
func (a *Arena) Momentum(h Handle) (coord.Coord, bool) {
	if m := a.momentum.Get(a.e(h)); m != nil {
		return coord.Coord(*m), true
	}
	return coord.Coord{}, false
}

// SetMomentum attaches or overwrites momentum.
func (a *Arena) SetMomentum(h Handle, c coord.Coord) {
	e := a.e(h)
	m := Momentum(c)
	if a.momentum.Get(e) != nil {
		*a.momentum.Get(e) = m
		return
	}
	a.momentum.Add(e, &m)
}

// ClearMomentum removes the momentum component entirely.
func (a *Arena) ClearMomentum(h Handle) {
	e := a.e(h)
	if a.momentum.Get(e) != nil {
		a.momentum.Remove(e)
	}
}

// Palette returns the particle's color palette, if any.
func (a *Arena) Palette(h Handle) (*ColorPalette, bool) {
	p := a.palette.Get(a.e(h))
	return p, p != nil
}

// SetPalette attaches or overwrites the color palette.
func (a *Arena) SetPalette(h Handle, p ColorPalette) {
	e := a.e(h)
	if existing := a.palette.Get(e); existing != nil {
		*existing = p
		return
	}
	a.palette.Add(e, &p)
}

// ClearPalette removes the color palette component.
func (a *Arena) ClearPalette(h Handle) {
	e := a.e(h)
	if a.palette.Get(e) != nil {
		a.palette.Remove(e)
	}
}

// Flows returns the color-flow tag, if any.
func (a *Arena) Flows(h Handle) (Flows, bool) {
	f := a.flows.Get(a.e(h))
	if f == nil {
		return Flows{}, false
	}
	return *f, true
}

// SetFlows attaches or overwrites the color-flow tag.
func (a *Arena) SetFlows(h Handle, f Flows) {
	e := a.e(h)
	if existing := a.flows.Get(e); existing != nil {
		*existing = f
		return
	}
	a.flows.Add(e, &f)
}

// ClearFlows removes the color-flow tag.
func (a *Arena) ClearFlows(h Handle) {
	e := a.e(h)
	if a.flows.Get(e) != nil {
		a.flows.Remove(e)
	}
}

// Randomizes returns the color-randomize tag, if any.
func (a *Arena) Randomizes(h Handle) (Randomizes, bool) {
	r := a.randoms.Get(a.e(h))
	if r == nil {
		return Randomizes{}, false
	}
	return *r, true
}

// SetRandomizes attaches or overwrites the color-randomize tag.
func (a *Arena) SetRandomizes(h Handle, r Randomizes) {
	e := a.e(h)
	if existing := a.randoms.Get(e); existing != nil {
		*existing = r
		return
	}
	a.randoms.Add(e, &r)
}

// ClearRandomizes removes the color-randomize tag.
func (a *Arena) ClearRandomizes(h Handle) {
	e := a.e(h)
	if a.randoms.Get(e) != nil {
		a.randoms.Remove(e)
	}
}

// Fire returns the particle's fire-source component, if any.
func (a *Arena) Fire(h Handle) (Fire, bool) {
	f := a.fire.Get(a.e(h))
	if f == nil {
		return Fire{}, false
	}
	return *f, true
}

// SetFire attaches or overwrites the fire-source component.
func (a *Arena) SetFire(h Handle, f Fire) {
	e := a.e(h)
	if existing := a.fire.Get(e); existing != nil {
		*existing = f
		return
	}
	a.fire.Add(e, &f)
}

// ClearFire removes the fire-source component.
func (a *Arena) ClearFire(h Handle) {
	e := a.e(h)
	if a.fire.Get(e) != nil {
		a.fire.Remove(e)
	}
}

// Burns returns the particle's flammability component, if any.
func (a *Arena) Burns(h Handle) (*Burns, bool) {
	b := a.burns.Get(a.e(h))
	return b, b != nil
}

// SetBurns attaches or overwrites the flammability component.
func (a *Arena) SetBurns(h Handle, b Burns) {
	e := a.e(h)
	if existing := a.burns.Get(e); existing != nil {
		*existing = b
		return
	}
	a.burns.Add(e, &b)
}

// ClearBurns removes the flammability component.
func (a *Arena) ClearBurns(h Handle) {
	e := a.e(h)
	if a.burns.Get(e) != nil {
		a.burns.Remove(e)
	}
}

// Burning returns the particle's active-combustion state, if any.
func (a *Arena) Burning(h Handle) (*Burning, bool) {
	b := a.burning.Get(a.e(h))
	return b, b != nil
}

// SetBurning attaches or overwrites the active-combustion state.
func (a *Arena) SetBurning(h Handle, b Burning) {
	e := a.e(h)
	if existing := a.burning.Get(e); existing != nil {
		*existing = b
		return
	}
	a.burning.Add(e, &b)
}

// ClearBurning removes the active-combustion state.
func (a *Arena) ClearBurning(h Handle) {
	e := a.e(h)
	if a.burning.Get(e) != nil {
		a.burning.Remove(e)
	}
}
