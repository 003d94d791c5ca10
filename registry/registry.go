package registry

import (
	"fmt"
	"sync"

	"github.com/pthm-cable/fallingsand/particle"
)

// UnknownType is returned when an operation names a type that was never
// registered (§7).
type UnknownType struct {
	Name string
}

func (e *UnknownType) Error() string {
	return fmt.Sprintf("registry: unknown particle type %q", e.Name)
}

// InvalidBlueprint is returned by Register when a blueprint fails basic
// sanity checks (§7).
type InvalidBlueprint struct {
	Name   string
	Reason string
}

func (e *InvalidBlueprint) Error() string {
	return fmt.Sprintf("registry: invalid blueprint %q: %s", e.Name, e.Reason)
}

// Registry is the Type Registry of §4.2: the canonical blueprint for every
// known particle type, plus a parent→children index so a blueprint edit (or
// a full type mutation) can find every live instance that needs resetting.
// The flat name-keyed map mirrors the teacher's SystemRegistry
// (systems/registry.go); the children index is the "index list" spec.md §9
// calls for.
type Registry struct {
	mu         sync.RWMutex
	blueprints map[string]*Blueprint
	children   map[string]map[particle.Handle]struct{}
}

// New creates an empty type registry.
func New() *Registry {
	return &Registry{
		blueprints: make(map[string]*Blueprint),
		children:   make(map[string]map[particle.Handle]struct{}),
	}
}

// Register inserts or replaces a type's blueprint. Replacing an existing
// blueprint does not itself touch any live instance; callers that need the
// "existing instances reset on next tick" behavior of §4.2 should follow a
// Register call with ResetAll for that name.
func (r *Registry) Register(bp *Blueprint) error {
	if bp.Name == "" {
		return &InvalidBlueprint{Name: bp.Name, Reason: "name must not be empty"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blueprints[bp.Name] = bp.Clone()
	if _, ok := r.children[bp.Name]; !ok {
		r.children[bp.Name] = make(map[particle.Handle]struct{})
	}
	return nil
}

// Get returns a clone of the named type's blueprint.
func (r *Registry) Get(name string) (*Blueprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.blueprints[name]
	if !ok {
		return nil, false
	}
	return bp.Clone(), true
}

// track records that h is a live instance of the named type, so a later
// blueprint edit or Mutate can find it again.
func (r *Registry) track(name string, h particle.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.children[name]
	if !ok {
		set = make(map[particle.Handle]struct{})
		r.children[name] = set
	}
	set[h] = struct{}{}
}

// untrack removes h from the named type's instance index, called on despawn
// or on Mutate away from that type.
func (r *Registry) untrack(name string, h particle.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.children[name]; ok {
		delete(set, h)
	}
}

// InstancesOf returns a snapshot of every live handle currently registered
// under name.
func (r *Registry) InstancesOf(name string) []particle.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.children[name]
	out := make([]particle.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// Apply writes a type's blueprint components onto an already-allocated
// handle, overwriting any component the blueprint supplies and clearing any
// optional component the blueprint omits (§4.2: "a type mutation copies
// every blueprint-defined field onto the instance, including clearing
// components the new type does not have"). It does not touch the handle's
// coord or RNG streams, which are not blueprint-owned.
func (r *Registry) Apply(arena *particle.Arena, h particle.Handle, name string) error {
	bp, ok := r.Get(name)
	if !ok {
		return &UnknownType{Name: name}
	}

	arena.SetTypeName(h, name)
	arena.SetClass(h, bp.Class)
	arena.SetDensity(h, bp.Density)
	arena.SetVelocity(h, bp.Velocity)
	arena.SetPriority(h, bp.Priority)

	if bp.Momentum != nil {
		arena.SetMomentum(h, *bp.Momentum)
	} else {
		arena.ClearMomentum(h)
	}
	if bp.Palette != nil {
		arena.SetPalette(h, *bp.Palette)
	} else {
		arena.ClearPalette(h)
	}
	if bp.Flows != nil {
		arena.SetFlows(h, *bp.Flows)
	} else {
		arena.ClearFlows(h)
	}
	if bp.Randomizes != nil {
		arena.SetRandomizes(h, *bp.Randomizes)
	} else {
		arena.ClearRandomizes(h)
	}
	if bp.Fire != nil {
		arena.SetFire(h, *bp.Fire)
	} else {
		arena.ClearFire(h)
	}
	if bp.Burns != nil {
		arena.SetBurns(h, *bp.Burns)
	} else {
		arena.ClearBurns(h)
	}

	r.track(name, h)
	return nil
}

// Mutate changes a live instance's type, untracking it from its previous
// type and applying the new type's blueprint in full, including the
// clearing behavior described on Apply. Returns UnknownType if the new type
// was never registered; the instance is left under its old type in that
// case.
func (r *Registry) Mutate(arena *particle.Arena, h particle.Handle, newType string) error {
	if _, ok := r.Get(newType); !ok {
		return &UnknownType{Name: newType}
	}
	old := arena.TypeName(h)
	if err := r.Apply(arena, h, newType); err != nil {
		return err
	}
	if old != newType {
		r.untrack(old, h)
	}
	return nil
}

// ResetAll re-applies the current blueprint to every live instance of name,
// used after Register replaces an existing type's blueprint (§4.2: editing
// a blueprint resets every existing instance of that type on its next
// reference, not retroactively on past ticks).
func (r *Registry) ResetAll(arena *particle.Arena, name string) error {
	for _, h := range r.InstancesOf(name) {
		if !arena.Alive(h) {
			r.untrack(name, h)
			continue
		}
		if err := r.Apply(arena, h, name); err != nil {
			return err
		}
	}
	return nil
}

// Forget removes h from the type index entirely, called on despawn.
func (r *Registry) Forget(h particle.Handle, name string) {
	r.untrack(name, h)
}
