// Package spawn implements the Spawn Pipeline (§3, §4.2): the single entry
// point that allocates a particle record, claims its cell in the coordinate
// map, and copies its type's blueprint onto it. Grounded in the teacher's
// game/factory.go, which does the same three-step allocate/place/configure
// sequence for fauna spawns.
package spawn

import (
	"fmt"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// CellOccupied is returned when a spawn target cell already holds a
// particle (§7). Callers processing a batch of spawn requests are expected
// to drop these silently rather than treat them as a failure.
type CellOccupied struct {
	Coord coord.Coord
}

func (e *CellOccupied) Error() string {
	return fmt.Sprintf("spawn: cell %v is already occupied", e.Coord)
}

// Pipeline ties the particle arena, type registry, and coordinate map
// together behind the single Spawn operation.
type Pipeline struct {
	arena    *particle.Arena
	registry *registry.Registry
	worldMap *worldmap.Map
	onSpawn  func(particle.Handle)
}

// New creates a spawn pipeline over the given arena, registry, and map.
func New(arena *particle.Arena, reg *registry.Registry, m *worldmap.Map) *Pipeline {
	return &Pipeline{arena: arena, registry: reg, worldMap: m}
}

// OnSpawn installs a callback invoked after every successful spawn, the
// registration signal called for as an open design question in spec.md §9.
func (p *Pipeline) OnSpawn(fn func(particle.Handle)) {
	p.onSpawn = fn
}

// Spawn allocates a new particle of typeName at c. It fails with
// *registry.UnknownType if typeName was never registered, and with
// *CellOccupied if c is not empty; in both cases no particle is created.
// On success the particle's components are fully populated from its type's
// blueprint, including immediate ignition when the blueprint sets
// IgnitesOnSpawn.
func (p *Pipeline) Spawn(typeName string, c coord.Coord, seed uint64) (particle.Handle, error) {
	bp, ok := p.registry.Get(typeName)
	if !ok {
		return particle.Handle{}, &registry.UnknownType{Name: typeName}
	}

	h := p.arena.NewHandle(typeName, c, seed)

	if _, inserted := p.worldMap.InsertNoOverwrite(c, h); !inserted {
		p.arena.Despawn(h)
		return particle.Handle{}, &CellOccupied{Coord: c}
	}

	if err := p.registry.Apply(p.arena, h, typeName); err != nil {
		// bp was already resolved above, so this can only happen if the
		// type was unregistered concurrently; unwind the reservation.
		p.worldMap.Remove(c)
		p.arena.Despawn(h)
		return particle.Handle{}, err
	}

	if bp.Burns != nil && bp.Burns.IgnitesOnSpawn {
		p.arena.SetBurning(h, particle.Burning{Remaining: bp.Burns.Duration})
	}

	if p.onSpawn != nil {
		p.onSpawn(h)
	}
	return h, nil
}

// Despawn removes a live particle from both the arena and the coordinate
// map, and forgets it from the type registry's instance index.
func (p *Pipeline) Despawn(h particle.Handle) {
	typeName := p.arena.TypeName(h)
	p.worldMap.Remove(p.arena.Coord(h))
	p.registry.Forget(h, typeName)
	p.arena.Despawn(h)
}
