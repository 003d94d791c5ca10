// Package sim is the top-level orchestrator: it wires the coordinate map,
// type registry, spawn pipeline, movement engine, reaction engine, and
// spatial index into the per-tick phase order of spec.md §5, and exposes
// the public API surface of §6. Grounded in the teacher's top-level
// simulation loop (game/simulation.go's per-tick phase sequence), adapted
// from organism systems to the falling-sand engines.
package sim

import (
	"fmt"
	"iter"
	"time"

	"github.com/pthm-cable/fallingsand/assets"
	"github.com/pthm-cable/fallingsand/config"
	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/movement"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/reaction"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/spatialindex"
	"github.com/pthm-cable/fallingsand/spawn"
	"github.com/pthm-cable/fallingsand/telemetry"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// Sim owns every subsystem and runs the fixed phase order: spawn requests
// (already applied as they arrive) → movement → reaction (which first
// refreshes the spatial index when due) → chunk activity promotion.
type Sim struct {
	cfg *config.Config

	Arena    *particle.Arena
	World    *worldmap.Map
	Registry *registry.Registry
	Spawner  *spawn.Pipeline

	movement *movement.Engine
	reaction *reaction.Engine
	index    *spatialindex.Index

	tick      int64
	tickDelta time.Duration

	perf *telemetry.PerfCollector
}

// SetPerfCollector attaches a phase-timing collector to the simulation;
// Step brackets movement, reaction (including its internal spatial-rebuild
// sub-phase), and activity-reset with it when set. Passing nil disables
// timing.
func (s *Sim) SetPerfCollector(p *telemetry.PerfCollector) {
	s.perf = p
	s.reaction.SetPerfCollector(p)
}

// New builds a fully wired simulation from configuration.
func New(cfg *config.Config) *Sim {
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	spawner := spawn.New(arena, reg, world)
	index := spatialindex.New(cfg.Spatial.CellSize)
	reactionEngine := reaction.New(arena, world, index, spawner, cfg.World.Seed)
	reactionEngine.SetRebuildCadence(time.Duration(cfg.Reaction.RebuildCadenceMS) * time.Millisecond)

	return &Sim{
		cfg:       cfg,
		Arena:     arena,
		World:     world,
		Registry:  reg,
		Spawner:   spawner,
		movement:  movement.New(arena, world),
		reaction:  reactionEngine,
		index:     index,
		tickDelta: time.Duration(cfg.World.TickIntervalMS) * time.Millisecond,
	}
}

// LoadDefinitions loads a particle-definitions file into the simulation's
// registry (§6).
func (s *Sim) LoadDefinitions(path string) ([]*assets.InvalidRecord, error) {
	return assets.LoadDefinitions(s.Registry, path)
}

// LoadScene loads a scene file, spawning every entry (§6).
func (s *Sim) LoadScene(path string) error {
	return assets.LoadScene(s.Spawner, path, uint64(s.cfg.World.Seed))
}

// Spawn requests a new particle of typeName at c (§6's `spawn`).
func (s *Sim) Spawn(typeName string, c coord.Coord) (particle.Handle, error) {
	seed := uint64(s.cfg.World.Seed) ^ uint64(uint32(c.X))<<32 ^ uint64(uint32(c.Y)) ^ uint64(s.tick)
	return s.Spawner.Spawn(typeName, c, seed)
}

// RemoveAt removes whatever occupies c. If despawn is true the particle's
// record is also destroyed; otherwise only the map entry is cleared (the
// caller is responsible for the record's fate), matching §6's
// `remove_at(coord, despawn bool)`.
func (s *Sim) RemoveAt(c coord.Coord, despawn bool) {
	h, ok := s.World.Get(c)
	if !ok {
		return
	}
	if despawn {
		s.Spawner.Despawn(h)
		return
	}
	s.World.Remove(c)
}

// MutateType changes a live particle's type, per §6's `mutate_type`.
func (s *Sim) MutateType(h particle.Handle, newType string) error {
	return s.Registry.Mutate(s.Arena, h, newType)
}

// ClearDynamicParticles removes every non-Wall particle (§6).
func (s *Sim) ClearDynamicParticles() {
	var toRemove []particle.Handle
	for _, chunk := range s.World.IterChunks() {
		for _, h := range chunk.Particles() {
			if s.Arena.Class(h) != particle.ClassWall {
				toRemove = append(toRemove, h)
			}
		}
	}
	for _, h := range toRemove {
		s.Spawner.Despawn(h)
	}
}

// Step forces exactly one tick advancement regardless of any run/pause
// flag a caller layers on top (§6's `step()`). Phase order: movement, then
// reaction (the reaction engine refreshes the spatial index when due at the
// start of its own pass, before fire propagation), then chunk activity
// promotion.
func (s *Sim) Step() {
	if s.perf != nil {
		s.perf.StartTick()
		s.perf.StartPhase(telemetry.PhaseMovement)
	}
	if s.cfg.Parallel.Enabled {
		s.movement.StepParallel(s.cfg.Parallel.Workers)
	} else {
		s.movement.Step()
	}

	s.reaction.Step(s.tickDelta) // times its own spatial-rebuild/reaction sub-phases

	if s.perf != nil {
		s.perf.StartPhase(telemetry.PhaseActivityReset)
	}
	s.World.ResetActivity()
	if s.perf != nil {
		s.perf.EndTick()
	}
	s.tick++
}

// Tick returns the number of Step calls completed so far.
func (s *Sim) Tick() int64 { return s.tick }

// Get returns the handle resident at c, if any (§6).
func (s *Sim) Get(c coord.Coord) (particle.Handle, bool) {
	return s.World.Get(c)
}

// IterActiveChunks exposes the coordinate map's active-chunk iteration
// (§6).
func (s *Sim) IterActiveChunks() iter.Seq2[coord.ChunkPos, *worldmap.Chunk] {
	return s.World.IterActiveChunks()
}

// IterParticles yields every live particle's coordinate and handle across
// every chunk, active or hibernating (§6's `iter_particles`).
func (s *Sim) IterParticles() iter.Seq2[coord.Coord, particle.Handle] {
	return func(yield func(coord.Coord, particle.Handle) bool) {
		for _, chunk := range s.World.IterChunks() {
			for c, h := range chunk.Particles() {
				if !yield(c, h) {
					return
				}
			}
		}
	}
}

// Counts holds the three population counters §6 requires.
type Counts struct {
	Total   int
	Dynamic int
	Wall    int
}

// Counts computes the current total/dynamic/wall particle counts (§6).
func (s *Sim) Counts() Counts {
	var c Counts
	for _, chunk := range s.World.IterChunks() {
		for _, h := range chunk.Particles() {
			c.Total++
			if s.Arena.Class(h) == particle.ClassWall {
				c.Wall++
			} else {
				c.Dynamic++
			}
		}
	}
	return c
}

// String renders a short human-readable summary, useful for CLI status
// lines.
func (c Counts) String() string {
	return fmt.Sprintf("total=%d dynamic=%d wall=%d", c.Total, c.Dynamic, c.Wall)
}
