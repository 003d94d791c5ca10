// Package reaction implements the Reaction Engine (§4.5): fire
// propagation with line-of-sight blocking, burn timers, product spawning,
// and the two color subsystems (Flows, Randomizes). Grounded in the
// teacher's DiseaseSystem (systems/disease.go) for the probability-gated
// radius scan shape, and wiring ojrac/opensimplex-go for the burn-flicker
// color jitter the way the teacher wires deterministic per-system RNG.
package reaction

import (
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/spatialindex"
	"github.com/pthm-cable/fallingsand/spawn"
	"github.com/pthm-cable/fallingsand/telemetry"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// FrameCap bounds the wall-clock delta applied to burn timers in one
// Step, per §5: "capped to prevent over-long frames producing
// catastrophic catch-up".
const FrameCap = 100 * time.Millisecond

// highFlickerRate is the per-tick color-randomization probability applied
// to a freshly-ignited particle's burn palette (§4.5: "a high-rate
// color-randomization tag").
const highFlickerRate = 0.5

// defaultRebuildCadence is the recommended spatial index refresh interval
// from §4.6.
const defaultRebuildCadence = 50 * time.Millisecond

// Engine runs the reaction phase over a shared arena, coordinate map, and
// the secondary spatial index used only for fire radius queries.
type Engine struct {
	arena   *particle.Arena
	world   *worldmap.Map
	index   *spatialindex.Index
	spawner *spawn.Pipeline
	noise   opensimplex.Noise

	rebuildEvery time.Duration
	sinceRebuild time.Duration
	elapsed      time.Duration

	queryScratch   []spatialindex.Result
	activeThisStep map[particle.Handle]struct{}

	perf *telemetry.PerfCollector
}

// SetPerfCollector attaches a phase-timing collector; Step brackets the
// spatial-rebuild and reaction passes with it when set. Passing nil
// disables timing.
func (e *Engine) SetPerfCollector(p *telemetry.PerfCollector) {
	e.perf = p
}

// New creates a reaction engine. seed drives the burn-flicker noise field
// only; it never touches particle RNG streams.
func New(arena *particle.Arena, world *worldmap.Map, index *spatialindex.Index, spawner *spawn.Pipeline, seed int64) *Engine {
	return &Engine{
		arena:        arena,
		world:        world,
		index:        index,
		spawner:      spawner,
		noise:        opensimplex.NewNormalized(seed),
		rebuildEvery: defaultRebuildCadence,
	}
}

// SetRebuildCadence overrides the spatial index refresh interval.
func (e *Engine) SetRebuildCadence(d time.Duration) {
	e.rebuildEvery = d
}

// Step runs exactly one reaction pass: refreshes the spatial index when
// due, propagates fire, advances burn timers, and runs the color
// subsystems, in that order (§5's phase list). A chunk with an empty
// dirty_rect this tick contributes no work to any of the three passes
// (§5's hibernation contract), mirroring movement's active-chunk-only
// iteration (movement/engine.go's snapshotActiveParticles).
func (e *Engine) Step(dt time.Duration) {
	if dt > FrameCap {
		dt = FrameCap
	}
	e.elapsed += dt
	e.sinceRebuild += dt
	if e.perf != nil {
		e.perf.StartPhase(telemetry.PhaseSpatialRebuild)
	}
	if e.sinceRebuild >= e.rebuildEvery {
		e.index.Rebuild(e.world)
		e.sinceRebuild = 0
	}

	if e.perf != nil {
		e.perf.StartPhase(telemetry.PhaseReaction)
	}
	e.activeThisStep = e.snapshotActiveHandles()

	e.propagateFire()
	e.tickBurning(dt)
	e.updateColors()

	e.activeThisStep = nil
}

// snapshotActiveHandles collects every handle resident in a chunk with a
// non-empty dirty_rect this tick, the same population movement.Engine's
// per-tick walk draws from.
func (e *Engine) snapshotActiveHandles() map[particle.Handle]struct{} {
	active := make(map[particle.Handle]struct{})
	for _, chunk := range e.world.IterActiveChunks() {
		for _, h := range chunk.Particles() {
			active[h] = struct{}{}
		}
	}
	return active
}

// isActive reports whether h resides in a chunk that was active this tick.
func (e *Engine) isActive(h particle.Handle) bool {
	_, ok := e.activeThisStep[h]
	return ok
}

// propagateFire runs the per-fire-source pass of §4.5.
func (e *Engine) propagateFire() {
	for _, h := range e.arena.FireHandles() {
		if !e.arena.Alive(h) || !e.isActive(h) {
			continue
		}
		fire, ok := e.arena.Fire(h)
		if !ok {
			continue
		}
		rng := e.arena.RNG(h).Reaction
		if rng.Float64() >= fire.ChanceToSpread {
			continue
		}

		origin := e.arena.Coord(h)
		e.queryScratch = e.index.QueryRadiusInto(e.queryScratch[:0], origin, float64(fire.BurnRadius), h)

		ignitedAny := false
		for _, r := range e.queryScratch {
			if !e.arena.Alive(r.Handle) {
				continue
			}
			if _, burning := e.arena.Burning(r.Handle); burning {
				continue
			}
			burns, hasBurns := e.arena.Burns(r.Handle)
			if !hasBurns {
				continue
			}
			if !lineOfSight(e.arena, e.world, origin, r.Coord) {
				continue
			}
			e.ignite(r.Handle, burns)
			ignitedAny = true
		}

		if ignitedAny && fire.DestroysOnSpread {
			e.spawner.Despawn(h)
		}
	}
}

func (e *Engine) ignite(h particle.Handle, burns *particle.Burns) {
	e.arena.SetBurning(h, particle.Burning{Remaining: burns.Duration})
	if len(burns.BurnPalette) > 0 {
		e.arena.SetPalette(h, particle.ColorPalette{Colors: append([]particle.RGBA(nil), burns.BurnPalette...)})
		e.arena.SetRandomizes(h, particle.Randomizes{Rate: highFlickerRate})
	}
	if burns.Spreads != nil {
		e.arena.SetFire(h, *burns.Spreads)
	}
}

// tickBurning runs the per-burning-particle pass of §4.5.
func (e *Engine) tickBurning(dt time.Duration) {
	seconds := dt.Seconds()
	for _, h := range e.arena.BurningHandles() {
		if !e.arena.Alive(h) || !e.isActive(h) {
			continue
		}
		burning, ok := e.arena.Burning(h)
		if !ok {
			continue
		}
		burns, hasBurns := e.arena.Burns(h)

		burning.Remaining -= seconds
		burning.Tick += seconds

		if burning.Remaining <= 0 {
			if hasBurns && burns.DestroyChance != nil {
				e.spawner.Despawn(h)
			} else {
				e.arena.ClearBurning(h)
				e.arena.ClearRandomizes(h)
			}
			continue
		}

		if !hasBurns || burning.Tick < burns.TickRate {
			continue
		}
		burning.Tick = 0

		if burns.Produces != nil && e.arena.RNG(h).Reaction.Float64() < burns.Produces.Chance {
			target := e.arena.Coord(h).Add(coord.Coord{X: 0, Y: 1})
			seed := uint64(e.arena.RNG(h).Reaction.Int63())
			e.spawner.Spawn(burns.Produces.Produces, target, seed) // CellOccupied is expected and swallowed (§7)
		}
		if burns.DestroyChance != nil && e.arena.RNG(h).Reaction.Float64() < *burns.DestroyChance {
			e.spawner.Despawn(h)
		}
	}
}

// updateColors runs the two color subsystems of §4.5.
func (e *Engine) updateColors() {
	for _, h := range e.arena.FlowsHandles() {
		if !e.arena.Alive(h) || !e.isActive(h) {
			continue
		}
		flows, ok := e.arena.Flows(h)
		if !ok {
			continue
		}
		if e.arena.RNG(h).Color.Float64() >= flows.Rate {
			continue
		}
		if pal, hasPal := e.arena.Palette(h); hasPal && len(pal.Colors) > 0 {
			pal.Selected = (pal.Selected + 1) % len(pal.Colors)
		}
	}

	for _, h := range e.arena.RandomizesHandles() {
		if !e.arena.Alive(h) || !e.isActive(h) {
			continue
		}
		randomizes, ok := e.arena.Randomizes(h)
		if !ok {
			continue
		}
		if e.arena.RNG(h).Color.Float64() >= randomizes.Rate {
			continue
		}
		pal, hasPal := e.arena.Palette(h)
		if !hasPal || len(pal.Colors) == 0 {
			continue
		}
		n := e.noise.Eval2(float64(e.arena.NumericID(h)), e.elapsed.Seconds())
		pal.Selected = int(n * float64(len(pal.Colors)))
		if pal.Selected >= len(pal.Colors) {
			pal.Selected = len(pal.Colors) - 1
		}
	}
}
