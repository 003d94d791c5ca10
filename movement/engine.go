// Package movement implements the Movement Engine (§4.3, §4.4): the
// per-tick velocity-budgeted walk of every active particle through its
// motion priority, performing free moves and density-swaps against the
// coordinate map. Grounded in the teacher's systems/feeding.go for the
// shape of a single per-entity resolution pass over a live ecs.World, and
// in systems/disease.go for a probability-gated neighbor scan.
package movement

import (
	"math/rand"
	"sync"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// Engine runs the movement phase over a shared arena and coordinate map.
type Engine struct {
	arena *particle.Arena
	world *worldmap.Map
}

// New creates a movement engine over the given arena and coordinate map.
func New(arena *particle.Arena, world *worldmap.Map) *Engine {
	return &Engine{arena: arena, world: world}
}

// Step runs exactly one movement pass: every particle in an active chunk at
// the start of the tick gets up to its velocity budget worth of
// micro-steps, in row-major chunk and intra-chunk order (§4.4).
func (e *Engine) Step() {
	snapshot := e.snapshotActiveParticles()
	visited := make(map[coord.Coord]struct{})

	for _, h := range snapshot {
		if !e.arena.Alive(h) {
			continue
		}
		e.stepParticle(h, visited)
	}
}

// StepParallel runs the movement phase using the (cx mod 2, cy mod 2) color
// partitioning of §5: within one color class, no two active chunks are
// mutually adjacent, so every chunk in a class can be processed by a worker
// goroutine with no cross-chunk data race, and the visited-set invariant
// that guards a chunk's own neighbor writes still holds per class. Classes
// are processed one at a time with a barrier between them, matching the
// teacher's snapshot/worker-scratch/apply shape in its old parallel
// dispatch code (one wave per class, never overlapping waves). workers
// bounds the goroutine fan-out per class; workers <= 1 falls back to Step,
// a single sequential pass over all active chunks with no class split.
func (e *Engine) StepParallel(workers int) {
	if workers <= 1 {
		e.Step()
		return
	}

	classes := e.world.ActiveColorClasses()
	visited := make(map[coord.Coord]struct{})
	// The color-class partition only guarantees chunks don't collide on
	// coordinate-map cells; it says nothing about the underlying ark
	// archetype storage, which is not documented as safe for concurrent
	// component writes across entities. mu guards every write to arena and
	// visited so the partition buys safe, parallel *cell occupancy*
	// reasoning without betting on concurrent ECS storage mutation.
	var mu sync.Mutex

	for _, positions := range classes {
		if len(positions) == 0 {
			continue
		}
		jobs := make(chan coord.ChunkPos, len(positions))
		for _, pos := range positions {
			jobs <- pos
		}
		close(jobs)

		n := workers
		if n > len(positions) {
			n = len(positions)
		}
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				for pos := range jobs {
					chunk, ok := e.world.ChunkAt(pos)
					if !ok {
						continue
					}
					var handles []particle.Handle
					for _, h := range chunk.Particles() {
						handles = append(handles, h)
					}
					for _, h := range handles {
						if !e.arena.Alive(h) {
							continue
						}
						mu.Lock()
						e.stepParticle(h, visited)
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()
	}
}

// snapshotActiveParticles materializes the handle list in the order the
// outer loop must walk it, fixed at the start of the tick so later
// mutation of chunk contents (by moves already processed this tick) cannot
// reorder or skip entries.
func (e *Engine) snapshotActiveParticles() []particle.Handle {
	var handles []particle.Handle
	for _, chunk := range e.world.IterActiveChunks() {
		for _, h := range chunk.Particles() {
			handles = append(handles, h)
		}
	}
	return handles
}

// stepParticle runs one particle's full velocity_loop (§4.4).
func (e *Engine) stepParticle(h particle.Handle, visited map[coord.Coord]struct{}) {
	budget := int(e.arena.Velocity(h).Current)
	moved := false

	for step := 0; step < budget; step++ {
		outcome := e.microStep(h, visited)
		switch outcome {
		case outcomeFreeMove:
			moved = true
			continue
		case outcomeDensitySwap:
			moved = true
		case outcomeBlocked:
		}
		break
	}

	if moved {
		visited[e.arena.Coord(h)] = struct{}{}
	}
}

type microStepOutcome int

const (
	outcomeBlocked microStepOutcome = iota
	outcomeFreeMove
	outcomeDensitySwap
)

// microStep runs one pass through P's candidate offsets, per §4.4. It
// mutates P's (and, on a density-swap, its partner's) coord, momentum, and
// velocity in place.
func (e *Engine) microStep(h particle.Handle, visited map[coord.Coord]struct{}) microStepOutcome {
	obstructed := make(map[coord.Sign]struct{})
	rng := e.arena.RNG(h)
	typeName := e.arena.TypeName(h)

	momentum, hasMomentum := e.momentumOffset(h)
	for _, d := range candidateOffsets(e.arena.Priority(h), momentum, hasMomentum, rng.Movement) {
		pCoord := e.arena.Coord(h)
		target := pCoord.Add(d)

		if _, seen := visited[target]; seen {
			continue
		}
		sign := d.Signum()
		if _, blocked := obstructed[sign]; blocked {
			continue
		}

		occupant, occupied := e.world.Get(target)
		if !occupied {
			e.world.Swap(pCoord, target)
			e.arena.SetCoord(h, target)
			e.arena.SetMomentum(h, d)
			e.arena.Velocity(h).Increment()
			return outcomeFreeMove
		}

		if e.arena.TypeName(occupant) == typeName {
			continue
		}
		if e.arena.Density(h) > e.arena.Density(occupant) {
			e.world.Swap(pCoord, target)
			e.arena.SetCoord(h, target)
			e.arena.SetCoord(occupant, pCoord)
			e.arena.SetMomentum(h, coord.Coord{})
			e.arena.Velocity(h).Decrement()
			return outcomeDensitySwap
		}
		obstructed[sign] = struct{}{}
	}

	e.arena.SetMomentum(h, coord.Coord{})
	e.arena.Velocity(h).Decrement()
	return outcomeBlocked
}

// momentumOffset returns the particle's current momentum offset and
// whether it is live (nonzero and still present somewhere in its motion
// priority).
func (e *Engine) momentumOffset(h particle.Handle) (coord.Coord, bool) {
	m, ok := e.arena.Momentum(h)
	if !ok || m == (coord.Coord{}) {
		return coord.Coord{}, false
	}
	if !containsOffset(e.arena.Priority(h).AllOffsets(), m) {
		return coord.Coord{}, false
	}
	return m, true
}

// candidateOffsets builds the ordered list of offsets to try this
// micro-step, per §4.3: momentum short-circuit takes priority over the
// whole group list; otherwise groups are tried in declared order, each
// shuffled independently by the particle's movement RNG.
func candidateOffsets(priority particle.MotionPriority, momentum coord.Coord, hasMomentum bool, rng *rand.Rand) []coord.Coord {
	if hasMomentum {
		return []coord.Coord{momentum}
	}
	var out []coord.Coord
	for _, group := range priority.Groups {
		shuffled := append([]coord.Coord(nil), group...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		out = append(out, shuffled...)
	}
	return out
}

func containsOffset(offsets []coord.Coord, d coord.Coord) bool {
	for _, o := range offsets {
		if o == d {
			return true
		}
	}
	return false
}
