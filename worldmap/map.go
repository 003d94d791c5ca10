// Package worldmap implements the Coordinate Map (§4.1): the sole authority
// on which cell holds which particle, a sparse set of fixed-size chunks
// keyed by chunk coordinate, each owning a dense array plus a dirty
// rectangle. The shape is grounded in the teacher's SpatialGrid
// (systems/spatial.go) generalized from a bounded toroidal float grid to an
// unbounded, lazily-allocated integer chunk grid, and in its dense-array
// resource-field tiling (systems/particle_resource.go) for the per-chunk
// backing store.
package worldmap

import (
	"iter"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
)

// Map is the sparse chunked spatial index described in §4.1.
type Map struct {
	chunks map[coord.ChunkPos]*Chunk
}

// New creates an empty coordinate map.
func New() *Map {
	return &Map{chunks: make(map[coord.ChunkPos]*Chunk)}
}

// ChunkAt returns the chunk at pos, if it has been allocated.
func (m *Map) ChunkAt(pos coord.ChunkPos) (*Chunk, bool) {
	c := m.chunkFor(pos, false)
	return c, c != nil
}

func (m *Map) chunkFor(pos coord.ChunkPos, create bool) *Chunk {
	c, ok := m.chunks[pos]
	if !ok {
		if !create {
			return nil
		}
		c = &Chunk{}
		m.chunks[pos] = c
	}
	return c
}

// Get returns the handle resident at coord, if any. O(1), no side effects.
func (m *Map) Get(c coord.Coord) (particle.Handle, bool) {
	pos, local := coord.ChunkOf(c)
	chunk := m.chunkFor(pos, false)
	if chunk == nil {
		return particle.Handle{}, false
	}
	return chunk.get(local)
}

// InsertNoOverwrite writes h at c only if c is currently empty. It returns
// the handle now resident at c: h on success, the prior occupant on
// failure. On success it marks the chunk (and any cross-boundary neighbor)
// dirty per §4.1's halo protocol.
func (m *Map) InsertNoOverwrite(c coord.Coord, h particle.Handle) (resident particle.Handle, ok bool) {
	pos, local := coord.ChunkOf(c)
	chunk := m.chunkFor(pos, true)
	if existing, occupied := chunk.get(local); occupied {
		return existing, false
	}
	chunk.set(local, h)
	m.markDirty(pos, local)
	return h, true
}

// Remove clears c and marks the owning chunk dirty.
func (m *Map) Remove(c coord.Coord) (particle.Handle, bool) {
	pos, local := coord.ChunkOf(c)
	chunk := m.chunkFor(pos, false)
	if chunk == nil {
		return particle.Handle{}, false
	}
	h, ok := chunk.clear(local)
	if ok {
		m.markDirty(pos, local)
	}
	return h, ok
}

// Swap exchanges the occupants of a and b, which may each be empty or
// occupied. Both owning chunks (and any cross-boundary neighbors) are
// marked dirty. Callers never call Swap when both cells are empty.
func (m *Map) Swap(a, b coord.Coord) {
	ha, aOccupied := m.Get(a)
	hb, bOccupied := m.Get(b)

	posA, localA := coord.ChunkOf(a)
	posB, localB := coord.ChunkOf(b)
	chunkA := m.chunkFor(posA, true)
	chunkB := m.chunkFor(posB, true)

	if aOccupied {
		chunkB.set(localB, ha)
	} else {
		chunkB.clear(localB)
	}
	if bOccupied {
		chunkA.set(localA, hb)
	} else {
		chunkA.clear(localA)
	}

	m.markDirty(posA, localA)
	m.markDirty(posB, localB)
}

// markDirty expands the chunk's own activity, plus the activity of any
// neighbor chunk whose footprint the 1-cell halo spills into, per §4.1's
// edge case: "insert into a cell that equals the owning chunk's edge must
// also mark the adjacent chunk(s) dirty."
func (m *Map) markDirty(pos coord.ChunkPos, local coord.Coord) {
	m.chunkFor(pos, true).markDirty(local)

	for _, d := range []coord.Coord{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}} {
		nl := coord.Coord{X: local.X + d.X, Y: local.Y + d.Y}
		if nl.X >= 0 && nl.X < coord.C && nl.Y >= 0 && nl.Y < coord.C {
			continue // stayed within the same chunk, already handled above
		}
		npos, nlocal := coord.ChunkPos{X: pos.X, Y: pos.Y}, nl
		if nl.X < 0 {
			npos.X--
			nlocal.X += coord.C
		} else if nl.X >= coord.C {
			npos.X++
			nlocal.X -= coord.C
		}
		if nl.Y < 0 {
			npos.Y--
			nlocal.Y += coord.C
		} else if nl.Y >= coord.C {
			npos.Y++
			nlocal.Y -= coord.C
		}
		m.chunkFor(npos, true).markDirty(nlocal)
	}
}

// IterChunks iterates every allocated chunk, active or not. For debug use.
func (m *Map) IterChunks() iter.Seq2[coord.ChunkPos, *Chunk] {
	return func(yield func(coord.ChunkPos, *Chunk) bool) {
		for pos, c := range m.chunks {
			if !yield(pos, c) {
				return
			}
		}
	}
}

// IterActiveChunks iterates only chunks with a non-empty promoted dirty
// rectangle, in row-major chunk-coordinate order, matching the movement
// engine's required outer-loop order (§4.4).
func (m *Map) IterActiveChunks() iter.Seq2[coord.ChunkPos, *Chunk] {
	return func(yield func(coord.ChunkPos, *Chunk) bool) {
		positions := make([]coord.ChunkPos, 0, len(m.chunks))
		for pos, c := range m.chunks {
			if c.Active() {
				positions = append(positions, pos)
			}
		}
		sortRowMajor(positions)
		for _, pos := range positions {
			if !yield(pos, m.chunks[pos]) {
				return
			}
		}
	}
}

func sortRowMajor(positions []coord.ChunkPos) {
	// Insertion sort: active-chunk counts per tick are small relative to
	// total particle count, and this keeps the dependency list short.
	for i := 1; i < len(positions); i++ {
		for j := i; j > 0 && less(positions[j], positions[j-1]); j-- {
			positions[j], positions[j-1] = positions[j-1], positions[j]
		}
	}
}

func less(a, b coord.ChunkPos) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// ResetActivity promotes each chunk's accumulated nextDirtyRect to this
// tick's dirtyRect, clears the accumulator, and drops chunks that are both
// empty and inactive, per §4.1.
func (m *Map) ResetActivity() {
	for pos, c := range m.chunks {
		c.dirtyRect = c.nextDirtyRect
		c.nextDirtyRect = nil
		if c.Empty() && c.dirtyRect == nil {
			delete(m.chunks, pos)
		}
	}
}

// ChunkCount returns the number of currently allocated chunks (debug/test
// use).
func (m *Map) ChunkCount() int { return len(m.chunks) }
