// Package spatialindex implements the secondary nearest-neighbor structure
// used only by the reaction engine's radius queries (§4.6). It is rebuilt
// wholesale at a fixed cadence rather than kept live, so reaction-engine
// consumers must tolerate entries up to one refresh stale; the movement
// engine never touches it. Grounded in the teacher's SpatialGrid
// (systems/spatial.go), generalized from a bounded toroidal float grid to
// an unbounded integer grid (no wraparound) and from float positions to
// cell coordinates.
package spatialindex

import (
	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// MaxQueryResults caps the number of neighbors a single query returns, the
// same density-spike guard the teacher's grid applies.
const MaxQueryResults = 256

// Result is one neighbor found by a radius query, with its squared
// distance precomputed so callers doing a line-of-sight check afterward
// never need a square root on the hot path.
type Result struct {
	Coord  coord.Coord
	Handle particle.Handle
	DistSq int64
}

type cellKey struct{ X, Y int32 }

// Index is a sparse bucket grid over particle coordinates, rebuilt
// wholesale by Rebuild.
type Index struct {
	cellSize int32
	cells    map[cellKey][]entry
}

type entry struct {
	coord  coord.Coord
	handle particle.Handle
}

// New creates an empty spatial index with the given cell size. A cell size
// near the expected query radius keeps each query touching few buckets.
func New(cellSize int32) *Index {
	if cellSize < 1 {
		cellSize = 1
	}
	return &Index{cellSize: cellSize, cells: make(map[cellKey][]entry)}
}

func (idx *Index) key(c coord.Coord) cellKey {
	return cellKey{floorDivI32(c.X, idx.cellSize), floorDivI32(c.Y, idx.cellSize)}
}

func floorDivI32(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Rebuild clears and repopulates the index from every live particle in m,
// active or hibernating: a burnable particle in a hibernating chunk must
// still be a valid ignition target for a radius query from an active one.
func (idx *Index) Rebuild(m *worldmap.Map) {
	for k := range idx.cells {
		idx.cells[k] = idx.cells[k][:0]
	}
	for pos, chunk := range m.IterChunks() {
		for local, h := range chunk.Particles() {
			c := pos.World(local)
			k := idx.key(c)
			idx.cells[k] = append(idx.cells[k], entry{coord: c, handle: h})
		}
	}
}

// QueryRadiusInto appends every particle within radius (inclusive,
// Euclidean) of center to dst, excluding exclude itself, up to
// MaxQueryResults. Reuse dst across calls to avoid allocating per query.
func (idx *Index) QueryRadiusInto(dst []Result, center coord.Coord, radius float64, exclude particle.Handle) []Result {
	cellRadius := int32(radius/float64(idx.cellSize)) + 1
	centerKey := idx.key(center)
	radiusSq := int64(radius * radius)

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			k := cellKey{centerKey.X + dc, centerKey.Y + dr}
			for _, e := range idx.cells[k] {
				if e.handle == exclude {
					continue
				}
				dx := int64(e.coord.X - center.X)
				dy := int64(e.coord.Y - center.Y)
				distSq := dx*dx + dy*dy
				if distSq > radiusSq {
					continue
				}
				dst = append(dst, Result{Coord: e.coord, Handle: e.handle, DistSq: distSq})
				if len(dst) >= MaxQueryResults {
					return dst
				}
			}
		}
	}
	return dst
}
