package worldmap

import (
	"iter"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
)

// Rect is an inclusive axis-aligned sub-rectangle in a chunk's local
// coordinate space (§3, "dirty_rect").
type Rect struct {
	MinX, MinY, MaxX, MaxY int32
}

// Contains reports whether the local cell (x, y) falls inside r.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

func (r *Rect) expand(x, y int32) {
	if x < r.MinX {
		r.MinX = x
	}
	if x > r.MaxX {
		r.MaxX = x
	}
	if y < r.MinY {
		r.MinY = y
	}
	if y > r.MaxY {
		r.MaxY = y
	}
}

// Chunk is a C×C tile of the world grid holding occupancy and activity
// state (§3).
type Chunk struct {
	occupied [coord.C * coord.C]bool
	handles  [coord.C * coord.C]particle.Handle

	// dirtyRect is this tick's promoted activity rectangle; nil means the
	// chunk hibernates this tick.
	dirtyRect *Rect
	// nextDirtyRect accumulates writes for promotion at the next
	// ResetActivity call.
	nextDirtyRect *Rect

	count int // number of occupied cells, for cheap emptiness checks
}

func idx(local coord.Coord) int { return int(local.Y)*coord.C + int(local.X) }

func (c *Chunk) get(local coord.Coord) (particle.Handle, bool) {
	i := idx(local)
	if !c.occupied[i] {
		return particle.Handle{}, false
	}
	return c.handles[i], true
}

func (c *Chunk) set(local coord.Coord, h particle.Handle) {
	i := idx(local)
	if !c.occupied[i] {
		c.count++
	}
	c.occupied[i] = true
	c.handles[i] = h
}

func (c *Chunk) clear(local coord.Coord) (particle.Handle, bool) {
	i := idx(local)
	if !c.occupied[i] {
		return particle.Handle{}, false
	}
	h := c.handles[i]
	c.occupied[i] = false
	c.handles[i] = particle.Handle{}
	c.count--
	return h, true
}

// markDirty expands nextDirtyRect to include local and a 1-cell halo, per
// the dirty-rectangle protocol in §4.1.
func (c *Chunk) markDirty(local coord.Coord) {
	lo := Rect{local.X - 1, local.Y - 1, local.X + 1, local.Y + 1}
	if c.nextDirtyRect == nil {
		r := lo
		c.nextDirtyRect = &r
		return
	}
	c.nextDirtyRect.expand(lo.MinX, lo.MinY)
	c.nextDirtyRect.expand(lo.MaxX, lo.MaxY)
}

// Active reports whether this chunk should be processed this tick.
func (c *Chunk) Active() bool { return c.dirtyRect != nil }

// DirtyRect returns this tick's promoted activity rectangle and whether the
// chunk is active.
func (c *Chunk) DirtyRect() (Rect, bool) {
	if c.dirtyRect == nil {
		return Rect{}, false
	}
	return *c.dirtyRect, true
}

// Empty reports whether the chunk currently holds no particles.
func (c *Chunk) Empty() bool { return c.count == 0 }

// Particles iterates the chunk's occupied cells in row-major local order,
// the intra-chunk order required by the movement engine's outer loop
// (§4.4).
func (c *Chunk) Particles() iter.Seq2[coord.Coord, particle.Handle] {
	return func(yield func(coord.Coord, particle.Handle) bool) {
		for y := int32(0); y < coord.C; y++ {
			for x := int32(0); x < coord.C; x++ {
				local := coord.Coord{X: x, Y: y}
				i := idx(local)
				if !c.occupied[i] {
					continue
				}
				if !yield(local, c.handles[i]) {
					return
				}
			}
		}
	}
}
