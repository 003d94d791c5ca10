package reaction

import (
	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// lineOfSight walks the integer cells on the segment from a to b
// (exclusive of both endpoints) and reports whether any of them holds a
// particle whose class blocks fire propagation (§4.5: "blocked by Wall/
// Solid/MovableSolid cells along the integer ray").
func lineOfSight(arena *particle.Arena, m *worldmap.Map, a, b coord.Coord) bool {
	for _, c := range bresenham(a, b) {
		h, occupied := m.Get(c)
		if !occupied {
			continue
		}
		if arena.Class(h).BlocksLineOfSight() {
			return false
		}
	}
	return true
}

// bresenham returns the integer cells strictly between a and b (endpoints
// excluded), using Bresenham's line algorithm.
func bresenham(a, b coord.Coord) []coord.Coord {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y

	dx := abs32(x1 - x0)
	dy := -abs32(y1 - y0)
	sx := int32(1)
	if x0 >= x1 {
		sx = -1
	}
	sy := int32(1)
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	var out []coord.Coord
	x, y := x0, y0
	for {
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		if x == x1 && y == y1 {
			break
		}
		out = append(out, coord.Coord{X: x, Y: y})
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
