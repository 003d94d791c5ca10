// Package perimeter computes the optional boundary export of spec.md §6:
// connected components of Wall-class cells (8-connected), and the outline
// polygon of each component via Moore-neighborhood boundary tracing, for
// consumers that build rigid-body colliders from the falling-sand terrain.
// Grounded in the teacher's chunk/grid traversal idiom (worldmap.Map's
// IterChunks), generalized from "iterate occupied cells" to "iterate
// Wall-class cells only".
package perimeter

import (
	"sort"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/worldmap"
)

// moore8 lists the eight neighbor offsets in clockwise order starting due
// north, the conventional Moore-neighborhood walk order.
var moore8 = []coord.Coord{
	{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: -1},
	{X: 0, Y: -1}, {X: -1, Y: -1}, {X: -1, Y: 0}, {X: -1, Y: 1},
}

// Component is one connected region of Wall-class cells plus its traced
// outline.
type Component struct {
	Cells    []coord.Coord
	Vertices []coord.Coord
	// EdgeIndices pairs consecutive Vertices entries into polygon edges:
	// edge i connects Vertices[EdgeIndices[2i]] to Vertices[EdgeIndices[2i+1]].
	EdgeIndices []int
}

// Compute scans every Wall-class particle in the map, groups them into
// 8-connected components, and traces each component's outline polygon.
// It runs only when called; nothing in this module calls it when a
// Wall-class particle is added or removed.
func Compute(arena *particle.Arena, world *worldmap.Map) []Component {
	walls := wallSet(arena, world)
	if len(walls) == 0 {
		return nil
	}

	visited := make(map[coord.Coord]struct{}, len(walls))
	var components []Component

	for c := range walls {
		if _, seen := visited[c]; seen {
			continue
		}
		cells := floodFill(c, walls, visited)
		sort.Slice(cells, func(i, j int) bool {
			if cells[i].Y != cells[j].Y {
				return cells[i].Y < cells[j].Y
			}
			return cells[i].X < cells[j].X
		})
		start := minYMinX(cells)
		vertices := traceBoundary(start, walls)
		components = append(components, Component{
			Cells:       cells,
			Vertices:    vertices,
			EdgeIndices: sequentialEdges(len(vertices)),
		})
	}
	return components
}

func wallSet(arena *particle.Arena, world *worldmap.Map) map[coord.Coord]struct{} {
	set := make(map[coord.Coord]struct{})
	for _, chunk := range world.IterChunks() {
		for c, h := range chunk.Particles() {
			if arena.Class(h) == particle.ClassWall {
				set[c] = struct{}{}
			}
		}
	}
	return set
}

func floodFill(start coord.Coord, walls map[coord.Coord]struct{}, visited map[coord.Coord]struct{}) []coord.Coord {
	stack := []coord.Coord{start}
	visited[start] = struct{}{}
	var cells []coord.Coord

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cells = append(cells, c)

		for _, d := range moore8 {
			n := c.Add(d)
			if _, isWall := walls[n]; !isWall {
				continue
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			stack = append(stack, n)
		}
	}
	return cells
}

func minYMinX(cells []coord.Coord) coord.Coord {
	best := cells[0]
	for _, c := range cells[1:] {
		if c.Y < best.Y || (c.Y == best.Y && c.X < best.X) {
			best = c
		}
	}
	return best
}

// traceBoundary walks the outer boundary of the component containing start
// using Moore-neighborhood (square) boundary tracing: at each boundary
// cell, search clockwise from the direction just past the entry direction
// for the next wall cell, emitting it as a vertex.
func traceBoundary(start coord.Coord, walls map[coord.Coord]struct{}) []coord.Coord {
	vertices := []coord.Coord{start}
	current := start
	// Enter as if arrived from the west, so the first scan begins north-west.
	enterDir := 6 // index of {-1,0} in moore8

	for i := 0; i < 1_000_000; i++ {
		found := false
		for step := 1; step <= len(moore8); step++ {
			dir := (enterDir + step) % len(moore8)
			cand := current.Add(moore8[dir])
			if _, isWall := walls[cand]; !isWall {
				continue
			}
			current = cand
			enterDir = (dir + len(moore8)/2) % len(moore8)
			found = true
			break
		}
		if !found {
			break
		}
		if current == start {
			break
		}
		vertices = append(vertices, current)
	}
	return vertices
}

func sequentialEdges(n int) []int {
	if n < 2 {
		return nil
	}
	edges := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		edges = append(edges, i, (i+1)%n)
	}
	return edges
}
