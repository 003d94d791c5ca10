// Package coord provides the signed integer grid coordinate used to index
// particles and the chunk math built on top of it.
package coord

import "golang.org/x/exp/constraints"

// C is the chunk side length. Recommended 32 or 64 per spec; 32 keeps a
// chunk's dense array small enough that hibernating chunks are cheap to
// skip entirely.
const C = 32

// Coord is a signed 2-D cell coordinate. Up is +Y.
type Coord struct {
	X, Y int32
}

// Add returns c+d.
func (c Coord) Add(d Coord) Coord {
	return Coord{c.X + d.X, c.Y + d.Y}
}

// Sub returns c-d.
func (c Coord) Sub(d Coord) Coord {
	return Coord{c.X - d.X, c.Y - d.Y}
}

// Sign is the elementwise sign of a coordinate, used as the key for the
// movement engine's per-micro-step "obstructed" set (§4.4).
type Sign struct {
	X, Y int8
}

// Signum returns the elementwise sign of c.
func (c Coord) Signum() Sign {
	return Sign{sign(c.X), sign(c.Y)}
}

func sign[T constraints.Signed](v T) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// ChunkPos identifies a chunk by its chunk-space coordinate.
type ChunkPos struct {
	X, Y int32
}

// ChunkOf returns the chunk containing c and c's local offset within it.
func ChunkOf(c Coord) (pos ChunkPos, local Coord) {
	return ChunkPos{floorDiv(c.X, C), floorDiv(c.Y, C)}, Coord{floorMod(c.X, C), floorMod(c.Y, C)}
}

// World reconstructs the world coordinate of a chunk-local cell.
func (p ChunkPos) World(local Coord) Coord {
	return Coord{p.X*C + local.X, p.Y*C + local.Y}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int32) int32 {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

// ColorClass returns the (cx mod 2, cy mod 2) class used to partition chunks
// into four independently-parallelizable passes (§5). Chunks in the same
// class are never adjacent, so movement bounded to C/2 cells per tick cannot
// race across a class boundary.
func (p ChunkPos) ColorClass() int {
	x := p.X & 1
	y := p.Y & 1
	if x < 0 {
		x += 2
	}
	if y < 0 {
		y += 2
	}
	return int(y*2 + x)
}
