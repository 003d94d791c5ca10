package worldmap

import "github.com/pthm-cable/fallingsand/coord"

// ActiveColorClasses partitions this tick's active chunks into the four
// (cx mod 2, cy mod 2) color classes described in §5. Chunks within one
// class are never within 1 of each other, so a caller may process one
// class's chunks concurrently, barrier, then move to the next class,
// mirroring the teacher's snapshot/worker-scratch/apply shape in
// game/parallel.go without ever mutating two adjacent chunks from two
// goroutines at once.
func (m *Map) ActiveColorClasses() [4][]coord.ChunkPos {
	var classes [4][]coord.ChunkPos
	for pos, c := range m.chunks {
		if !c.Active() {
			continue
		}
		class := pos.ColorClass()
		classes[class] = append(classes[class], pos)
	}
	for i := range classes {
		sortRowMajor(classes[i])
	}
	return classes
}
