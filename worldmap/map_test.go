package worldmap

import (
	"testing"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
)

// testArena mints distinct real handles for map tests; the map itself never
// looks at particle component data, only handle identity.
var testArena = particle.NewArena()

func h(n uint32) particle.Handle {
	return testArena.NewHandle("test", coord.Coord{}, uint64(n))
}

func TestInsertNoOverwrite(t *testing.T) {
	m := New()
	c := coord.Coord{X: 5, Y: 5}

	resident, ok := m.InsertNoOverwrite(c, h(1))
	if !ok || resident != h(1) {
		t.Fatalf("expected successful insert, got resident=%v ok=%v", resident, ok)
	}

	resident, ok = m.InsertNoOverwrite(c, h(2))
	if ok || resident != h(1) {
		t.Fatalf("expected rejected insert to report prior occupant, got resident=%v ok=%v", resident, ok)
	}

	got, found := m.Get(c)
	if !found || got != h(1) {
		t.Fatalf("cell should still hold original occupant, got %v found=%v", got, found)
	}
}

func TestSwapBothOccupied(t *testing.T) {
	m := New()
	a, b := coord.Coord{X: 0, Y: 0}, coord.Coord{X: 1, Y: 0}
	m.InsertNoOverwrite(a, h(1))
	m.InsertNoOverwrite(b, h(2))

	m.Swap(a, b)

	if got, _ := m.Get(a); got != h(2) {
		t.Errorf("a should now hold h(2), got %v", got)
	}
	if got, _ := m.Get(b); got != h(1) {
		t.Errorf("b should now hold h(1), got %v", got)
	}
}

func TestSwapOneEmpty(t *testing.T) {
	m := New()
	a, b := coord.Coord{X: 0, Y: 0}, coord.Coord{X: 1, Y: 0}
	m.InsertNoOverwrite(a, h(1))

	m.Swap(a, b)

	if _, occupied := m.Get(a); occupied {
		t.Errorf("a should now be empty")
	}
	if got, occupied := m.Get(b); !occupied || got != h(1) {
		t.Errorf("b should now hold h(1), got %v occupied=%v", got, occupied)
	}
}

func TestRemove(t *testing.T) {
	m := New()
	c := coord.Coord{X: 2, Y: 2}
	m.InsertNoOverwrite(c, h(1))

	got, ok := m.Remove(c)
	if !ok || got != h(1) {
		t.Fatalf("expected to remove h(1), got %v ok=%v", got, ok)
	}
	if _, found := m.Get(c); found {
		t.Errorf("cell should be empty after remove")
	}
}

func TestDirtyRectHaloPromotion(t *testing.T) {
	m := New()
	c := coord.Coord{X: 0, Y: 0}
	m.InsertNoOverwrite(c, h(1))

	pos, _ := coord.ChunkOf(c)
	chunk := m.chunks[pos]
	if chunk.Active() {
		t.Fatalf("chunk should not be active before ResetActivity promotes it")
	}

	m.ResetActivity()

	if !chunk.Active() {
		t.Fatalf("chunk should be active after promotion")
	}
	rect, _ := chunk.DirtyRect()
	if !rect.Contains(0, 0) || !rect.Contains(1, 1) {
		t.Errorf("dirty rect should include the written cell and its halo, got %+v", rect)
	}
}

func TestResetActivityDropsEmptyInactiveChunks(t *testing.T) {
	m := New()
	c := coord.Coord{X: 10, Y: 10}
	m.InsertNoOverwrite(c, h(1))
	m.ResetActivity() // promote write
	m.Remove(c)
	m.ResetActivity() // promote the removal's dirty halo (chunk still active)
	if m.ChunkCount() == 0 {
		t.Fatalf("chunk should still exist: removal itself marks it active one more tick")
	}
	m.ResetActivity() // nothing wrote this tick: chunk goes empty+inactive and is dropped
	if m.ChunkCount() != 0 {
		t.Errorf("expected empty, inactive chunk to be dropped, got %d chunks", m.ChunkCount())
	}
}

func TestIterActiveChunksRowMajorOrder(t *testing.T) {
	m := New()
	coords := []coord.Coord{{X: 100, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 100}, {X: -100, Y: 0}}
	for i, c := range coords {
		m.InsertNoOverwrite(c, h(uint32(i+1)))
	}
	m.ResetActivity()

	var seen []coord.ChunkPos
	for pos := range m.IterActiveChunks() {
		seen = append(seen, pos)
	}
	for i := 1; i < len(seen); i++ {
		if less(seen[i], seen[i-1]) {
			t.Fatalf("active chunks not in row-major order: %v", seen)
		}
	}
}
