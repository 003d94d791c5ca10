package coord

import "testing"

func TestChunkOfRoundTrip(t *testing.T) {
	cases := []Coord{{0, 0}, {31, 31}, {32, 32}, {-1, -1}, {-32, -32}, {-33, 5}}
	for _, c := range cases {
		pos, local := ChunkOf(c)
		if local.X < 0 || local.X >= C || local.Y < 0 || local.Y >= C {
			t.Fatalf("ChunkOf(%v) local out of range: %v", c, local)
		}
		if got := pos.World(local); got != c {
			t.Errorf("round trip failed for %v: got %v via pos=%v local=%v", c, got, pos, local)
		}
	}
}

func TestSignum(t *testing.T) {
	if s := (Coord{-3, 0}).Signum(); s != (Sign{-1, 0}) {
		t.Errorf("got %v", s)
	}
	if s := (Coord{0, 7}).Signum(); s != (Sign{0, 1}) {
		t.Errorf("got %v", s)
	}
}

func TestColorClassNeverAdjacentWithinClass(t *testing.T) {
	seen := map[int][]ChunkPos{}
	for x := int32(-4); x <= 4; x++ {
		for y := int32(-4); y <= 4; y++ {
			p := ChunkPos{x, y}
			seen[p.ColorClass()] = append(seen[p.ColorClass()], p)
		}
	}
	for class, positions := range seen {
		for i, a := range positions {
			for j, b := range positions {
				if i == j {
					continue
				}
				dx, dy := a.X-b.X, a.Y-b.Y
				if dx < 0 {
					dx = -dx
				}
				if dy < 0 {
					dy = -dy
				}
				if dx <= 1 && dy <= 1 && (dx+dy) != 0 {
					t.Errorf("class %d contains adjacent chunks %v and %v", class, a, b)
				}
			}
		}
	}
}
