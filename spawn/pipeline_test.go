package spawn

import (
	"testing"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/worldmap"
)

func newTestPipeline(t *testing.T) (*Pipeline, *registry.Registry, *particle.Arena, *worldmap.Map) {
	t.Helper()
	arena := particle.NewArena()
	reg := registry.New()
	m := worldmap.New()
	if err := reg.Register(&registry.Blueprint{Name: "sand", Density: 10}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return New(arena, reg, m), reg, arena, m
}

func TestSpawnPlacesParticleAndAppliesBlueprint(t *testing.T) {
	p, _, arena, m := newTestPipeline(t)
	c := coord.Coord{X: 1, Y: 1}

	h, err := p.Spawn("sand", c, 1)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if got, ok := m.Get(c); !ok || got != h {
		t.Fatalf("map does not hold the spawned handle, got %v ok=%v", got, ok)
	}
	if got := arena.Density(h); got != 10 {
		t.Errorf("density = %d, want 10", got)
	}
}

func TestSpawnUnknownType(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	_, err := p.Spawn("lava", coord.Coord{}, 1)
	if _, ok := err.(*registry.UnknownType); !ok {
		t.Fatalf("expected UnknownType, got %v", err)
	}
}

func TestSpawnCellOccupied(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	c := coord.Coord{X: 2, Y: 2}
	if _, err := p.Spawn("sand", c, 1); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	_, err := p.Spawn("sand", c, 2)
	if _, ok := err.(*CellOccupied); !ok {
		t.Fatalf("expected CellOccupied, got %v", err)
	}
}

func TestSpawnIgnitesOnSpawn(t *testing.T) {
	arena := particle.NewArena()
	reg := registry.New()
	m := worldmap.New()
	reg.Register(&registry.Blueprint{
		Name:    "oil",
		Density: 5,
		Burns:   &particle.Burns{Duration: 3, TickRate: 1, IgnitesOnSpawn: true},
	})
	p := New(arena, reg, m)

	h, err := p.Spawn("oil", coord.Coord{}, 1)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	burning, ok := arena.Burning(h)
	if !ok {
		t.Fatalf("expected ignites_on_spawn particle to start Burning")
	}
	if burning.Remaining != 3 {
		t.Errorf("remaining = %v, want 3", burning.Remaining)
	}
}

func TestDespawnRemovesFromMapAndRegistry(t *testing.T) {
	p, reg, arena, m := newTestPipeline(t)
	c := coord.Coord{X: 3, Y: 3}
	h, _ := p.Spawn("sand", c, 1)

	p.Despawn(h)

	if _, ok := m.Get(c); ok {
		t.Errorf("map should no longer hold the despawned cell")
	}
	if arena.Alive(h) {
		t.Errorf("handle should no longer be alive")
	}
	for _, inst := range reg.InstancesOf("sand") {
		if inst == h {
			t.Errorf("despawned handle should have been forgotten by the registry")
		}
	}
}
