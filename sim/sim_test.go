package sim

import (
	"testing"

	"github.com/pthm-cable/fallingsand/config"
	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
)

func testConfig() *config.Config {
	return &config.Config{
		World:    config.WorldConfig{ChunkSide: 64, TickIntervalMS: 16, Seed: 1},
		Reaction: config.ReactionConfig{FrameCapMS: 100, RebuildCadenceMS: 0},
		Spatial:  config.SpatialConfig{CellSize: 8},
		Movement: config.MovementConfig{MaxVelocity: 8},
	}
}

func newTestSim(t *testing.T) *Sim {
	t.Helper()
	s := New(testConfig())
	if err := s.Registry.Register(&registry.Blueprint{Name: "sand", Class: particle.ClassMovableSolid, Density: 10}); err != nil {
		t.Fatalf("register sand: %v", err)
	}
	if err := s.Registry.Register(&registry.Blueprint{Name: "wall", Class: particle.ClassWall, Density: particle.WallDensity}); err != nil {
		t.Fatalf("register wall: %v", err)
	}
	return s
}

func TestSpawnPlacesParticleInMap(t *testing.T) {
	s := newTestSim(t)
	c := coord.Coord{X: 3, Y: 4}
	h, err := s.Spawn("sand", c)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	got, ok := s.Get(c)
	if !ok || got != h {
		t.Errorf("Get(%v) = (%v, %v), want (%v, true)", c, got, ok, h)
	}
}

func TestSpawnRejectsOccupiedCell(t *testing.T) {
	s := newTestSim(t)
	c := coord.Coord{X: 0, Y: 0}
	if _, err := s.Spawn("sand", c); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	if _, err := s.Spawn("sand", c); err == nil {
		t.Errorf("expected second spawn at occupied cell to fail")
	}
}

func TestRemoveAtWithoutDespawnClearsMapOnly(t *testing.T) {
	s := newTestSim(t)
	c := coord.Coord{X: 1, Y: 1}
	h, _ := s.Spawn("sand", c)
	s.RemoveAt(c, false)

	if _, ok := s.Get(c); ok {
		t.Errorf("expected cell %v to be empty after RemoveAt", c)
	}
	if !s.Arena.Alive(h) {
		t.Errorf("expected particle record to survive RemoveAt(despawn=false)")
	}
}

func TestRemoveAtWithDespawnDestroysRecord(t *testing.T) {
	s := newTestSim(t)
	c := coord.Coord{X: 1, Y: 1}
	h, _ := s.Spawn("sand", c)
	s.RemoveAt(c, true)

	if s.Arena.Alive(h) {
		t.Errorf("expected particle record to be destroyed by RemoveAt(despawn=true)")
	}
}

func TestClearDynamicParticlesLeavesWalls(t *testing.T) {
	s := newTestSim(t)
	s.Spawn("sand", coord.Coord{X: 0, Y: 0})
	s.Spawn("sand", coord.Coord{X: 1, Y: 0})
	wallC := coord.Coord{X: 5, Y: 5}
	s.Spawn("wall", wallC)

	s.ClearDynamicParticles()

	counts := s.Counts()
	if counts.Dynamic != 0 {
		t.Errorf("Dynamic = %d, want 0", counts.Dynamic)
	}
	if counts.Wall != 1 {
		t.Errorf("Wall = %d, want 1", counts.Wall)
	}
	if _, ok := s.Get(wallC); !ok {
		t.Errorf("expected wall at %v to survive ClearDynamicParticles", wallC)
	}
}

func TestCountsReflectsSpawnedPopulation(t *testing.T) {
	s := newTestSim(t)
	s.Spawn("sand", coord.Coord{X: 0, Y: 0})
	s.Spawn("wall", coord.Coord{X: 1, Y: 0})

	counts := s.Counts()
	if counts.Total != 2 {
		t.Errorf("Total = %d, want 2", counts.Total)
	}
	if counts.Dynamic != 1 {
		t.Errorf("Dynamic = %d, want 1", counts.Dynamic)
	}
	if counts.Wall != 1 {
		t.Errorf("Wall = %d, want 1", counts.Wall)
	}
}

func TestStepAdvancesTickCounter(t *testing.T) {
	s := newTestSim(t)
	if s.Tick() != 0 {
		t.Fatalf("initial tick = %d, want 0", s.Tick())
	}
	s.Step()
	if s.Tick() != 1 {
		t.Errorf("tick after Step = %d, want 1", s.Tick())
	}
}

func TestIterParticlesVisitsEverySpawnedHandle(t *testing.T) {
	s := newTestSim(t)
	s.Spawn("sand", coord.Coord{X: 0, Y: 0})
	s.Spawn("sand", coord.Coord{X: 1, Y: 0})

	seen := 0
	for range s.IterParticles() {
		seen++
	}
	if seen != 2 {
		t.Errorf("iterated %d particles, want 2", seen)
	}
}

func TestStepUsesParallelMovementWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Parallel.Enabled = true
	cfg.Parallel.Workers = 2
	s := New(cfg)
	s.Registry.Register(&registry.Blueprint{Name: "sand", Class: particle.ClassMovableSolid, Density: 10,
		Priority: particle.MotionPriority{Groups: []particle.Group{{{X: 0, Y: -1}}}}})
	h, err := s.Spawn("sand", coord.Coord{X: 0, Y: 5})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	s.Arena.Velocity(h).Max, s.Arena.Velocity(h).Current = 1, 1
	s.World.ResetActivity() // promote the spawn's dirty rect so the chunk is active this tick

	s.Step()

	if got := s.Arena.Coord(h); got != (coord.Coord{X: 0, Y: 4}) {
		t.Errorf("coord after parallel Step = %v, want (0,4)", got)
	}
}

func TestMutateTypeChangesClass(t *testing.T) {
	s := newTestSim(t)
	h, _ := s.Spawn("sand", coord.Coord{X: 0, Y: 0})
	if err := s.MutateType(h, "wall"); err != nil {
		t.Fatalf("MutateType: %v", err)
	}
	if s.Arena.Class(h) != particle.ClassWall {
		t.Errorf("Class after MutateType = %v, want ClassWall", s.Arena.Class(h))
	}
}
