package reaction

import (
	"testing"
	"time"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/spatialindex"
	"github.com/pthm-cable/fallingsand/spawn"
	"github.com/pthm-cable/fallingsand/worldmap"
)

func newTestEngine(t *testing.T) (*Engine, *spawn.Pipeline, *particle.Arena, *worldmap.Map) {
	t.Helper()
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	pipeline := spawn.New(arena, reg, world)

	reg.Register(&registry.Blueprint{Name: "fire", Class: particle.ClassGas, Density: 1})
	reg.Register(&registry.Blueprint{Name: "wood", Class: particle.ClassSolid, Density: 20,
		Burns: &particle.Burns{Duration: 1, TickRate: 1}})
	reg.Register(&registry.Blueprint{Name: "wall", Class: particle.ClassWall, Density: particle.WallDensity})

	idx := spatialindex.New(8)
	e := New(arena, world, idx, pipeline, 1)
	e.SetRebuildCadence(0) // rebuild every Step in tests
	return e, pipeline, arena, world
}

func TestFireIgnitesBurnableWithinRadius(t *testing.T) {
	e, pipeline, arena, world := newTestEngine(t)
	fireHandle, err := pipeline.Spawn("fire", coord.Coord{X: 0, Y: 0}, 1)
	if err != nil {
		t.Fatalf("spawn fire: %v", err)
	}
	arena.SetFire(fireHandle, particle.Fire{BurnRadius: 3, ChanceToSpread: 1})
	wood, err := pipeline.Spawn("wood", coord.Coord{X: 1, Y: 0}, 2)
	if err != nil {
		t.Fatalf("spawn wood: %v", err)
	}
	world.ResetActivity() // promote this tick's inserts so the fire source counts as active

	e.Step(time.Second)

	if _, burning := arena.Burning(wood); !burning {
		t.Errorf("wood within radius and unobstructed LOS should have ignited")
	}
}

func TestFireDoesNotIgniteAcrossBlockedLineOfSight(t *testing.T) {
	e, pipeline, arena, world := newTestEngine(t)
	fireHandle, _ := pipeline.Spawn("fire", coord.Coord{X: 0, Y: 0}, 1)
	arena.SetFire(fireHandle, particle.Fire{BurnRadius: 5, ChanceToSpread: 1})
	if _, err := pipeline.Spawn("wall", coord.Coord{X: 1, Y: 0}, 2); err != nil {
		t.Fatalf("spawn wall: %v", err)
	}
	wood, err := pipeline.Spawn("wood", coord.Coord{X: 2, Y: 0}, 3)
	if err != nil {
		t.Fatalf("spawn wood: %v", err)
	}
	world.ResetActivity()

	e.Step(time.Second)

	if _, burning := arena.Burning(wood); burning {
		t.Errorf("wood behind a wall should not ignite")
	}
}

func TestFireDestroysOnSpreadWhenConfigured(t *testing.T) {
	e, pipeline, arena, world := newTestEngine(t)
	fireHandle, _ := pipeline.Spawn("fire", coord.Coord{X: 0, Y: 0}, 1)
	arena.SetFire(fireHandle, particle.Fire{BurnRadius: 3, ChanceToSpread: 1, DestroysOnSpread: true})
	pipeline.Spawn("wood", coord.Coord{X: 1, Y: 0}, 2)
	world.ResetActivity()

	e.Step(time.Second)

	if arena.Alive(fireHandle) {
		t.Errorf("fire should have been destroyed after successfully spreading")
	}
	if _, occupied := world.Get(coord.Coord{X: 0, Y: 0}); occupied {
		t.Errorf("destroyed fire's cell should be empty")
	}
}

func TestHibernatingChunkContributesNoReactionWork(t *testing.T) {
	e, pipeline, arena, world := newTestEngine(t)
	fireHandle, err := pipeline.Spawn("fire", coord.Coord{X: 0, Y: 0}, 1)
	if err != nil {
		t.Fatalf("spawn fire: %v", err)
	}
	arena.SetFire(fireHandle, particle.Fire{BurnRadius: 3, ChanceToSpread: 1})
	wood, err := pipeline.Spawn("wood", coord.Coord{X: 1, Y: 0}, 2)
	if err != nil {
		t.Fatalf("spawn wood: %v", err)
	}
	// deliberately no world.ResetActivity(): the chunk's dirtyRect stays nil,
	// so it hibernates this tick and neither particle should be touched.

	e.Step(time.Second)

	if _, burning := arena.Burning(wood); burning {
		t.Errorf("wood should not have ignited from a hibernating chunk")
	}

	// now promote activity and confirm the same fire/wood pair DOES ignite,
	// proving the prior result was caused by hibernation and not some other
	// reason (e.g. a bad radius or LOS check).
	world.ResetActivity()
	e.Step(time.Second)
	if _, burning := arena.Burning(wood); !burning {
		t.Errorf("wood should ignite once its chunk is promoted active")
	}
}

func TestBurningExtinguishesAfterDuration(t *testing.T) {
	e, _, arena, world := newTestEngine(t)
	h := arena.NewHandle("wood", coord.Coord{X: 5, Y: 5}, 9)
	world.InsertNoOverwrite(coord.Coord{X: 5, Y: 5}, h)
	world.ResetActivity()
	arena.SetBurns(h, particle.Burns{Duration: 1, TickRate: 1})
	// Step caps dt at FrameCap (100ms), so leave less than one capped step.
	arena.SetBurning(h, particle.Burning{Remaining: 0.05})

	e.Step(2 * time.Second)

	if _, burning := arena.Burning(h); burning {
		t.Errorf("burning should have cleared once remaining expired")
	}
}

func TestBurningDestroysWhenDestroyChanceSetAndExpired(t *testing.T) {
	e, _, arena, world := newTestEngine(t)
	h := arena.NewHandle("wood", coord.Coord{X: 5, Y: 5}, 9)
	world.InsertNoOverwrite(coord.Coord{X: 5, Y: 5}, h)
	world.ResetActivity()
	destroyChance := 1.0
	arena.SetBurns(h, particle.Burns{Duration: 1, TickRate: 1, DestroyChance: &destroyChance})
	// Step caps dt at FrameCap (100ms), so leave less than one capped step.
	arena.SetBurning(h, particle.Burning{Remaining: 0.05})

	e.Step(2 * time.Second)

	if arena.Alive(h) {
		t.Errorf("particle should be destroyed when remaining expires and destroy_chance is set")
	}
}

func TestFlowsAdvancesSelectedIndex(t *testing.T) {
	e, _, arena, world := newTestEngine(t)
	h := arena.NewHandle("leaf", coord.Coord{X: 0, Y: 0}, 4)
	world.InsertNoOverwrite(coord.Coord{X: 0, Y: 0}, h)
	world.ResetActivity()
	arena.SetPalette(h, particle.ColorPalette{Colors: []particle.RGBA{{R: 1}, {G: 1}, {B: 1}}})
	arena.SetFlows(h, particle.Flows{Rate: 1})

	e.Step(time.Second)

	pal, _ := arena.Palette(h)
	if pal.Selected != 1 {
		t.Errorf("selected index = %d, want 1 after one guaranteed advance", pal.Selected)
	}
}
