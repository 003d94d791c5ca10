package assets

import (
	"testing"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/spawn"
	"github.com/pthm-cable/fallingsand/worldmap"
)

func TestLoadSceneSpawnsEntriesInOrder(t *testing.T) {
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	reg.Register(&registry.Blueprint{Name: "sand", Class: particle.ClassMovableSolid, Density: 100})
	pipeline := spawn.New(arena, reg, world)

	body := `
- particle: sand
  position: [0, 0]
- particle: sand
  position: [1, 0]
`
	path := writeTempFile(t, "scene.yaml", body)

	if err := LoadScene(pipeline, path, 7); err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}

	if _, ok := world.Get(coord.Coord{X: 0, Y: 0}); !ok {
		t.Errorf("expected a particle at (0,0)")
	}
	if _, ok := world.Get(coord.Coord{X: 1, Y: 0}); !ok {
		t.Errorf("expected a particle at (1,0)")
	}
}

func TestLoadSceneDropsOverlappingEntrySilently(t *testing.T) {
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	reg.Register(&registry.Blueprint{Name: "sand", Class: particle.ClassMovableSolid, Density: 100})
	pipeline := spawn.New(arena, reg, world)

	body := `
- particle: sand
  position: [0, 0]
- particle: sand
  position: [0, 0]
`
	path := writeTempFile(t, "scene.yaml", body)

	if err := LoadScene(pipeline, path, 3); err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}

	h, ok := world.Get(coord.Coord{X: 0, Y: 0})
	if !ok {
		t.Fatalf("expected a particle at (0,0)")
	}
	if !arena.Alive(h) {
		t.Errorf("resident particle should still be alive")
	}
}

func TestLoadSceneUnknownTypeDoesNotAbortRemainingEntries(t *testing.T) {
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	reg.Register(&registry.Blueprint{Name: "sand", Class: particle.ClassMovableSolid, Density: 100})
	pipeline := spawn.New(arena, reg, world)

	body := `
- particle: unobtainium
  position: [0, 0]
- particle: sand
  position: [1, 0]
`
	path := writeTempFile(t, "scene.yaml", body)

	if err := LoadScene(pipeline, path, 11); err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}

	if _, ok := world.Get(coord.Coord{X: 0, Y: 0}); ok {
		t.Errorf("unknown type should not have spawned a particle")
	}
	if _, ok := world.Get(coord.Coord{X: 1, Y: 0}); !ok {
		t.Errorf("sand entry after the bad one should still spawn")
	}
}

func TestLoadSceneMalformedYAML(t *testing.T) {
	arena := particle.NewArena()
	world := worldmap.New()
	reg := registry.New()
	pipeline := spawn.New(arena, reg, world)

	path := writeTempFile(t, "scene.yaml", "- particle: [broken")

	err := LoadScene(pipeline, path, 1)
	if err == nil {
		t.Fatalf("expected SceneLoadFailure")
	}
	if _, ok := err.(*SceneLoadFailure); !ok {
		t.Errorf("error type = %T, want *SceneLoadFailure", err)
	}
}
