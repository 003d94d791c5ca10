// Package assets loads the two external YAML file formats of spec.md §6:
// particle-definitions files (type name → blueprint record) and scene files
// (a flat list of spawn requests). Parsing follows the teacher's config
// package convention of gopkg.in/yaml.v3 over a plain Go struct tree, but
// these files are user-supplied at runtime rather than go:embed'd.
package assets

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/fallingsand/coord"
	"github.com/pthm-cable/fallingsand/particle"
	"github.com/pthm-cable/fallingsand/registry"
)

// MalformedDefinitionsFile is returned when the definitions file itself
// cannot be parsed as YAML; no blueprints are registered (§7).
type MalformedDefinitionsFile struct {
	Path string
	Err  error
}

func (e *MalformedDefinitionsFile) Error() string {
	return fmt.Sprintf("assets: malformed definitions file %q: %v", e.Path, e.Err)
}

func (e *MalformedDefinitionsFile) Unwrap() error { return e.Err }

// InvalidRecord describes one particle-definitions record that failed
// validation. The rest of the file still loads (§7).
type InvalidRecord struct {
	Name   string
	Reason string
}

func (e *InvalidRecord) Error() string {
	return fmt.Sprintf("assets: invalid particle record %q: %s", e.Name, e.Reason)
}

// fireRecord mirrors §6's fire/spreads shape.
type fireRecord struct {
	BurnRadius       float32 `yaml:"burn_radius"`
	ChanceToSpread   float64 `yaml:"chance_to_spread"`
	DestroysOnSpread bool    `yaml:"destroys_on_spread"`
}

// reactionRecord mirrors §6's burns.reaction shape.
type reactionRecord struct {
	Produces string  `yaml:"produces"`
	Chance   float64 `yaml:"chance"`
}

// burnsRecord mirrors §6's burns shape. Durations are milliseconds on the
// wire, converted to seconds for particle.Burns.
type burnsRecord struct {
	DurationMS           uint64          `yaml:"duration"`
	TickRateMS           uint64          `yaml:"tick_rate"`
	ChanceDestroyPerTick *float64        `yaml:"chance_destroy_per_tick"`
	Reaction             *reactionRecord `yaml:"reaction"`
	Colors               []string        `yaml:"colors"`
	Spreads              *fireRecord     `yaml:"spreads"`
	IgnitesOnSpawn       bool            `yaml:"ignites_on_spawn"`
}

// particleRecord is one entry of the particle-definitions file (§6).
type particleRecord struct {
	Density       *uint32      `yaml:"density"`
	MaxVelocity   *uint8       `yaml:"max_velocity"`
	Momentum      bool         `yaml:"momentum"`
	Liquid        *uint8       `yaml:"liquid"`
	Gas           *uint8       `yaml:"gas"`
	MovableSolid  bool         `yaml:"movable_solid"`
	Solid         bool         `yaml:"solid"`
	Wall          bool         `yaml:"wall"`
	Colors        []string     `yaml:"colors"`
	ChangesColors *float64     `yaml:"changes_colors"`
	Fire          *fireRecord  `yaml:"fire"`
	Burns         *burnsRecord `yaml:"burns"`
}

// LoadDefinitions parses a particle-definitions file and registers every
// valid record's blueprint. A record that fails validation is reported in
// the returned slice but does not abort the load (§7: "one record fails,
// the rest still load"). A file that cannot even be parsed as YAML returns
// MalformedDefinitionsFile and registers nothing.
func LoadDefinitions(reg *registry.Registry, path string) ([]*InvalidRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MalformedDefinitionsFile{Path: path, Err: err}
	}

	var raw map[string]particleRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedDefinitionsFile{Path: path, Err: err}
	}

	var invalid []*InvalidRecord
	for name, rec := range raw {
		bp, err := toBlueprint(name, rec)
		if err != nil {
			invalid = append(invalid, err.(*InvalidRecord))
			continue
		}
		if err := reg.Register(bp); err != nil {
			invalid = append(invalid, &InvalidRecord{Name: name, Reason: err.Error()})
		}
	}
	return invalid, nil
}

func toBlueprint(name string, rec particleRecord) (*registry.Blueprint, error) {
	class, fluidity, err := materialClass(rec)
	if err != nil {
		return nil, &InvalidRecord{Name: name, Reason: err.Error()}
	}

	density := particle.Density(0)
	if rec.Density != nil {
		density = particle.Density(*rec.Density)
	}
	if class == particle.ClassWall {
		density = particle.WallDensity
	}

	maxVel := uint8(1)
	if rec.MaxVelocity != nil {
		maxVel = *rec.MaxVelocity
	}

	bp := &registry.Blueprint{
		Name:     name,
		Class:    class,
		Density:  density,
		Velocity: particle.Velocity{Current: 1, Max: maxVel},
		Priority: canonicalPriority(class, fluidity),
	}

	if rec.Momentum {
		m := coord.Coord{}
		bp.Momentum = &m
	}

	if len(rec.Colors) > 0 {
		colors, err := parseColors(rec.Colors)
		if err != nil {
			return nil, &InvalidRecord{Name: name, Reason: err.Error()}
		}
		bp.Palette = &particle.ColorPalette{Colors: colors}
	}

	if rec.ChangesColors != nil {
		bp.Randomizes = &particle.Randomizes{Rate: *rec.ChangesColors}
	}

	if rec.Fire != nil {
		bp.Fire = &particle.Fire{
			BurnRadius:       rec.Fire.BurnRadius,
			ChanceToSpread:   rec.Fire.ChanceToSpread,
			DestroysOnSpread: rec.Fire.DestroysOnSpread,
		}
	}

	if rec.Burns != nil {
		burns, err := toBurns(*rec.Burns)
		if err != nil {
			return nil, &InvalidRecord{Name: name, Reason: err.Error()}
		}
		bp.Burns = burns
	}

	return bp, nil
}

func toBurns(rec burnsRecord) (*particle.Burns, error) {
	burns := &particle.Burns{
		Duration:       float64(rec.DurationMS) / 1000,
		TickRate:       float64(rec.TickRateMS) / 1000,
		IgnitesOnSpawn: rec.IgnitesOnSpawn,
	}
	if rec.ChanceDestroyPerTick != nil {
		v := *rec.ChanceDestroyPerTick
		burns.DestroyChance = &v
	}
	if rec.Reaction != nil {
		burns.Produces = &particle.Reaction{Produces: rec.Reaction.Produces, Chance: rec.Reaction.Chance}
	}
	if len(rec.Colors) > 0 {
		colors, err := parseColors(rec.Colors)
		if err != nil {
			return nil, err
		}
		burns.BurnPalette = colors
	}
	if rec.Spreads != nil {
		burns.Spreads = &particle.Fire{
			BurnRadius:       rec.Spreads.BurnRadius,
			ChanceToSpread:   rec.Spreads.ChanceToSpread,
			DestroysOnSpread: rec.Spreads.DestroysOnSpread,
		}
	}
	return burns, nil
}

// materialClass enforces §6's "exactly one material flag must be set" rule
// and extracts the fluidity value for liquid/gas so canonicalPriority can
// build the right motion priority.
func materialClass(rec particleRecord) (particle.Class, uint8, error) {
	set := 0
	var class particle.Class
	var fluidity uint8

	if rec.Wall {
		set++
		class = particle.ClassWall
	}
	if rec.Solid {
		set++
		class = particle.ClassSolid
	}
	if rec.MovableSolid {
		set++
		class = particle.ClassMovableSolid
	}
	if rec.Liquid != nil {
		set++
		class = particle.ClassLiquid
		fluidity = *rec.Liquid
	}
	if rec.Gas != nil {
		set++
		class = particle.ClassGas
		fluidity = *rec.Gas
	}

	if set != 1 {
		return 0, 0, fmt.Errorf("exactly one material flag (wall/solid/movable_solid/liquid/gas) must be set, got %d", set)
	}
	return class, fluidity, nil
}

// canonicalPriority builds the motion priority spec.md §4.3 assigns to each
// material, parameterized by fluidity for liquid/gas.
func canonicalPriority(class particle.Class, fluidity uint8) particle.MotionPriority {
	switch class {
	case particle.ClassWall:
		return particle.MotionPriority{}
	case particle.ClassSolid:
		return particle.MotionPriority{Groups: []particle.Group{
			{{X: 0, Y: -1}},
		}}
	case particle.ClassMovableSolid:
		return particle.MotionPriority{Groups: []particle.Group{
			{{X: 0, Y: -1}},
			{{X: -1, Y: -1}, {X: 1, Y: -1}},
		}}
	case particle.ClassLiquid:
		groups := []particle.Group{
			{{X: 0, Y: -1}},
			{{X: -1, Y: -1}, {X: 1, Y: -1}},
		}
		for r := int32(1); r <= int32(fluidity)+1; r++ {
			groups = append(groups, particle.Group{{X: -r, Y: 0}, {X: r, Y: 0}})
		}
		return particle.MotionPriority{Groups: groups}
	case particle.ClassGas:
		groups := []particle.Group{
			{{X: 0, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: 1}},
		}
		for r := int32(1); r <= int32(fluidity)+1; r++ {
			groups = append(groups, particle.Group{{X: -r, Y: 0}, {X: r, Y: 0}})
		}
		return particle.MotionPriority{Groups: groups}
	default:
		return particle.MotionPriority{}
	}
}

// parseColors parses a list of "#RRGGBBAA" strings into RGBA values.
func parseColors(hex []string) ([]particle.RGBA, error) {
	out := make([]particle.RGBA, 0, len(hex))
	for _, h := range hex {
		c, err := parseHexColor(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseHexColor(s string) (particle.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 8 {
		return particle.RGBA{}, fmt.Errorf("color %q must be #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return particle.RGBA{}, fmt.Errorf("color %q is not valid hex: %w", s, err)
	}
	return particle.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
