// Package simerr centralizes the error taxonomy of spec.md §7 so callers
// across spawn, registry, assets, and sim can classify failures with a
// single errors.As switch instead of importing each producing package's
// error type directly.
package simerr

import (
	"errors"

	"github.com/pthm-cable/fallingsand/assets"
	"github.com/pthm-cable/fallingsand/registry"
	"github.com/pthm-cable/fallingsand/spawn"
)

// Class identifies which of §7's five error classes an error belongs to.
type Class int

const (
	// ClassNone means the error did not match any known class.
	ClassNone Class = iota
	// ClassCellOccupied: spawn rejected, silently dropped, not logged at
	// normal level.
	ClassCellOccupied
	// ClassUnknownType: fatal at the core boundary, indicates a
	// registry/blueprint inconsistency.
	ClassUnknownType
	// ClassInvalidBlueprint: one definitions-file record failed; the rest
	// of the file still loaded.
	ClassInvalidBlueprint
	// ClassMalformedDefinitionsFile: the whole definitions load failed.
	ClassMalformedDefinitionsFile
	// ClassSceneLoadFailure: the whole scene load failed.
	ClassSceneLoadFailure
)

// Classify maps an error returned by spawn, registry, or assets to its §7
// class, or ClassNone if it does not match any of them.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var cellOccupied *spawn.CellOccupied
	if errors.As(err, &cellOccupied) {
		return ClassCellOccupied
	}
	var unknownType *registry.UnknownType
	if errors.As(err, &unknownType) {
		return ClassUnknownType
	}
	var invalidBlueprint *registry.InvalidBlueprint
	if errors.As(err, &invalidBlueprint) {
		return ClassInvalidBlueprint
	}
	var invalidRecord *assets.InvalidRecord
	if errors.As(err, &invalidRecord) {
		return ClassInvalidBlueprint
	}
	var malformed *assets.MalformedDefinitionsFile
	if errors.As(err, &malformed) {
		return ClassMalformedDefinitionsFile
	}
	var sceneFailure *assets.SceneLoadFailure
	if errors.As(err, &sceneFailure) {
		return ClassSceneLoadFailure
	}
	return ClassNone
}

// IsFatal reports whether class represents a core-boundary invariant
// violation that spec.md §7 says should be fatal (a panic equivalent in
// dev, a structured error to callers in release) rather than swallowed.
func (c Class) IsFatal() bool {
	return c == ClassUnknownType
}

// String names the class for logging.
func (c Class) String() string {
	switch c {
	case ClassCellOccupied:
		return "cell_occupied"
	case ClassUnknownType:
		return "unknown_type"
	case ClassInvalidBlueprint:
		return "invalid_blueprint"
	case ClassMalformedDefinitionsFile:
		return "malformed_definitions_file"
	case ClassSceneLoadFailure:
		return "scene_load_failure"
	default:
		return "none"
	}
}
