package config

import (
	"maps"
	"slices"

	"github.com/plus3/objectlab/physics"
)

// presets are the ground responses of the built-in material tags.
var presets = map[string]physics.ContactMaterial{
	"rubber": {Restitution: 0.85, Friction: 0.9},
	"steel":  {Restitution: 0.6, Friction: 0.4},
	"wood":   {Restitution: 0.4, Friction: 0.6},
	"ice":    {Restitution: 0.1, Friction: 0.02},
	"foam":   {Restitution: 0.05, Friction: 0.8},
}

// Presets returns a fresh copy of the built-in materials keyed by tag.
func Presets() map[string]physics.ContactMaterial {
	return maps.Clone(presets)
}

// PresetNames lists the built-in material tags in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}
