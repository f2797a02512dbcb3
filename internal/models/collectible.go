package models

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies the progress-tracking shape of a collectible.
// The set is closed: completion scoring refuses unknown categories rather
// than silently defaulting (a silent default would corrupt percentages).
type Category string

const (
	CategorySpawn  Category = "spawn"
	CategoryRaid   Category = "raid"
	CategoryAttack Category = "attack"
)

// RaidShape distinguishes the two raid variant sets. Shadow-eligible raids
// track shadow/purified; standard raids track the shundo bonus instead.
type RaidShape string

const (
	RaidStandard       RaidShape = "standard"
	RaidShadowEligible RaidShape = "shadow-eligible"
)

// IsShadowTier reports whether a free-text raid tier label marks a shadow
// raid. The backend ships localized labels ("Shadow", "Sombroso"), so the
// check happens here, once, instead of substring matches at each use site.
func IsShadowTier(tier string) bool {
	s := strings.ToLower(tier)
	return strings.Contains(s, "shadow") || strings.Contains(s, "sombroso")
}

// Collectible is a single trackable item inside an event: a wild spawn, a
// raid boss, or a featured-attack unlock. Egg pools reuse the spawn category.
//
// Form, Costume, and Background are optional variant discriminators; they
// participate in the derived item ID so that distinct logical variants never
// share a progress record.
type Collectible struct {
	Name       string    `json:"name"`
	Form       string    `json:"form,omitempty"`
	Costume    string    `json:"costume,omitempty"`
	Background string    `json:"background,omitempty"`
	Category   Category  `json:"category"`
	RaidShape  RaidShape `json:"raid_shape,omitempty"`
}

// Validate checks the collectible's category taxonomy.
func (c *Collectible) Validate() error {
	if c.Name == "" {
		return errors.New("collectible name must not be empty")
	}
	switch c.Category {
	case CategorySpawn, CategoryAttack:
		if c.RaidShape != "" {
			return fmt.Errorf("raid shape %q set on non-raid collectible %q", c.RaidShape, c.Name)
		}
	case CategoryRaid:
		switch c.RaidShape {
		case RaidStandard, RaidShadowEligible:
		default:
			return fmt.Errorf("raid collectible %q has invalid shape %q", c.Name, c.RaidShape)
		}
	default:
		return fmt.Errorf("collectible %q has unknown category %q", c.Name, c.Category)
	}
	return nil
}
