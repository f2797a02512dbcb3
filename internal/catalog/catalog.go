// Package catalog implements per-event catch-progress tracking: which
// variants of each collectible the local viewer has caught, and how complete
// the event's catalog is as a weighted percentage.
//
// The scoring core is pure. Persistence happens only through Tracker, which
// writes the whole progress map back to the store on every toggle — each
// toggle is immediately durable, there is no batching.
package catalog

import (
	"fmt"
	"strings"

	"github.com/Azevedu-Apps/pogo-events/internal/models"
)

// Variant is one of the nine trackable flags on a collectible.
type Variant string

const (
	VariantNormal   Variant = "normal"
	VariantShiny    Variant = "shiny"
	VariantHundo    Variant = "hundo"
	VariantXXL      Variant = "xxl"
	VariantXXS      Variant = "xxs"
	VariantShadow   Variant = "shadow"
	VariantPurified Variant = "purified"
	VariantShundo   Variant = "shundo"
	VariantMove     Variant = "move_obtained"
)

// variantWeights carries the scoring weight of each variant. The values come
// straight from the source system with no documented rationale, so they are
// kept together here as the single place to adjust them. Shundo is an
// unscored bonus: it is trackable but carries no weight, so a standard raid
// reaches 100% without it and ShundoComplete stays its own predicate.
var variantWeights = map[Variant]int{
	VariantNormal:   1,
	VariantMove:     1,
	VariantXXL:      2,
	VariantXXS:      2,
	VariantShadow:   2,
	VariantPurified: 2,
	VariantShiny:    4,
	VariantHundo:    4,
	VariantShundo:   0,
}

// Weight returns the scoring weight of a variant (0 for shundo and for
// unknown variants).
func Weight(v Variant) int {
	return variantWeights[v]
}

// KnownVariant reports whether v is one of the nine trackable flags.
func KnownVariant(v Variant) bool {
	_, ok := variantWeights[v]
	return ok
}

var (
	spawnVariants        = []Variant{VariantNormal, VariantShiny, VariantHundo, VariantXXL, VariantXXS}
	raidShadowVariants   = []Variant{VariantNormal, VariantShiny, VariantHundo, VariantShadow, VariantPurified}
	raidStandardVariants = []Variant{VariantNormal, VariantShiny, VariantHundo, VariantShundo}
	attackVariants       = []Variant{VariantMove}
)

// ApplicableVariants returns the variant set tracked for a collectible's
// category. The taxonomy is closed: an unknown category is an error, never
// an empty set, because silently scoring against an empty set would corrupt
// completion percentages.
func ApplicableVariants(c *models.Collectible) ([]Variant, error) {
	switch c.Category {
	case models.CategorySpawn:
		return spawnVariants, nil
	case models.CategoryAttack:
		return attackVariants, nil
	case models.CategoryRaid:
		switch c.RaidShape {
		case models.RaidShadowEligible:
			return raidShadowVariants, nil
		case models.RaidStandard:
			return raidStandardVariants, nil
		default:
			return nil, fmt.Errorf("raid collectible %q has unknown shape %q", c.Name, c.RaidShape)
		}
	default:
		return nil, fmt.Errorf("unknown collectible category %q", c.Category)
	}
}

// ItemID is the stable progress-storage key of one logical collectible
// variant. See DeriveItemID.
type ItemID string

// DeriveItemID builds the deterministic storage key for a collectible from
// its name plus the optional form, costume, and background discriminators.
// Each component is lowercased with runs of whitespace collapsed to hyphens
// and underscores folded into hyphens, so the underscore joiner can never
// occur inside a token; together with the distinct prefixes on the optional
// parts, two collectibles differing in any component never collide.
func DeriveItemID(c *models.Collectible) ItemID {
	parts := []string{normalizeToken(c.Name)}
	if c.Form != "" {
		parts = append(parts, "f-"+normalizeToken(c.Form))
	}
	if c.Costume != "" {
		parts = append(parts, "c-"+normalizeToken(c.Costume))
	}
	if c.Background != "" {
		parts = append(parts, "b-"+normalizeToken(c.Background))
	}
	return ItemID(strings.Join(parts, "_"))
}

func normalizeToken(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "_", "-")
	return strings.Join(strings.Fields(s), "-")
}

// ProgressMap is the full catch-progress state of one event: a sparse flag
// set per item. Absent entries (and absent flags) mean false.
type ProgressMap map[ItemID]map[Variant]bool

// Flag reports the state of a single (item, variant) flag.
func (m ProgressMap) Flag(id ItemID, v Variant) bool {
	return m[id][v]
}

// Clone returns a deep copy sharing no structure with m.
func (m ProgressMap) Clone() ProgressMap {
	out := make(ProgressMap, len(m))
	for id, flags := range m {
		fc := make(map[Variant]bool, len(flags))
		for v, b := range flags {
			fc[v] = b
		}
		out[id] = fc
	}
	return out
}

// Toggle flips the (id, variant) flag and returns the resulting map. The
// input is not mutated. Absent entries default to false before flipping, so
// the first toggle of an unseen item creates its record. Toggling twice
// restores the exact prior state.
func Toggle(m ProgressMap, id ItemID, v Variant) ProgressMap {
	out := m.Clone()
	flags := out[id]
	if flags == nil {
		flags = make(map[Variant]bool)
		out[id] = flags
	}
	flags[v] = !flags[v]
	return out
}

// Completion is the weighted completion of a single item or a whole event.
type Completion struct {
	CurrentScore int `json:"current_score"`
	MaxScore     int `json:"max_score"`
	Percentage   int `json:"percentage"`
}

func completionOf(current, max int) Completion {
	c := Completion{CurrentScore: current, MaxScore: max}
	if max > 0 {
		// round(100 * current / max)
		c.Percentage = (100*current + max/2) / max
	}
	return c
}

// ComputeCompletion scores one collectible against the progress map: the sum
// of weights of set flags over the sum of weights of all variants applicable
// to the collectible's category. Unknown categories error.
func ComputeCompletion(m ProgressMap, c *models.Collectible) (Completion, error) {
	variants, err := ApplicableVariants(c)
	if err != nil {
		return Completion{}, err
	}
	id := DeriveItemID(c)
	current, max := 0, 0
	for _, v := range variants {
		w := variantWeights[v]
		max += w
		if m.Flag(id, v) {
			current += w
		}
	}
	return completionOf(current, max), nil
}

// EventCompletion aggregates scores across all of an event's collectibles.
func EventCompletion(m ProgressMap, event *models.Event) (Completion, error) {
	current, max := 0, 0
	for _, c := range event.Collectibles() {
		cc, err := ComputeCompletion(m, &c)
		if err != nil {
			return Completion{}, err
		}
		current += cc.CurrentScore
		max += cc.MaxScore
	}
	return completionOf(current, max), nil
}

// FullyComplete reports whether every category-applicable variant of the
// collectible is set, excluding the optional shundo bonus.
func FullyComplete(m ProgressMap, c *models.Collectible) (bool, error) {
	variants, err := ApplicableVariants(c)
	if err != nil {
		return false, err
	}
	id := DeriveItemID(c)
	for _, v := range variants {
		if v == VariantShundo {
			continue
		}
		if !m.Flag(id, v) {
			return false, nil
		}
	}
	return true, nil
}

// ShundoComplete reports the shundo flag alone, independent of every other
// variant.
func ShundoComplete(m ProgressMap, c *models.Collectible) bool {
	return m.Flag(DeriveItemID(c), VariantShundo)
}
