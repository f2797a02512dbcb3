// Package search generates Pokémon GO in-game search-filter strings from an
// event's collectible lists, so a player can paste one string into the game
// and see exactly the Pokémon the event features — or only the ones whose
// catalog progress is still missing a variant.
//
// The game's filter grammar: names joined with "," are OR'd, "&" intersects
// terms, "!" negates, "shiny" and "4*" match shiny and perfect-IV Pokémon.
package search

import (
	"sort"
	"strings"

	"github.com/Azevedu-Apps/pogo-events/internal/catalog"
	"github.com/Azevedu-Apps/pogo-events/internal/models"
)

// Strings is the set of filters generated for one event.
type Strings struct {
	// All matches every Pokémon featured by the event.
	All string `json:"all"`
	// ShinyNeeded matches featured species whose shiny flag is still unset,
	// filtered to shinies only — the in-game view of what to hunt.
	ShinyNeeded string `json:"shiny_needed,omitempty"`
	// HundoCheck matches featured species narrowed to perfect IVs, for
	// reviewing the hundo column after a catch session.
	HundoCheck string `json:"hundo_check,omitempty"`
}

// names extracts unique lowercase species names in stable alphabetical
// order. Forms and costumes are not addressable by the game's search box,
// so they collapse onto the base species.
func names(cs []models.Collectible) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cs {
		n := strings.ToLower(strings.TrimSpace(c.Name))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// joinOr builds the comma (OR) list the game expects.
func joinOr(ns []string) string {
	return strings.Join(ns, ",")
}

// ForEvent generates the event-wide filter set without progress context.
func ForEvent(e *models.Event) Strings {
	all := names(e.Collectibles())
	if len(all) == 0 {
		return Strings{}
	}
	or := joinOr(all)
	return Strings{
		All:         or,
		ShinyNeeded: or + "&shiny",
		HundoCheck:  or + "&4*",
	}
}

// ForProgress generates the filter set narrowed by the viewer's progress:
// only species still missing the relevant variant appear in the targeted
// filters. The All filter stays complete.
func ForProgress(e *models.Event, m catalog.ProgressMap) (Strings, error) {
	var shinyOutstanding, hundoOutstanding []models.Collectible

	for _, c := range e.Collectibles() {
		variants, err := catalog.ApplicableVariants(&c)
		if err != nil {
			return Strings{}, err
		}
		id := catalog.DeriveItemID(&c)
		for _, v := range variants {
			switch v {
			case catalog.VariantShiny:
				if !m.Flag(id, v) {
					shinyOutstanding = append(shinyOutstanding, c)
				}
			case catalog.VariantHundo:
				if !m.Flag(id, v) {
					hundoOutstanding = append(hundoOutstanding, c)
				}
			}
		}
	}

	s := Strings{All: joinOr(names(e.Collectibles()))}
	if ns := names(shinyOutstanding); len(ns) > 0 {
		s.ShinyNeeded = joinOr(ns) + "&shiny"
	}
	if ns := names(hundoOutstanding); len(ns) > 0 {
		s.HundoCheck = joinOr(ns) + "&4*"
	}
	return s, nil
}
