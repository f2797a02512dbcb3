// Package models defines the core domain entities for the pogo-events service.
// These models represent Pokémon GO events as fetched from the backend and the
// collectible descriptors (spawns, raid bosses, featured attacks, egg pools)
// nested inside them.
//
// Event types arrive as free text from the backend ("Community Day", "Raid
// Day", ...). They are normalized into the closed TypeTag set exactly once, at
// the ingest boundary, so no downstream code branches on raw strings.
package models

import (
	"errors"
	"strings"
	"time"
)

// TypeTag is the normalized event category. The raw Type string is kept for
// display; all ranking logic uses the tag.
type TypeTag int

const (
	TagOther TypeTag = iota
	TagRaidHour
	TagRaidDay
	TagCommunityDay
	TagSpotlight
)

// String returns the canonical label for a tag.
func (t TypeTag) String() string {
	switch t {
	case TagSpotlight:
		return "spotlight"
	case TagCommunityDay:
		return "community-day"
	case TagRaidDay:
		return "raid-day"
	case TagRaidHour:
		return "raid-hour"
	default:
		return "other"
	}
}

// NormalizeType maps a free-text event type onto the closed TypeTag set.
// Matching is case-insensitive and tolerant of extra words ("Classic
// Community Day" still tags as CommunityDay). Unrecognized types tag as Other.
func NormalizeType(raw string) TypeTag {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "spotlight"):
		return TagSpotlight
	case strings.Contains(s, "community day"):
		return TagCommunityDay
	case strings.Contains(s, "raid day"):
		return TagRaidDay
	case strings.Contains(s, "raid hour"):
		return TagRaidHour
	default:
		return TagOther
	}
}

// Event represents a single Pokémon GO event.
//
// Start and End are interpreted in the viewer's local clock; no timezone
// normalization occurs anywhere in the service. A zero Start or End marks a
// timestamp that failed to parse at ingest; such events classify as past.
type Event struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    string        `json:"type"` // raw backend category, display only
	Tag     TypeTag       `json:"-"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Spawns  []Collectible `json:"spawns,omitempty"`
	Raids   []Collectible `json:"raids,omitempty"`
	Attacks []Collectible `json:"attacks,omitempty"`
	Eggs    []Collectible `json:"eggs,omitempty"`
}

// Validate checks that the event fields are coherent. A zero Start/End pair
// is allowed (malformed timestamps degrade to past, they do not reject the
// event), but a present range must be ordered.
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Name == "" {
		return errors.New("event name must not be empty")
	}
	if !e.Start.IsZero() && !e.End.IsZero() && e.End.Before(e.Start) {
		return errors.New("event end must not precede start")
	}
	for _, c := range e.Collectibles() {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TimesValid reports whether both timestamps parsed at ingest.
func (e *Event) TimesValid() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// Collectibles returns all nested collectibles in display order
// (spawns, raids, attacks, eggs).
func (e *Event) Collectibles() []Collectible {
	out := make([]Collectible, 0, len(e.Spawns)+len(e.Raids)+len(e.Attacks)+len(e.Eggs))
	out = append(out, e.Spawns...)
	out = append(out, e.Raids...)
	out = append(out, e.Attacks...)
	out = append(out, e.Eggs...)
	return out
}
