// Package classifier partitions and ranks events for display.
//
// Every event lands in exactly one of four buckets relative to a reference
// time: Live (now inside [start, end]), Imminent (starts within the imminent
// window), Upcoming (starts later than that), or Past (already ended). Live
// events rank by type priority, future events by proximity of their start,
// past events most-recently-ended first.
//
// Classify is a pure function of (events, now): it never errors, the ordering
// is deterministic and stable for stable inputs, and as now advances an event
// only ever moves toward Past, never backwards.
package classifier

import (
	"sort"
	"time"

	"github.com/Azevedu-Apps/pogo-events/internal/models"
)

// DefaultImminentWindow is how far ahead of its start an event counts as
// imminent. Carried over from the source system unchanged; configurable via
// the classifier section of the config.
const DefaultImminentWindow = 24 * time.Hour

// Bucket is an event's priority bucket. Lower is higher priority.
type Bucket int

const (
	Live Bucket = iota
	Imminent
	Upcoming
	Past
)

// String returns the bucket's display label.
func (b Bucket) String() string {
	switch b {
	case Live:
		return "live"
	case Imminent:
		return "imminent"
	case Upcoming:
		return "upcoming"
	default:
		return "past"
	}
}

// Ranked holds the classified buckets, each internally ordered for display.
type Ranked struct {
	Live     []models.Event
	Imminent []models.Event
	Upcoming []models.Event
	Past     []models.Event
}

// Total returns the number of events across all buckets.
func (r *Ranked) Total() int {
	return len(r.Live) + len(r.Imminent) + len(r.Upcoming) + len(r.Past)
}

// HeroSelection is the pair of events the front page leads with. Primary is
// the top live event, or the nearest future event when nothing is live.
// Split is set only when a live hero exists alongside an imminent event.
type HeroSelection struct {
	Primary *models.Event
	Split   *models.Event
}

// typePriority ranks normalized event tags within the Live bucket.
// Higher wins. Unlisted tags rank 0.
var typePriority = map[models.TypeTag]int{
	models.TagSpotlight:    4,
	models.TagCommunityDay: 3,
	models.TagRaidDay:      2,
	models.TagRaidHour:     1,
}

// Classifier buckets and ranks events. The zero value is not usable;
// construct with New.
type Classifier struct {
	imminentWindow time.Duration
}

// New creates a Classifier. A non-positive window falls back to
// DefaultImminentWindow.
func New(imminentWindow time.Duration) *Classifier {
	if imminentWindow <= 0 {
		imminentWindow = DefaultImminentWindow
	}
	return &Classifier{imminentWindow: imminentWindow}
}

// BucketOf returns the bucket for a single event at the given time.
// Events whose timestamps failed to parse are always Past.
func (c *Classifier) BucketOf(e *models.Event, now time.Time) Bucket {
	if !e.TimesValid() {
		return Past
	}
	switch {
	case !now.Before(e.Start) && !now.After(e.End):
		return Live
	case now.Before(e.Start) && e.Start.Sub(now) <= c.imminentWindow:
		return Imminent
	case now.Before(e.Start):
		return Upcoming
	default:
		return Past
	}
}

// Classify partitions events into buckets and orders each bucket for
// display. Input order breaks all ties, so the result is stable.
func (c *Classifier) Classify(events []models.Event, now time.Time) Ranked {
	var r Ranked
	for _, e := range events {
		switch c.BucketOf(&e, now) {
		case Live:
			r.Live = append(r.Live, e)
		case Imminent:
			r.Imminent = append(r.Imminent, e)
		case Upcoming:
			r.Upcoming = append(r.Upcoming, e)
		default:
			r.Past = append(r.Past, e)
		}
	}

	// Live: type priority descending, input order breaks ties.
	sort.SliceStable(r.Live, func(i, j int) bool {
		return typePriority[r.Live[i].Tag] > typePriority[r.Live[j].Tag]
	})

	// Future buckets: soonest start first.
	byStartAsc := func(s []models.Event) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Start.Before(s[j].Start) }
	}
	sort.SliceStable(r.Imminent, byStartAsc(r.Imminent))
	sort.SliceStable(r.Upcoming, byStartAsc(r.Upcoming))

	// Past: most recently started first. Malformed events carry zero
	// timestamps, so they naturally sort to the very end.
	sort.SliceStable(r.Past, func(i, j int) bool {
		return r.Past[i].Start.After(r.Past[j].Start)
	})

	return r
}

// Hero picks the front-page hero pair from an already classified result.
//
// With a live event the hero is the top live entry, and the top imminent
// event (when one exists) becomes the secondary split hero. With nothing
// live the nearest future event is promoted instead and no split occurs.
func (c *Classifier) Hero(r Ranked) HeroSelection {
	var sel HeroSelection
	if len(r.Live) > 0 {
		sel.Primary = &r.Live[0]
		if len(r.Imminent) > 0 {
			sel.Split = &r.Imminent[0]
		}
		return sel
	}
	if len(r.Imminent) > 0 {
		sel.Primary = &r.Imminent[0]
	} else if len(r.Upcoming) > 0 {
		sel.Primary = &r.Upcoming[0]
	}
	return sel
}
