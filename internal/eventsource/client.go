// Package eventsource fetches the event list from the hosted GraphQL
// backend and maps it into the internal models.
//
// A fetch is a single request with no automatic retry or backoff; a failure
// is returned whole to the caller, which surfaces it as an error state with
// a manual retry action. Timestamps are parsed in the viewer's local clock;
// a timestamp that fails to parse becomes the zero time, which the
// classifier treats as maximally past.
package eventsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Azevedu-Apps/pogo-events/internal/logger"
	"github.com/Azevedu-Apps/pogo-events/internal/models"
)

// Client queries the event backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// eventsQuery is the GraphQL document for the full event listing.
const eventsQuery = `query Events {
  events {
    id
    name
    eventType
    start
    end
    spawns { name form costume background }
    raids { name form costume tier shadow }
    attacks { name }
    eggs { name form costume }
  }
}`

// NewClient creates a Client against baseURL. A non-positive timeout
// defaults to 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Wire shapes of the GraphQL response.
type wireCollectible struct {
	Name       string `json:"name"`
	Form       string `json:"form"`
	Costume    string `json:"costume"`
	Background string `json:"background"`
	Tier       string `json:"tier"`
	Shadow     bool   `json:"shadow"`
}

type wireEvent struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	EventType string            `json:"eventType"`
	Start     string            `json:"start"`
	End       string            `json:"end"`
	Spawns    []wireCollectible `json:"spawns"`
	Raids     []wireCollectible `json:"raids"`
	Attacks   []wireCollectible `json:"attacks"`
	Eggs      []wireCollectible `json:"eggs"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type eventsResponse struct {
	Data struct {
		Events []wireEvent `json:"events"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// FetchEvents retrieves and maps the full event list. One attempt only;
// transport errors, non-2xx statuses, and GraphQL error payloads all fail
// the whole fetch — no partial results are ever returned.
func (c *Client) FetchEvents(ctx context.Context) ([]models.Event, error) {
	body, err := json.Marshal(map[string]string{"query": eventsQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("event backend returned status %d", resp.StatusCode)
	}

	var parsed eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("event backend returned error: %s", parsed.Errors[0].Message)
	}

	events := make([]models.Event, 0, len(parsed.Data.Events))
	for _, we := range parsed.Data.Events {
		events = append(events, mapEvent(we))
	}
	return events, nil
}

// timestampLayouts are tried in order against the viewer's local zone.
// The backend emits zone-less local timestamps; RFC3339 is accepted for
// sources that attach an offset anyway.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// parseLocal parses a wire timestamp in the local clock. The zero time
// marks a malformed value; it never errors.
func parseLocal(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func mapEvent(we wireEvent) models.Event {
	e := models.Event{
		ID:    we.ID,
		Name:  we.Name,
		Type:  we.EventType,
		Tag:   models.NormalizeType(we.EventType),
		Start: parseLocal(we.Start),
		End:   parseLocal(we.End),
	}
	if e.ID == "" {
		// The admin form builder occasionally publishes drafts without an
		// ID. Assign one so the record is addressable; progress keyed on it
		// will not survive a refetch, which matches the source behavior.
		e.ID = uuid.New().String()
		logger.Warn("event %q arrived without an ID, assigned %s", e.Name, e.ID)
	}
	if !e.TimesValid() {
		logger.Warn("event %s has malformed timestamps (start=%q end=%q), will classify as past", e.ID, we.Start, we.End)
	}

	for _, w := range we.Spawns {
		e.Spawns = append(e.Spawns, mapCollectible(w, models.CategorySpawn, ""))
	}
	for _, w := range we.Raids {
		e.Raids = append(e.Raids, mapCollectible(w, models.CategoryRaid, raidShapeOf(w)))
	}
	for _, w := range we.Attacks {
		e.Attacks = append(e.Attacks, mapCollectible(w, models.CategoryAttack, ""))
	}
	for _, w := range we.Eggs {
		e.Eggs = append(e.Eggs, mapCollectible(w, models.CategorySpawn, ""))
	}
	return e
}

// raidShapeOf normalizes the backend's raid shadow marker once, at the
// boundary. The source data flags shadow raids either with an explicit
// boolean or a "Shadow" tier label.
func raidShapeOf(w wireCollectible) models.RaidShape {
	if w.Shadow || models.IsShadowTier(w.Tier) {
		return models.RaidShadowEligible
	}
	return models.RaidStandard
}

func mapCollectible(w wireCollectible, cat models.Category, shape models.RaidShape) models.Collectible {
	return models.Collectible{
		Name:       w.Name,
		Form:       w.Form,
		Costume:    w.Costume,
		Background: w.Background,
		Category:   cat,
		RaidShape:  shape,
	}
}
