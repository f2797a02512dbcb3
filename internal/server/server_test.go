package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azevedu-Apps/pogo-events/internal/catalog"
	"github.com/Azevedu-Apps/pogo-events/internal/classifier"
	"github.com/Azevedu-Apps/pogo-events/internal/models"
	"github.com/Azevedu-Apps/pogo-events/internal/progress"
)

var serverNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

func testEvents() []models.Event {
	return []models.Event{
		{
			ID: "cd-june", Name: "June Community Day", Type: "Community Day",
			Tag:   models.TagCommunityDay,
			Start: serverNow.Add(-time.Hour), End: serverNow.Add(2 * time.Hour),
			Spawns: []models.Collectible{
				{Name: "Gible", Category: models.CategorySpawn},
			},
			Attacks: []models.Collectible{
				{Name: "Garchomp", Category: models.CategoryAttack},
			},
		},
		{
			ID: "raid-day", Name: "Raid Day", Type: "Raid Day",
			Tag:   models.TagRaidDay,
			Start: serverNow.Add(3 * time.Hour), End: serverNow.Add(6 * time.Hour),
			Raids: []models.Collectible{
				{Name: "Mewtwo", Category: models.CategoryRaid, RaidShape: models.RaidShadowEligible},
			},
		},
	}
}

func newTestServer(t *testing.T, fetch FetchFunc) *Server {
	t.Helper()
	s := New(classifier.New(0), progress.NewMemoryStore(), "", fetch)
	s.now = func() time.Time { return serverNow }
	return s
}

func readyServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t, func(ctx context.Context) ([]models.Event, error) {
		return testEvents(), nil
	})
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec
}

func TestHealth(t *testing.T) {
	s := readyServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestEventsReturnsClassifiedBuckets(t *testing.T) {
	s := readyServer(t)

	var buckets []struct {
		Bucket string         `json:"bucket"`
		Events []models.Event `json:"events"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/events", nil, &buckets)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(buckets))
	}
	if buckets[0].Bucket != "live" || len(buckets[0].Events) != 1 || buckets[0].Events[0].ID != "cd-june" {
		t.Errorf("live bucket = %+v", buckets[0])
	}
	if buckets[1].Bucket != "imminent" || len(buckets[1].Events) != 1 || buckets[1].Events[0].ID != "raid-day" {
		t.Errorf("imminent bucket = %+v", buckets[1])
	}
}

func TestEventsUnavailableBeforeFirstFetch(t *testing.T) {
	s := newTestServer(t, func(ctx context.Context) ([]models.Event, error) {
		return nil, errors.New("backend unreachable")
	})
	_ = s.Refresh(context.Background()) // records the failure

	rec := doJSON(t, s, http.MethodGet, "/api/events", nil, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["retry"] != "POST /api/refresh" {
		t.Errorf("body = %v, want retry action", body)
	}
	if body["cause"] == "" {
		t.Error("error state should carry the fetch failure cause")
	}
}

func TestFailedRefreshKeepsPreviousData(t *testing.T) {
	calls := 0
	s := newTestServer(t, func(ctx context.Context) ([]models.Event, error) {
		calls++
		if calls == 1 {
			return testEvents(), nil
		}
		return nil, errors.New("backend unreachable")
	})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("second Refresh should have failed")
	}

	rec := doJSON(t, s, http.MethodGet, "/api/events", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("cached data should survive a failed refresh, status = %d", rec.Code)
	}
}

func TestHero(t *testing.T) {
	s := readyServer(t)

	var sel map[string]*models.Event
	rec := doJSON(t, s, http.MethodGet, "/api/events/hero", nil, &sel)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sel["primary"] == nil || sel["primary"].ID != "cd-june" {
		t.Errorf("primary = %+v", sel["primary"])
	}
	if sel["split"] == nil || sel["split"].ID != "raid-day" {
		t.Errorf("split = %+v", sel["split"])
	}
}

func TestEventDetailAndNotFound(t *testing.T) {
	s := readyServer(t)

	var event models.Event
	rec := doJSON(t, s, http.MethodGet, "/api/events/cd-june", nil, &event)
	if rec.Code != http.StatusOK || event.ID != "cd-june" {
		t.Errorf("status = %d, event = %+v", rec.Code, event)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/events/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestToggleFlow(t *testing.T) {
	s := readyServer(t)

	var resp struct {
		Items []struct {
			ItemID     catalog.ItemID           `json:"item_id"`
			Flags      map[catalog.Variant]bool `json:"flags"`
			Completion catalog.Completion       `json:"completion"`
		} `json:"items"`
		Completion catalog.Completion `json:"completion"`
	}

	// Fresh progress: everything zero.
	rec := doJSON(t, s, http.MethodGet, "/api/events/cd-june/progress", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Items) != 2 || resp.Completion.Percentage != 0 {
		t.Fatalf("initial progress = %+v", resp)
	}

	// Toggle shiny on Gible.
	body := map[string]string{"item_id": "gible", "variant": "shiny"}
	rec = doJSON(t, s, http.MethodPost, "/api/events/cd-june/progress/toggle", body, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Items[0].Flags["shiny"] {
		t.Errorf("gible flags = %v", resp.Items[0].Flags)
	}
	// 4 of (13 + 1) across spawn + attack.
	if resp.Completion.CurrentScore != 4 || resp.Completion.MaxScore != 14 {
		t.Errorf("event completion = %+v", resp.Completion)
	}

	// Progress survives a re-read through a fresh tracker.
	rec = doJSON(t, s, http.MethodGet, "/api/events/cd-june/progress", nil, &resp)
	if rec.Code != http.StatusOK || !resp.Items[0].Flags["shiny"] {
		t.Errorf("persisted progress = %+v", resp)
	}

	// Toggling back returns to the pre-toggle state.
	rec = doJSON(t, s, http.MethodPost, "/api/events/cd-june/progress/toggle", body, &resp)
	if rec.Code != http.StatusOK || resp.Completion.CurrentScore != 0 {
		t.Errorf("after involution = %+v", resp.Completion)
	}
}

func TestToggleValidation(t *testing.T) {
	s := readyServer(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"missing item", map[string]string{"variant": "shiny"}, http.StatusBadRequest},
		{"unknown variant", map[string]string{"item_id": "gible", "variant": "sparkly"}, http.StatusBadRequest},
		{"zero-weight shundo is still accepted", map[string]string{"item_id": "gible", "variant": "shundo"}, http.StatusOK},
		{"unknown event", map[string]string{"item_id": "gible", "variant": "shiny"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/api/events/cd-june/progress/toggle"
			if tt.want == http.StatusNotFound {
				path = "/api/events/nope/progress/toggle"
			}
			rec := doJSON(t, s, http.MethodPost, path, tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := readyServer(t)

	var filters struct {
		All         string `json:"all"`
		ShinyNeeded string `json:"shiny_needed"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/events/cd-june/search", nil, &filters)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if filters.All != "garchomp,gible" {
		t.Errorf("All = %q", filters.All)
	}
	if filters.ShinyNeeded != "gible&shiny" {
		t.Errorf("ShinyNeeded = %q", filters.ShinyNeeded)
	}
}

// brokenStore fails every read so tracker loading cannot succeed.
type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (brokenStore) Set(string, []byte) error {
	return errors.New("disk on fire")
}

func TestSearchStoreFailure(t *testing.T) {
	s := New(classifier.New(0), brokenStore{}, "", func(ctx context.Context) ([]models.Event, error) {
		return testEvents(), nil
	})
	s.now = func() time.Time { return serverNow }
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/events/cd-june/search", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not valid JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("error response should carry a message")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	calls := 0
	s := newTestServer(t, func(ctx context.Context) ([]models.Event, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("backend unreachable")
		}
		return testEvents(), nil
	})

	rec := doJSON(t, s, http.MethodPost, "/api/refresh", nil, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("first refresh status = %d, want 502", rec.Code)
	}

	var ok map[string]int
	rec = doJSON(t, s, http.MethodPost, "/api/refresh", nil, &ok)
	if rec.Code != http.StatusOK || ok["events"] != 2 {
		t.Errorf("second refresh = %d, %v", rec.Code, ok)
	}
}
