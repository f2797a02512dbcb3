// Package server exposes the HTTP API: ranked event listings, the hero
// selection, per-event catalog progress, progress toggles, and in-game
// search strings.
//
// The event list is a cache fed by the poll loop (or a manual refresh). A
// fetch failure leaves the previous list untouched and is surfaced whole —
// no partial results — with POST /api/refresh as the retry action.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Azevedu-Apps/pogo-events/internal/catalog"
	"github.com/Azevedu-Apps/pogo-events/internal/classifier"
	"github.com/Azevedu-Apps/pogo-events/internal/logger"
	"github.com/Azevedu-Apps/pogo-events/internal/models"
	"github.com/Azevedu-Apps/pogo-events/internal/progress"
	"github.com/Azevedu-Apps/pogo-events/internal/search"
)

// FetchFunc retrieves the current event list from the backend.
type FetchFunc func(ctx context.Context) ([]models.Event, error)

// Server holds the API state.
type Server struct {
	classifier *classifier.Classifier
	store      progress.Store
	namespace  string
	fetch      FetchFunc
	mux        *http.ServeMux

	// now is the reference clock, injectable for tests.
	now func() time.Time

	// Event cache. hasData stays false until the first successful fetch.
	mu        sync.RWMutex
	events    []models.Event
	hasData   bool
	fetchedAt time.Time
	lastErr   error
}

// New constructs a Server.
func New(c *classifier.Classifier, store progress.Store, namespace string, fetch FetchFunc) *Server {
	s := &Server{
		classifier: c,
		store:      store,
		namespace:  namespace,
		fetch:      fetch,
		mux:        http.NewServeMux(),
		now:        time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/hero", s.handleHero)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleEvent)
	s.mux.HandleFunc("GET /api/events/{id}/progress", s.handleProgress)
	s.mux.HandleFunc("POST /api/events/{id}/progress/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/events/{id}/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

// Refresh fetches the event list and replaces the cache wholesale on
// success. On failure the cache keeps its previous contents and the error
// is recorded for the API to surface.
func (s *Server) Refresh(ctx context.Context) error {
	events, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		logger.Error("event fetch failed: %v", err)
		return err
	}
	s.events = events
	s.hasData = true
	s.fetchedAt = s.now()
	s.lastErr = nil
	logger.Info("event cache refreshed: %d events", len(events))
	return nil
}

// Events returns the cached event list, or (nil, false) when no successful
// fetch has happened yet. The poll loop uses it to drive notifications.
func (s *Server) Events() ([]models.Event, bool) {
	return s.snapshot()
}

// snapshot returns the cached events, or (nil, false) when no successful
// fetch has happened yet.
func (s *Server) snapshot() ([]models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasData {
		return nil, false
	}
	return s.events, true
}

func (s *Server) eventByID(id string) (*models.Event, bool) {
	events, ok := s.snapshot()
	if !ok {
		return nil, false
	}
	for i := range events {
		if events[i].ID == id {
			return &events[i], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUnavailable reports the no-data error state with its retry action.
func (s *Server) writeUnavailable(w http.ResponseWriter) {
	s.mu.RLock()
	lastErr := s.lastErr
	s.mu.RUnlock()

	body := map[string]string{
		"error": "event list unavailable",
		"retry": "POST /api/refresh",
	}
	if lastErr != nil {
		body["cause"] = lastErr.Error()
	}
	writeJSON(w, http.StatusBadGateway, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bucketPayload is one classified bucket in the listing response.
type bucketPayload struct {
	Bucket string         `json:"bucket"`
	Events []models.Event `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := s.snapshot()
	if !ok {
		s.writeUnavailable(w)
		return
	}
	ranked := s.classifier.Classify(events, s.now())
	writeJSON(w, http.StatusOK, []bucketPayload{
		{Bucket: classifier.Live.String(), Events: emptyIfNil(ranked.Live)},
		{Bucket: classifier.Imminent.String(), Events: emptyIfNil(ranked.Imminent)},
		{Bucket: classifier.Upcoming.String(), Events: emptyIfNil(ranked.Upcoming)},
		{Bucket: classifier.Past.String(), Events: emptyIfNil(ranked.Past)},
	})
}

func emptyIfNil(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	return events
}

func (s *Server) handleHero(w http.ResponseWriter, r *http.Request) {
	events, ok := s.snapshot()
	if !ok {
		s.writeUnavailable(w)
		return
	}
	sel := s.classifier.Hero(s.classifier.Classify(events, s.now()))
	writeJSON(w, http.StatusOK, map[string]*models.Event{
		"primary": sel.Primary,
		"split":   sel.Split,
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// itemProgress is the per-collectible slice of the progress response.
type itemProgress struct {
	ItemID         catalog.ItemID           `json:"item_id"`
	Name           string                   `json:"name"`
	Category       models.Category          `json:"category"`
	Flags          map[catalog.Variant]bool `json:"flags"`
	Completion     catalog.Completion       `json:"completion"`
	FullyComplete  bool                     `json:"fully_complete"`
	ShundoComplete bool                     `json:"shundo_complete"`
}

type progressResponse struct {
	EventID    string             `json:"event_id"`
	Items      []itemProgress     `json:"items"`
	Completion catalog.Completion `json:"completion"`
}

func (s *Server) buildProgressResponse(event *models.Event, m catalog.ProgressMap) (*progressResponse, error) {
	resp := &progressResponse{EventID: event.ID, Items: []itemProgress{}}

	for _, c := range event.Collectibles() {
		cc, err := catalog.ComputeCompletion(m, &c)
		if err != nil {
			return nil, err
		}
		full, err := catalog.FullyComplete(m, &c)
		if err != nil {
			return nil, err
		}
		id := catalog.DeriveItemID(&c)
		flags := m[id]
		if flags == nil {
			flags = map[catalog.Variant]bool{}
		}
		resp.Items = append(resp.Items, itemProgress{
			ItemID:         id,
			Name:           c.Name,
			Category:       c.Category,
			Flags:          flags,
			Completion:     cc,
			FullyComplete:  full,
			ShundoComplete: catalog.ShundoComplete(m, &c),
		})
	}

	total, err := catalog.EventCompletion(m, event)
	if err != nil {
		return nil, err
	}
	resp.Completion = total
	return resp, nil
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	tracker, err := catalog.OpenTracker(s.store, s.namespace, event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		logger.Error("failed to open tracker for %s: %v", event.ID, err)
		return
	}

	resp, err := s.buildProgressResponse(event, tracker.Progress())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// toggleRequest is the body of POST .../progress/toggle.
type toggleRequest struct {
	ItemID  catalog.ItemID  `json:"item_id"`
	Variant catalog.Variant `json:"variant"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if !catalog.KnownVariant(req.Variant) {
		writeError(w, http.StatusBadRequest, "unknown variant")
		return
	}

	tracker, err := catalog.OpenTracker(s.store, s.namespace, event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		logger.Error("failed to open tracker for %s: %v", event.ID, err)
		return
	}
	if err := tracker.Toggle(req.ItemID, req.Variant); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist progress")
		logger.Error("failed to toggle %s/%s on %s: %v", req.ItemID, req.Variant, event.ID, err)
		return
	}

	resp, err := s.buildProgressResponse(event, tracker.Progress())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	tracker, err := catalog.OpenTracker(s.store, s.namespace, event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		logger.Error("failed to open tracker for %s: %v", event.ID, err)
		return
	}
	filters, err := search.ForProgress(event, tracker.Progress())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, filters)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	events, _ := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]int{"events": len(events)})
}
