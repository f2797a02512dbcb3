package catalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Azevedu-Apps/pogo-events/internal/progress"
)

// DefaultNamespace prefixes progress-storage keys so the store can be shared
// with other record kinds.
const DefaultNamespace = "pogo_progress"

// Tracker binds one event's ProgressMap to a progress.Store. The map is
// loaded once at open; every toggle rewrites the whole map under the event's
// key, so each change is durable before Toggle returns.
//
// Concurrent toggles on the same event are serialized by an internal mutex;
// across processes the store is last-writer-wins, matching the source
// system's accepted behavior for multiple browser tabs.
type Tracker struct {
	store progress.Store
	key   string
	mu    sync.Mutex
	flags ProgressMap
}

// StorageKey derives the store key for an event's progress map.
func StorageKey(namespace, eventID string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "_" + eventID
}

// OpenTracker loads the progress map for eventID from the store. A missing
// key, a blob that is not valid JSON, or a blob of the wrong shape all yield
// an empty map — corruption never propagates, and the next toggle rewrites a
// well-formed record.
func OpenTracker(store progress.Store, namespace, eventID string) (*Tracker, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event ID must not be empty")
	}
	key := StorageKey(namespace, eventID)

	t := &Tracker{store: store, key: key, flags: make(ProgressMap)}

	blob, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for %q: %w", eventID, err)
	}
	if ok {
		var m ProgressMap
		if err := json.Unmarshal(blob, &m); err == nil && m != nil {
			t.flags = m
		}
		// Corrupt blobs fall through with the empty map.
	}
	return t, nil
}

// Toggle flips the (id, variant) flag and persists the whole map. The write
// happens on every call, including toggles back to false.
func (t *Tracker) Toggle(id ItemID, v Variant) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := Toggle(t.flags, id, v)
	blob, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := t.store.Set(t.key, blob); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	t.flags = next
	return nil
}

// Progress returns a snapshot of the current map. The caller may hold it
// across further toggles without seeing them.
func (t *Tracker) Progress() ProgressMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags.Clone()
}
