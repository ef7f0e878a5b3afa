package mural

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Store namespaces. The two namespaces carry no cross-namespace transactional
// guarantee: a save that lands in one but not the other is logged, not fatal.
const (
	NamespaceCanvas = "canvas"
	NamespaceMeta   = "meta"
)

// Meta keys.
const (
	metaKeyLastCanvas = "last-canvas"
	metaKeyHistory    = "history"
)

// Store is the persistence collaborator: a key→blob store with two logical
// namespaces. Implementations live outside the core (see sqlitestore).
type Store interface {
	Put(namespace, key string, value []byte) error
	// Get returns the stored blob and whether the key was present.
	Get(namespace, key string) ([]byte, bool, error)
}

// Canvas is the persisted unit: the whole node collection serialized at once.
// There is no partial or incremental persistence.
type Canvas struct {
	ID        string      `json:"id"`
	Images    []ImageNode `json:"images"`
	Timestamp time.Time   `json:"timestamp"`
}

// Name derives the display name used in the history index.
func (c Canvas) Name() string {
	return "Canvas " + c.Timestamp.Format("Jan 2 15:04")
}

// NewCanvasID returns a fresh canvas id.
func NewCanvasID() string {
	return uuid.New().String()
}

// HistoryEntry is one row of the history index, newest first.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveCanvas writes the canvas blob, upserts its history entry, and remembers
// it as the last active canvas. Each write is best-effort: a failure is
// returned for the canvas blob itself, but history/meta failures are only
// logged, matching the no-cross-namespace-guarantee contract.
func SaveCanvas(s Store, c Canvas) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	if err := s.Put(NamespaceCanvas, c.ID, blob); err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	if err := upsertHistory(s, HistoryEntry{ID: c.ID, Name: c.Name(), Timestamp: c.Timestamp}); err != nil {
		log.Printf("mural: history index update failed: %v", err)
	}
	if err := RememberLast(s, c.ID); err != nil {
		log.Printf("mural: last-canvas update failed: %v", err)
	}
	return nil
}

// LoadCanvas reads a canvas by id. A missing canvas returns ok=false with no
// error; a corrupted blob returns an error so the caller can offer to drop
// the stale history entry.
func LoadCanvas(s Store, id string) (Canvas, bool, error) {
	blob, ok, err := s.Get(NamespaceCanvas, id)
	if err != nil {
		return Canvas{}, false, fmt.Errorf("load canvas: %w", err)
	}
	if !ok {
		return Canvas{}, false, nil
	}
	var c Canvas
	if err := json.Unmarshal(blob, &c); err != nil {
		return Canvas{}, false, fmt.Errorf("load canvas %s: corrupt: %w", id, err)
	}
	return c, true, nil
}

// History returns the history index, newest first. A missing index is an
// empty history, not an error.
func History(s Store) ([]HistoryEntry, error) {
	blob, ok, err := s.Get(NamespaceMeta, metaKeyHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("load history: corrupt: %w", err)
	}
	return entries, nil
}

// DropHistoryEntry removes a stale entry, typically after its canvas blob
// turned out to be missing or corrupt on load.
func DropHistoryEntry(s Store, id string) error {
	entries, err := History(s)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return putHistory(s, kept)
}

// RememberLast stores the last active canvas id.
func RememberLast(s Store, id string) error {
	return s.Put(NamespaceMeta, metaKeyLastCanvas, []byte(id))
}

// LastCanvas returns the last active canvas id, if one was remembered.
func LastCanvas(s Store) (string, bool, error) {
	blob, ok, err := s.Get(NamespaceMeta, metaKeyLastCanvas)
	if err != nil || !ok {
		return "", false, err
	}
	return string(blob), true, nil
}

// upsertHistory replaces or prepends the entry, keeping newest first.
func upsertHistory(s Store, entry HistoryEntry) error {
	entries, err := History(s)
	if err != nil {
		return err
	}
	kept := make([]HistoryEntry, 0, len(entries)+1)
	kept = append(kept, entry)
	for _, e := range entries {
		if e.ID != entry.ID {
			kept = append(kept, e)
		}
	}
	return putHistory(s, kept)
}

func putHistory(s Store, entries []HistoryEntry) error {
	blob, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	if err := s.Put(NamespaceMeta, metaKeyHistory, blob); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Autosaver periodically serializes a dirty board to the store. Saves are
// best-effort and last-write-wins; failures are logged and the in-memory
// state keeps going.
type Autosaver struct {
	store    Store
	board    *Board
	canvasID func() string
	interval time.Duration
}

// NewAutosaver builds an autosaver. canvasID is called at save time so the
// autosaver follows canvas switches.
func NewAutosaver(store Store, board *Board, canvasID func() string, interval time.Duration) *Autosaver {
	return &Autosaver{store: store, board: board, canvasID: canvasID, interval: interval}
}

// Run blocks, saving on each tick where the board is dirty, until ctx is
// cancelled. A final save is attempted on the way out.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.saveIfDirty()
			return
		case <-ticker.C:
			a.saveIfDirty()
		}
	}
}

func (a *Autosaver) saveIfDirty() {
	if !a.board.TakeDirty() {
		return
	}
	c := Canvas{ID: a.canvasID(), Images: a.board.Nodes(), Timestamp: time.Now()}
	if err := SaveCanvas(a.store, c); err != nil {
		log.Printf("mural: autosave failed: %v", err)
	}
}
