package mural

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	data map[string][]byte
	err  error // forced failure for both Put and Get
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Put(namespace, key string, value []byte) error {
	if m.err != nil {
		return m.err
	}
	m.data[namespace+"/"+key] = value
	return nil
}

func (m *memStore) Get(namespace, key string) ([]byte, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[namespace+"/"+key]
	return v, ok, nil
}

func TestSaveLoadCanvasRoundtrip(t *testing.T) {
	s := newMemStore()
	c := Canvas{
		ID:        NewCanvasID(),
		Timestamp: time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
	}
	for i := 0; i < 4; i++ {
		n := testNode(NewNodeID(), float64(i)*320, 500)
		n.Rotation = float64(i)*17 - 30
		n.Scale = 0.2 + float64(i)*0.4
		if i > 0 {
			n.ParentID = c.Images[0].ID
		}
		c.Images = append(c.Images, n)
	}

	if err := SaveCanvas(s, c); err != nil {
		t.Fatalf("SaveCanvas: %v", err)
	}
	got, ok, err := LoadCanvas(s, c.ID)
	if err != nil || !ok {
		t.Fatalf("LoadCanvas: ok=%v err=%v", ok, err)
	}
	if len(got.Images) != len(c.Images) {
		t.Fatalf("loaded %d images, want %d", len(got.Images), len(c.Images))
	}
	for i, n := range got.Images {
		want := c.Images[i]
		if n.ID != want.ID || n.X != want.X || n.Y != want.Y ||
			n.Rotation != want.Rotation || n.Scale != want.Scale ||
			n.ParentID != want.ParentID {
			t.Errorf("image %d = %+v, want %+v", i, n, want)
		}
	}
}

func TestLoadCanvasMissing(t *testing.T) {
	_, ok, err := LoadCanvas(newMemStore(), "nope")
	if err != nil {
		t.Fatalf("missing canvas returned error: %v", err)
	}
	if ok {
		t.Error("missing canvas reported present")
	}
}

func TestLoadCanvasCorrupt(t *testing.T) {
	s := newMemStore()
	s.data[NamespaceCanvas+"/bad"] = []byte("{truncated")
	_, ok, err := LoadCanvas(s, "bad")
	if err == nil {
		t.Fatal("corrupt canvas loaded without error")
	}
	if ok {
		t.Error("corrupt canvas reported ok")
	}
}

func TestSaveCanvasUpdatesHistoryAndLast(t *testing.T) {
	s := newMemStore()

	first := Canvas{ID: "c1", Timestamp: time.Now().Add(-time.Hour)}
	second := Canvas{ID: "c2", Timestamp: time.Now()}
	if err := SaveCanvas(s, first); err != nil {
		t.Fatal(err)
	}
	if err := SaveCanvas(s, second); err != nil {
		t.Fatal(err)
	}

	entries, err := History(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}
	if entries[0].ID != "c2" || entries[1].ID != "c1" {
		t.Errorf("history order = %s,%s, want newest first", entries[0].ID, entries[1].ID)
	}
	if entries[0].Name != second.Name() {
		t.Errorf("entry name = %q, want %q", entries[0].Name, second.Name())
	}

	last, ok, err := LastCanvas(s)
	if err != nil || !ok || last != "c2" {
		t.Errorf("LastCanvas = (%q,%v,%v), want c2", last, ok, err)
	}
}

func TestSaveCanvasResaveKeepsOneHistoryEntry(t *testing.T) {
	s := newMemStore()
	c := Canvas{ID: "c1", Timestamp: time.Now().Add(-time.Hour)}
	if err := SaveCanvas(s, c); err != nil {
		t.Fatal(err)
	}
	c.Timestamp = time.Now()
	if err := SaveCanvas(s, c); err != nil {
		t.Fatal(err)
	}

	entries, _ := History(s)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries after a resave, want 1", len(entries))
	}
	if entries[0].Name != c.Name() {
		t.Errorf("entry not refreshed: name = %q, want %q", entries[0].Name, c.Name())
	}
}

func TestDropHistoryEntry(t *testing.T) {
	s := newMemStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := SaveCanvas(s, Canvas{ID: id, Timestamp: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := DropHistoryEntry(s, "b"); err != nil {
		t.Fatal(err)
	}
	entries, _ := History(s)
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "b" {
			t.Error("dropped entry still in history")
		}
	}

	// Dropping an id that isn't there is harmless.
	if err := DropHistoryEntry(s, "zz"); err != nil {
		t.Errorf("dropping an unknown id: %v", err)
	}
}

func TestSaveCanvasReturnsStoreError(t *testing.T) {
	s := newMemStore()
	s.err = errors.New("disk full")

	err := SaveCanvas(s, Canvas{ID: "c1", Timestamp: time.Now()})
	if err == nil {
		t.Fatal("SaveCanvas succeeded against a failing store")
	}
	if !errors.Is(err, s.err) {
		t.Errorf("error %v does not wrap the store failure", err)
	}

	if _, _, err := LoadCanvas(s, "c1"); err == nil {
		t.Error("LoadCanvas succeeded against a failing store")
	}
	if _, err := History(s); err == nil {
		t.Error("History succeeded against a failing store")
	}
}

func TestHistoryEmptyStore(t *testing.T) {
	entries, err := History(newMemStore())
	if err != nil {
		t.Fatalf("History on an empty store: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestCanvasName(t *testing.T) {
	c := Canvas{Timestamp: time.Date(2026, time.March, 9, 18, 5, 0, 0, time.UTC)}
	if got := c.Name(); got != "Canvas Mar 9 18:05" {
		t.Errorf("Name = %q", got)
	}
}

func TestAutosaverSavesDirtyBoard(t *testing.T) {
	s := newMemStore()
	b := NewBoard()
	b.Add(testNode("a", 1, 2))

	a := NewAutosaver(s, b, func() string { return "cv" }, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok, _ := LoadCanvas(s, "cv"); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	c, ok, err := LoadCanvas(s, "cv")
	if err != nil || !ok {
		t.Fatalf("autosave never landed: ok=%v err=%v", ok, err)
	}
	if len(c.Images) != 1 || c.Images[0].ID != "a" {
		t.Errorf("saved canvas = %+v", c.Images)
	}
	if b.Dirty() {
		t.Error("autosave left the board dirty")
	}

	cancel()
	<-done
}

func TestAutosaverFinalSaveOnCancel(t *testing.T) {
	s := newMemStore()
	b := NewBoard()
	a := NewAutosaver(s, b, func() string { return "cv" }, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	b.Add(testNode("late", 0, 0))
	cancel()
	<-done

	if _, ok, _ := LoadCanvas(s, "cv"); !ok {
		t.Error("cancellation did not flush the dirty board")
	}
}

func TestAutosaverSkipsCleanBoard(t *testing.T) {
	s := newMemStore()
	b := NewBoard()
	a := NewAutosaver(s, b, func() string { return "cv" }, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if len(s.data) != 0 {
		t.Errorf("clean board produced %d writes, want 0", len(s.data))
	}
}
