package mural

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImageNode is one placed or generated image with its spatial transform.
// Nodes are value types in the public API; the Board owns the authoritative
// copies.
type ImageNode struct {
	// ID is unique within the active collection and stable for the node's lifetime.
	ID string `json:"id"`
	// URL is the rendered image source (a data URL); empty while loading.
	URL string `json:"url"`
	// Prompt is the text request that produced this image.
	Prompt string `json:"prompt"`
	// ParentID is a weak reference to the node this one was derived from.
	// Deleting the parent orphans the link; it never cascades.
	ParentID string `json:"parentId,omitempty"`
	// Timestamp is the creation time, used for ordering and naming.
	Timestamp time.Time `json:"timestamp"`
	// IsLoading is true while the backend result for this node is pending.
	// While set, URL is not used for display.
	IsLoading bool `json:"isLoading"`

	// X and Y are the world-space position of the card's top-left corner.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Rotation is in degrees about the card center. Unbounded; it wraps
	// freely and is never normalized.
	Rotation float64 `json:"rotation"`
	// Scale is the uniform scale about the card center, never below MinScale.
	Scale float64 `json:"scale"`
}

// Center returns the world-space card center, which is invariant under the
// node's own rotation and scale.
func (n ImageNode) Center() Vec2 {
	return Vec2{n.X + CardWidth/2, n.Y + CardHeight/2}
}

// NewNodeID returns a fresh unique node id for user-placed nodes.
// Generated placeholders use batch-derived ids instead (see generate.go).
func NewNodeID() string {
	return uuid.New().String()
}

// Patch is a partial transform/content update. Only non-nil fields are applied.
type Patch struct {
	X         *float64
	Y         *float64
	Rotation  *float64
	Scale     *float64
	URL       *string
	IsLoading *bool
}

// Board is the canonical collection of image nodes. The slice order is
// painter order: the last node draws (and hit-tests) on top.
//
// All mutators take the Board lock so that the interaction engine on the main
// loop and orchestrator goroutines can interleave freely; each mutation is a
// pure merge/filter against the latest state, so arrival order across
// concurrent batches does not matter.
type Board struct {
	mu       sync.Mutex
	nodes    []*ImageNode
	selected string
	dirty    bool
}

// NewBoard returns an empty board with nothing selected.
func NewBoard() *Board {
	return &Board{}
}

// Add inserts a node at the top of the paint order. If a node with the same
// id already exists it is overwritten in place (last write wins), preserving
// its paint position, so ids stay unique at all times.
func (b *Board) Add(n ImageNode) {
	if n.Scale < MinScale {
		n.Scale = MinScale
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.nodes {
		if existing.ID == n.ID {
			*existing = n
			b.dirty = true
			return
		}
	}
	c := n
	b.nodes = append(b.nodes, &c)
	b.dirty = true
}

// Get returns a copy of the node with the given id.
func (b *Board) Get(id string) (ImageNode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.find(id); n != nil {
		return *n, true
	}
	return ImageNode{}, false
}

// Nodes returns a snapshot of all nodes in paint order (bottom first).
func (b *Board) Nodes() []ImageNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ImageNode, len(b.nodes))
	for i, n := range b.nodes {
		out[i] = *n
	}
	return out
}

// Len returns the number of nodes.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Update merges the set fields of patch into the node with the given id.
// Scale is clamped to MinScale. Unknown ids are ignored: the node may have
// been deleted while a generation request was in flight.
func (b *Board) Update(id string, patch Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.find(id)
	if n == nil {
		return
	}
	if patch.X != nil {
		n.X = *patch.X
	}
	if patch.Y != nil {
		n.Y = *patch.Y
	}
	if patch.Rotation != nil {
		n.Rotation = *patch.Rotation
	}
	if patch.Scale != nil {
		n.Scale = *patch.Scale
		if n.Scale < MinScale {
			n.Scale = MinScale
		}
	}
	if patch.URL != nil {
		n.URL = *patch.URL
	}
	if patch.IsLoading != nil {
		n.IsLoading = *patch.IsLoading
	}
	b.dirty = true
}

// Select marks the node with the given id as the single selected node and
// raises it to the top of the paint order. An empty id (or an unknown one)
// clears the selection.
func (b *Board) Select(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == "" || b.find(id) == nil {
		b.selected = ""
		return
	}
	b.selected = id
	b.raise(id)
}

// Selected returns the id of the selected node, or "" if none.
func (b *Board) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Delete removes the node with the given id. Children keep their ParentID;
// their links simply stop resolving. Deleting the selected node clears the
// selection.
func (b *Board) Delete(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.nodes {
		if n.ID == id {
			copy(b.nodes[i:], b.nodes[i+1:])
			b.nodes[len(b.nodes)-1] = nil
			b.nodes = b.nodes[:len(b.nodes)-1]
			if b.selected == id {
				b.selected = ""
			}
			b.dirty = true
			return
		}
	}
}

// Replace swaps the whole collection, clearing the selection. Used when
// loading a canvas. The board is left clean: a freshly loaded canvas has no
// unsaved work.
func (b *Board) Replace(nodes []ImageNode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = b.nodes[:0]
	for _, n := range nodes {
		c := n
		if c.Scale < MinScale {
			c.Scale = MinScale
		}
		b.nodes = append(b.nodes, &c)
	}
	b.selected = ""
	b.dirty = false
}

// Dirty reports whether the board has unsaved changes.
func (b *Board) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// TakeDirty reports the dirty flag and clears it. The autosaver uses this so
// a skipped save interval doesn't lose track of pending changes.
func (b *Board) TakeDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.dirty
	b.dirty = false
	return d
}

// find returns the node with the given id. Caller must hold b.mu.
func (b *Board) find(id string) *ImageNode {
	for _, n := range b.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// raise moves the node with the given id to the end of the slice (top of the
// paint order). Caller must hold b.mu.
func (b *Board) raise(id string) {
	for i, n := range b.nodes {
		if n.ID == id {
			if i == len(b.nodes)-1 {
				return
			}
			copy(b.nodes[i:], b.nodes[i+1:])
			b.nodes[len(b.nodes)-1] = n
			return
		}
	}
}
