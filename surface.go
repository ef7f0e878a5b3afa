package mural

import (
	"context"
	"io/fs"
	"log"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Handle geometry in card-local units (origin at card center, unrotated,
// unscaled). Affordances scale with the card.
const (
	rotateHandleRise   = 36.0 // above the top edge
	handleRadius       = 12.0
	cornerHandleHalf   = 10.0
	deleteHandleOffset = 20.0 // outward from the top-right corner
)

// Rasterizer is the export collaborator: it flattens the node collection to
// a shareable static image. Export is the one synchronous, single-shot
// operation whose failure surfaces to the user.
type Rasterizer interface {
	Export(nodes []ImageNode) error
}

// Surface is the pointer/keyboard-driven canvas application. It reads input
// each tick, routes it through the Interactor, and draws the board.
//
// Controls: type to edit the prompt, Enter submits, drop an image file to
// attach it as a reference. Tab toggles links, Escape deselects, Delete
// removes the selection. Ctrl+S saves, Ctrl+N starts a new canvas (twice to
// confirm when dirty), Ctrl+O cycles through history, Ctrl+D drops a stale
// history entry, Ctrl+E exports.
type Surface struct {
	board *Board
	view  *Viewport
	inter *Interactor
	orch  *Orchestrator

	store Store      // optional
	rast  Rasterizer // optional

	// idMu guards canvasID: the main loop writes it on canvas switches
	// while the autosaver goroutine reads it through CanvasID.
	idMu     sync.Mutex
	canvasID string

	session context.Context
	cancel  context.CancelFunc

	width, height int
	showLinks     bool

	prompt []rune

	notice      string
	noticeUntil time.Time

	pendingNewUntil time.Time
	staleHistoryID  string

	cache map[string]*cardImage

	prevLeft, prevRight bool
	pointerActive       bool
	prevKeys            map[ebiten.Key]bool
}

// NewSurface builds the canvas app. store and rast may be nil; without a
// store the canvas is purely in-memory.
func NewSurface(gen Generator, store Store, width, height int) *Surface {
	board := NewBoard()
	view := NewViewport()
	s := &Surface{
		board:     board,
		view:      view,
		inter:     NewInteractor(board, view),
		orch:      NewOrchestrator(board, gen, float64(width)),
		store:     store,
		width:     width,
		height:    height,
		showLinks: true,
		cache:     map[string]*cardImage{},
		prevKeys:  map[ebiten.Key]bool{},
	}
	s.session, s.cancel = context.WithCancel(context.Background())
	s.setCanvasID(NewCanvasID())

	if store != nil {
		if id, ok, err := LastCanvas(store); err != nil {
			log.Printf("mural: last canvas lookup failed: %v", err)
		} else if ok {
			s.openCanvas(id)
		}
	}
	return s
}

// SetRasterizer installs the export collaborator.
func (s *Surface) SetRasterizer(r Rasterizer) {
	s.rast = r
}

// Board returns the node collection.
func (s *Surface) Board() *Board { return s.board }

// View returns the viewport.
func (s *Surface) View() *Viewport { return s.view }

// Orchestrator returns the generation orchestrator.
func (s *Surface) Orchestrator() *Orchestrator { return s.orch }

// CanvasID returns the active canvas id. The autosaver calls this from its
// own goroutine so it follows canvas switches.
func (s *Surface) CanvasID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return s.canvasID
}

func (s *Surface) setCanvasID(id string) {
	s.idMu.Lock()
	s.canvasID = id
	s.idMu.Unlock()
}

// Session returns the context scoped to the active canvas. Switching
// canvases cancels it, abandoning in-flight generations.
func (s *Surface) Session() context.Context { return s.session }

// Update advances one tick: glide animation, pointer gestures, keyboard.
// Implements the ebiten.Game Update contract via Run.
func (s *Surface) Update() error {
	s.view.Advance(float32(1.0 / float64(ebiten.TPS())))
	s.processPointer()
	s.processKeys()
	s.processDrop()
	return nil
}

// processPointer reads the mouse and feeds the gesture machine. All gesture
// math is synchronous; nothing here may block.
func (s *Surface) processPointer() {
	mx, my := ebiten.CursorPosition()
	cursor := Vec2{float64(mx), float64(my)}
	inside := cursor.X >= 0 && cursor.Y >= 0 &&
		cursor.X < float64(s.width) && cursor.Y < float64(s.height)

	if _, wy := ebiten.Wheel(); wy != 0 && inside {
		// One wheel notch is ~1 unit here versus ~100 in a continuous
		// scroll signal; rescale so a notch is a ~10% zoom step.
		s.inter.Wheel(cursor, wy*100)
	}

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)

	switch {
	case left && !s.prevLeft:
		hit, del := s.hitTest(cursor)
		if del {
			s.board.Delete(hit.NodeID)
		} else {
			s.inter.PointerDown(cursor, hit, ButtonPrimary)
		}
		s.pointerActive = true
	case right && !s.prevRight:
		hit, _ := s.hitTest(cursor)
		s.inter.PointerDown(cursor, hit, ButtonSecondary)
		s.pointerActive = true
	case s.pointerActive && (left || right):
		if inside {
			s.inter.PointerMove(cursor)
		} else {
			s.inter.PointerLeave()
			s.pointerActive = false
		}
	case s.pointerActive:
		s.inter.PointerUp(cursor)
		s.pointerActive = false
	}

	s.prevLeft, s.prevRight = left, right
}

// hitTest finds what the cursor is over, walking nodes top-down. For the
// selected node its affordances are checked before the body, since they
// extend past the card edge. del reports a hit on the delete button.
func (s *Surface) hitTest(screen Vec2) (hit Hit, del bool) {
	nodes := s.board.Nodes()
	selected := s.board.Selected()

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		lx, ly := s.cardLocal(n, screen)

		if n.ID == selected {
			if dist(lx, ly, 0, -CardHeight/2-rotateHandleRise) <= handleRadius {
				return Hit{Kind: HitRotateHandle, NodeID: n.ID}, false
			}
			if dist(lx, ly, CardWidth/2+deleteHandleOffset, -CardHeight/2-deleteHandleOffset) <= handleRadius {
				return Hit{Kind: HitBody, NodeID: n.ID}, true
			}
			for _, cx := range []float64{-CardWidth / 2, CardWidth / 2} {
				for _, cy := range []float64{-CardHeight / 2, CardHeight / 2} {
					if math.Abs(lx-cx) <= cornerHandleHalf && math.Abs(ly-cy) <= cornerHandleHalf {
						return Hit{Kind: HitResizeHandle, NodeID: n.ID}, false
					}
				}
			}
		}

		if math.Abs(lx) <= CardWidth/2 && math.Abs(ly) <= CardHeight/2 {
			return Hit{Kind: HitBody, NodeID: n.ID}, false
		}
	}
	return Hit{Kind: HitCanvas}, false
}

// cardLocal converts a screen point into a node's card-local frame: origin
// at the card center, the node's rotation and scale undone.
func (s *Surface) cardLocal(n ImageNode, screen Vec2) (float64, float64) {
	c := s.view.WorldToScreen(n.Center())
	dx := (screen.X - c.X) / (n.Scale * s.view.Zoom)
	dy := (screen.Y - c.Y) / (n.Scale * s.view.Zoom)
	rad := -n.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return dx*cos - dy*sin, dx*sin + dy*cos
}

func dist(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}

// processKeys handles the prompt line and the control chords.
func (s *Surface) processKeys() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)

	if !ctrl {
		for _, r := range ebiten.AppendInputChars(nil) {
			if r >= ' ' {
				s.prompt = append(s.prompt, r)
			}
		}
		if s.justPressed(ebiten.KeyBackspace) && len(s.prompt) > 0 {
			s.prompt = s.prompt[:len(s.prompt)-1]
		}
		if s.justPressed(ebiten.KeyEnter) && len(s.prompt) > 0 {
			s.orch.Submit(s.session, string(s.prompt), nil)
			s.prompt = s.prompt[:0]
		}
		if s.justPressed(ebiten.KeyTab) {
			s.showLinks = !s.showLinks
		}
		if s.justPressed(ebiten.KeyEscape) {
			s.board.Select("")
		}
		if s.justPressed(ebiten.KeyDelete) {
			if sel := s.board.Selected(); sel != "" {
				s.board.Delete(sel)
			}
		}
		return
	}

	switch {
	case s.justPressed(ebiten.KeyS):
		s.saveNow()
	case s.justPressed(ebiten.KeyN):
		s.newCanvas()
	case s.justPressed(ebiten.KeyO):
		s.openNextFromHistory()
	case s.justPressed(ebiten.KeyD):
		s.dropStaleEntry()
	case s.justPressed(ebiten.KeyE):
		s.export()
	}
}

// justPressed is edge-triggered key detection, tracked per Surface.
func (s *Surface) justPressed(key ebiten.Key) bool {
	down := ebiten.IsKeyPressed(key)
	was := s.prevKeys[key]
	s.prevKeys[key] = down
	return down && !was
}

// processDrop attaches a dropped image file as the reference for the current
// prompt and submits immediately.
func (s *Surface) processDrop() {
	files := ebiten.DroppedFiles()
	if files == nil {
		return
	}
	var data []byte
	fs.WalkDir(files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || data != nil {
			return nil
		}
		b, rerr := fs.ReadFile(files, path)
		if rerr != nil {
			log.Printf("mural: dropped file unreadable: %v", rerr)
			return nil
		}
		data = b
		return nil
	})
	if data == nil {
		return
	}
	prompt := string(s.prompt)
	if prompt == "" {
		prompt = "variations of this image"
	}
	s.orch.Submit(s.session, prompt, data)
	s.prompt = s.prompt[:0]
}

func (s *Surface) saveNow() {
	if s.store == nil {
		s.say("no store configured")
		return
	}
	c := Canvas{ID: s.CanvasID(), Images: s.board.Nodes(), Timestamp: time.Now()}
	if err := SaveCanvas(s.store, c); err != nil {
		log.Printf("mural: save failed: %v", err)
		s.say("save failed")
		return
	}
	s.board.TakeDirty()
	s.say("saved")
}

// newCanvas starts a fresh canvas. Unsaved work asks for a second press
// within the confirmation window; confirming discards it.
func (s *Surface) newCanvas() {
	if s.board.Dirty() && time.Now().After(s.pendingNewUntil) {
		s.pendingNewUntil = time.Now().Add(3 * time.Second)
		s.say("unsaved changes - Ctrl+N again to discard")
		return
	}
	s.resetSession()
	s.board.Replace(nil)
	s.setCanvasID(NewCanvasID())
	s.view.PanX, s.view.PanY, s.view.Zoom = 0, 0, 1
	if s.store != nil {
		if err := RememberLast(s.store, s.CanvasID()); err != nil {
			log.Printf("mural: last-canvas update failed: %v", err)
		}
	}
	s.say("new canvas")
}

// openNextFromHistory cycles to the entry after the current canvas in the
// history index.
func (s *Surface) openNextFromHistory() {
	if s.store == nil {
		s.say("no store configured")
		return
	}
	entries, err := History(s.store)
	if err != nil {
		log.Printf("mural: history load failed: %v", err)
		s.say("history unavailable")
		return
	}
	if len(entries) == 0 {
		s.say("history is empty")
		return
	}
	next := entries[0]
	current := s.CanvasID()
	for i, e := range entries {
		if e.ID == current {
			next = entries[(i+1)%len(entries)]
			break
		}
	}
	s.openCanvas(next.ID)
}

// openCanvas loads a canvas blob into the board. A missing or corrupt blob
// marks the entry stale and offers removal instead of failing hard.
func (s *Surface) openCanvas(id string) {
	c, ok, err := LoadCanvas(s.store, id)
	if err != nil || !ok {
		if err != nil {
			log.Printf("mural: canvas %s unreadable: %v", id, err)
		}
		s.staleHistoryID = id
		s.say("canvas unreadable - Ctrl+D removes the stale entry")
		return
	}
	s.resetSession()
	s.setCanvasID(c.ID)
	s.board.Replace(c.Images)
	s.view.PanX, s.view.PanY, s.view.Zoom = 0, 0, 1
	if err := RememberLast(s.store, c.ID); err != nil {
		log.Printf("mural: last-canvas update failed: %v", err)
	}
	s.say(c.Name())
}

func (s *Surface) dropStaleEntry() {
	if s.store == nil || s.staleHistoryID == "" {
		return
	}
	if err := DropHistoryEntry(s.store, s.staleHistoryID); err != nil {
		log.Printf("mural: history cleanup failed: %v", err)
		s.say("cleanup failed")
		return
	}
	s.staleHistoryID = ""
	s.say("stale entry removed")
}

// export flattens the canvas through the rasterizer collaborator. This is
// the only path whose failure surfaces as a user-visible notice.
func (s *Surface) export() {
	if s.rast == nil {
		s.say("export: no rasterizer configured")
		return
	}
	if err := s.rast.Export(s.board.Nodes()); err != nil {
		log.Printf("mural: export failed: %v", err)
		s.say("export failed")
		return
	}
	s.say("exported")
}

// resetSession cancels in-flight generations tied to the outgoing canvas and
// opens a fresh session context.
func (s *Surface) resetSession() {
	s.cancel()
	s.session, s.cancel = context.WithCancel(context.Background())
}

func (s *Surface) say(msg string) {
	s.notice = msg
	s.noticeUntil = time.Now().Add(4 * time.Second)
}
