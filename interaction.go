package mural

import "math"

// GestureState identifies the single active pointer gesture. Exactly one
// gesture can be active at a time; a new pointer-down while one is active is
// ignored until the machine returns to Idle.
type GestureState uint8

const (
	GestureIdle GestureState = iota
	GesturePanning
	GestureDragging
	GestureRotating
	GestureResizing
)

// String returns a human-readable gesture name.
func (g GestureState) String() string {
	switch g {
	case GestureIdle:
		return "idle"
	case GesturePanning:
		return "panning"
	case GestureDragging:
		return "dragging"
	case GestureRotating:
		return "rotating"
	case GestureResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// Button distinguishes the primary pointer button from the secondary
// (pan) button.
type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// HitKind says what part of the surface a pointer-down landed on. The
// renderer performs the hit test (it knows card geometry and which handles
// are visible) and hands the result to the interactor.
type HitKind uint8

const (
	// HitCanvas is empty canvas background.
	HitCanvas HitKind = iota
	// HitBody is a node's card body.
	HitBody
	// HitRotateHandle is the selected node's rotate handle.
	HitRotateHandle
	// HitResizeHandle is one of the selected node's corner handles.
	HitResizeHandle
)

// Hit is the result of a pointer-down hit test.
type Hit struct {
	Kind   HitKind
	NodeID string
}

// Interactor is the pointer-driven gesture state machine. It owns the
// Viewport and mutates the Board; all of its methods are synchronous and
// never block, since gesture responsiveness is latency-critical.
type Interactor struct {
	board *Board
	view  *Viewport

	state  GestureState
	target string

	startScreen Vec2
	lastScreen  Vec2
	// moved tracks the greatest distance from the press point, so a wiggle
	// that returns to the origin still counts as a drag.
	moved float64

	// preSelected remembers whether the target was already selected at
	// press time; a sub-threshold release toggles it off in that case.
	preSelected bool

	startScale  float64
	deselectArm bool
}

// NewInteractor wires a gesture machine to a board and viewport.
func NewInteractor(board *Board, view *Viewport) *Interactor {
	return &Interactor{board: board, view: view}
}

// State returns the current gesture state.
func (it *Interactor) State() GestureState {
	return it.state
}

// Viewport returns the viewport owned by this interactor.
func (it *Interactor) Viewport() *Viewport {
	return it.view
}

// PointerDown starts a gesture. Transitions out of Idle only:
//
//   - secondary button on non-node area  -> Panning
//   - primary on a node body             -> Dragging (selects if needed)
//   - primary on rotate/resize handle    -> Rotating/Resizing (selected node only)
//   - primary on empty canvas            -> arms a deselect for release
func (it *Interactor) PointerDown(screen Vec2, hit Hit, button Button) {
	if it.state != GestureIdle {
		return
	}
	it.startScreen = screen
	it.lastScreen = screen
	it.moved = 0
	it.deselectArm = false

	if button == ButtonSecondary {
		if hit.Kind == HitCanvas {
			it.state = GesturePanning
		}
		return
	}

	switch hit.Kind {
	case HitBody:
		it.target = hit.NodeID
		it.preSelected = it.board.Selected() == hit.NodeID
		if !it.preSelected {
			// A drag both selects and moves; the click toggle is
			// suppressed once movement passes the threshold.
			it.board.Select(hit.NodeID)
		}
		it.state = GestureDragging
	case HitRotateHandle:
		if it.board.Selected() == hit.NodeID {
			it.target = hit.NodeID
			it.state = GestureRotating
		}
	case HitResizeHandle:
		if it.board.Selected() == hit.NodeID {
			if n, ok := it.board.Get(hit.NodeID); ok {
				it.target = hit.NodeID
				it.startScale = n.Scale
				it.state = GestureResizing
			}
		}
	case HitCanvas:
		// Deselect happens on release so an accidental micro-pan on some
		// platforms doesn't double as a deselect.
		it.deselectArm = true
	}
}

// PointerMove advances the active gesture with a new pointer position.
func (it *Interactor) PointerMove(screen Vec2) {
	dx := screen.X - it.lastScreen.X
	dy := screen.Y - it.lastScreen.Y
	tx := screen.X - it.startScreen.X
	ty := screen.Y - it.startScreen.Y
	if d := math.Hypot(tx, ty); d > it.moved {
		it.moved = d
	}

	switch it.state {
	case GesturePanning:
		it.view.PanBy(dx, dy)

	case GestureDragging:
		// Screen delta to world delta: divide by zoom.
		if n, ok := it.board.Get(it.target); ok {
			x := n.X + dx/it.view.Zoom
			y := n.Y + dy/it.view.Zoom
			it.board.Update(it.target, Patch{X: &x, Y: &y})
		}

	case GestureRotating:
		if n, ok := it.board.Get(it.target); ok {
			c := it.view.WorldToScreen(n.Center())
			// The handle rests above the card (-90° in screen convention),
			// hence the +90 offset. Unbounded: no normalization.
			deg := math.Atan2(screen.Y-c.Y, screen.X-c.X)*180/math.Pi + 90
			it.board.Update(it.target, Patch{Rotation: &deg})
		}

	case GestureResizing:
		// Single-axis on purpose: only vertical travel from the gesture
		// start matters, whichever corner handle started it.
		s := it.startScale + (screen.Y-it.startScreen.Y)*ResizeSensitivity
		if s < MinScale {
			s = MinScale
		}
		it.board.Update(it.target, Patch{Scale: &s})
	}

	it.lastScreen = screen
}

// PointerUp ends the active gesture. A sub-threshold press-release on a node
// body is a click: it toggles that node's selection. Above the threshold the
// toggle is suppressed and the node stays selected.
func (it *Interactor) PointerUp(screen Vec2) {
	it.PointerMove(screen)

	click := it.moved < ClickThreshold
	switch {
	case it.state == GestureDragging && click && it.preSelected:
		it.board.Select("")
	case it.state == GestureIdle && it.deselectArm && click:
		it.board.Select("")
	}
	it.reset()
}

// PointerLeave aborts the active gesture when the pointer leaves the
// interactive surface. Whatever transform the gesture applied so far stays.
func (it *Interactor) PointerLeave() {
	it.reset()
}

// Wheel applies a continuous scroll delta as pointer-anchored zoom.
func (it *Interactor) Wheel(screen Vec2, delta float64) {
	it.view.ZoomByScroll(screen, delta)
}

func (it *Interactor) reset() {
	it.state = GestureIdle
	it.target = ""
	it.deselectArm = false
	it.moved = 0
}
