package mural

// Vec2 is a 2D vector used for positions, offsets, sizes, and deltas
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Card geometry. Every image node renders as a card of this unscaled size;
// node Scale and Rotation apply about the card center.
const (
	// CardWidth and CardHeight are the unscaled card dimensions in world units.
	CardWidth  = 280.0
	CardHeight = 336.0
	// CardImageHeight is the image area; the strip below it holds the prompt label.
	CardImageHeight = 280.0
)

// Viewport limits and input tuning.
const (
	// MinZoom and MaxZoom bound Viewport.Zoom.
	MinZoom = 0.1
	MaxZoom = 4.0
	// MinScale is the smallest uniform scale a node can be resized to.
	MinScale = 0.2
	// WheelZoomRate converts a continuous scroll delta into a multiplicative
	// zoom factor: newZoom = zoom * (1 + WheelZoomRate*delta).
	WheelZoomRate = 0.001
	// ClickThreshold is the total pointer movement in screen pixels below
	// which a press-release pair counts as a click rather than a drag.
	ClickThreshold = 5.0
	// ResizeSensitivity converts vertical pointer delta in pixels to scale
	// delta (~200px of downward drag doubles the scale).
	ResizeSensitivity = 0.005
)

// Spawn layout constants (see layout.go).
const (
	// BatchSize is the number of variants generated per submission.
	BatchSize = 5
	// SpawnRowDrop is the vertical distance from the source anchor to the
	// spawned row.
	SpawnRowDrop = 400.0
	// SpawnSpacing is the horizontal distance between adjacent spawn slots.
	SpawnSpacing = 320.0
	// SpawnJitter is the maximum vertical offset applied per slot.
	SpawnJitter = 20.0
	// RotationJitter is the maximum rotation in degrees applied to a fresh
	// placeholder, in either direction.
	RotationJitter = 3.0
	// RightmostGap is the horizontal gap used when anchoring to the right of
	// the rightmost existing node.
	RightmostGap = 400.0
)

// linkAnchorDrop is the vertical offset from a card's top edge to its link
// anchor point, landing near the label area.
const linkAnchorDrop = 24.0
