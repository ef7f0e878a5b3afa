package mural

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// glideAnim holds active glide-to tweens for pan X and Y.
type glideAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Viewport is the affine map from world space to screen space:
//
//	screen = world*Zoom + Pan
//
// It is owned by the interaction engine; renderers and the spawn layout read
// it but never write it.
type Viewport struct {
	// PanX and PanY are the screen-space translation in pixels.
	PanX, PanY float64
	// Zoom is the uniform scale factor, always within [MinZoom, MaxZoom].
	Zoom float64

	glide *glideAnim
}

// NewViewport returns a viewport at the origin with zoom 1.
func NewViewport() *Viewport {
	return &Viewport{Zoom: 1.0}
}

// WorldToScreen converts a world-space point to screen pixels.
func (v *Viewport) WorldToScreen(p Vec2) Vec2 {
	return Vec2{p.X*v.Zoom + v.PanX, p.Y*v.Zoom + v.PanY}
}

// ScreenToWorld converts a screen-space point to world coordinates. It is the
// exact inverse of WorldToScreen for the same viewport value.
func (v *Viewport) ScreenToWorld(p Vec2) Vec2 {
	return Vec2{(p.X - v.PanX) / v.Zoom, (p.Y - v.PanY) / v.Zoom}
}

// PanBy shifts the viewport by a screen-space delta. Used directly by the
// panning gesture: pointer deltas are already in pixels.
func (v *Viewport) PanBy(dx, dy float64) {
	v.glide = nil
	v.PanX += dx
	v.PanY += dy
}

// ZoomAt sets the zoom level, clamped to [MinZoom, MaxZoom], while keeping
// the world point currently under the screen anchor fixed under it.
func (v *Viewport) ZoomAt(anchor Vec2, newZoom float64) {
	newZoom = clamp(newZoom, MinZoom, MaxZoom)
	if newZoom == v.Zoom {
		return
	}
	// World point under the anchor must map back to the anchor afterwards.
	w := v.ScreenToWorld(anchor)
	v.Zoom = newZoom
	v.PanX = anchor.X - w.X*v.Zoom
	v.PanY = anchor.Y - w.Y*v.Zoom
}

// ZoomByScroll applies a continuous scroll delta as a multiplicative zoom
// factor anchored at the given screen point.
func (v *Viewport) ZoomByScroll(anchor Vec2, delta float64) {
	v.ZoomAt(anchor, v.Zoom*(1+WheelZoomRate*delta))
}

// GlideTo animates the pan to the given values over duration seconds.
// Any direct PanBy cancels the glide.
func (v *Viewport) GlideTo(panX, panY float64, duration float32) {
	v.glide = &glideAnim{
		tweenX: gween.New(float32(v.PanX), float32(panX), duration, ease.OutQuad),
		tweenY: gween.New(float32(v.PanY), float32(panY), duration, ease.OutQuad),
	}
}

// GlideToWorld glides the viewport so the given world point lands at the
// given screen point, at the current zoom.
func (v *Viewport) GlideToWorld(world, screen Vec2, duration float32) {
	v.GlideTo(screen.X-world.X*v.Zoom, screen.Y-world.Y*v.Zoom, duration)
}

// Advance steps the glide animation, if any. Called once per frame.
func (v *Viewport) Advance(dt float32) {
	g := v.glide
	if g == nil {
		return
	}
	if !g.doneX {
		val, done := g.tweenX.Update(dt)
		v.PanX = float64(val)
		g.doneX = done
	}
	if !g.doneY {
		val, done := g.tweenY.Update(dt)
		v.PanY = float64(val)
		g.doneY = done
	}
	if g.doneX && g.doneY {
		v.glide = nil
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
