package mural

import "math/rand"

// defaultAnchorY is the fixed row y used when anchoring to the rightmost
// node or to the screen-centered default.
const defaultAnchorY = 100.0

// DefaultAnchor is the screen-centered world position used on an empty
// board: the card is horizontally centered in a window of the given width.
func DefaultAnchor(windowWidth float64) Vec2 {
	return Vec2{windowWidth/2 - CardWidth/2, defaultAnchorY}
}

// ResolveSource picks the spawn anchor and the source node for a new batch,
// in priority order:
//
//  1. the uploaded reference node, if any
//  2. the selected node
//  3. to the right of the rightmost existing node, at a fixed y (no source)
//  4. the screen-centered default (no source)
//
// Branches read left-to-right as fresh rows while chained edits cascade
// downward from their source.
func ResolveSource(b *Board, refID string, windowWidth float64) (anchor Vec2, sourceID string) {
	if refID != "" {
		if n, ok := b.Get(refID); ok {
			return Vec2{n.X, n.Y}, n.ID
		}
	}
	if sel := b.Selected(); sel != "" {
		if n, ok := b.Get(sel); ok {
			return Vec2{n.X, n.Y}, n.ID
		}
	}
	nodes := b.Nodes()
	if len(nodes) > 0 {
		maxX := nodes[0].X
		for _, n := range nodes[1:] {
			if n.X > maxX {
				maxX = n.X
			}
		}
		return Vec2{maxX + RightmostGap, defaultAnchorY}, ""
	}
	return DefaultAnchor(windowWidth), ""
}

// SpawnPositions computes placements for a batch of n variants: one row
// SpawnRowDrop below the anchor, centered on it with SpawnSpacing between
// slots, plus a small per-slot vertical jitter so the row doesn't look
// machine-stamped. Positions are in world space on purpose: spawned rows are
// meant to be visited by panning, not pinned to the screen.
//
// rng may be nil, in which case the shared source is used.
func SpawnPositions(n int, anchor Vec2, rng *rand.Rand) []Vec2 {
	out := make([]Vec2, n)
	for i := 0; i < n; i++ {
		out[i] = Vec2{
			X: anchor.X + (float64(i)-float64(n-1)/2)*SpawnSpacing,
			Y: anchor.Y + SpawnRowDrop + jitter(rng, SpawnJitter),
		}
	}
	return out
}

// jitter returns a uniform value in [-max, max].
func jitter(rng *rand.Rand, max float64) float64 {
	if rng != nil {
		return (rng.Float64()*2 - 1) * max
	}
	return (rand.Float64()*2 - 1) * max
}
