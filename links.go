package mural

// Link is the connector geometry between a parent card and a derived child
// card, in world space. Links carry no state of their own: the set is
// recomputed from scratch from the Board on every render, since node counts
// are tens rather than thousands and correctness under arbitrary edits beats
// incremental bookkeeping.
type Link struct {
	ParentID string
	ChildID  string

	// Start and End are the anchor points on the parent and child cards.
	Start, End Vec2
	// C1 and C2 are the cubic Bézier control points. Both sit at the
	// vertical midpoint between the anchors, horizontally aligned with the
	// parent and child respectively, giving a vertical-dominant S-curve.
	C1, C2 Vec2

	// Emphasized is set when either endpoint is the selected node.
	// Rendering only; it never changes the geometry.
	Emphasized bool
}

// linkAnchor returns the card's link attachment point: horizontally centered,
// a fixed drop below the top edge so the curve lands near the label area.
// The anchor ignores rotation and scale, matching the card's layout anchor.
func linkAnchor(n ImageNode) Vec2 {
	return Vec2{n.X + CardWidth/2, n.Y + linkAnchorDrop}
}

// ComputeLinks derives the current connector set from the board. A ParentID
// that doesn't resolve to a present node produces no link; an orphaned child
// is not an error.
func ComputeLinks(b *Board) []Link {
	nodes := b.Nodes()
	selected := b.Selected()

	byID := make(map[string]ImageNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var links []Link
	for _, child := range nodes {
		if child.ParentID == "" {
			continue
		}
		parent, ok := byID[child.ParentID]
		if !ok {
			continue
		}
		start := linkAnchor(parent)
		end := linkAnchor(child)
		midY := (start.Y + end.Y) / 2
		links = append(links, Link{
			ParentID:   parent.ID,
			ChildID:    child.ID,
			Start:      start,
			End:        end,
			C1:         Vec2{start.X, midY},
			C2:         Vec2{end.X, midY},
			Emphasized: selected != "" && (parent.ID == selected || child.ID == selected),
		})
	}
	return links
}

// At evaluates the cubic Bézier at t in [0, 1].
func (l Link) At(t float64) Vec2 {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Vec2{
		X: b0*l.Start.X + b1*l.C1.X + b2*l.C2.X + b3*l.End.X,
		Y: b0*l.Start.Y + b1*l.C1.Y + b2*l.C2.Y + b3*l.End.Y,
	}
}

// Points flattens the curve into segments+1 world-space points for stroking.
func (l Link) Points(segments int) []Vec2 {
	if segments < 1 {
		segments = 1
	}
	pts := make([]Vec2, segments+1)
	for i := 0; i <= segments; i++ {
		pts[i] = l.At(float64(i) / float64(segments))
	}
	return pts
}
