package mural

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// whitePixel is a 1x1 white image stretched for solid-color card fills.
var whitePixel *ebiten.Image

func init() {
	whitePixel = ebiten.NewImage(1, 1)
	whitePixel.Fill(color.White)
}

var (
	backgroundColor = color.RGBA{0x17, 0x15, 0x20, 0xff}
	cardColor       = color.RGBA{0xf2, 0xef, 0xe9, 0xff}
	loadingColor    = color.RGBA{0x3a, 0x37, 0x45, 0xff}
	linkColor       = color.RGBA{0x5a, 0x56, 0x6b, 0xff}
	linkBrightColor = color.RGBA{0xc9, 0x86, 0x3c, 0xff}
	selectionColor  = color.RGBA{0xc9, 0x86, 0x3c, 0xff}
	handleColor     = color.RGBA{0xe8, 0xdf, 0xd0, 0xff}
)

// linkSegments is the flattening resolution for connector curves.
const linkSegments = 24

// cardImage caches the decoded ebiten image for a node URL.
type cardImage struct {
	url string
	img *ebiten.Image
}

// Draw renders the board: links underneath, then cards in paint order, then
// the selected node's affordances and the prompt/status bar.
// Implements the ebiten.Game Draw contract via Run.
func (s *Surface) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if s.showLinks {
		s.drawLinks(screen)
	}

	nodes := s.board.Nodes()
	selected := s.board.Selected()
	for _, n := range nodes {
		s.drawCard(screen, n)
	}
	for _, n := range nodes {
		if n.ID == selected {
			s.drawAffordances(screen, n)
		}
	}

	s.drawStatusBar(screen)
}

// Layout reports the logical screen size and tracks window resizes.
// Implements the ebiten.Game Layout contract via Run.
func (s *Surface) Layout(outsideWidth, outsideHeight int) (int, int) {
	s.width, s.height = outsideWidth, outsideHeight
	s.orch.WindowWidth = float64(outsideWidth)
	return outsideWidth, outsideHeight
}

func (s *Surface) drawLinks(screen *ebiten.Image) {
	for _, l := range ComputeLinks(s.board) {
		clr := color.Color(linkColor)
		width := float32(1.5 * s.view.Zoom)
		if l.Emphasized {
			clr = linkBrightColor
			width = float32(2.5 * s.view.Zoom)
		}
		pts := l.Points(linkSegments)
		prev := s.view.WorldToScreen(pts[0])
		for _, p := range pts[1:] {
			cur := s.view.WorldToScreen(p)
			vector.StrokeLine(screen,
				float32(prev.X), float32(prev.Y),
				float32(cur.X), float32(cur.Y),
				width, clr, true)
			prev = cur
		}
	}
}

// cardGeoM builds the card-local (origin at the card's top-left) to screen
// transform for a node.
func (s *Surface) cardGeoM(n ImageNode) ebiten.GeoM {
	var g ebiten.GeoM
	g.Translate(-CardWidth/2, -CardHeight/2)
	g.Scale(n.Scale, n.Scale)
	g.Rotate(n.Rotation * math.Pi / 180)
	g.Scale(s.view.Zoom, s.view.Zoom)
	c := s.view.WorldToScreen(n.Center())
	g.Translate(c.X, c.Y)
	return g
}

func (s *Surface) drawCard(screen *ebiten.Image, n ImageNode) {
	base := s.cardGeoM(n)

	// Card body.
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(CardWidth, CardHeight)
	op.GeoM.Concat(base)
	if n.IsLoading {
		op.ColorScale.ScaleWithColor(loadingColor)
	} else {
		op.ColorScale.ScaleWithColor(cardColor)
	}
	screen.DrawImage(whitePixel, op)

	if n.IsLoading {
		// Pulse so pending cards read as alive.
		pulse := 0.55 + 0.25*math.Sin(float64(time.Now().UnixMilli())/300)
		inner := &ebiten.DrawImageOptions{}
		inner.GeoM.Scale(CardWidth-24, CardImageHeight-24)
		inner.GeoM.Translate(12, 12)
		inner.GeoM.Concat(base)
		inner.ColorScale.ScaleWithColor(cardColor)
		inner.ColorScale.ScaleAlpha(float32(pulse * 0.2))
		screen.DrawImage(whitePixel, inner)
		return
	}

	if img := s.imageFor(n); img != nil {
		b := img.Bounds()
		iop := &ebiten.DrawImageOptions{}
		iop.GeoM.Scale(CardWidth/float64(b.Dx()), CardImageHeight/float64(b.Dy()))
		iop.GeoM.Concat(base)
		screen.DrawImage(img, iop)
	}

	// Prompt label under the image, unrotated for legibility.
	if n.Prompt != "" {
		p := s.view.WorldToScreen(Vec2{n.X + 8, n.Y + CardImageHeight + 8})
		ebitenutil.DebugPrintAt(screen, truncate(n.Prompt, 34), int(p.X), int(p.Y))
	}
}

// imageFor decodes and caches the node's data URL. Decoding happens once per
// URL; a node whose URL changes is re-decoded.
func (s *Surface) imageFor(n ImageNode) *ebiten.Image {
	if n.URL == "" {
		return nil
	}
	if c, ok := s.cache[n.ID]; ok && c.url == n.URL {
		return c.img
	}
	raw, err := DecodeDataURL(n.URL)
	if err != nil {
		log.Printf("mural: node %s image undecodable: %v", n.ID, err)
		s.cache[n.ID] = &cardImage{url: n.URL}
		return nil
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Printf("mural: node %s image undecodable: %v", n.ID, err)
		s.cache[n.ID] = &cardImage{url: n.URL}
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	s.cache[n.ID] = &cardImage{url: n.URL, img: img}
	return img
}

// drawAffordances strokes the selection border and draws the rotate, resize,
// and delete handles. Only the selected node gets these.
func (s *Surface) drawAffordances(screen *ebiten.Image, n ImageNode) {
	corners := [4]Vec2{
		s.cardPoint(n, -CardWidth/2, -CardHeight/2),
		s.cardPoint(n, CardWidth/2, -CardHeight/2),
		s.cardPoint(n, CardWidth/2, CardHeight/2),
		s.cardPoint(n, -CardWidth/2, CardHeight/2),
	}
	for i := range corners {
		a := corners[i]
		b := corners[(i+1)%4]
		vector.StrokeLine(screen,
			float32(a.X), float32(a.Y), float32(b.X), float32(b.Y),
			2, selectionColor, true)
	}

	hr := float32(handleRadius * n.Scale * s.view.Zoom)
	rot := s.cardPoint(n, 0, -CardHeight/2-rotateHandleRise)
	top := s.cardPoint(n, 0, -CardHeight/2)
	vector.StrokeLine(screen,
		float32(top.X), float32(top.Y), float32(rot.X), float32(rot.Y),
		1, selectionColor, true)
	vector.DrawFilledCircle(screen, float32(rot.X), float32(rot.Y), hr, handleColor, true)

	for _, c := range corners {
		half := float32(cornerHandleHalf*n.Scale*s.view.Zoom) * 0.8
		vector.DrawFilledRect(screen,
			float32(c.X)-half, float32(c.Y)-half, half*2, half*2,
			handleColor, true)
	}

	del := s.cardPoint(n, CardWidth/2+deleteHandleOffset, -CardHeight/2-deleteHandleOffset)
	vector.DrawFilledCircle(screen, float32(del.X), float32(del.Y), hr, selectionColor, true)
	ebitenutil.DebugPrintAt(screen, "x", int(del.X)-3, int(del.Y)-8)
}

// cardPoint maps a card-local point (origin at center) to screen space.
func (s *Surface) cardPoint(n ImageNode, lx, ly float64) Vec2 {
	rad := n.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	sx := (lx*cos - ly*sin) * n.Scale
	sy := (lx*sin + ly*cos) * n.Scale
	c := s.view.WorldToScreen(n.Center())
	return Vec2{c.X + sx*s.view.Zoom, c.Y + sy*s.view.Zoom}
}

func (s *Surface) drawStatusBar(screen *ebiten.Image) {
	y := s.height - 32
	ebitenutil.DebugPrintAt(screen, "> "+string(s.prompt)+"_", 8, y)

	status := fmt.Sprintf("[%s] nodes:%d zoom:%.2f", s.orch.Status(), s.board.Len(), s.view.Zoom)
	ebitenutil.DebugPrintAt(screen, status, 8, y+16)

	if s.notice != "" && time.Now().Before(s.noticeUntil) {
		ebitenutil.DebugPrintAt(screen, s.notice, 8, y-16)
	}
}

// truncate shortens s to at most max runes. Cutting on rune boundaries keeps
// multibyte prompts valid UTF-8.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
