package mural

import "github.com/hajimehoshi/ebiten/v2"

// RunConfig holds the window options for Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
}

// Run opens a resizable window and drives the surface until the window is
// closed. For full control over the game loop, pass the Surface to
// ebiten.RunGame yourself; it implements ebiten.Game directly.
func Run(s *Surface, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}
	if cfg.Title == "" {
		cfg.Title = "mural"
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(s)
}
