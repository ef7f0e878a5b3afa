package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/phanxgames/mural"
	"github.com/phanxgames/mural/pollinations"
	"github.com/phanxgames/mural/sqlitestore"
)

const autosaveInterval = 30 * time.Second

func runCmd() *cobra.Command {
	var (
		width   int
		height  int
		dbPath  string
		baseURL string
		model   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the canvas window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if width > 0 {
				cfg.Window.Width = width
			}
			if height > 0 {
				cfg.Window.Height = height
			}
			if dbPath != "" {
				cfg.Storage.Path = dbPath
			}
			if baseURL != "" {
				cfg.Backend.BaseURL = baseURL
			}
			if model != "" {
				cfg.Backend.Model = model
			}

			store, err := sqlitestore.New(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			gen := pollinations.New(pollinations.Options{
				BaseURL: cfg.Backend.BaseURL,
				Model:   cfg.Backend.Model,
				Size:    cfg.Backend.Size,
			})

			s := mural.NewSurface(gen, store, cfg.Window.Width, cfg.Window.Height)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			saver := mural.NewAutosaver(store, s.Board(), s.CanvasID, autosaveInterval)
			go saver.Run(ctx)

			log.Printf("mural: canvas %s, store %s", s.CanvasID(), cfg.Storage.Path)
			return mural.Run(s, mural.RunConfig{
				Title:  "mural",
				Width:  cfg.Window.Width,
				Height: cfg.Window.Height,
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Window width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Window height in pixels")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite store path")
	cmd.Flags().StringVar(&baseURL, "backend", "", "Generation service base URL")
	cmd.Flags().StringVar(&model, "model", "", "Generation model name")
	return cmd
}
