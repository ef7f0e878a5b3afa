package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phanxgames/mural"
	"github.com/phanxgames/mural/sqlitestore"
)

var (
	headline = color.New(color.FgHiWhite, color.Bold)
	subtle   = color.New(color.FgHiBlack)
	bad      = color.New(color.FgRed)
)

func canvasesCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "canvases",
		Short: "Inspect saved canvases",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite store path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the canvas history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := mural.History(store)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				subtle.Println("no canvases yet")
				return nil
			}
			last, _, _ := mural.LastCanvas(store)
			for _, e := range entries {
				marker := "  "
				if e.ID == last {
					marker = "* "
				}
				headline.Printf("%s%s", marker, e.Name)
				subtle.Printf("  %s  %s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Drop a canvas from the history index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := mural.DropHistoryEntry(store, args[0]); err != nil {
				bad.Printf("mural: %v\n", err)
				return err
			}
			fmt.Println("removed", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}

func openStore(dbPath string) (*sqlitestore.DB, error) {
	if dbPath == "" {
		dbPath = loadConfig().Storage.Path
	}
	store, err := sqlitestore.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
