// Command mural opens the infinite canvas, backed by a local SQLite store
// and the pollinations.ai generation service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:     "mural",
	Short:   "mural is an infinite canvas for iterating on AI images",
	Version: version,
}

func main() {
	rootCmd.AddCommand(runCmd(), canvasesCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
