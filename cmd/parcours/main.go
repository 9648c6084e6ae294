package main

import (
	"os"

	"github.com/pablasso/parcours/internal/cli"
)

func main() {
	// Without a subcommand the root command opens the editor.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
