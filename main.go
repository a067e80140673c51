package main

import (
	"os"

	"github.com/decklab/decklab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
