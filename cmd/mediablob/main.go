package main

import (
	"os"

	"github.com/CodeArtisanRiz/media-blob-kit/cmd/mediablob/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
