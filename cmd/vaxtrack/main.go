package main

import (
	"os"

	"github.com/wonny/vaxtrack/cmd/vaxtrack/commands"
)

// main is the entry point for the vaxtrack CLI
// ⭐ Single CLI entry point: go run ./cmd/vaxtrack [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
