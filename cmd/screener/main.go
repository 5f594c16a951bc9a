package main

import (
	"os"

	"github.com/wonny/creditgate/cmd/screener/commands"
)

// main is the entry point for the screener CLI
// ⭐ Unified CLI entry point: go run ./cmd/screener [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
