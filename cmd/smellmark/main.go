// Package main is the entry point for the smellmark CLI.
package main

import (
	"os"

	"github.com/jmylchreest/smellmark/cmd/smellmark/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
