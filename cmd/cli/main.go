// Package main is the entry point for the simplane CLI.
// The CLI is the operator terminal tool for interacting with the simplane API.
package main

import (
	"os"

	"simplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
