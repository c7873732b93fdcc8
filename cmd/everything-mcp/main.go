// Package main provides the entry point for the everything-mcp CLI.
package main

import (
	"os"

	"github.com/rweijnen/everything-mcp/cmd/everything-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
