// Package main provides the entry point of the Sumo Logic MCP server and CLI.
package main

import (
	"os"

	"github.com/sumologic-mcp/cmd/sumologic-mcp/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
