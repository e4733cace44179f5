package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/sumologic-mcp/cmd/sumologic-mcp/cmd.Version=..."
var Version = "dev"

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagEndpoint  = "endpoint"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sumologic-mcp",
		Short:        "sumologic-mcp serves Sumo Logic search as MCP tools.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(flagLogLevel, "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().String(flagLogFormat, "", "Log format (json, text); overrides LOG_FORMAT")
	cmd.PersistentFlags().String(flagEndpoint, "", "Sumo Logic API endpoint; overrides SUMO_ENDPOINT")

	cmd.AddCommand(
		serveCmd(),
		queryCmd(),
		validateCmd(),
		sourcesCmd(),
		versionCmd(),
	)

	return cmd
}
