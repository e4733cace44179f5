package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sumologic-mcp/internal/service"
	"github.com/sumologic-mcp/internal/sumologic"
	"github.com/sumologic-mcp/internal/types"
)

func queryCmd() *cobra.Command {
	var (
		from    string
		to      string
		limit   int
		asJSON  bool
		records bool
	)

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run a search and print the first page of results",
		Long: `Run a search job to completion and print its first page of results.

Aggregating queries (count, sum, distinct, ... or a "by" clause) return
records; other queries return raw messages. Use --records to force records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !asJSON {
				out, err := a.service.ExecuteQuery(ctx, service.ExecuteQueryArgs{
					Query:    args[0],
					FromTime: from,
					ToTime:   to,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			req := sumologic.SearchRequest{Query: args[0], From: from, To: to}
			var result *types.SearchResult
			if records || service.IsAggregateQuery(args[0]) {
				result, err = a.client.ExecuteQuery(ctx, req, limit)
			} else {
				result, err = a.client.ExecuteMessageQuery(ctx, req, limit)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&from, "from", service.DefaultFromTime, "Start of the time range (e.g. -15m, -24h, 2024-01-01T00:00:00)")
	cmd.Flags().StringVar(&to, "to", service.DefaultToTime, "End of the time range")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultQueryLimit, "Maximum number of results to fetch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result page as JSON")
	cmd.Flags().BoolVar(&records, "records", false, "Fetch records even for non-aggregating queries (with --json)")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <query>",
		Short: "Check whether the backend accepts a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.service.ValidateQuerySyntax(cmd.Context(), service.ValidateQueryArgs{Query: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
