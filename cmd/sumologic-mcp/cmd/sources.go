package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sumologic-mcp/internal/service"
)

func sourcesCmd() *cobra.Command {
	var (
		pattern string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List source categories across all collectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !all {
				out, err := a.service.ListSourceCategories(cmd.Context(), service.ListSourceCategoriesArgs{Pattern: pattern})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			sources, err := a.client.ListAllSources(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLLECTOR\tSOURCE\tTYPE\tCATEGORY")
			for _, s := range sources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.CollectorName, s.Name, s.SourceType, s.Category)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Case-insensitive substring to filter categories")
	cmd.Flags().BoolVar(&all, "all", false, "List every source with its collector instead of unique categories")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sumologic-mcp %s\n", Version)
		},
	}
}
