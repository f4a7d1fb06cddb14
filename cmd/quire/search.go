package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/quire/pkg/query"
)

func newSearchCmd() *cobra.Command {
	var (
		asJSON        bool
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "search [terms]...",
		Short: "Search entries by full-text query",
		Long: `Search entry titles and content. Every term must match; results are ordered by
relevance, most relevant (lowest score) first. Drafts are included unless --public is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			results, err := svc.Listing(cmd.Context(), accessLevel(), query.ListingRequest{
				Query: strings.Join(args, " "),
				Page:  pageFromFlags(limit, offset),
			})
			if err != nil {
				return fmt.Errorf("failed to search entries: %w", err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default: $QUIRE_PAGE_SIZE)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
