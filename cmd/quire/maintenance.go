package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/quire/pkg/auth"
	"github.com/unowned-ai/quire/pkg/entries"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the entries",
		Long:  `Re-derive every search index record from the current entries in one transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if accessLevel() != entries.Privileged {
				return errPublicWrite
			}

			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			n, err := svc.Store().RebuildIndex(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to rebuild index: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d entries.\n", n)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry and index counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			counts, err := svc.Counts(cmd.Context(), accessLevel())
			if err != nil {
				return fmt.Errorf("failed to count entries: %w", err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), counts)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published: %d\n", counts.Published)
			if accessLevel() == entries.Privileged {
				fmt.Fprintf(out, "Drafts:    %d\n", counts.Drafts)
				fmt.Fprintf(out, "Indexed:   %d\n", counts.Indexed)
				if counts.Indexed != counts.Published+counts.Drafts {
					fmt.Fprintln(out, "The search index is out of sync; run 'quire reindex'.")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print counts as JSON")
	return cmd
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd [password]",
		Short: "Print a bcrypt hash for QUIRE_OWNER_PASSWORD_HASH",
		Long: `Hash the owner password for use in QUIRE_OWNER_PASSWORD_HASH. The password is read from
the first line of stdin when not given as an argument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
