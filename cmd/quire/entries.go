package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
)

func newEntriesCmd() *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Manage entries",
		Long:  `Create, show, list, update, and delete entries. Drafts are visible unless --public is given.`,
	}
	entriesCmd.AddCommand(
		newCreateEntryCmd(),
		newGetEntryCmd(),
		newListEntriesCmd(),
		newUpdateEntryCmd(),
		newDeleteEntryCmd(),
	)
	return entriesCmd
}

func parseEntryID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry ID: %s", arg)
	}
	return id, nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, expected RFC 3339: %w", value, err)
	}
	return ts, nil
}

func newCreateEntryCmd() *cobra.Command {
	var (
		title, content, entrySlug, timestamp string
		published                            bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new entry",
		Long:  `Create a new entry. The slug is derived from the title unless --slug is given. Entries start as drafts unless --published is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if accessLevel() != entries.Privileged {
				return errPublicWrite
			}

			in := entries.NewEntry{Title: title, Content: content, Slug: entrySlug, Published: published}
			if timestamp != "" {
				ts, err := parseTimestamp(timestamp)
				if err != nil {
					return err
				}
				in.Timestamp = ts
			}

			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			entry, err := svc.Store().Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to create entry: %w", err)
			}
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title of the entry (required)")
	cmd.Flags().StringVar(&content, "content", "", "Content of the entry")
	cmd.Flags().StringVar(&entrySlug, "slug", "", "Explicit slug; kept when the title changes")
	cmd.Flags().BoolVar(&published, "published", false, "Publish the entry immediately")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "RFC 3339 timestamp (default: now)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newGetEntryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [slug]",
		Short: "Show an entry by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			entry, err := svc.Detail(cmd.Context(), args[0], accessLevel())
			if errors.Is(err, entries.ErrNotFound) {
				return fmt.Errorf("entry not found: %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to get entry: %w", err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entry as JSON")
	return cmd
}

func newListEntriesCmd() *cobra.Command {
	var (
		drafts, asJSON bool
		limit, offset  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Long:  `List published entries, newest first. With --drafts, list unpublished entries instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if drafts && publicFlag {
				return errors.New("--drafts cannot be combined with --public")
			}

			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			results, err := svc.Listing(cmd.Context(), accessLevel(), query.ListingRequest{
				Drafts: drafts,
				Page:   pageFromFlags(limit, offset),
			})
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().BoolVar(&drafts, "drafts", false, "List drafts instead of published entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (default: $QUIRE_PAGE_SIZE)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newUpdateEntryCmd() *cobra.Command {
	var (
		title, content, entrySlug, timestamp string
		published                            bool
	)

	cmd := &cobra.Command{
		Use:   "update [entry-id]",
		Short: "Update an entry",
		Long:  `Update the title, content, slug, publish state, or timestamp of an entry. Only the given flags change.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accessLevel() != entries.Privileged {
				return errPublicWrite
			}
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			var upd entries.EntryUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				upd.Title = &title
			}
			if flags.Changed("content") {
				upd.Content = &content
			}
			if flags.Changed("slug") {
				upd.Slug = &entrySlug
			}
			if flags.Changed("published") {
				upd.Published = &published
			}
			if flags.Changed("timestamp") {
				ts, err := parseTimestamp(timestamp)
				if err != nil {
					return err
				}
				upd.Timestamp = &ts
			}
			if upd == (entries.EntryUpdate{}) {
				return errors.New("nothing to update (use --title, --content, --slug, --published, or --timestamp)")
			}

			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			entry, err := svc.Store().Update(cmd.Context(), id, upd)
			if errors.Is(err, entries.ErrNotFound) {
				return fmt.Errorf("entry not found: %d", id)
			}
			if err != nil {
				return fmt.Errorf("failed to update entry: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Entry updated successfully!")
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&entrySlug, "slug", "", "New explicit slug")
	cmd.Flags().BoolVar(&published, "published", false, "Publish (true) or unpublish (false)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "New RFC 3339 timestamp")
	return cmd
}

func newDeleteEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [entry-id]",
		Short: "Delete an entry",
		Long:  `Permanently delete an entry together with its search index record.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accessLevel() != entries.Privileged {
				return errPublicWrite
			}
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			err = svc.Store().Delete(cmd.Context(), id)
			if errors.Is(err, entries.ErrNotFound) {
				return fmt.Errorf("entry not found: %d", id)
			}
			if err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d deleted.\n", id)
			return nil
		},
	}
}
