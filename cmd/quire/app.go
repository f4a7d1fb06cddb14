package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	pkgdb "github.com/unowned-ai/quire/pkg/db"
	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
	"github.com/unowned-ai/quire/pkg/utils"
)

var errPublicWrite = errors.New("writes are not available with --public")

// openDB opens the configured database, creating and migrating it as needed.
func openDB() (*sql.DB, error) {
	path, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	dbConn, err := pkgdb.OpenDBConnection(path, cfg.WAL, cfg.SyncMode)
	if err != nil {
		return nil, err
	}
	if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, appLog); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func openService() (*sql.DB, *query.Service, error) {
	dbConn, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	store := entries.NewStore(dbConn, entries.WithLogger(appLog))
	return dbConn, query.NewService(store, appLog), nil
}

// accessLevel is privileged for the local database owner unless --public is given.
func accessLevel() entries.AccessLevel {
	if publicFlag {
		return entries.Public
	}
	return entries.Privileged
}

func pageFromFlags(limit, offset int) entries.Page {
	if limit <= 0 {
		limit = cfg.PageSize
	}
	return entries.Page{Limit: limit, Offset: offset}
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(time.RFC3339)
}

func state(published bool) string {
	if published {
		return "published"
	}
	return "draft"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntry(w io.Writer, entry entries.Entry) {
	fmt.Fprintln(w, "Entry Details:")
	fmt.Fprintf(w, "ID:         %d\n", entry.ID)
	fmt.Fprintf(w, "Title:      %s\n", entry.Title)
	fmt.Fprintf(w, "Slug:       %s\n", entry.Slug)
	fmt.Fprintf(w, "State:      %s\n", state(entry.Published))
	fmt.Fprintf(w, "Timestamp:  %s\n", formatTimestamp(entry.Timestamp))
	fmt.Fprintln(w, "\nContent:")
	fmt.Fprintln(w, "------------------------------------------------------------")
	fmt.Fprintln(w, entry.Content)
	fmt.Fprintln(w, "------------------------------------------------------------")
}

func printResults(w io.Writer, results []query.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	scored := results[0].Score != nil
	header := "ID | Slug | Title | State | Timestamp"
	if scored {
		header += " | Score"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range results {
		line := fmt.Sprintf("%d | %s | %s | %s | %s", r.ID, r.Slug, r.Title, state(r.Published), formatTimestamp(r.Timestamp))
		if r.Score != nil {
			line += fmt.Sprintf(" | %.4f", *r.Score)
		}
		fmt.Fprintln(w, line)
	}
}
