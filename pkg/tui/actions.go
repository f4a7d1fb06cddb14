package tui

import (
	"context"
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
)

// The browser runs as the local database owner.
const access = entries.Privileged

type entriesMsg struct {
	results []query.Result
	query   string
}

type entryUpdatedMsg struct {
	entry entries.Entry
}

type entryDeletedMsg struct {
	id int64
}

// List published entries or drafts and return tea data
func listEntries(svc *query.Service, drafts bool, page entries.Page) tea.Cmd {
	return func() tea.Msg {
		results, err := svc.Listing(context.Background(), access, query.ListingRequest{Drafts: drafts, Page: page})
		if err != nil {
			return err
		}
		return entriesMsg{results: results}
	}
}

// Run a ranked search over every entry
func searchEntries(svc *query.Service, q string, page entries.Page) tea.Cmd {
	return func() tea.Msg {
		results, err := svc.Listing(context.Background(), access, query.ListingRequest{Query: q, Page: page})
		if err != nil {
			return err
		}
		return entriesMsg{results: results, query: q}
	}
}

// Flip the publish state of an entry
func togglePublished(svc *query.Service, entry entries.Entry) tea.Cmd {
	return func() tea.Msg {
		published := !entry.Published
		updated, err := svc.Store().Update(context.Background(), entry.ID, entries.EntryUpdate{Published: &published})
		if err != nil {
			return err
		}
		return entryUpdatedMsg{entry: updated}
	}
}

func deleteEntry(svc *query.Service, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Store().Delete(context.Background(), id); err != nil {
			return err
		}
		return entryDeletedMsg{id: id}
	}
}

// Get database name and file path
func getDbPragmaList(db *sql.DB) (string, string) {
	var name, file string
	err := db.QueryRow(`PRAGMA database_list`).Scan(new(int), &name, &file)
	if err != nil {
		return name, file
	}
	return name, file
}
