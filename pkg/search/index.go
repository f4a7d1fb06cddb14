// Package search maintains the full-text projection of entries and answers ranked matches.
//
// Every entry owns exactly one record in the fts_entries FTS4 table, keyed by
// docid == entries.id, holding the title and content joined by a newline. Records are
// written only through Sync and Delete, which run on the caller's transaction so the
// projection commits or rolls back together with the entry row.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/unowned-ai/quire/pkg/db"
)

// Table is the FTS4 virtual table backing the index.
const Table = "fts_entries"

// ScoreExpression evaluates to the relevance of the current match row. It is only valid in
// a statement that filters with "fts_entries MATCH ?". Lower scores are more relevant.
var ScoreExpression = db.RankFunction + "(matchinfo(" + Table + ", 'pcx'))"

const (
	deleteRecordStatement = `DELETE FROM fts_entries WHERE docid = ?`

	insertRecordStatement = `INSERT INTO fts_entries (docid, content) VALUES (?, ?)`

	rankedMatchStatement = `
	SELECT docid, fts_rank(matchinfo(fts_entries, 'pcx')) AS score
	FROM fts_entries
	WHERE fts_entries MATCH ?
	ORDER BY score ASC, docid ASC
	LIMIT ? OFFSET ?
	`

	clearStatement = `DELETE FROM fts_entries`

	rebuildStatement = `
	INSERT INTO fts_entries (docid, content)
	SELECT id, title || char(10) || content FROM entries
	`

	optimizeStatement = `INSERT INTO fts_entries (fts_entries) VALUES ('optimize')`

	countStatement = `SELECT COUNT(*) FROM fts_entries`
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	Execer
	Querier
}

// Match is a single ranked hit.
type Match struct {
	DocID int64   `json:"docid"`
	Score float64 `json:"score"`
}

// Index reads and writes index records. It holds no connection of its own.
type Index struct {
	log *zap.Logger
}

// NewIndex returns an Index that logs to log. A nil logger disables logging.
func NewIndex(log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{log: log.Named("search")}
}

// Document is the indexed text for an entry.
func Document(title, content string) string {
	return title + "\n" + content
}

// Sync replaces the record for docID with the current title and content. Calling it twice
// with the same input leaves the index unchanged.
func (i *Index) Sync(ctx context.Context, tx Execer, docID int64, title, content string) error {
	if _, err := tx.ExecContext(ctx, deleteRecordStatement, docID); err != nil {
		return fmt.Errorf("clear index record %d: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, insertRecordStatement, docID, Document(title, content)); err != nil {
		return fmt.Errorf("write index record %d: %w", docID, err)
	}
	i.log.Debug("index record synced", zap.Int64("docid", docID))
	return nil
}

// Delete removes the record for docID.
func (i *Index) Delete(ctx context.Context, tx Execer, docID int64) error {
	if _, err := tx.ExecContext(ctx, deleteRecordStatement, docID); err != nil {
		return fmt.Errorf("delete index record %d: %w", docID, err)
	}
	i.log.Debug("index record deleted", zap.Int64("docid", docID))
	return nil
}

// RankedMatch returns the docids whose record matches every term, most relevant first.
// A limit <= 0 returns all matches. An empty term set returns no matches.
func (i *Index) RankedMatch(ctx context.Context, q Querier, terms []string, limit, offset int) ([]Match, error) {
	expr := MatchExpression(terms)
	if expr == "" {
		return []Match{}, nil
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.QueryContext(ctx, rankedMatchStatement, expr, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ranked match: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.DocID, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan ranked match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ranked matches: %w", err)
	}

	i.log.Debug("ranked match", zap.String("match", expr), zap.Int("hits", len(matches)))
	return matches, nil
}

// Rebuild re-derives every record from the entries table and returns how many records
// were written. Run it inside a transaction.
func (i *Index) Rebuild(ctx context.Context, tx DBTX) (int64, error) {
	if _, err := tx.ExecContext(ctx, clearStatement); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, rebuildStatement); err != nil {
		return 0, fmt.Errorf("repopulate index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, optimizeStatement); err != nil {
		return 0, fmt.Errorf("optimize index: %w", err)
	}
	n, err := i.Count(ctx, tx)
	if err != nil {
		return 0, err
	}
	i.log.Info("index rebuilt", zap.Int64("records", n))
	return n, nil
}

// Count returns the number of records in the index.
func (i *Index) Count(ctx context.Context, q Querier) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, countStatement).Scan(&n); err != nil {
		return 0, fmt.Errorf("count index records: %w", err)
	}
	return n, nil
}

// Terms splits a free-text query on whitespace and drops blank terms.
func Terms(query string) []string {
	terms := []string{}
	for _, word := range strings.Fields(query) {
		if word = strings.TrimSpace(word); word != "" {
			terms = append(terms, word)
		}
	}
	return terms
}

// MatchExpression builds the FTS query for terms. Each term becomes a quoted phrase so
// query syntax in user input is taken literally, and phrases are joined with a single space,
// which FTS treats as AND. Terms without any letter or digit are dropped. The result is
// empty when no usable term remains.
func MatchExpression(terms []string) string {
	phrases := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
		if strings.IndexFunc(term, isWordRune) < 0 {
			continue
		}
		phrases = append(phrases, `"`+term+`"`)
	}
	return strings.Join(phrases, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
