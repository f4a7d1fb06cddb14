// Package entries owns entry records, their publish state, and the transactional
// synchronization of each entry with its search index record.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unowned-ai/quire/pkg/search"
	"github.com/unowned-ai/quire/pkg/slug"
)

const entryColumns = `id, title, slug, slug_pinned, content, published, timestamp`

const (
	createEntryStatement = `
	INSERT INTO entries (title, slug, slug_pinned, content, published, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	getEntryStatement = `
	SELECT ` + entryColumns + `
	FROM entries
	WHERE id = ?
	`

	getEntryBySlugStatement = `
	SELECT ` + entryColumns + `
	FROM entries
	WHERE slug = ? AND (published = TRUE OR ? = FALSE)
	`

	listEntriesStatement = `
	SELECT ` + entryColumns + `
	FROM entries
	WHERE published = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?
	`

	updateEntryStatement = `
	UPDATE entries
	SET title = ?, slug = ?, slug_pinned = ?, content = ?, published = ?, timestamp = ?
	WHERE id = ?
	`

	deleteEntryStatement = `
	DELETE FROM entries
	WHERE id = ?
	`

	countEntriesStatement = `
	SELECT COALESCE(SUM(published = TRUE), 0), COALESCE(SUM(published = FALSE), 0)
	FROM entries
	`
)

// searchEntriesStatement joins entries to their ranked index records. The second
// parameter restricts the result to published entries when true.
var searchEntriesStatement = `
	SELECT e.id, e.title, e.slug, e.slug_pinned, e.content, e.published, e.timestamp,
		` + search.ScoreExpression + ` AS score
	FROM entries e
	JOIN ` + search.Table + ` ON ` + search.Table + `.docid = e.id
	WHERE ` + search.Table + ` MATCH ? AND (e.published = TRUE OR ? = FALSE)
	ORDER BY score ASC, e.id ASC
	LIMIT ? OFFSET ?
	`

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store persists entries in SQLite. Every write updates the entry row and its search
// index record in one transaction.
type Store struct {
	db    *sql.DB
	index *search.Index
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store and its index.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the source of default entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a Store backed by db. The schema must already be initialized.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = search.NewIndex(s.log)
	s.log = s.log.Named("entries")
	return s
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Index returns the search index the store keeps in sync.
func (s *Store) Index() *search.Index {
	return s.index
}

// Create validates and persists a new entry. The slug is derived from the title unless
// one is given, in which case it is pinned.
func (s *Store) Create(ctx context.Context, in NewEntry) (Entry, error) {
	entry := Entry{
		Title:     in.Title,
		Slug:      in.Slug,
		Content:   in.Content,
		Published: in.Published,
		Timestamp: in.Timestamp,
	}
	if entry.Slug != "" {
		entry.SlugPinned = true
	} else {
		entry.Slug = slug.Generate(entry.Title)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	if err := validate(entry); err != nil {
		return Entry{}, err
	}

	created, err := s.persistAndIndex(ctx, func(tx *sql.Tx) (Entry, error) {
		res, err := tx.ExecContext(
			ctx,
			createEntryStatement,
			entry.Title,
			entry.Slug,
			entry.SlugPinned,
			entry.Content,
			entry.Published,
			entry.Timestamp,
		)
		if err != nil {
			return Entry{}, writeError(err, entry.Slug)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		entry.ID = id
		return entry, nil
	})
	if err != nil {
		s.log.Warn("create failed", zap.String("slug", entry.Slug), zap.Error(err))
		return Entry{}, err
	}

	s.log.Info("entry created", zap.Int64("id", created.ID), zap.String("slug", created.Slug), zap.Bool("published", created.Published))
	return created, nil
}

// Update applies the non-nil fields of upd to entry id. When the title changes and the
// slug was never given explicitly, the slug is derived again from the new title.
func (s *Store) Update(ctx context.Context, id int64, upd EntryUpdate) (Entry, error) {
	updated, err := s.persistAndIndex(ctx, func(tx *sql.Tx) (Entry, error) {
		current, err := getEntry(ctx, tx, id)
		if err != nil {
			return Entry{}, err
		}

		entry := current
		if upd.Title != nil {
			entry.Title = *upd.Title
		}
		if upd.Content != nil {
			entry.Content = *upd.Content
		}
		if upd.Published != nil {
			entry.Published = *upd.Published
		}
		if upd.Timestamp != nil {
			entry.Timestamp = upd.Timestamp.UTC()
		}
		switch {
		case upd.Slug != nil:
			entry.Slug = *upd.Slug
			entry.SlugPinned = true
		case entry.Title != current.Title && !entry.SlugPinned:
			entry.Slug = slug.Generate(entry.Title)
		}

		if err := validate(entry); err != nil {
			return Entry{}, err
		}

		_, err = tx.ExecContext(
			ctx,
			updateEntryStatement,
			entry.Title,
			entry.Slug,
			entry.SlugPinned,
			entry.Content,
			entry.Published,
			entry.Timestamp,
			id,
		)
		if err != nil {
			return Entry{}, writeError(err, entry.Slug)
		}
		return entry, nil
	})
	if err != nil {
		s.log.Warn("update failed", zap.Int64("id", id), zap.Error(err))
		return Entry{}, err
	}

	s.log.Info("entry updated", zap.Int64("id", updated.ID), zap.String("slug", updated.Slug), zap.Bool("published", updated.Published))
	return updated, nil
}

// Delete removes entry id and its index record together.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, deleteEntryStatement, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := s.index.Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexSync, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}

	s.log.Info("entry deleted", zap.Int64("id", id))
	return nil
}

// Get retrieves an entry by id regardless of its publish state.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	return getEntry(ctx, s.db, id)
}

// GetBySlug retrieves an entry by slug. Public callers get ErrNotFound for drafts, exactly
// as for a slug that does not exist.
func (s *Store) GetBySlug(ctx context.Context, entrySlug string, access AccessLevel) (Entry, error) {
	publishedOnly := access != Privileged
	entry, err := scanEntry(s.db.QueryRowContext(ctx, getEntryBySlugStatement, entrySlug, publishedOnly))
	if err != nil {
		return Entry{}, err
	}
	s.log.Debug("entry fetched", zap.String("slug", entrySlug), zap.Stringer("access", access))
	return entry, nil
}

// ListPublic returns published entries, newest first.
func (s *Store) ListPublic(ctx context.Context, page Page) ([]Entry, error) {
	return s.list(ctx, true, page)
}

// ListDrafts returns unpublished entries, newest first. The store does not check access;
// callers must only reach it on behalf of a privileged caller.
func (s *Store) ListDrafts(ctx context.Context, page Page) ([]Entry, error) {
	return s.list(ctx, false, page)
}

func (s *Store) list(ctx context.Context, published bool, page Page) ([]Entry, error) {
	limit, offset := page.bounds()
	rows, err := s.db.QueryContext(ctx, listEntriesStatement, published, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return entries, nil
}

// Search returns entries matching every term, ordered by relevance (lower score first,
// ties by id). With publishedOnly set, drafts are filtered out. An empty term set yields
// an empty result.
func (s *Store) Search(ctx context.Context, terms []string, publishedOnly bool, page Page) ([]ScoredEntry, error) {
	expr := search.MatchExpression(terms)
	if expr == "" {
		return []ScoredEntry{}, nil
	}

	limit, offset := page.bounds()
	rows, err := s.db.QueryContext(ctx, searchEntriesStatement, expr, publishedOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute search query: %w", ErrStorage, err)
	}
	defer rows.Close()

	results := []ScoredEntry{}
	for rows.Next() {
		var se ScoredEntry
		err := rows.Scan(
			&se.ID,
			&se.Title,
			&se.Slug,
			&se.SlugPinned,
			&se.Content,
			&se.Published,
			&se.Timestamp,
			&se.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan search result row: %w", ErrStorage, err)
		}
		results = append(results, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating over search results: %w", ErrStorage, err)
	}

	s.log.Debug("search", zap.String("match", expr), zap.Bool("published_only", publishedOnly), zap.Int("hits", len(results)))
	return results, nil
}

// Count returns how many entries are published, how many are drafts, and how many
// records the search index holds. Published+Drafts equals Indexed when the two agree.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, countEntriesStatement).Scan(&c.Published, &c.Drafts); err != nil {
		return Counts{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	indexed, err := s.index.Count(ctx, s.db)
	if err != nil {
		return Counts{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c.Indexed = indexed
	return c, nil
}

// RebuildIndex re-derives every index record from the entries table in one transaction.
func (s *Store) RebuildIndex(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	n, err := s.index.Rebuild(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexSync, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}
	return n, nil
}

// persistAndIndex runs write and then syncs the index record of the entry it returns, all
// in one transaction. Any failure rolls back both.
func (s *Store) persistAndIndex(ctx context.Context, write func(tx *sql.Tx) (Entry, error)) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: begin transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback() // no-op after Commit

	entry, err := write(tx)
	if err != nil {
		return Entry{}, err
	}

	if err := s.index.Sync(ctx, tx, entry.ID, entry.Title, entry.Content); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrIndexSync, err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}
	return entry, nil
}

func getEntry(ctx context.Context, q rowQuerier, id int64) (Entry, error) {
	return scanEntry(q.QueryRowContext(ctx, getEntryStatement, id))
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Slug,
		&entry.SlugPinned,
		&entry.Content,
		&entry.Published,
		&entry.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return entry, nil
}

func validate(e Entry) error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if e.Slug == "" {
		return fmt.Errorf("%w: title %q yields an empty slug", ErrInvalidInput, e.Title)
	}
	if !slug.Valid(e.Slug) {
		return fmt.Errorf("%w: slug %q must be lowercase word characters separated by single hyphens", ErrInvalidInput, e.Slug)
	}
	return nil
}

func writeError(err error, entrySlug string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q is already taken", ErrDuplicateSlug, entrySlug)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (p Page) bounds() (limit, offset int) {
	limit, offset = p.Limit, p.Offset
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
