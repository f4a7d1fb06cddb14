package entries

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/quire/pkg/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use OpenDBConnection to get an in-memory DB for testing
	testDB, err := db.OpenDBConnection(":memory:", false, "NORMAL")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	if err := db.InitializeSchema(testDB, db.TargetSchemaVersion); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}
	return testDB
}

// fixedClock returns a clock that advances one minute per call, so creation order is
// also timestamp order.
func fixedClock() func() time.Time {
	next := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(setupTestDB(t), WithClock(fixedClock()))
}

// Helper to create an entry for test setup
func createTestEntry(t *testing.T, ctx context.Context, s *Store, title, content string, published bool) Entry {
	t.Helper()
	entry, err := s.Create(ctx, NewEntry{Title: title, Content: content, Published: published})
	require.NoError(t, err, "Create failed in createTestEntry")
	return entry
}

func indexRecord(t *testing.T, s *Store, id int64) (string, bool) {
	t.Helper()
	var content string
	err := s.DB().QueryRow("SELECT content FROM fts_entries WHERE docid = ?", id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false
	}
	require.NoError(t, err)
	return content, true
}

func slugsOf(list []Entry) []string {
	slugs := make([]string, len(list))
	for i, e := range list {
		slugs[i] = e.Slug
	}
	return slugs
}

func TestCreate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry, err := s.Create(ctx, NewEntry{Title: "Hello, World!", Content: "First post."})
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.Equal(t, "Hello, World!", entry.Title)
	assert.Equal(t, "hello-world", entry.Slug)
	assert.False(t, entry.SlugPinned)
	assert.False(t, entry.Published, "entries default to draft")
	assert.True(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Equal(entry.Timestamp), "got timestamp %v", entry.Timestamp)

	stored, err := s.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, stored.ID)
	assert.Equal(t, entry.Slug, stored.Slug)
	assert.Equal(t, entry.Content, stored.Content)
	assert.True(t, entry.Timestamp.Equal(stored.Timestamp), "stored timestamp %v != %v", stored.Timestamp, entry.Timestamp)

	content, ok := indexRecord(t, s, entry.ID)
	require.True(t, ok, "index record must exist after create")
	assert.Equal(t, "Hello, World!\nFirst post.", content)
}

func TestCreateWithExplicitSlugAndTimestamp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ts := time.Date(2019, 12, 31, 23, 59, 0, 0, time.FixedZone("CET", 3600))

	entry, err := s.Create(ctx, NewEntry{Title: "Anything", Slug: "custom-slug", Published: true, Timestamp: ts})
	require.NoError(t, err)

	assert.Equal(t, "custom-slug", entry.Slug)
	assert.True(t, entry.SlugPinned)
	assert.True(t, entry.Timestamp.Equal(ts))
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
}

func TestCreateValidation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewEntry
	}{
		{"EmptyTitle", NewEntry{Title: ""}},
		{"BlankTitle", NewEntry{Title: "   "}},
		{"TitleWithoutWordCharacters", NewEntry{Title: "?!"}},
		{"MalformedSlug", NewEntry{Title: "Fine", Slug: "Not A Slug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts, "rejected creates must not persist anything")
}

func TestCreateDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := createTestEntry(t, ctx, s, "Hello World", "one", true)

	_, err := s.Create(ctx, NewEntry{Title: "Hello World", Content: "two"})
	require.ErrorIs(t, err, ErrDuplicateSlug)

	_, err = s.Create(ctx, NewEntry{Title: "Other", Slug: first.Slug})
	require.ErrorIs(t, err, ErrDuplicateSlug)

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Published: 1, Drafts: 0, Indexed: 1}, counts)
}

func TestUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry := createTestEntry(t, ctx, s, "Original Title", "original body", false)

	t.Run("ContentAndPublishState", func(t *testing.T) {
		content := "new body"
		published := true
		updated, err := s.Update(ctx, entry.ID, EntryUpdate{Content: &content, Published: &published})
		require.NoError(t, err)

		assert.Equal(t, "Original Title", updated.Title)
		assert.Equal(t, "original-title", updated.Slug)
		assert.Equal(t, "new body", updated.Content)
		assert.True(t, updated.Published)
		assert.True(t, entry.Timestamp.Equal(updated.Timestamp), "timestamp is kept unless given")

		record, _ := indexRecord(t, s, entry.ID)
		assert.Equal(t, "Original Title\nnew body", record)
	})

	t.Run("TitleChangeRederivesUnpinnedSlug", func(t *testing.T) {
		title := "Renamed Title"
		updated, err := s.Update(ctx, entry.ID, EntryUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "renamed-title", updated.Slug)

		_, err = s.GetBySlug(ctx, "original-title", Privileged)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExplicitSlugPins", func(t *testing.T) {
		pinned := "pinned"
		_, err := s.Update(ctx, entry.ID, EntryUpdate{Slug: &pinned})
		require.NoError(t, err)

		title := "Yet Another Title"
		updated, err := s.Update(ctx, entry.ID, EntryUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "pinned", updated.Slug)
		assert.True(t, updated.SlugPinned)

		record, _ := indexRecord(t, s, entry.ID)
		assert.Equal(t, "Yet Another Title\nnew body", record)
	})

	t.Run("Timestamp", func(t *testing.T) {
		ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		updated, err := s.Update(ctx, entry.ID, EntryUpdate{Timestamp: &ts})
		require.NoError(t, err)
		assert.True(t, ts.Equal(updated.Timestamp))
	})
}

func TestUpdateErrors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := createTestEntry(t, ctx, s, "Alpha", "a", true)
	createTestEntry(t, ctx, s, "Beta", "b", true)

	title := "Beta"
	_, err := s.Update(ctx, a.ID, EntryUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	empty := ""
	_, err = s.Update(ctx, a.ID, EntryUpdate{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Update(ctx, 9999, EntryUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", stored.Title)
	assert.Equal(t, "alpha", stored.Slug)
	record, _ := indexRecord(t, s, a.ID)
	assert.Equal(t, "Alpha\na", record, "failed updates must leave the index untouched")
}

func TestGetBySlugAccess(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	draft := createTestEntry(t, ctx, s, "Secret Draft", "wip", false)
	published := createTestEntry(t, ctx, s, "Public Post", "hello", true)

	_, err := s.GetBySlug(ctx, draft.Slug, Public)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetBySlug(ctx, draft.Slug, Privileged)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	got, err = s.GetBySlug(ctx, published.Slug, Public)
	require.NoError(t, err)
	assert.Equal(t, published.ID, got.ID)

	_, errMissing := s.GetBySlug(ctx, "does-not-exist", Public)
	_, errHidden := s.GetBySlug(ctx, draft.Slug, Public)
	assert.Equal(t, errMissing, errHidden, "hidden and missing entries must be indistinguishable")
}

func TestListPublicAndDrafts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestEntry(t, ctx, s, "Old Post", "", true)
	createTestEntry(t, ctx, s, "Draft One", "", false)
	createTestEntry(t, ctx, s, "New Post", "", true)
	createTestEntry(t, ctx, s, "Draft Two", "", false)

	public, err := s.ListPublic(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-post", "old-post"}, slugsOf(public))

	drafts, err := s.ListDrafts(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft-two", "draft-one"}, slugsOf(drafts))

	page, err := s.ListPublic(ctx, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"old-post"}, slugsOf(page))

	empty, err := s.ListPublic(ctx, Page{Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListOrderTieBreak(t *testing.T) {
	s := NewStore(setupTestDB(t), WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	createTestEntry(t, ctx, s, "First", "", true)
	createTestEntry(t, ctx, s, "Second", "", true)

	list, err := s.ListPublic(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, slugsOf(list))
}

func TestSearch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := createTestEntry(t, ctx, s, "Lighthouse", "A published lighthouse story.", true)
	d := createTestEntry(t, ctx, s, "Draft", "Notes about a lighthouse.", false)
	createTestEntry(t, ctx, s, "Unrelated", "Nothing to see.", true)

	t.Run("PublishedOnly", func(t *testing.T) {
		results, err := s.Search(ctx, []string{"lighthouse"}, true, Page{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, p.ID, results[0].ID)
	})

	t.Run("AllEntriesRanked", func(t *testing.T) {
		results, err := s.Search(ctx, []string{"lighthouse"}, false, Page{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		// p mentions lighthouse twice (title and body), d once.
		assert.Equal(t, p.ID, results[0].ID)
		assert.Equal(t, d.ID, results[1].ID)
		assert.LessOrEqual(t, results[0].Score, results[1].Score)
	})

	t.Run("Conjunctive", func(t *testing.T) {
		results, err := s.Search(ctx, []string{"lighthouse", "notes"}, false, Page{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, d.ID, results[0].ID)
	})

	t.Run("EmptyTerms", func(t *testing.T) {
		results, err := s.Search(ctx, nil, false, Page{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("FollowsUpdates", func(t *testing.T) {
		content := "Now about windmills."
		_, err := s.Update(ctx, d.ID, EntryUpdate{Content: &content})
		require.NoError(t, err)

		results, err := s.Search(ctx, []string{"lighthouse"}, false, Page{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, p.ID, results[0].ID)

		results, err = s.Search(ctx, []string{"windmills"}, false, Page{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, d.ID, results[0].ID)
	})
}

func TestSearchFindsEveryEntryByTitleTerm(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	titles := []string{"Harbour Lights", "Quiet Mornings", "Tidal Pools"}
	for i, title := range titles {
		entry := createTestEntry(t, ctx, s, title, "body", i%2 == 0)
		results, err := s.Search(ctx, strings.Fields(title)[:1], false, Page{})
		require.NoError(t, err)
		ids := make([]int64, len(results))
		for j, r := range results {
			ids[j] = r.ID
		}
		assert.Contains(t, ids, entry.ID, "entry %q must be searchable by its title", title)
	}
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry := createTestEntry(t, ctx, s, "Short Lived", "lighthouse", true)
	require.NoError(t, s.Delete(ctx, entry.ID))

	_, err := s.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := indexRecord(t, s, entry.ID)
	assert.False(t, ok, "index record must be removed with the entry")

	assert.ErrorIs(t, s.Delete(ctx, entry.ID), ErrNotFound)

	// The slug is free again.
	_, err = s.Create(ctx, NewEntry{Title: "Short Lived"})
	assert.NoError(t, err)
}

func TestIndexSyncFailureRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	existing := createTestEntry(t, ctx, s, "Survivor", "before", true)

	_, err := s.DB().Exec("DROP TABLE fts_entries")
	require.NoError(t, err)

	_, err = s.Create(ctx, NewEntry{Title: "Doomed", Content: "never stored"})
	require.ErrorIs(t, err, ErrIndexSync)

	content := "after"
	_, err = s.Update(ctx, existing.ID, EntryUpdate{Content: &content})
	require.ErrorIs(t, err, ErrIndexSync)

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM entries").Scan(&n))
	assert.Equal(t, 1, n, "failed create must not leave an entry behind")

	stored, err := s.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", stored.Content, "failed update must not change the entry")
}

func TestCountAndRebuildIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestEntry(t, ctx, s, "One", "lighthouse", true)
	createTestEntry(t, ctx, s, "Two", "harbour", false)

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Published: 1, Drafts: 1, Indexed: 2}, counts)

	_, err = s.DB().Exec("DELETE FROM fts_entries")
	require.NoError(t, err)

	n, err := s.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	results, err := s.Search(ctx, []string{"harbour"}, false, Page{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two", results[0].Slug)
}

func TestAccessLevelString(t *testing.T) {
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "privileged", Privileged.String())
}
