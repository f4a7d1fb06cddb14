package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	quire "github.com/unowned-ai/quire/pkg"
	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
)

// execute runs the root command against args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func setupCLI(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	t.Setenv("QUIRE_LOG_LEVEL", "error")
	t.Setenv("QUIRE_PAGE_SIZE", "")
	dbFile := filepath.Join(t.TempDir(), "quire.db")

	return func(args ...string) (string, error) {
		return execute(t, "", append([]string{"--db", dbFile}, args...)...)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, quire.Version+"\n", out)
}

func TestEntriesLifecycle(t *testing.T) {
	run := setupCLI(t)

	out, err := run("entries", "create", "--title", "Harbour Notes", "--content", "lighthouse keepers", "--published")
	require.NoError(t, err)
	assert.Contains(t, out, "Slug:       harbour-notes")
	assert.Contains(t, out, "State:      published")

	out, err = run("entries", "create", "--title", "Half Written", "--content", "lighthouse draft")
	require.NoError(t, err)
	assert.Contains(t, out, "State:      draft")

	out, err = run("entries", "list", "--json")
	require.NoError(t, err)
	var published []query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &published))
	require.Len(t, published, 1)
	assert.Equal(t, "harbour-notes", published[0].Slug)

	out, err = run("entries", "list", "--drafts", "--json")
	require.NoError(t, err)
	var drafts []query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &drafts))
	require.Len(t, drafts, 1)
	assert.Equal(t, "half-written", drafts[0].Slug)

	out, err = run("entries", "get", "half-written", "--json")
	require.NoError(t, err)
	var entry entries.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "Half Written", entry.Title)

	_, err = run("--public", "entries", "get", "half-written")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry not found")

	out, err = run("entries", "update", "2", "--published")
	require.NoError(t, err)
	assert.Contains(t, out, "State:      published")

	_, err = run("entries", "update", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")

	out, err = run("entries", "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Entry 1 deleted.\n", out)

	_, err = run("entries", "delete", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry not found")
}

func TestPublicRefusesWrites(t *testing.T) {
	run := setupCLI(t)

	_, err := run("--public", "entries", "create", "--title", "Nope")
	assert.ErrorIs(t, err, errPublicWrite)

	_, err = run("--public", "reindex")
	assert.ErrorIs(t, err, errPublicWrite)

	_, err = run("--public", "entries", "list", "--drafts")
	require.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	run := setupCLI(t)

	_, err := run("entries", "create", "--title", "Tides", "--content", "lighthouse", "--published")
	require.NoError(t, err)
	_, err = run("entries", "create", "--title", "Storms", "--content", "lighthouse lighthouse")
	require.NoError(t, err)
	_, err = run("entries", "create", "--title", "Gardens", "--content", "tomatoes", "--published")
	require.NoError(t, err)

	out, err := run("search", "lighthouse", "--json")
	require.NoError(t, err)
	var results []query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "storms", results[0].Slug)
	require.NotNil(t, results[0].Score)

	out, err = run("--public", "search", "lighthouse", "--json")
	require.NoError(t, err)
	results = nil
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "tides", results[0].Slug)

	out, err = run("search", "nothing-matches-this")
	require.NoError(t, err)
	assert.Equal(t, "No entries found.\n", out)
}

func TestStatsAndReindex(t *testing.T) {
	run := setupCLI(t)

	_, err := run("entries", "create", "--title", "One", "--published")
	require.NoError(t, err)
	_, err = run("entries", "create", "--title", "Two")
	require.NoError(t, err)

	out, err := run("reindex")
	require.NoError(t, err)
	assert.Equal(t, "Reindexed 2 entries.\n", out)

	out, err = run("stats", "--json")
	require.NoError(t, err)
	var counts entries.Counts
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, entries.Counts{Published: 1, Drafts: 1, Indexed: 2}, counts)

	out, err = run("--public", "stats")
	require.NoError(t, err)
	assert.Equal(t, "Published: 1\n", out)
}

func TestPasswdCommand(t *testing.T) {
	t.Setenv("QUIRE_LOG_LEVEL", "error")

	out, err := execute(t, "", "passwd", "hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("hunter2")))

	out, err = execute(t, "from-stdin\n", "passwd")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("from-stdin")))

	_, err = execute(t, "", "passwd")
	assert.Error(t, err)
}
