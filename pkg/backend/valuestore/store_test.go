package valuestore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "values.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	})
	return db
}

func testValues() map[string]any {
	return map[string]any{
		"kMDItemFSName":              "report.pdf",
		"kMDItemPath":                "/docs/report.pdf",
		"kMDItemFSSize":              int64(4096),
		"kMDItemFSInvisible":         false,
		"kMDItemDurationSeconds":     12.5,
		"kMDItemUserTags":            []string{"Work", "Q1"},
		"kMDItemFSContentChangeDate": time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

func runStoreTests(t *testing.T, store Store) {
	t.Helper()

	// Missing paths return nil, not an error.
	got, err := store.Get("/nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := testValues()
	require.NoError(t, store.Put("/docs/report.pdf", want))

	got, err = store.Get("/docs/report.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "report.pdf", got["kMDItemFSName"])
	assert.Equal(t, int64(4096), got["kMDItemFSSize"])
	assert.Equal(t, false, got["kMDItemFSInvisible"])
	assert.Equal(t, 12.5, got["kMDItemDurationSeconds"])
	assert.Equal(t, []string{"Work", "Q1"}, got["kMDItemUserTags"])

	gotDate, ok := got["kMDItemFSContentChangeDate"].(time.Time)
	require.True(t, ok, "date did not round-trip as time.Time")
	assert.True(t, gotDate.Equal(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)))

	// Put replaces the whole entry.
	require.NoError(t, store.Put("/docs/report.pdf", map[string]any{
		"kMDItemFSName": "renamed.pdf",
	}))
	got, err = store.Get("/docs/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", got["kMDItemFSName"])
	assert.NotContains(t, got, "kMDItemFSSize")

	// Delete, and deleting again is a no-op.
	require.NoError(t, store.Delete("/docs/report.pdf"))
	got, err = store.Get("/docs/report.pdf")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, store.Delete("/docs/report.pdf"))
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	store, err := NewBoltStore(openTestDB(t))
	require.NoError(t, err)

	runStoreTests(t, store)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()

	values := map[string]any{"kMDItemFSName": "a"}
	require.NoError(t, store.Put("/a", values))

	// Mutating the caller's map must not leak into the store.
	values["kMDItemFSName"] = "mutated"

	got, err := store.Get("/a")
	require.NoError(t, err)
	assert.Equal(t, "a", got["kMDItemFSName"])

	// Mutating a returned map must not leak either.
	got["kMDItemFSName"] = "mutated"
	again, err := store.Get("/a")
	require.NoError(t, err)
	assert.Equal(t, "a", again["kMDItemFSName"])
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.db")

	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)

	store, err := NewBoltStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Put("/a", map[string]any{"kMDItemFSSize": int64(7)}))
	require.NoError(t, db.Close())

	db, err = bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store, err = NewBoltStore(db)
	require.NoError(t, err)

	got, err := store.Get("/a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got["kMDItemFSSize"])
}
