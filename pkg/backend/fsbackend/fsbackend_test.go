package fsbackend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/backend"
	"github.com/hxhall/mdq/pkg/backend/valuestore"
	"github.com/hxhall/mdq/pkg/logger"
	"github.com/hxhall/mdq/pkg/predicate"
	"github.com/hxhall/mdq/pkg/reconcile"
)

func testBackend(store valuestore.Store) *FSBackend {
	cfg := NewConfig()
	cfg.DebounceInterval = 10 * time.Millisecond
	cfg.Store = store
	return New(cfg, logger.Noop())
}

func testPolicy() reconcile.BatchingPolicy {
	return reconcile.BatchingPolicy{
		InitialDelay:             10 * time.Millisecond,
		InitialCountThreshold:    1000,
		GatheringInterval:        10 * time.Millisecond,
		GatheringCountThreshold:  1000,
		MonitoringInterval:       10 * time.Millisecond,
		MonitoringCountThreshold: 1,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// drainUntil consumes notifications until one of the given kind arrives.
func drainUntil(t *testing.T, h backend.Handle, kind backend.NotificationKind) []backend.Notification {
	t.Helper()

	var seen []backend.Notification
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n, ok := <-h.Notifications():
			require.True(t, ok, "notification channel closed before %v", kind)
			seen = append(seen, n)
			if n.Kind == kind {
				return seen
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	b := testBackend(nil)
	ctx := context.Background()

	_, err := b.Submit(ctx, backend.Request{})
	require.ErrorIs(t, err, ErrNoScopes)

	_, err = b.Submit(ctx, backend.Request{
		Scopes: []string{filepath.Join(t.TempDir(), "missing")},
	})
	require.ErrorIs(t, err, ErrInvalidScope)

	// A file is not a valid scope either.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.txt"), "x")
	_, err = b.Submit(ctx, backend.Request{
		Scopes: []string{filepath.Join(dir, "plain.txt")},
	})
	require.ErrorIs(t, err, ErrInvalidScope)

	_, err = b.Submit(ctx, backend.Request{
		Expression: predicate.Attr("no-such-attribute").Equals("x"),
		Scopes:     []string{dir},
	})
	require.ErrorIs(t, err, ErrInvalidPredicate)
}

func TestSubmitFillsPartialBatchingPolicy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	b := testBackend(nil)
	h, err := b.Submit(context.Background(), backend.Request{
		Scopes:   []string{dir},
		Batching: reconcile.BatchingPolicy{MonitoringInterval: 40 * time.Millisecond},
	})
	require.NoError(t, err)
	defer h.Stop()

	got := h.(*handle).req.Batching
	assert.Equal(t, 40*time.Millisecond, got.MonitoringInterval)
	assert.Equal(t, reconcile.DefaultBatchingPolicy().GatheringCountThreshold, got.GatheringCountThreshold)
	assert.Equal(t, reconcile.DefaultBatchingPolicy().InitialDelay, got.InitialDelay)
}

func TestGatherFiltersByPredicate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	writeFile(t, filepath.Join(dir, "report.pdf"), "pdf body")
	writeFile(t, filepath.Join(dir, "sub", "todo.txt"), "later")
	writeFile(t, filepath.Join(dir, ".cache", "hidden.txt"), "skipped")

	b := testBackend(nil)
	h, err := b.Submit(context.Background(), backend.Request{
		Expression: predicate.Attr(attribute.FileExtension).Equals("txt"),
		Scopes:     []string{dir},
		Batching:   testPolicy(),
	})
	require.NoError(t, err)
	defer h.Stop()

	seen := drainUntil(t, h, backend.GatheringFinished)
	require.Equal(t, backend.GatheringStarted, seen[0].Kind)

	want := []reconcile.ItemID{
		reconcile.ItemID(filepath.Join(dir, "notes.txt")),
		reconcile.ItemID(filepath.Join(dir, "sub", "todo.txt")),
	}
	assert.Equal(t, want, h.CurrentIDs())
	assert.Equal(t, 2, h.Count())

	var added []reconcile.ItemID
	for _, n := range seen {
		added = append(added, n.Added...)
	}
	assert.ElementsMatch(t, want, added)
}

func TestGatherSortsByRequestKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.txt"), "s")
	writeFile(t, filepath.Join(dir, "large.txt"), "a much larger file body")
	writeFile(t, filepath.Join(dir, "medium.txt"), "middle body")

	b := testBackend(nil)
	h, err := b.Submit(context.Background(), backend.Request{
		Scopes:   []string{dir},
		SortKeys: []attribute.SortKey{{Attribute: attribute.FileSize, Ascending: false}},
		Batching: testPolicy(),
	})
	require.NoError(t, err)
	defer h.Stop()

	drainUntil(t, h, backend.GatheringFinished)

	want := []reconcile.ItemID{
		reconcile.ItemID(filepath.Join(dir, "large.txt")),
		reconcile.ItemID(filepath.Join(dir, "medium.txt")),
		reconcile.ItemID(filepath.Join(dir, "small.txt")),
	}
	assert.Equal(t, want, h.CurrentIDs())
}

func TestFetchValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	store := valuestore.NewMemoryStore()
	require.NoError(t, store.Put("/ghost", map[string]any{"kMDItemFSSize": int64(9)}))

	b := testBackend(store)
	h, err := b.Submit(context.Background(), backend.Request{
		Scopes:   []string{dir},
		Batching: testPolicy(),
	})
	require.NoError(t, err)
	defer h.Stop()

	drainUntil(t, h, backend.GatheringFinished)

	path := filepath.Join(dir, "notes.txt")
	values, err := h.FetchValues(reconcile.ItemID(path), []string{"kMDItemFSName", "kMDItemFSSize"})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", values["kMDItemFSName"])
	assert.Equal(t, int64(5), values["kMDItemFSSize"])
	assert.NotContains(t, values, "kMDItemPath")

	// Identities unknown to the live set fall back to the store.
	values, err = h.FetchValues("/ghost", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), values["kMDItemFSSize"])

	_, err = h.FetchValues("/nowhere", nil)
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestLiveUpdates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.txt"), "seed")

	b := testBackend(nil)
	h, err := b.Submit(context.Background(), backend.Request{
		Expression: predicate.Attr(attribute.FileExtension).Equals("txt"),
		Scopes:     []string{dir},
		Batching:   testPolicy(),
	})
	require.NoError(t, err)
	defer h.Stop()

	drainUntil(t, h, backend.GatheringFinished)
	require.NoError(t, h.EnableLiveUpdates())

	created := filepath.Join(dir, "fresh.txt")
	writeFile(t, created, "fresh")
	seen := drainUntil(t, h, backend.ResultsUpdated)
	update := seen[len(seen)-1]
	assert.Contains(t, update.Added, reconcile.ItemID(created))
	assert.Equal(t, 2, h.Count())

	// Rewriting an existing result reports it as changed.
	writeFile(t, created, "fresh but longer now")
	seen = drainUntil(t, h, backend.ResultsUpdated)
	update = seen[len(seen)-1]
	assert.Contains(t, update.Changed, reconcile.ItemID(created))

	require.NoError(t, os.Remove(created))
	seen = drainUntil(t, h, backend.ResultsUpdated)
	update = seen[len(seen)-1]
	assert.Contains(t, update.Removed, reconcile.ItemID(created))
	assert.Equal(t, 1, h.Count())

	require.NoError(t, h.EnableLiveUpdates()) // idempotent
	require.NoError(t, h.DisableLiveUpdates())
	require.NoError(t, h.DisableLiveUpdates())
}

func TestStopClosesNotifications(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	b := testBackend(nil)
	h, err := b.Submit(context.Background(), backend.Request{
		Scopes:   []string{dir},
		Batching: testPolicy(),
	})
	require.NoError(t, err)

	drainUntil(t, h, backend.GatheringFinished)

	require.NoError(t, h.Stop())
	require.NoError(t, h.Stop())

	require.ErrorIs(t, h.EnableLiveUpdates(), ErrStopped)
	require.ErrorIs(t, h.DisableLiveUpdates(), ErrStopped)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-h.Notifications():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("notification channel was not closed by Stop")
		}
	}
}
