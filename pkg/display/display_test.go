package display

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

func displayItem(path string, size int64) reconcile.Item {
	return reconcile.NewItem(reconcile.ItemID(path), map[string]any{
		"kMDItemFSName": base(path),
		"kMDItemPath":   path,
		"kMDItemFSSize": size,
	})
}

func base(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func TestNewSelectsFormatter(t *testing.T) {
	assert.IsType(t, &tableFormatter{}, New(Config{MaxWidth: 120}))
	assert.IsType(t, &tableFormatter{}, New(Config{Format: FormatTable, MaxWidth: 120}))
	assert.IsType(t, &simpleFormatter{}, New(Config{Format: FormatSimple, MaxWidth: 120}))
	assert.IsType(t, &jsonFormatter{}, New(Config{Format: FormatJSON, MaxWidth: 120}))
}

func TestFormatValue(t *testing.T) {
	when := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		id   attribute.ID
		v    any
		want string
	}{
		{"nil", attribute.FileName, nil, "-"},
		{"string", attribute.FileName, "notes.txt", "notes.txt"},
		{"date", attribute.ModificationDate, when, "2024-03-15 10:30:00"},
		{"string list", attribute.FinderTags, []string{"Work", "Urgent"}, "Work, Urgent"},
		{"size", attribute.FileSize, int64(1_500_000), "1.5 MB"},
		{"plain int", attribute.UseCount, int64(1_234_567), "1,234,567"},
		{"float", attribute.Duration, 3.14, "3.1"},
		{"bool true", attribute.FileIsInvisible, true, "yes"},
		{"bool false", attribute.FileIsInvisible, false, "no"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.id, tt.v))
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1000, "1.0 kB"},
		{1_500_000, "1.5 MB"},
		{2_000_000_000, "2.0 GB"},
		{3_500_000_000_000, "3.5 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.n))
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1_234_567, "1,234,567"},
		{-4200, "-4,200"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.n))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...fghij", truncate("abcdefghij", 8))
	assert.Equal(t, "hij", truncate("abcdefghij", 3))
	assert.Equal(t, "abcdefghij", truncate("abcdefghij", 0))
}

func TestTableFormatItems(t *testing.T) {
	f := New(Config{Format: FormatTable, MaxWidth: 200})
	var buf bytes.Buffer

	items := []reconcile.Item{
		displayItem("/docs/notes.txt", 1_500_000),
		displayItem("/docs/report.pdf", 42),
	}
	require.NoError(t, f.FormatItems(&buf, items, []attribute.ID{attribute.FileSize}))

	out := buf.String()
	assert.Contains(t, out, "Results (2 items)")
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "fileSize")
	assert.Contains(t, out, "Path")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "1.5 MB")
	assert.Contains(t, out, "42 B")
	assert.Contains(t, out, "/docs/report.pdf")
}

func TestTableFormatItemsEmpty(t *testing.T) {
	f := New(Config{Format: FormatTable, MaxWidth: 120})
	var buf bytes.Buffer

	require.NoError(t, f.FormatItems(&buf, nil, nil))
	assert.Contains(t, buf.String(), "No results")
}

func TestTableTruncatesLongPaths(t *testing.T) {
	f := New(Config{Format: FormatTable, MaxWidth: 40})
	var buf bytes.Buffer

	long := "/very/long/nested/directory/structure/with/a/file/somewhere/deep.txt"
	require.NoError(t, f.FormatItems(&buf, []reconcile.Item{displayItem(long, 1)}, nil))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long)
}

func TestSimpleFormatItems(t *testing.T) {
	f := New(Config{Format: FormatSimple, MaxWidth: 120})
	var buf bytes.Buffer

	items := []reconcile.Item{displayItem("/docs/notes.txt", 1_500_000)}
	require.NoError(t, f.FormatItems(&buf, items, nil))
	assert.Equal(t, "/docs/notes.txt\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatItems(&buf, items, []attribute.ID{attribute.FileSize}))
	assert.Equal(t, "/docs/notes.txt | fileSize=1.5 MB\n", buf.String())
}

func TestSimpleFormatTreePrintsLeafPaths(t *testing.T) {
	f := New(Config{Format: FormatSimple, MaxWidth: 120})
	var buf bytes.Buffer

	root := query.BuildHierarchy(reconcile.NewSnapshot(
		displayItem("/docs/a.txt", 1),
		displayItem("/docs/sub/b.txt", 2),
	))
	require.NoError(t, f.FormatTree(&buf, root))

	assert.Equal(t, "/docs/sub/b.txt\n/docs/a.txt\n", buf.String())
}

func TestTableFormatTree(t *testing.T) {
	f := New(Config{Format: FormatTable, MaxWidth: 120})
	var buf bytes.Buffer

	root := query.BuildHierarchy(reconcile.NewSnapshot(
		displayItem("/docs/a.txt", 1),
	))
	require.NoError(t, f.FormatTree(&buf, root))

	out := buf.String()
	assert.Contains(t, out, "Results Hierarchy")
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "  a.txt")
}

func TestTableFormatGroups(t *testing.T) {
	f := New(Config{Format: FormatTable, MaxWidth: 120})
	var buf bytes.Buffer

	snap := reconcile.NewSnapshot(
		reconcile.NewItem("/a.pdf", map[string]any{"kMDItemContentType": "com.adobe.pdf", "kMDItemPath": "/a.pdf"}),
		reconcile.NewItem("/b.pdf", map[string]any{"kMDItemContentType": "com.adobe.pdf", "kMDItemPath": "/b.pdf"}),
		reconcile.NewItem("/c.txt", map[string]any{"kMDItemContentType": "public.plain-text", "kMDItemPath": "/c.txt"}),
	)
	groups := query.BuildGrouped(snap, []attribute.GroupKey{{Attribute: attribute.ContentType}})
	require.NoError(t, f.FormatGroups(&buf, groups))

	out := buf.String()
	assert.Contains(t, out, "contentType: com.adobe.pdf (2)")
	assert.Contains(t, out, "contentType: public.plain-text (1)")
	assert.Contains(t, out, "  /a.pdf")
}

func TestJSONFormatItems(t *testing.T) {
	f := New(Config{Format: FormatJSON, MaxWidth: 120, Compact: true})
	var buf bytes.Buffer

	items := []reconcile.Item{displayItem("/docs/notes.txt", 1_500_000)}
	require.NoError(t, f.FormatItems(&buf, items, []attribute.ID{attribute.FileSize}))

	var out []struct {
		ID         string         `json:"id"`
		Path       string         `json:"path"`
		Attributes map[string]any `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "/docs/notes.txt", out[0].ID)
	assert.Equal(t, "/docs/notes.txt", out[0].Path)
	assert.Equal(t, float64(1_500_000), out[0].Attributes["fileSize"])
}

func TestJSONFormatTree(t *testing.T) {
	f := New(Config{Format: FormatJSON, MaxWidth: 120, Compact: true})
	var buf bytes.Buffer

	root := query.BuildHierarchy(reconcile.NewSnapshot(displayItem("/docs/a.txt", 1)))
	require.NoError(t, f.FormatTree(&buf, root))

	var out struct {
		Name     string `json:"name"`
		Children []struct {
			Name     string `json:"name"`
			Children []struct {
				Name string `json:"name"`
				Item *struct {
					ID string `json:"id"`
				} `json:"item"`
			} `json:"children"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Children, 1)
	assert.Equal(t, "docs", out.Children[0].Name)
	require.Len(t, out.Children[0].Children, 1)
	assert.Equal(t, "a.txt", out.Children[0].Children[0].Name)
	require.NotNil(t, out.Children[0].Children[0].Item)
	assert.Equal(t, "/docs/a.txt", out.Children[0].Children[0].Item.ID)
}
