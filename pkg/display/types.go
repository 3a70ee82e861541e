// Package display provides output formatting for search results.
//
// It supports multiple output formats (table, JSON, simple text)
// and handles attribute value formatting for display.
package display

import (
	"io"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays results in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays results as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays results in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays search results.
type Formatter interface {
	// FormatItems formats a flat result list.
	//
	// Parameters:
	//   - w: Output writer
	//   - items: Result items in snapshot order
	//   - attrs: Attributes to show per item (path is always shown)
	//
	// Returns error if formatting fails.
	FormatItems(w io.Writer, items []reconcile.Item, attrs []attribute.ID) error

	// FormatGroups formats grouped results.
	//
	// Parameters:
	//   - w: Output writer
	//   - groups: Grouped results, possibly nested
	//
	// Returns error if formatting fails.
	FormatGroups(w io.Writer, groups []*query.Group) error

	// FormatTree formats hierarchical results.
	//
	// Parameters:
	//   - w: Output writer
	//   - root: Root of the path tree
	//
	// Returns error if formatting fails.
	FormatTree(w io.Writer, root *query.TreeNode) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// MaxWidth caps the output width in columns. Zero means detect from
	// the terminal, falling back to 120 when not a terminal.
	MaxWidth int

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
