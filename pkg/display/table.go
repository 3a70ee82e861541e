package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatItems implements Formatter.FormatItems.
func (f *tableFormatter) FormatItems(w io.Writer, items []reconcile.Item, attrs []attribute.ID) error {
	if err := writeHeader(w, fmt.Sprintf("Results (%d items)", len(items)), f.config.Compact); err != nil {
		return err
	}

	header := make([]string, 0, len(attrs)+2)
	header = append(header, "Name")
	for _, id := range attrs {
		header = append(header, string(id))
	}
	header = append(header, "Path")

	rows := make([][]string, len(items))
	for i, item := range items {
		row := make([]string, 0, len(header))
		row = append(row, itemLabel(item))
		for _, id := range attrs {
			v, _ := item.Attribute(id)
			row = append(row, formatValue(id, v))
		}
		row = append(row, item.Path())
		rows[i] = row
	}

	f.fitRows(header, rows)
	return f.writeTable(w, header, rows)
}

// FormatGroups implements Formatter.FormatGroups.
func (f *tableFormatter) FormatGroups(w io.Writer, groups []*query.Group) error {
	if err := writeHeader(w, "Grouped Results", f.config.Compact); err != nil {
		return err
	}

	return f.writeGroups(w, groups, 0)
}

func (f *tableFormatter) writeGroups(w io.Writer, groups []*query.Group, depth int) error {
	indent := strings.Repeat("  ", depth)

	for _, g := range groups {
		label := formatValue(g.Attribute, g.Value)
		count := len(g.Items)
		if len(g.Subgroups) > 0 {
			count = groupSize(g)
		}

		if _, err := fmt.Fprintf(w, "%s%s: %s (%d)\n", indent, g.Attribute, label, count); err != nil {
			return err
		}

		if len(g.Subgroups) > 0 {
			if err := f.writeGroups(w, g.Subgroups, depth+1); err != nil {
				return err
			}
			continue
		}

		for _, item := range g.Items {
			path := truncate(item.Path(), f.config.MaxWidth-len(indent)-4)
			if _, err := fmt.Fprintf(w, "%s  %s\n", indent, path); err != nil {
				return err
			}
		}
	}

	return nil
}

func groupSize(g *query.Group) int {
	if len(g.Subgroups) == 0 {
		return len(g.Items)
	}
	total := 0
	for _, sub := range g.Subgroups {
		total += groupSize(sub)
	}
	return total
}

// FormatTree implements Formatter.FormatTree.
func (f *tableFormatter) FormatTree(w io.Writer, root *query.TreeNode) error {
	if err := writeHeader(w, "Results Hierarchy", f.config.Compact); err != nil {
		return err
	}

	var writeErr error
	root.Walk(func(node *query.TreeNode, depth int) {
		if writeErr != nil || depth == 0 {
			return
		}
		indent := strings.Repeat("  ", depth-1)
		name := node.Name
		if !node.Leaf() {
			name += "/"
		}
		_, writeErr = fmt.Fprintf(w, "%s%s\n", indent, name)
	})
	return writeErr
}

// fitRows truncates the trailing path column so rows fit the width cap.
func (f *tableFormatter) fitRows(header []string, rows [][]string) {
	if f.config.MaxWidth <= 0 || len(header) == 0 {
		return
	}

	fixed := 0
	for i := 0; i < len(header)-1; i++ {
		width := len(header[i])
		for _, row := range rows {
			if len(row[i]) > width {
				width = len(row[i])
			}
		}
		fixed += width + 2
	}

	budget := f.config.MaxWidth - fixed
	if budget < 10 {
		budget = 10
	}
	last := len(header) - 1
	for _, row := range rows {
		row[last] = truncate(row[last], budget)
	}
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
