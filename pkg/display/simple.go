package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// simpleFormatter formats output as simple text, one result per line.
type simpleFormatter struct {
	config Config
}

// FormatItems implements Formatter.FormatItems.
func (f *simpleFormatter) FormatItems(w io.Writer, items []reconcile.Item, attrs []attribute.ID) error {
	for _, item := range items {
		line := item.Path()
		if line == "" {
			line = string(item.ID())
		}

		if len(attrs) > 0 {
			parts := make([]string, 0, len(attrs))
			for _, id := range attrs {
				v, _ := item.Attribute(id)
				parts = append(parts, fmt.Sprintf("%s=%s", id, formatValue(id, v)))
			}
			line = fmt.Sprintf("%s | %s", line, strings.Join(parts, " "))
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// FormatGroups implements Formatter.FormatGroups.
func (f *simpleFormatter) FormatGroups(w io.Writer, groups []*query.Group) error {
	return f.writeGroups(w, groups, 0)
}

func (f *simpleFormatter) writeGroups(w io.Writer, groups []*query.Group, depth int) error {
	indent := strings.Repeat("  ", depth)

	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "%s%s: %s (%d)\n",
			indent, g.Attribute, formatValue(g.Attribute, g.Value), groupSize(g)); err != nil {
			return err
		}

		if len(g.Subgroups) > 0 {
			if err := f.writeGroups(w, g.Subgroups, depth+1); err != nil {
				return err
			}
			continue
		}

		for _, item := range g.Items {
			if _, err := fmt.Fprintf(w, "%s  %s\n", indent, item.Path()); err != nil {
				return err
			}
		}
	}

	return nil
}

// FormatTree implements Formatter.FormatTree.
func (f *simpleFormatter) FormatTree(w io.Writer, root *query.TreeNode) error {
	var writeErr error
	root.Walk(func(node *query.TreeNode, depth int) {
		if writeErr != nil || !node.Leaf() {
			return
		}
		_, writeErr = fmt.Fprintln(w, node.Path)
	})
	return writeErr
}
