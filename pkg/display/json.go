package display

import (
	"encoding/json"
	"io"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// jsonItem is the JSON projection of one result item.
type jsonItem struct {
	ID         string         `json:"id"`
	Path       string         `json:"path,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// jsonGroup is the JSON projection of one result group.
type jsonGroup struct {
	Attribute string      `json:"attribute"`
	Value     any         `json:"value"`
	Items     []jsonItem  `json:"items,omitempty"`
	Subgroups []jsonGroup `json:"subgroups,omitempty"`
}

// jsonNode is the JSON projection of one tree node.
type jsonNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Item     *jsonItem  `json:"item,omitempty"`
	Children []jsonNode `json:"children,omitempty"`
}

// FormatItems implements Formatter.FormatItems.
func (f *jsonFormatter) FormatItems(w io.Writer, items []reconcile.Item, attrs []attribute.ID) error {
	out := make([]jsonItem, len(items))
	for i, item := range items {
		out[i] = toJSONItem(item, attrs)
	}

	return f.encode(w, out)
}

// FormatGroups implements Formatter.FormatGroups.
func (f *jsonFormatter) FormatGroups(w io.Writer, groups []*query.Group) error {
	return f.encode(w, toJSONGroups(groups))
}

// FormatTree implements Formatter.FormatTree.
func (f *jsonFormatter) FormatTree(w io.Writer, root *query.TreeNode) error {
	return f.encode(w, toJSONNode(root))
}

func (f *jsonFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}

func toJSONItem(item reconcile.Item, attrs []attribute.ID) jsonItem {
	out := jsonItem{
		ID:   string(item.ID()),
		Path: item.Path(),
	}

	if len(attrs) > 0 {
		out.Attributes = make(map[string]any, len(attrs))
		for _, id := range attrs {
			if v, ok := item.Attribute(id); ok {
				out.Attributes[string(id)] = v
			}
		}
	}

	return out
}

func toJSONGroups(groups []*query.Group) []jsonGroup {
	out := make([]jsonGroup, len(groups))
	for i, g := range groups {
		jg := jsonGroup{
			Attribute: string(g.Attribute),
			Value:     g.Value,
			Subgroups: toJSONGroups(g.Subgroups),
		}
		for _, item := range g.Items {
			jg.Items = append(jg.Items, toJSONItem(item, nil))
		}
		out[i] = jg
	}
	return out
}

func toJSONNode(node *query.TreeNode) jsonNode {
	out := jsonNode{
		Name: node.Name,
		Path: node.Path,
	}
	if node.Item != nil {
		item := toJSONItem(*node.Item, nil)
		out.Item = &item
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, toJSONNode(child))
	}
	return out
}
