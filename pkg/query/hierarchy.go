package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// TreeNode is one node of the hierarchical results projection. Interior
// nodes represent path segments; leaf nodes carry exactly one result item.
type TreeNode struct {
	// Name is the path segment ("" for the root).
	Name string

	// Path is the full path down to this node.
	Path string

	// Item is set on leaf nodes only.
	Item *reconcile.Item

	// Children are sorted by name, directories first.
	Children []*TreeNode
}

// Leaf reports whether this node carries a result item.
func (n *TreeNode) Leaf() bool {
	return n.Item != nil
}

// Walk visits the node and its descendants depth-first.
func (n *TreeNode) Walk(visit func(node *TreeNode, depth int)) {
	n.walk(visit, 0)
}

func (n *TreeNode) walk(visit func(node *TreeNode, depth int), depth int) {
	visit(n, depth)
	for _, child := range n.Children {
		child.walk(visit, depth+1)
	}
}

// BuildHierarchy projects a snapshot onto a path tree. Every item appears
// exactly once, as a leaf under the interior nodes for its path segments.
// Items without a resolved path are grouped under the root directly, keyed
// by identity.
func BuildHierarchy(snapshot reconcile.Snapshot) *TreeNode {
	root := &TreeNode{}
	index := map[string]*TreeNode{"": root}

	for _, item := range snapshot.Items() {
		it := item
		path := it.Path()
		if path == "" {
			path = string(it.ID())
		}

		segments := splitPath(path)
		parent := root
		prefix := ""
		for _, seg := range segments[:len(segments)-1] {
			prefix = prefix + "/" + seg
			node, ok := index[prefix]
			if !ok {
				node = &TreeNode{Name: seg, Path: prefix}
				index[prefix] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}

		leaf := &TreeNode{
			Name: segments[len(segments)-1],
			Path: path,
			Item: &it,
		}
		parent.Children = append(parent.Children, leaf)
	}

	sortTree(root)
	return root
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{"/"}
	}
	return strings.Split(trimmed, "/")
}

func sortTree(n *TreeNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Leaf() != b.Leaf() {
			return !a.Leaf()
		}
		return a.Name < b.Name
	})
	for _, child := range n.Children {
		sortTree(child)
	}
}

// Group is one bucket of the grouped results projection.
type Group struct {
	// Attribute is the logical attribute this level groups by.
	Attribute attribute.ID

	// Value is the shared attribute value (nil for items lacking it).
	Value any

	// Items holds this bucket's items when this is the innermost level.
	Items []reconcile.Item

	// Subgroups holds the next grouping level, if any.
	Subgroups []*Group
}

// BuildGrouped projects a snapshot onto nested groups, one level per group
// key. With no keys it returns a single group holding every item. Groups
// appear in first-encounter order; relative item order is preserved.
func BuildGrouped(snapshot reconcile.Snapshot, keys []attribute.GroupKey) []*Group {
	items := snapshot.Items()
	if len(keys) == 0 {
		return []*Group{{Items: items}}
	}
	return groupLevel(items, keys)
}

func groupLevel(items []reconcile.Item, keys []attribute.GroupKey) []*Group {
	id := keys[0].Attribute

	var groups []*Group
	index := make(map[string]*Group)

	for _, item := range items {
		val, _ := item.Attribute(id)
		key := groupKeyString(val)

		g, ok := index[key]
		if !ok {
			g = &Group{Attribute: id, Value: val}
			index[key] = g
			groups = append(groups, g)
		}
		g.Items = append(g.Items, item)
	}

	if len(keys) > 1 {
		for _, g := range groups {
			g.Subgroups = groupLevel(g.Items, keys[1:])
			g.Items = nil
		}
	}
	return groups
}

func groupKeyString(v any) string {
	if v == nil {
		return "\x00nil"
	}
	return fmt.Sprintf("%T:%v", v, v)
}
