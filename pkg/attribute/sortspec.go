package attribute

// SortKey describes a sort order over one attribute.
type SortKey struct {
	// Attribute is the logical attribute to sort by.
	Attribute ID

	// Ascending selects ascending order when true, descending otherwise.
	Ascending bool
}

// GroupKey describes one level of result grouping.
type GroupKey struct {
	// Attribute is the logical attribute to group by.
	Attribute ID
}

// NewSortKey builds a sort key for an attribute.
//
// Returns ErrUnknownAttribute for attributes not in the catalog and
// ErrUnsortableAttribute for path-shaped attributes: the backend treats the
// path as item identity, not as an orderable value, so sorting by it is
// rejected at build time rather than silently dropped.
func NewSortKey(attr ID, ascending bool) (SortKey, error) {
	if _, ok := Lookup(attr); !ok {
		return SortKey{}, ErrUnknownAttribute
	}
	if attr == FilePath {
		return SortKey{}, ErrUnsortableAttribute
	}

	return SortKey{Attribute: attr, Ascending: ascending}, nil
}

// NewGroupKeys builds an ordered group key list.
//
// Duplicate attributes are dropped, keeping first occurrence order (outer
// group first). Returns ErrNoGroupKeys for an empty list and
// ErrUnknownAttribute for attributes not in the catalog.
func NewGroupKeys(attrs ...ID) ([]GroupKey, error) {
	if len(attrs) == 0 {
		return nil, ErrNoGroupKeys
	}

	seen := make(map[ID]bool, len(attrs))
	keys := make([]GroupKey, 0, len(attrs))

	for _, attr := range attrs {
		if _, ok := Lookup(attr); !ok {
			return nil, ErrUnknownAttribute
		}
		if seen[attr] {
			continue
		}
		seen[attr] = true
		keys = append(keys, GroupKey{Attribute: attr})
	}

	return keys, nil
}
