package predicate

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

// ValueLookup resolves an attribute's current value for one item.
//
// Returning false means the item has no value for the attribute; a
// comparison against a missing value never matches (and its negation does).
type ValueLookup func(id attribute.ID) (any, bool)

// Evaluate runs an expression tree against a single item's values.
//
// A nil expression matches everything. The evaluator applies the same
// special cases as the compiler: extension predicates test the file name's
// extension and multi-valued attributes match element-wise.
func Evaluate(e Expression, lookup ValueLookup) bool {
	if e == nil {
		return true
	}

	switch node := e.(type) {
	case *Comparison:
		return evalComparison(node, lookup)
	case *Between:
		return evalBetween(node, lookup)
	case *AndGroup:
		for _, child := range node.Children {
			if !Evaluate(child, lookup) {
				return false
			}
		}
		return true
	case *OrGroup:
		for _, child := range node.Children {
			if Evaluate(child, lookup) {
				return true
			}
		}
		return false
	case *NotGroup:
		return !Evaluate(node.Child, lookup)
	default:
		// errExpression: a tree that failed to build matches nothing.
		return false
	}
}

func evalComparison(c *Comparison, lookup ValueLookup) bool {
	if c.Attribute == attribute.FileExtension {
		return evalExtension(c, lookup)
	}

	raw, ok := lookup(c.Attribute)
	if !ok {
		return c.Operator == OpNotEquals
	}

	// Multi-valued attributes match if any element matches; inequality
	// requires every element to differ.
	if list, isList := raw.([]string); isList {
		if c.Operator == OpNotEquals {
			for _, elem := range list {
				if evalScalar(c, elem) {
					return false
				}
			}
			return true
		}
		inner := *c
		inner.Operator = opForListElement(c.Operator)
		for _, elem := range list {
			if evalScalar(&inner, elem) {
				return true
			}
		}
		return false
	}

	return evalScalar(c, raw)
}

// opForListElement maps a list-level operator to the per-element test.
func opForListElement(op Operator) Operator {
	if op == OpNotEquals {
		return OpEquals
	}
	return op
}

func evalScalar(c *Comparison, raw any) bool {
	if s, isString := c.Value.(string); isString {
		current, ok := raw.(string)
		if !ok {
			return c.Operator == OpNotEquals
		}
		return evalString(current, s, c.Operator, c.Options)
	}

	cmp, comparable := tryCompare(raw, c.Value)
	switch c.Operator {
	case OpEquals:
		return comparable && cmp == 0
	case OpNotEquals:
		return !comparable || cmp != 0
	case OpLess:
		return comparable && cmp < 0
	case OpLessEqual:
		return comparable && cmp <= 0
	case OpGreater:
		return comparable && cmp > 0
	case OpGreaterEqual:
		return comparable && cmp >= 0
	default:
		return false
	}
}

func evalBetween(b *Between, lookup ValueLookup) bool {
	raw, ok := lookup(b.Attribute)
	if !ok {
		return false
	}

	lowCmp, okLow := tryCompare(raw, b.Low)
	if !okLow || lowCmp < 0 {
		return false
	}

	highCmp, okHigh := tryCompare(raw, b.High)
	if !okHigh {
		return false
	}
	if b.HighExclusive {
		return highCmp < 0
	}
	return highCmp <= 0
}

// evalExtension applies the extension rewrite: the item's file name
// extension is compared against the predicate value.
func evalExtension(c *Comparison, lookup ValueLookup) bool {
	want, ok := c.Value.(string)
	if !ok {
		return false
	}
	want = strings.TrimPrefix(want, ".")

	raw, hasName := lookup(attribute.FileName)
	name, isString := raw.(string)
	if !hasName || !isString {
		return c.Operator == OpNotEquals
	}

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	matched := evalString(ext, want, OpEquals, c.Options)
	if c.Operator == OpNotEquals {
		return !matched
	}
	return matched
}

// evalString applies the match mode with case/diacritic folding.
func evalString(current, pattern string, op Operator, opts MatchOptions) bool {
	current = foldString(current, opts)
	pattern = foldString(pattern, opts)

	switch op {
	case OpEquals:
		return current == pattern
	case OpNotEquals:
		return current != pattern
	case OpContains:
		if opts.WordBased {
			for _, word := range strings.FieldsFunc(current, isWordSep) {
				if word == pattern {
					return true
				}
			}
			return false
		}
		return strings.Contains(current, pattern)
	case OpStartsWith:
		return strings.HasPrefix(current, pattern)
	case OpEndsWith:
		return strings.HasSuffix(current, pattern)
	default:
		return false
	}
}

func isWordSep(r rune) bool {
	return r == ' ' || r == '\t' || r == '-' || r == '_' || r == '.' || r == ','
}

func foldString(s string, opts MatchOptions) string {
	if !opts.CaseSensitive {
		s = strings.ToLower(s)
	}
	if !opts.DiacriticSensitive {
		s = stripDiacritics(s)
	}
	return s
}

// diacriticFold maps common Latin accented runes to their base letter.
// A full Unicode decomposition is out of scope; this covers the Latin-1
// supplement and Latin Extended-A runes seen in file names.
var diacriticFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a', 'ă': 'a', 'ą': 'a',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ė': 'e', 'ę': 'e', 'ě': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i', 'į': 'i',
	'ñ': 'n', 'ń': 'n', 'ň': 'n',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u', 'ů': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ś': 's', 'š': 's', 'ß': 's',
	'ź': 'z', 'ż': 'z', 'ž': 'z',
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'Ç': 'C', 'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ñ': 'N', 'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O', 'Ø': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U', 'Ý': 'Y',
}

func stripDiacritics(s string) string {
	var changed bool
	for _, r := range s {
		if _, ok := diacriticFold[r]; ok {
			changed = true
			break
		}
	}
	if !changed {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if base, ok := diacriticFold[r]; ok {
			sb.WriteRune(base)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// tryCompare orders two native values of the same family.
//
// Returns (-1|0|1, true) when comparable, (0, false) otherwise. Int and
// float values compare across types; dates compare as instants.
func tryCompare(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case ta.Before(tb):
			return -1, true
		case ta.After(tb):
			return 1, true
		default:
			return 0, true
		}
	}

	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case bb:
			return -1, true
		default:
			return 1, true
		}
	}

	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}

	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}

// compareValues is tryCompare for values already normalized by the builder.
func compareValues(a, b any) int {
	cmp, _ := tryCompare(a, b)
	return cmp
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
