package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

// matchAllQuery is what a nil predicate compiles to: every item that has a
// file name, i.e. everything the backend indexes.
const matchAllQuery = `kMDItemFSName == "*"`

// Compile translates an expression tree into the backend query string.
//
// Compilation is pure and deterministic: the same tree always yields the
// same string. A tree carrying a build error returns that error here.
func Compile(e Expression) (string, error) {
	if e == nil {
		return matchAllQuery, nil
	}
	if err := Validate(e); err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := compileNode(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func compileNode(sb *strings.Builder, e Expression) error {
	switch node := e.(type) {
	case *Comparison:
		return compileComparison(sb, node)
	case *Between:
		return compileBetween(sb, node)
	case *AndGroup:
		return compileGroup(sb, node.Children, " && ")
	case *OrGroup:
		return compileGroup(sb, node.Children, " || ")
	case *NotGroup:
		sb.WriteString("!(")
		if err := compileNode(sb, node.Child); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case *errExpression:
		return node.err
	default:
		return fmt.Errorf("%w: unexpected node %T", ErrUnsupportedOperator, e)
	}
}

func compileGroup(sb *strings.Builder, children []Expression, sep string) error {
	sb.WriteString("(")
	for i, child := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := compileNode(sb, child); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func compileComparison(sb *strings.Builder, c *Comparison) error {
	desc, ok := attribute.Lookup(c.Attribute)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, c.Attribute)
	}

	// The backend has no extension-only key: extension predicates are
	// rewritten against the file name key as a "*.ext" suffix pattern.
	if c.Attribute == attribute.FileExtension {
		return compileExtension(sb, c)
	}

	// A logical attribute with several backend keys matches if any key
	// matches (inequality: if every key differs).
	sep := " || "
	if c.Operator == OpNotEquals {
		sep = " && "
	}

	if len(desc.Keys) > 1 {
		sb.WriteString("(")
	}
	for i, key := range desc.Keys {
		if i > 0 {
			sb.WriteString(sep)
		}
		writeComparison(sb, key, c)
	}
	if len(desc.Keys) > 1 {
		sb.WriteString(")")
	}
	return nil
}

func writeComparison(sb *strings.Builder, key string, c *Comparison) {
	sb.WriteString(key)
	sb.WriteString(" ")
	sb.WriteString(c.Operator.String())
	sb.WriteString(" ")

	if s, ok := c.Value.(string); ok {
		writeStringValue(sb, s, c.Operator, c.Options)
		return
	}
	sb.WriteString(formatScalar(c.Value))
}

// compileExtension emits the FileExtension rewrite against the name key.
func compileExtension(sb *strings.Builder, c *Comparison) error {
	ext, ok := c.Value.(string)
	if !ok {
		return ErrValueKindMismatch
	}
	ext = strings.TrimPrefix(ext, ".")

	op := "=="
	if c.Operator == OpNotEquals {
		op = "!="
	}

	sb.WriteString("kMDItemFSName ")
	sb.WriteString(op)
	sb.WriteString(" \"*.")
	sb.WriteString(escapeString(ext))
	sb.WriteString("\"")
	sb.WriteString(modifierSuffix(c.Options))
	return nil
}

func compileBetween(sb *strings.Builder, b *Between) error {
	desc, ok := attribute.Lookup(b.Attribute)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, b.Attribute)
	}

	highOp := "<="
	if b.HighExclusive {
		highOp = "<"
	}

	key := desc.Key()
	sb.WriteString("(")
	sb.WriteString(key)
	sb.WriteString(" >= ")
	sb.WriteString(formatScalar(b.Low))
	sb.WriteString(" && ")
	sb.WriteString(key)
	sb.WriteString(" ")
	sb.WriteString(highOp)
	sb.WriteString(" ")
	sb.WriteString(formatScalar(b.High))
	sb.WriteString(")")
	return nil
}

// writeStringValue emits a quoted string with the wildcard placement and
// modifier suffix implied by the operator and match options.
func writeStringValue(sb *strings.Builder, s string, op Operator, opts MatchOptions) {
	sb.WriteString("\"")
	switch op {
	case OpContains:
		sb.WriteString("*")
		sb.WriteString(escapeString(s))
		sb.WriteString("*")
	case OpStartsWith:
		sb.WriteString(escapeString(s))
		sb.WriteString("*")
	case OpEndsWith:
		sb.WriteString("*")
		sb.WriteString(escapeString(s))
	default:
		sb.WriteString(escapeString(s))
	}
	sb.WriteString("\"")
	sb.WriteString(modifierSuffix(opts))
}

// modifierSuffix folds match options into the backend's string modifiers:
// c = ignore case, d = ignore diacritics, w = word boundaries. The default
// (zero options) is case- and diacritic-insensitive.
func modifierSuffix(opts MatchOptions) string {
	var mods []byte
	if !opts.CaseSensitive {
		mods = append(mods, 'c')
	}
	if !opts.DiacriticSensitive {
		mods = append(mods, 'd')
	}
	if opts.WordBased {
		mods = append(mods, 'w')
	}
	return string(mods)
}

// escapeString escapes backslashes and double quotes for the query syntax.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return "$time.iso(" + val.UTC().Format(time.RFC3339) + ")"
	case string:
		return "\"" + escapeString(val) + "\""
	default:
		return fmt.Sprintf("%v", val)
	}
}
