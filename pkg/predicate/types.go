// Package predicate provides a typed, fluent builder for file metadata
// search predicates.
//
// Predicates are built per attribute and combined with boolean connectives,
// then compiled into the backend's query string syntax. The builder checks
// every comparison against the attribute's value kind at build time, so a
// malformed predicate fails when it is constructed, never while results are
// being reconciled.
//
// Example usage:
//
//	p := predicate.And(
//	    predicate.Attr(attribute.FileName).Contains("report"),
//	    predicate.Attr(attribute.FileSize).AtLeast(predicate.Size(1, predicate.Gigabytes)),
//	)
//	query, err := predicate.Compile(p)
//	if err != nil {
//	    log.Fatal(err)
//	}
package predicate

import (
	"sort"

	"github.com/hxhall/mdq/pkg/attribute"
)

// Operator identifies a comparison operator.
type Operator int

// Comparison operators.
const (
	OpEquals Operator = iota
	OpNotEquals
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpContains
	OpStartsWith
	OpEndsWith
)

// String returns the backend operator token.
func (op Operator) String() string {
	switch op {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith:
		return "=="
	case OpNotEquals:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// MatchOptions controls string comparison behavior.
//
// The zero value is the default: case-insensitive, diacritic-insensitive,
// phrase-based matching.
type MatchOptions struct {
	// CaseSensitive requires exact letter case.
	CaseSensitive bool

	// DiacriticSensitive distinguishes accented characters.
	DiacriticSensitive bool

	// WordBased matches on word boundaries instead of raw substrings.
	WordBased bool
}

// Expression is a node in a boolean predicate tree.
//
// Expressions are immutable once built. Every leaf references at least one
// catalog attribute.
type Expression interface {
	// referenced adds the attributes this subtree compares against.
	referenced(set map[attribute.ID]struct{})

	isExpression()
}

// Comparison is a single attribute comparison leaf.
type Comparison struct {
	// Attribute is the logical attribute compared.
	Attribute attribute.ID

	// Operator is the comparison operator.
	Operator Operator

	// Value is the comparison value, already converted to the attribute's
	// native representation (bytes for sizes, seconds for durations).
	Value any

	// Options applies to string-kind comparisons only.
	Options MatchOptions
}

// Between is an inclusive-low range leaf.
type Between struct {
	// Attribute is the logical attribute compared.
	Attribute attribute.ID

	// Low is the inclusive lower bound.
	Low any

	// High is the upper bound.
	High any

	// HighExclusive makes the upper bound exclusive. Date buckets use
	// half-open ranges; explicit Between ranges are inclusive on both ends.
	HighExclusive bool
}

// AndGroup is a conjunction of child expressions.
type AndGroup struct {
	Children []Expression
}

// OrGroup is a disjunction of child expressions.
type OrGroup struct {
	Children []Expression
}

// NotGroup negates a child expression.
type NotGroup struct {
	Child Expression
}

// errExpression carries a build error through a fluent chain. It surfaces
// from Compile and Validate.
type errExpression struct {
	err error
}

func (c *Comparison) isExpression()    {}
func (b *Between) isExpression()       {}
func (g *AndGroup) isExpression()      {}
func (g *OrGroup) isExpression()       {}
func (n *NotGroup) isExpression()      {}
func (e *errExpression) isExpression() {}

func (c *Comparison) referenced(set map[attribute.ID]struct{}) {
	set[c.Attribute] = struct{}{}
}

func (b *Between) referenced(set map[attribute.ID]struct{}) {
	set[b.Attribute] = struct{}{}
}

func (g *AndGroup) referenced(set map[attribute.ID]struct{}) {
	for _, child := range g.Children {
		child.referenced(set)
	}
}

func (g *OrGroup) referenced(set map[attribute.ID]struct{}) {
	for _, child := range g.Children {
		child.referenced(set)
	}
}

func (n *NotGroup) referenced(set map[attribute.ID]struct{}) {
	n.Child.referenced(set)
}

func (e *errExpression) referenced(map[attribute.ID]struct{}) {}

// ReferencedAttributes returns the sorted set of attributes the expression
// compares against. The facade uses it to decide which values to fetch for
// matching items.
func ReferencedAttributes(e Expression) []attribute.ID {
	if e == nil {
		return nil
	}

	set := make(map[attribute.ID]struct{})
	e.referenced(set)

	ids := make([]attribute.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// And combines expressions into a conjunction.
//
// A single child is returned unwrapped; nil children are dropped.
func And(exprs ...Expression) Expression {
	return combine(exprs, func(children []Expression) Expression {
		return &AndGroup{Children: children}
	})
}

// Or combines expressions into a disjunction.
//
// A single child is returned unwrapped; nil children are dropped.
func Or(exprs ...Expression) Expression {
	return combine(exprs, func(children []Expression) Expression {
		return &OrGroup{Children: children}
	})
}

// Not negates an expression.
func Not(e Expression) Expression {
	if e == nil {
		return nil
	}
	if errE, ok := e.(*errExpression); ok {
		return errE
	}
	return &NotGroup{Child: e}
}

func combine(exprs []Expression, wrap func([]Expression) Expression) Expression {
	children := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		// A build error anywhere poisons the whole tree.
		if errE, ok := e.(*errExpression); ok {
			return errE
		}
		children = append(children, e)
	}

	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return wrap(children)
	}
}
