package predicate

import (
	"fmt"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

// AttrBuilder builds predicate fragments for a single attribute.
//
// Obtain one with Attr. Every method validates the operator and value
// against the attribute's kind; a violation yields an expression that fails
// Compile and Validate with the underlying error, so misuse never goes
// unnoticed at reconciliation time.
type AttrBuilder struct {
	id   attribute.ID
	kind attribute.Kind
	err  error
}

// Attr starts building a predicate for a logical attribute.
func Attr(id attribute.ID) *AttrBuilder {
	kind, ok := attribute.KindOf(id)
	if !ok {
		return &AttrBuilder{id: id, err: fmt.Errorf("%w: %s", ErrUnknownAttribute, id)}
	}
	return &AttrBuilder{id: id, kind: kind}
}

// Range is a low/high bound pair for BetweenAny.
type Range struct {
	Low  any
	High any
}

// Equals builds an equality comparison.
//
// Valid for every attribute kind. String attributes honor opts; at most one
// MatchOptions value is used.
func (b *AttrBuilder) Equals(v any, opts ...MatchOptions) Expression {
	return b.compare(OpEquals, v, opts)
}

// NotEquals builds an inequality comparison. Valid for every kind.
func (b *AttrBuilder) NotEquals(v any, opts ...MatchOptions) Expression {
	return b.compare(OpNotEquals, v, opts)
}

// EqualsAny matches when the attribute equals any of the values
// (an OR of equality comparisons).
func (b *AttrBuilder) EqualsAny(values ...any) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}
	if len(values) == 0 {
		return b.fail(ErrEmptyValueList)
	}

	children := make([]Expression, 0, len(values))
	for _, v := range values {
		children = append(children, b.compare(OpEquals, v, nil))
	}
	return Or(children...)
}

// NotEqualsAny matches when the attribute equals none of the values.
// Compiled in De Morgan form: an AND of inequality comparisons, so every
// value must individually fail to match.
func (b *AttrBuilder) NotEqualsAny(values ...any) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}
	if len(values) == 0 {
		return b.fail(ErrEmptyValueList)
	}

	children := make([]Expression, 0, len(values))
	for _, v := range values {
		children = append(children, b.compare(OpNotEquals, v, nil))
	}
	return And(children...)
}

// LessThan builds an ordering comparison. Ordered kinds only.
func (b *AttrBuilder) LessThan(v any) Expression {
	return b.compare(OpLess, v, nil)
}

// AtMost builds a <= comparison. Ordered kinds only.
func (b *AttrBuilder) AtMost(v any) Expression {
	return b.compare(OpLessEqual, v, nil)
}

// GreaterThan builds an ordering comparison. Ordered kinds only.
func (b *AttrBuilder) GreaterThan(v any) Expression {
	return b.compare(OpGreater, v, nil)
}

// AtLeast builds a >= comparison. Ordered kinds only.
func (b *AttrBuilder) AtLeast(v any) Expression {
	return b.compare(OpGreaterEqual, v, nil)
}

// Between matches values in [low, high], inclusive on both ends.
// Ordered kinds only.
func (b *AttrBuilder) Between(low, high any) Expression {
	return b.rangeExpr(low, high, false)
}

// BetweenAny matches values falling within any of the listed ranges
// (an OR of Between fragments).
func (b *AttrBuilder) BetweenAny(ranges ...Range) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}
	if len(ranges) == 0 {
		return b.fail(ErrEmptyRangeList)
	}

	children := make([]Expression, 0, len(ranges))
	for _, r := range ranges {
		children = append(children, b.rangeExpr(r.Low, r.High, false))
	}
	return Or(children...)
}

// Contains builds a substring match for string kinds, or a membership test
// for list kinds.
func (b *AttrBuilder) Contains(v string, opts ...MatchOptions) Expression {
	if b.kind == attribute.KindStringList {
		// Membership in a multi-valued attribute compiles structurally
		// as equality against the list key.
		return b.compare(OpEquals, v, opts)
	}
	return b.compare(OpContains, v, opts)
}

// ContainsNot matches when the list attribute does not contain the value.
func (b *AttrBuilder) ContainsNot(v string, opts ...MatchOptions) Expression {
	if b.kind == attribute.KindStringList {
		return b.compare(OpNotEquals, v, opts)
	}
	return Not(b.compare(OpContains, v, opts))
}

// ContainsAny matches when the attribute contains any of the values.
func (b *AttrBuilder) ContainsAny(values ...string) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}
	if len(values) == 0 {
		return b.fail(ErrEmptyValueList)
	}

	children := make([]Expression, 0, len(values))
	for _, v := range values {
		children = append(children, b.Contains(v))
	}
	return Or(children...)
}

// ContainsNone matches when the attribute contains none of the values
// (De Morgan form: an AND of negated contains).
func (b *AttrBuilder) ContainsNone(values ...string) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}
	if len(values) == 0 {
		return b.fail(ErrEmptyValueList)
	}

	children := make([]Expression, 0, len(values))
	for _, v := range values {
		children = append(children, b.ContainsNot(v))
	}
	return And(children...)
}

// StartsWith builds a prefix match. String kinds only.
func (b *AttrBuilder) StartsWith(v string, opts ...MatchOptions) Expression {
	return b.compare(OpStartsWith, v, opts)
}

// EndsWith builds a suffix match. String kinds only.
func (b *AttrBuilder) EndsWith(v string, opts ...MatchOptions) Expression {
	return b.compare(OpEndsWith, v, opts)
}

// InBucket matches date attributes falling in a symbolic bucket, resolved
// against the wall clock at build time.
func (b *AttrBuilder) InBucket(bucket DateBucket) Expression {
	return b.InBucketAt(bucket, time.Now())
}

// InBucketAt is InBucket with an explicit reference time. The bucket
// resolves to a half-open [low, high) range.
func (b *AttrBuilder) InBucketAt(bucket DateBucket, now time.Time) Expression {
	low, high := bucket.Range(now)
	return b.rangeExpr(low, high, true)
}

// Within matches date attributes in the trailing window of n units ending
// at build time, inclusive on both ends.
func (b *AttrBuilder) Within(n int, unit DurationUnit) Expression {
	return b.WithinAt(n, unit, time.Now())
}

// WithinAt is Within with an explicit reference time.
func (b *AttrBuilder) WithinAt(n int, unit DurationUnit, now time.Time) Expression {
	low, high := WithinRange(now, n, unit)
	return b.rangeExpr(low, high, false)
}

// compare validates and builds a single comparison leaf.
func (b *AttrBuilder) compare(op Operator, v any, opts []MatchOptions) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}

	if err := checkOperator(b.kind, op); err != nil {
		return b.fail(err)
	}

	// The extension rewrite targets the file name as a "*.ext" pattern,
	// which only expresses whole-extension matching.
	if b.id == attribute.FileExtension {
		switch op {
		case OpEquals, OpNotEquals:
		default:
			return b.fail(ErrUnsupportedOperator)
		}
	}

	value, err := normalizeValue(b.kind, v)
	if err != nil {
		return b.fail(err)
	}

	var options MatchOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	return &Comparison{
		Attribute: b.id,
		Operator:  op,
		Value:     value,
		Options:   options,
	}
}

func (b *AttrBuilder) rangeExpr(low, high any, highExclusive bool) Expression {
	if b.err != nil {
		return &errExpression{err: b.err}
	}

	if !b.kind.Ordered() {
		return b.fail(ErrUnsupportedOperator)
	}

	lowV, err := normalizeValue(b.kind, low)
	if err != nil {
		return b.fail(err)
	}
	highV, err := normalizeValue(b.kind, high)
	if err != nil {
		return b.fail(err)
	}
	if compareValues(lowV, highV) > 0 {
		return b.fail(ErrInvalidRange)
	}

	return &Between{
		Attribute:     b.id,
		Low:           lowV,
		High:          highV,
		HighExclusive: highExclusive,
	}
}

func (b *AttrBuilder) fail(err error) Expression {
	return &errExpression{err: fmt.Errorf("%s: %w", b.id, err)}
}

// checkOperator verifies the operator is legal for the value kind.
func checkOperator(kind attribute.Kind, op Operator) error {
	switch op {
	case OpEquals, OpNotEquals:
		return nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if !kind.Ordered() {
			return ErrUnsupportedOperator
		}
		return nil
	case OpContains, OpStartsWith, OpEndsWith:
		if kind != attribute.KindString {
			return ErrUnsupportedOperator
		}
		return nil
	default:
		return ErrUnsupportedOperator
	}
}

// normalizeValue coerces a caller value to the kind's native representation.
//
// Native representations: string, int64, float64, bool, time.Time. Sizes
// are int64 byte counts; durations are float64 seconds. List kinds compare
// element-wise against strings.
func normalizeValue(kind attribute.Kind, v any) (any, error) {
	switch kind {
	case attribute.KindString, attribute.KindStringList, attribute.KindRawType:
		s, ok := v.(string)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return s, nil

	case attribute.KindInt, attribute.KindSize:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case SizeUnit:
			return int64(n), nil
		default:
			return nil, ErrValueKindMismatch
		}

	case attribute.KindDouble, attribute.KindDuration:
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		default:
			return nil, ErrValueKindMismatch
		}

	case attribute.KindBool:
		bv, ok := v.(bool)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return bv, nil

	case attribute.KindDate:
		t, ok := v.(time.Time)
		if !ok {
			return nil, ErrValueKindMismatch
		}
		return t, nil

	default:
		return nil, ErrValueKindMismatch
	}
}

// Validate reports the build error carried by an expression tree, if any.
//
// A nil expression is valid: it compiles to a match-everything query.
func Validate(e Expression) error {
	if e == nil {
		return nil
	}
	if errE, ok := e.(*errExpression); ok {
		return errE.err
	}
	return nil
}
