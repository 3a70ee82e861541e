package predicate

import (
	"errors"
	"testing"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

func TestAttrUnknown(t *testing.T) {
	t.Parallel()

	e := Attr(attribute.ID("bogus")).Equals("x")
	if err := Validate(e); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Validate() error = %v, want ErrUnknownAttribute", err)
	}
}

func TestValueKindMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr Expression
	}{
		{"string for size", Attr(attribute.FileSize).Equals("big")},
		{"int for name", Attr(attribute.FileName).Equals(42)},
		{"string for date", Attr(attribute.ModificationDate).AtLeast("yesterday")},
		{"int for bool", Attr(attribute.FileIsInvisible).Equals(1)},
	}

	for _, tt := range tests {
		if err := Validate(tt.expr); !errors.Is(err, ErrValueKindMismatch) {
			t.Errorf("%s: Validate() error = %v, want ErrValueKindMismatch", tt.name, err)
		}
	}
}

func TestUnsupportedOperator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr Expression
	}{
		{"ordering on string", Attr(attribute.FileName).LessThan("z")},
		{"ordering on bool", Attr(attribute.FileIsInvisible).GreaterThan(true)},
		{"contains on size", Attr(attribute.FileSize).StartsWith("1")},
		{"between on string", Attr(attribute.FileName).Between("a", "b")},
	}

	for _, tt := range tests {
		if err := Validate(tt.expr); !errors.Is(err, ErrUnsupportedOperator) {
			t.Errorf("%s: Validate() error = %v, want ErrUnsupportedOperator", tt.name, err)
		}
	}
}

func TestFileExtensionEqualityOnly(t *testing.T) {
	t.Parallel()

	rejected := []struct {
		name string
		expr Expression
	}{
		{"contains", Attr(attribute.FileExtension).Contains("pd")},
		{"starts with", Attr(attribute.FileExtension).StartsWith("p")},
		{"ends with", Attr(attribute.FileExtension).EndsWith("f")},
		{"contains any", Attr(attribute.FileExtension).ContainsAny("pd", "tx")},
	}
	for _, tt := range rejected {
		if err := Validate(tt.expr); !errors.Is(err, ErrUnsupportedOperator) {
			t.Errorf("%s: Validate() error = %v, want ErrUnsupportedOperator", tt.name, err)
		}
	}

	accepted := []struct {
		name string
		expr Expression
	}{
		{"equals", Attr(attribute.FileExtension).Equals("pdf")},
		{"not equals", Attr(attribute.FileExtension).NotEquals("tmp")},
		{"equals any", Attr(attribute.FileExtension).EqualsAny("pdf", "txt")},
	}
	for _, tt := range accepted {
		if err := Validate(tt.expr); err != nil {
			t.Errorf("%s: Validate() error = %v, want nil", tt.name, err)
		}
	}
}

func TestErrorPoisonsTree(t *testing.T) {
	t.Parallel()

	bad := Attr(attribute.FileSize).Equals("big")
	good := Attr(attribute.FileName).Contains("report")

	combined := And(good, Or(bad, good))
	if err := Validate(combined); !errors.Is(err, ErrValueKindMismatch) {
		t.Errorf("Validate(poisoned tree) error = %v, want ErrValueKindMismatch", err)
	}

	if err := Validate(Not(bad)); !errors.Is(err, ErrValueKindMismatch) {
		t.Errorf("Validate(Not(poisoned)) error = %v, want ErrValueKindMismatch", err)
	}
}

func TestCombineDropsNilAndUnwrapsSingletons(t *testing.T) {
	t.Parallel()

	if got := And(); got != nil {
		t.Errorf("And() = %T, want nil", got)
	}
	if got := And(nil, nil); got != nil {
		t.Errorf("And(nil, nil) = %T, want nil", got)
	}

	leaf := Attr(attribute.FileName).Contains("x")
	if got := And(nil, leaf); got != leaf {
		t.Errorf("And(nil, leaf) = %T, want the leaf unwrapped", got)
	}

	grouped := And(leaf, leaf)
	if _, ok := grouped.(*AndGroup); !ok {
		t.Errorf("And(leaf, leaf) = %T, want *AndGroup", grouped)
	}
}

func TestEqualsAnyEmpty(t *testing.T) {
	t.Parallel()

	if err := Validate(Attr(attribute.FileName).EqualsAny()); !errors.Is(err, ErrEmptyValueList) {
		t.Errorf("EqualsAny() error = %v, want ErrEmptyValueList", err)
	}
	if err := Validate(Attr(attribute.ModificationDate).BetweenAny()); !errors.Is(err, ErrEmptyRangeList) {
		t.Errorf("BetweenAny() error = %v, want ErrEmptyRangeList", err)
	}
}

func TestBetweenInvalidRange(t *testing.T) {
	t.Parallel()

	e := Attr(attribute.FileSize).Between(200, 100)
	if err := Validate(e); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Between(200, 100) error = %v, want ErrInvalidRange", err)
	}

	lo := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	e = Attr(attribute.ModificationDate).Between(lo, hi)
	if err := Validate(e); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Between(later, earlier) error = %v, want ErrInvalidRange", err)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	t.Parallel()

	// int size values arrive as int64.
	e := Attr(attribute.FileSize).Equals(1024)
	cmp, ok := e.(*Comparison)
	if !ok {
		t.Fatalf("Equals(1024) = %T, want *Comparison", e)
	}
	if v, ok := cmp.Value.(int64); !ok || v != 1024 {
		t.Errorf("Value = %v (%T), want int64(1024)", cmp.Value, cmp.Value)
	}

	// int duration values arrive as float64 seconds.
	e = Attr(attribute.Duration).AtLeast(90)
	cmp, ok = e.(*Comparison)
	if !ok {
		t.Fatalf("AtLeast(90) = %T, want *Comparison", e)
	}
	if v, ok := cmp.Value.(float64); !ok || v != 90.0 {
		t.Errorf("Value = %v (%T), want float64(90)", cmp.Value, cmp.Value)
	}
}

func TestReferencedAttributes(t *testing.T) {
	t.Parallel()

	e := And(
		Attr(attribute.FileName).Contains("report"),
		Or(
			Attr(attribute.FileSize).AtLeast(Size(1, Megabytes)),
			Attr(attribute.FileName).EndsWith(".pdf"),
		),
		Not(Attr(attribute.ModificationDate).InBucketAt(BucketToday, time.Now())),
	)

	got := ReferencedAttributes(e)
	want := []attribute.ID{attribute.FileName, attribute.FileSize, attribute.ModificationDate}
	if len(got) != len(want) {
		t.Fatalf("ReferencedAttributes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReferencedAttributes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := ReferencedAttributes(nil); got != nil {
		t.Errorf("ReferencedAttributes(nil) = %v, want nil", got)
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()

	if err := Validate(nil); err != nil {
		t.Errorf("Validate(nil) = %v, want nil", err)
	}
}
