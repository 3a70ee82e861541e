package predicate

import (
	"testing"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

// itemValues builds a ValueLookup over a literal attribute map.
func itemValues(values map[attribute.ID]any) ValueLookup {
	return func(id attribute.ID) (any, bool) {
		v, ok := values[id]
		return v, ok
	}
}

func TestEvaluateNilMatchesEverything(t *testing.T) {
	t.Parallel()

	if !Evaluate(nil, itemValues(nil)) {
		t.Error("Evaluate(nil) = false, want true")
	}
}

func TestEvaluateStringMatching(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FileName: "Quarterly-Report_2024.pdf",
	})

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"contains insensitive", Attr(attribute.FileName).Contains("quarterly"), true},
		{"contains exact case", Attr(attribute.FileName).Contains("Quarterly", MatchOptions{CaseSensitive: true}), true},
		{"contains wrong case sensitive", Attr(attribute.FileName).Contains("quarterly", MatchOptions{CaseSensitive: true}), false},
		{"starts with", Attr(attribute.FileName).StartsWith("quarter"), true},
		{"ends with", Attr(attribute.FileName).EndsWith(".PDF"), true},
		{"word based hit", Attr(attribute.FileName).Contains("report", MatchOptions{WordBased: true}), true},
		{"word based fragment miss", Attr(attribute.FileName).Contains("repo", MatchOptions{WordBased: true}), false},
		{"not equals", Attr(attribute.FileName).NotEquals("other.pdf"), true},
	}

	for _, tt := range tests {
		if got := Evaluate(tt.expr, item); got != tt.want {
			t.Errorf("%s: Evaluate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEvaluateDiacriticFolding(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FileName: "Résumé.pdf",
	})

	if !Evaluate(Attr(attribute.FileName).Contains("resume"), item) {
		t.Error("default matching must fold diacritics")
	}
	if Evaluate(Attr(attribute.FileName).Contains("resume", MatchOptions{DiacriticSensitive: true}), item) {
		t.Error("diacritic sensitive matching must distinguish accents")
	}
	if !Evaluate(Attr(attribute.FileName).Contains("résumé", MatchOptions{DiacriticSensitive: true}), item) {
		t.Error("diacritic sensitive matching failed on the accented pattern")
	}
}

func TestEvaluateExtension(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FileName: "archive.tar.GZ",
	})

	if !Evaluate(Attr(attribute.FileExtension).Equals("gz"), item) {
		t.Error("extension match failed (case folding expected)")
	}
	if Evaluate(Attr(attribute.FileExtension).Equals("tar"), item) {
		t.Error("only the final extension participates")
	}
	if !Evaluate(Attr(attribute.FileExtension).NotEquals("pdf"), item) {
		t.Error("extension not-equals failed")
	}

	nameless := itemValues(map[attribute.ID]any{})
	if Evaluate(Attr(attribute.FileExtension).Equals("gz"), nameless) {
		t.Error("extension match must fail without a file name")
	}
}

func TestEvaluateNumericAndMissing(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FileSize: int64(5000),
	})

	if !Evaluate(Attr(attribute.FileSize).AtLeast(5000), item) {
		t.Error(">= boundary must match")
	}
	if Evaluate(Attr(attribute.FileSize).GreaterThan(5000), item) {
		t.Error("> boundary must not match")
	}

	// A comparison against a missing value never matches; its negation does.
	if Evaluate(Attr(attribute.ModificationDate).AtLeast(time.Now()), item) {
		t.Error("comparison on missing value matched")
	}
	if !Evaluate(Attr(attribute.FileName).NotEquals("x"), item) {
		t.Error("not-equals on missing value must match")
	}
}

func TestEvaluateBetweenEquivalence(t *testing.T) {
	t.Parallel()

	for _, size := range []int64{99, 100, 150, 200, 201} {
		item := itemValues(map[attribute.ID]any{
			attribute.FileSize: size,
		})

		between := Evaluate(Attr(attribute.FileSize).Between(100, 200), item)
		conjunction := Evaluate(And(
			Attr(attribute.FileSize).AtLeast(100),
			Attr(attribute.FileSize).AtMost(200),
		), item)

		if between != conjunction {
			t.Errorf("size %d: Between = %v, >= && <= = %v", size, between, conjunction)
		}
	}
}

func TestEvaluateBucketBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	today := Attr(attribute.ModificationDate).InBucketAt(BucketToday, now)

	tests := []struct {
		mod  time.Time
		want bool
	}{
		{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},   // low edge in
		{time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), true}, // end of day in
		{time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), false},  // high edge out
		{time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC), false},
	}

	for _, tt := range tests {
		item := itemValues(map[attribute.ID]any{
			attribute.ModificationDate: tt.mod,
		})
		if got := Evaluate(today, item); got != tt.want {
			t.Errorf("mod %v: Evaluate(today) = %v, want %v", tt.mod, got, tt.want)
		}
	}
}

func TestEvaluateListAttributes(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FinderTags: []string{"Work", "Urgent"},
	})

	if !Evaluate(Attr(attribute.FinderTags).Contains("work"), item) {
		t.Error("list membership failed")
	}
	if Evaluate(Attr(attribute.FinderTags).Contains("home"), item) {
		t.Error("list membership matched an absent element")
	}
	if Evaluate(Attr(attribute.FinderTags).ContainsNot("urgent"), item) {
		t.Error("list not-contains must fail when an element matches")
	}
	if !Evaluate(Attr(attribute.FinderTags).ContainsAny("home", "urgent"), item) {
		t.Error("containsAny failed")
	}
	if !Evaluate(Attr(attribute.FinderTags).ContainsNone("home", "archive"), item) {
		t.Error("containsNone failed")
	}
}

func TestEvaluateBooleanConnectives(t *testing.T) {
	t.Parallel()

	item := itemValues(map[attribute.ID]any{
		attribute.FileName: "notes.txt",
		attribute.FileSize: int64(10),
	})

	e := And(
		Attr(attribute.FileName).EndsWith(".txt"),
		Or(
			Attr(attribute.FileSize).GreaterThan(1000),
			Attr(attribute.FileSize).LessThan(100),
		),
		Not(Attr(attribute.FileName).Contains("draft")),
	)

	if !Evaluate(e, item) {
		t.Error("composite predicate should match")
	}
}

func TestEvaluatePoisonedTreeMatchesNothing(t *testing.T) {
	t.Parallel()

	bad := Attr(attribute.FileSize).Equals("big")
	item := itemValues(map[attribute.ID]any{
		attribute.FileSize: int64(1),
	})

	if Evaluate(bad, item) {
		t.Error("a tree with a build error must match nothing")
	}
}
