package attribute

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	d, ok := Lookup(FileName)
	if !ok {
		t.Fatal("Lookup(FileName) not found")
	}
	if d.ID != FileName {
		t.Errorf("Lookup(FileName).ID = %q, want %q", d.ID, FileName)
	}
	if d.Kind != KindString {
		t.Errorf("Lookup(FileName).Kind = %v, want KindString", d.Kind)
	}
	if d.Key() != "kMDItemFSName" {
		t.Errorf("Lookup(FileName).Key() = %q, want kMDItemFSName", d.Key())
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	if _, ok := Lookup(ID("noSuchAttribute")); ok {
		t.Error("Lookup of unknown attribute succeeded")
	}
}

func TestFromKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want ID
	}{
		{"kMDItemDisplayName", DisplayName},
		{"kMDItemFSSize", FileSize},
		{"kMDItemContentType", ContentType},
		{"kMDItemFSCreationDate", CreationDate},
		{"kMDItemContentCreationDate", CreationDate},
	}

	for _, tt := range tests {
		d, ok := FromKey(tt.key)
		if !ok {
			t.Errorf("FromKey(%q) not found", tt.key)
			continue
		}
		if d != tt.want {
			t.Errorf("FromKey(%q) = %q, want %q", tt.key, d, tt.want)
		}
	}
}

func TestFromKeySharedKeyKeepsFirstRegistration(t *testing.T) {
	t.Parallel()

	// FileExtension shares kMDItemFSName with FileName; resolution from the
	// key side must stay stable on the first registration.
	d, ok := FromKey("kMDItemFSName")
	if !ok {
		t.Fatal("FromKey(kMDItemFSName) not found")
	}
	if d != FileName {
		t.Errorf("FromKey(kMDItemFSName) = %q, want %q", d, FileName)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		for _, key := range d.Keys {
			back, ok := FromKey(key)
			if !ok {
				t.Errorf("FromKey(%q) not found for %q", key, d.ID)
				continue
			}
			if len(Keys(back)) == 0 {
				t.Errorf("FromKey(%q) has no keys", key)
			}
		}
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   ID
		want Kind
	}{
		{FileSize, KindSize},
		{ModificationDate, KindDate},
		{FinderTags, KindStringList},
		{FileIsInvisible, KindBool},
		{Duration, KindDuration},
	}

	for _, tt := range tests {
		kind, ok := KindOf(tt.id)
		if !ok {
			t.Errorf("KindOf(%q) not found", tt.id)
			continue
		}
		if kind != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.id, kind, tt.want)
		}
	}

	if _, ok := KindOf(ID("bogus")); ok {
		t.Error("KindOf(bogus) succeeded")
	}
}

func TestNewSortKey(t *testing.T) {
	t.Parallel()

	key, err := NewSortKey(FileName, true)
	if err != nil {
		t.Fatalf("NewSortKey(FileName) error = %v", err)
	}
	if key.Attribute != FileName || !key.Ascending {
		t.Errorf("NewSortKey(FileName) = %+v", key)
	}
}

func TestNewSortKeyPathRejected(t *testing.T) {
	t.Parallel()

	_, err := NewSortKey(FilePath, true)
	if !errors.Is(err, ErrUnsortableAttribute) {
		t.Errorf("NewSortKey(FilePath) error = %v, want ErrUnsortableAttribute", err)
	}
}

func TestNewSortKeyUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewSortKey(ID("bogus"), true)
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("NewSortKey(bogus) error = %v, want ErrUnknownAttribute", err)
	}
}

func TestNewGroupKeys(t *testing.T) {
	t.Parallel()

	keys, err := NewGroupKeys(ContentType, FileExtension, ContentType)
	if err != nil {
		t.Fatalf("NewGroupKeys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("NewGroupKeys() len = %d, want 2 (duplicates dropped)", len(keys))
	}
	if keys[0].Attribute != ContentType || keys[1].Attribute != FileExtension {
		t.Errorf("NewGroupKeys() order = %v", keys)
	}
}

func TestNewGroupKeysEmpty(t *testing.T) {
	t.Parallel()

	_, err := NewGroupKeys()
	if !errors.Is(err, ErrNoGroupKeys) {
		t.Errorf("NewGroupKeys() error = %v, want ErrNoGroupKeys", err)
	}
}

func TestOrdered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want bool
	}{
		{KindString, false},
		{KindInt, true},
		{KindDouble, true},
		{KindDate, true},
		{KindSize, true},
		{KindDuration, true},
		{KindBool, false},
		{KindStringList, false},
		{KindRawType, false},
	}

	for _, tt := range tests {
		if got := tt.kind.Ordered(); got != tt.want {
			t.Errorf("%v.Ordered() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
