package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID      string
	Version string
	Summary string
	Tags    []string
}

func newTestIndex() (*Index[testRecord], *IdentityScheme[testRecord], *VersionScheme[testRecord]) {
	ids := NewIdentityScheme("id", func(r testRecord) string { return r.ID })
	versions := NewVersionScheme("version", func(r testRecord) string { return r.Version })
	summary := NewKeyScheme("summary", func(r testRecord) []string {
		if r.Summary == "" {
			return nil
		}
		return []string{r.Summary}
	}, StringCodec)
	tags := NewKeyScheme("tags", func(r testRecord) []string { return r.Tags }, StringCodec)
	return New[testRecord](ids, versions, summary, tags), ids, versions
}

func mustInsert(t *testing.T, idx *Index[testRecord], records ...testRecord) {
	t.Helper()
	for _, r := range records {
		_, err := idx.Insert(r, fmt.Sprintf("%s@%s.yaml", r.ID, r.Version))
		require.NoError(t, err)
	}
	idx.DoneInsertion()
}

func ids(t *testing.T, q interface{ IDs() ([]int, error) }) []int {
	t.Helper()
	out, err := q.IDs()
	require.NoError(t, err)
	return out
}

func TestIndex_Insert_AssignsDenseIDs(t *testing.T) {
	// Given: an empty index
	idx, _, _ := newTestIndex()

	// When: inserting three records
	for i, r := range []testRecord{{ID: "a/x", Version: "1.0.0"}, {ID: "a/y", Version: "1.0.0"}, {ID: "b/x", Version: "2.0.0"}} {
		id, err := idx.Insert(r, r.ID)
		require.NoError(t, err)

		// Then: ids are assigned in insertion order from zero
		assert.Equal(t, i, id)
	}
	assert.Equal(t, 3, idx.Len())
	loc, ok := idx.Location(2)
	assert.True(t, ok)
	assert.Equal(t, "b/x", loc)
	_, ok = idx.Location(3)
	assert.False(t, ok)
}

func TestIndex_Insert_RejectsBadRecordWithoutPartialEntries(t *testing.T) {
	// Given: an index with one valid record
	idx, _, _ := newTestIndex()
	mustInsert(t, idx, testRecord{ID: "tool", Version: "1.0.0"})

	// When: inserting a record whose version does not parse
	_, err := idx.Insert(testRecord{ID: "broken", Version: "not-a-version"}, "broken.yaml")
	idx.DoneInsertion()

	// Then: it is rejected and the identity scheme never saw it
	require.Error(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Empty(t, ids(t, idx.Where().Equals("id", "broken")))
}

func TestQuery_EmptyInputIsNoConstraint(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a", Version: "1.0.0"},
		testRecord{ID: "b", Version: "2.0.0"},
	)

	tests := []struct {
		name string
		q    *Query[testRecord]
	}{
		{"equals", idx.Where().Equals("id", "")},
		{"contains", idx.Where().Contains("summary", "  ")},
		{"starts with", idx.Where().StartsWith("id", "")},
		{"ends with", idx.Where().EndsWith("id", "")},
		{"greater than", idx.Where().GreaterThan("version", "")},
		{"less than", idx.Where().LessThan("version", "")},
		{"match nil", idx.Where().Match(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []int{0, 1}, ids(t, tt.q))
		})
	}
}

func TestQuery_ChainedCallsAreAND(t *testing.T) {
	// Given: records sharing identities and versions
	idx, _, versions := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "toolchain", Version: "1.5.0", Summary: "The gcc toolchain"},
		testRecord{ID: "toolchain", Version: "2.1.0", Summary: "The gcc toolchain"},
		testRecord{ID: "sdk", Version: "1.2.0", Summary: "Android SDK"},
	)

	// When: chaining identity and range filters
	rng, err := versions.RangeMatch(">=1.0.0 <2.0.0")
	require.NoError(t, err)
	q := idx.Where().Equals("id", "toolchain").Match(rng)

	// Then: only 1.5.0 survives
	locs, err := q.Locations()
	require.NoError(t, err)
	assert.Equal(t, []string{"toolchain@1.5.0.yaml"}, locs)
}

func TestQuery_DoesNotMutateIndexOrSiblings(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a", Version: "1.0.0"},
		testRecord{ID: "a", Version: "2.0.0"},
		testRecord{ID: "b", Version: "1.0.0"},
	)

	// When: two queries narrow the same shared bucket differently
	first := idx.Where().Equals("id", "a").Equals("version", "1.0.0")
	second := idx.Where().Equals("id", "a")

	// Then: neither sees the other's selection
	assert.Equal(t, []int{0}, ids(t, first))
	assert.Equal(t, []int{0, 1}, ids(t, second))
	assert.Equal(t, []int{0, 1, 2}, ids(t, idx.Where()))
}

func TestQuery_UnknownSchemeAndBadVersionStick(t *testing.T) {
	idx, _, versions := newTestIndex()
	mustInsert(t, idx, testRecord{ID: "a", Version: "1.0.0"})

	_, err := idx.Where().Equals("nope", "a").IDs()
	assert.ErrorIs(t, err, ErrUnknownScheme)

	_, err = idx.Where().GreaterThan("version", "garbage").Equals("id", "a").Count()
	assert.Error(t, err)

	_, err = versions.RangeMatch(">= banana")
	assert.Error(t, err)
}

func TestKeyScheme_RangeOperators(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a", Version: "1.0.0"},
		testRecord{ID: "b", Version: "1.10.0"},
		testRecord{ID: "c", Version: "1.2.0"},
	)

	// Semantic ordering, not lexical: 1.10.0 > 1.2.0
	assert.Equal(t, []int{1}, ids(t, idx.Where().GreaterThan("version", "1.2.0")))
	assert.Equal(t, []int{0, 2}, ids(t, idx.Where().LessThan("version", "1.10.0")))
	assert.Equal(t, []int{2}, ids(t, idx.Where().GreaterThan("version", "1.0.0").LessThan("version", "1.10.0")))
}

func TestKeyScheme_ContainsMatchesWordRuns(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a", Version: "1.0.0", Summary: "GNU Compiler Collection for ARM targets"},
		testRecord{ID: "b", Version: "1.0.0", Summary: "Compiler runtime for x86"},
		testRecord{ID: "c", Version: "1.0.0", Summary: "one two three four five six seven eight"},
		testRecord{ID: "d", Version: "1.0.0", Summary: "b c d e f g z c d e f g h"},
	)

	tests := []struct {
		query string
		want  []int
	}{
		{"compiler", []int{0, 1}},
		{"COMPILER collection", []int{0}},
		{"collection compiler", []int{}},
		{"for", []int{0, 1}},
		{"comp", []int{}},
		{"two three four five six seven eight", []int{2}},
		{"one two three four five six seven nine", []int{}},
		{"b c d e f g h", []int{}},
		{"z c d e f g h", []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(t, idx.Where().Contains("summary", tt.query)))
		})
	}
}

func TestKeyScheme_StartsAndEndsWith(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "compilers/gcc", Version: "1.0.0"},
		testRecord{ID: "compilers/clang", Version: "1.0.0"},
		testRecord{ID: "sdks/clang-tools", Version: "1.0.0"},
	)

	assert.Equal(t, []int{0, 1}, ids(t, idx.Where().StartsWith("id", "Compilers/")))
	assert.Equal(t, []int{1}, ids(t, idx.Where().EndsWith("id", "clang")))
}

func TestKeyScheme_MultiValuedAttribute(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a", Version: "1.0.0", Tags: []string{"linux", "arm64"}},
		testRecord{ID: "b", Version: "1.0.0", Tags: []string{"linux"}},
		testRecord{ID: "c", Version: "1.0.0"},
	)

	assert.Equal(t, []int{0, 1}, ids(t, idx.Where().Equals("tags", "linux")))
	assert.Equal(t, []int{0}, ids(t, idx.Where().Equals("tags", "linux").Equals("tags", "arm64")))
}

func TestIndex_ExportImport_RoundTrip(t *testing.T) {
	// Given: a populated index
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a/x", Version: "1.0.0", Summary: "first tool"},
		testRecord{ID: "a/y", Version: "1.0.0", Summary: "second tool"},
		testRecord{ID: "b/x", Version: "2.0.0", Summary: "third tool"},
	)

	// When: exporting and importing into a fresh index
	restored, rids, _ := newTestIndex()
	require.NoError(t, restored.Import(idx.Export()))

	// Then: queries answer identically and short names are recomputed
	assert.Equal(t, 3, restored.Len())
	assert.Equal(t, ids(t, idx.Where().Contains("summary", "tool")), ids(t, restored.Where().Contains("summary", "tool")))
	assert.Equal(t, []int{2}, ids(t, restored.Where().GreaterThan("version", "1.0.0")))
	assert.Equal(t, []int{1}, rids.NameOrShortNameIs("y").Sorted())
	assert.Nil(t, restored.Export().Indexes["version"].Words)
}

func TestIndex_Import_RejectsOutOfRangeIDs(t *testing.T) {
	idx, _, _ := newTestIndex()
	p := Persisted{
		Items: []string{"a.yaml"},
		Indexes: map[string]PersistedScheme{
			"id": {Keys: map[string][]int{"a": {0, 4}}},
		},
	}

	err := idx.Import(p)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_InsertAndImportNeverMix(t *testing.T) {
	// Given: an index with inserted records
	idx, _, _ := newTestIndex()
	mustInsert(t, idx, testRecord{ID: "a", Version: "1.0.0"})

	// Then: importing into the same generation fails
	assert.ErrorIs(t, idx.Import(idx.Export()), ErrMixedGeneration)

	// Given: an imported index
	other, _, _ := newTestIndex()
	require.NoError(t, other.Import(idx.Export()))

	// Then: inserting into it fails until Reset
	_, err := other.Insert(testRecord{ID: "b", Version: "1.0.0"}, "b")
	assert.ErrorIs(t, err, ErrMixedGeneration)
	other.Reset()
	_, err = other.Insert(testRecord{ID: "b", Version: "1.0.0"}, "b")
	assert.NoError(t, err)
}

func TestIndex_Reset_RenumbersFromZero(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx, testRecord{ID: "a", Version: "1.0.0"}, testRecord{ID: "b", Version: "1.0.0"})

	idx.Reset()
	id, err := idx.Insert(testRecord{ID: "c", Version: "1.0.0"}, "c")
	idx.DoneInsertion()

	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Empty(t, ids(t, idx.Where().Equals("id", "a")))
}

func TestKeyScheme_NestedChildren(t *testing.T) {
	// Given: an identity scheme with a nested version scheme per identity
	type rec = testRecord
	parent := NewKeyScheme("id", func(r rec) []string { return []string{r.ID} }, StringCodec,
		WithChildren[rec, string](func(string) Scheme[rec] {
			return NewVersionScheme("version", func(r rec) string { return r.Version })
		}))
	idx := New[rec](parent)
	mustInsert(t, idx,
		rec{ID: "a", Version: "1.0.0"},
		rec{ID: "a", Version: "2.0.0"},
		rec{ID: "b", Version: "3.0.0"},
	)

	// When: querying the child for one identity
	child := parent.Child("a")
	require.NotNil(t, child)
	gt, err := child.GreaterThan("1.0.0")
	require.NoError(t, err)

	// Then: the child only sees records of that identity
	assert.Equal(t, []int{1}, gt.Sorted())
	assert.Nil(t, parent.Child("c"))

	// And: children survive a round trip
	restoredParent := NewKeyScheme("id", func(r rec) []string { return []string{r.ID} }, StringCodec,
		WithChildren[rec, string](func(string) Scheme[rec] {
			return NewVersionScheme("version", func(r rec) string { return r.Version })
		}))
	restored := New[rec](restoredParent)
	require.NoError(t, restored.Import(idx.Export()))
	gt, err = restoredParent.Child("b").LessThan("9.0.0")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, gt.Sorted())
}
