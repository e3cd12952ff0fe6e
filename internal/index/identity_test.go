package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortNames_SharedLeafNeedsTwoSegments(t *testing.T) {
	// Given: a/x, a/y and b/x
	got := ShortNames([]string{"a/x", "a/y", "b/x"})

	// Then: y is unique at one segment; the two x need two
	assert.Equal(t, map[string]string{
		"y":   "a/y",
		"a/x": "a/x",
		"b/x": "b/x",
	}, got)
}

func TestShortNames_ExhaustedIdentityGetsNone(t *testing.T) {
	// "x" collides with "a/x" at one segment and has nothing longer to try
	got := ShortNames([]string{"x", "a/x"})

	assert.Equal(t, map[string]string{"a/x": "a/x"}, got)
}

func TestShortNames_SingleSegmentUnique(t *testing.T) {
	got := ShortNames([]string{"cmake", "compilers/vendor/gcc"})

	assert.Equal(t, "cmake", got["cmake"])
	assert.Equal(t, "compilers/vendor/gcc", got["gcc"])
}

func TestShortNames_DeepSimilarPaths(t *testing.T) {
	// Given: many identities differing only in a deep segment
	var identities []string
	for i := 0; i < 50; i++ {
		identities = append(identities, fmt.Sprintf("root/p%d/mid/deep/leaf", i))
	}

	got := ShortNames(identities)

	// Then: every identity gets a unique short name of four segments
	require.Len(t, got, 50)
	for name, identity := range got {
		assert.True(t, strings.HasSuffix(identity, name))
		assert.Len(t, strings.Split(name, "/"), 4)
	}
}

func TestIdentityScheme_NameOrShortNameIs(t *testing.T) {
	idx, scheme, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "compilers/vendor/gcc", Version: "1.0.0"},
		testRecord{ID: "compilers/vendor/gcc", Version: "2.0.0"},
		testRecord{ID: "a/x", Version: "1.0.0"},
		testRecord{ID: "b/x", Version: "1.0.0"},
	)

	tests := []struct {
		name  string
		value string
		want  []int
	}{
		{"short name", "gcc", []int{0, 1}},
		{"full identity", "compilers/vendor/gcc", []int{0, 1}},
		{"ambiguous leaf matches nothing", "x", []int{}},
		{"two segment short name", "b/x", []int{3}},
		{"unknown", "nothing", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheme.NameOrShortNameIs(tt.value).Sorted())
		})
	}
	assert.Nil(t, scheme.NameOrShortNameIs(""))
	assert.Equal(t, "gcc", scheme.ShortName("compilers/vendor/gcc"))
}

func TestIdentityScheme_Collisions(t *testing.T) {
	// Given: a/x and b/x share the leaf x
	idx, scheme, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a/x", Version: "1.0.0"},
		testRecord{ID: "b/x", Version: "1.0.0"},
		testRecord{ID: "a/y", Version: "1.0.0"},
	)

	// Then: the shared leaf names both identities
	assert.Equal(t, []string{"a/x", "b/x"}, scheme.Collisions("x"))
	assert.Equal(t, []int{0, 1}, scheme.CollisionsIs("x").Sorted())

	// And: short names and unknown values have no collisions
	assert.Empty(t, scheme.Collisions("y"))
	assert.Empty(t, scheme.Collisions("a/x"))
	assert.Empty(t, scheme.CollisionsIs("nothing").Sorted())

	// And: an identity equal to the suffix is an exact match, not a collision
	exact, exactScheme, _ := newTestIndex()
	mustInsert(t, exact,
		testRecord{ID: "x", Version: "1.0.0"},
		testRecord{ID: "a/x", Version: "1.0.0"},
	)
	assert.Empty(t, exactScheme.Collisions("x"))
}

func TestIdentityScheme_CollisionsSurviveImport(t *testing.T) {
	idx, _, _ := newTestIndex()
	mustInsert(t, idx,
		testRecord{ID: "a/x", Version: "1.0.0"},
		testRecord{ID: "b/x", Version: "1.0.0"},
	)

	restored, scheme, _ := newTestIndex()
	require.NoError(t, restored.Import(idx.Export()))

	assert.Equal(t, []string{"a/x", "b/x"}, scheme.Collisions("x"))
}
