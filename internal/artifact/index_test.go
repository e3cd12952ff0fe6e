package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_Select(t *testing.T) {
	// Given: a toolchain with two versions and an unrelated sdk
	x := NewIndex()
	for _, r := range []*Record{
		{ID: "compilers/toolchain", Version: "1.5.0", Summary: "Cross compiler toolchain", Location: "tc-1.5.yaml"},
		{ID: "compilers/toolchain", Version: "2.1.0", Summary: "Cross compiler toolchain", Location: "tc-2.1.yaml"},
		{ID: "sdks/android", Version: "1.0.0", Summary: "Android SDK", Location: "android.yaml"},
	} {
		_, err := x.Insert(r, r.Location)
		require.NoError(t, err)
	}
	x.DoneInsertion()

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"short name and range", Criteria{IDOrShortName: "toolchain", Version: ">=1.0.0 <2.0.0"}, []string{"tc-1.5.yaml"}},
		{"full identity", Criteria{IDOrShortName: "compilers/toolchain"}, []string{"tc-1.5.yaml", "tc-2.1.yaml"}},
		{"keyword", Criteria{Keyword: "android"}, []string{"android.yaml"}},
		{"no criteria", Criteria{}, []string{"tc-1.5.yaml", "tc-2.1.yaml", "android.yaml"}},
		{"no match", Criteria{IDOrShortName: "missing"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := x.Select(tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := x.Select(Criteria{Version: "not a range"})
	assert.Error(t, err)
}

func TestIndex_SelectCollidingShortName(t *testing.T) {
	// Given: two identities ending in "x" and one ending in "y"
	x := NewIndex()
	for _, r := range []*Record{
		{ID: "a/x", Version: "1.0.0", Location: "ax.yaml"},
		{ID: "b/x", Version: "2.0.0", Location: "bx.yaml"},
		{ID: "a/y", Version: "1.0.0", Location: "ay.yaml"},
	} {
		_, err := x.Insert(r, r.Location)
		require.NoError(t, err)
	}
	x.DoneInsertion()

	// When: selecting by the shared suffix
	got, err := x.Select(Criteria{IDOrShortName: "x"})

	// Then: both colliding identities match
	require.NoError(t, err)
	assert.Equal(t, []string{"ax.yaml", "bx.yaml"}, got)

	// And: a unique short name still matches one identity
	got, err = x.Select(Criteria{IDOrShortName: "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ay.yaml"}, got)
}
