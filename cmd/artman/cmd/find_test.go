package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

func TestFindCmd_ListsEveryVersion(t *testing.T) {
	// Given: a workspace registry with two toolchain versions
	ws := newWorkspace(t)

	// When: finding by short name
	out, err := ws.run(t, "find", "toolchain")

	// Then: both versions are printed with their registry name
	require.NoError(t, err)
	assert.Contains(t, out, "compilers/toolchain")
	assert.Contains(t, out, "2.0.0")
	assert.Contains(t, out, "1.5.0")
	assert.Contains(t, out, "local")
	assert.NotContains(t, out, "tools/make")
}

func TestFindCmd_JSONWithRange(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "find", "compilers/toolchain", "--version", "<2.0.0", "--json")

	require.NoError(t, err)
	var found []foundArtifact
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, foundArtifact{
		Registry: "local",
		ID:       "compilers/toolchain",
		Version:  "1.5.0",
		Summary:  "Cross compiler toolchain",
		Priority: 10,
		Location: "compilers/toolchain-1.5.0.yaml",
	}, found[0])
}

func TestFindCmd_Keyword(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "find", "--keyword", "build tool", "--json")

	require.NoError(t, err)
	var found []foundArtifact
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "tools/make", found[0].ID)
}

func TestFindCmd_NoResults(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "find", "nothing/here")

	require.NoError(t, err)
	assert.Contains(t, out, "No artifacts found")
}

func TestFindCmd_UnknownSource(t *testing.T) {
	ws := newWorkspace(t)

	_, err := ws.run(t, "find", "elsewhere:toolchain")

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeUnknownRegistry, amerrors.GetCode(err))
}
