package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/artman/internal/artifact"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

const toolchainDoc = `
info:
  id: compilers/toolchain
  version: 1.5.0
  summary: Cross compiler toolchain
  priority: 10
requires:
  tools/make: ">=4.0.0"
  extra:tools/ninja:
settings:
  cc: gcc
install:
  kind: zip
  location: https://example.com/toolchain-1.5.0.zip
when:
  linux & arm64:
    requires:
      libs/glibc: ">=2.30.0"
    warning: arm64 builds are experimental
  windows:
    error: toolchain is not available on windows
`

func TestParse_FullDocument(t *testing.T) {
	// When: parsing a document with an always block and two conditional blocks
	rec, formatErrs, validationErrs := Parse("compilers/toolchain-1.5.0.yaml", []byte(toolchainDoc))

	// Then: the record carries every block in document order
	require.Empty(t, formatErrs)
	require.Empty(t, validationErrs)
	require.NotNil(t, rec)
	assert.Equal(t, "compilers/toolchain", rec.ID)
	assert.Equal(t, "1.5.0", rec.Version)
	assert.Equal(t, 10, rec.Priority)
	assert.Equal(t, "compilers/toolchain-1.5.0.yaml", rec.Location)

	require.Len(t, rec.Demands, 3)
	always := rec.Demands[0]
	assert.Equal(t, artifact.Unconditioned, always.Kind())
	assert.Equal(t, map[string]string{"tools/make": ">=4.0.0", "extra:tools/ninja": ""}, always.Requires)
	assert.Equal(t, []artifact.InstallInstruction{{Kind: "zip", Location: "https://example.com/toolchain-1.5.0.zip"}}, always.Install)

	assert.Equal(t, "linux & arm64", rec.Demands[1].Condition)
	assert.Equal(t, "arm64 builds are experimental", rec.Demands[1].Warning)
	assert.Equal(t, "windows", rec.Demands[2].Name)
	assert.Equal(t, "toolchain is not available on windows", rec.Demands[2].Error)
}

func TestParse_InstallList(t *testing.T) {
	doc := `
info: {id: tools/repo, version: 1.0.0}
install:
  - kind: git
    location: https://example.com/repo.git
  - kind: zip
    location: https://example.com/extras.zip
`
	rec, formatErrs, validationErrs := Parse("repo.yaml", []byte(doc))

	require.Empty(t, formatErrs)
	require.Empty(t, validationErrs)
	assert.Len(t, rec.Demands[0].Install, 2)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not yaml", "info: [unclosed"},
		{"unknown field", "info: {id: a, version: 1.0.0}\nunknown: true\n"},
		{"wrong type", "info: {id: a, version: 1.0.0, priority: high}\n"},
		{"when not a mapping", "info: {id: a, version: 1.0.0}\nwhen: [linux]\n"},
		{"bad block", "info: {id: a, version: 1.0.0}\nwhen:\n  linux:\n    requires: [a, b]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, formatErrs, _ := Parse("doc.yaml", []byte(tt.doc))
			assert.Nil(t, rec)
			assert.NotEmpty(t, formatErrs)
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", "info: {version: 1.0.0}\n"},
		{"empty segment", "info: {id: a//b, version: 1.0.0}\n"},
		{"missing version", "info: {id: a}\n"},
		{"bad version", "info: {id: a, version: one}\n"},
		{"bad range", "info: {id: a, version: 1.0.0}\nrequires: {b: '>= banana'}\n"},
		{"bad requirement id", "info: {id: a, version: 1.0.0}\nrequires: {'b c': ''}\n"},
		{"bad condition", "info: {id: a, version: 1.0.0}\nwhen:\n  'linux &':\n    message: hi\n"},
		{"incomplete install", "info: {id: a, version: 1.0.0}\ninstall: {kind: zip}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, formatErrs, validationErrs := Parse("doc.yaml", []byte(tt.doc))
			assert.Empty(t, formatErrs)
			assert.NotNil(t, rec)
			assert.NotEmpty(t, validationErrs)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(toolchainDoc), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("info: {id: a}\n"), 0o644))

	rec, err := ParseFile(good)
	require.NoError(t, err)
	assert.Equal(t, good, rec.Location)

	_, err = ParseFile(bad)
	assert.Equal(t, amerrors.ErrCodeDocumentInvalid, amerrors.GetCode(err))
	assert.Equal(t, amerrors.KindConfiguration, amerrors.KindOf(err))

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, amerrors.ErrCodeFileNotFound, amerrors.GetCode(err))
}
