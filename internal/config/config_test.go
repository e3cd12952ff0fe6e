package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config source at empty temp folders.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ARTMAN_CACHE_DIR", "")
	t.Setenv("ARTMAN_WORKERS", "")
	t.Setenv("ARTMAN_LOG_LEVEL", "")
	t.Setenv("ARTMAN_HOST_TAGS", "")
	return t.TempDir()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	require.Len(t, cfg.Registries, 1)
	assert.Equal(t, DefaultRegistryName, cfg.Registries[0].Name)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, 512, cfg.Index.CacheSize)
	assert.Equal(t, "tools/git", cfg.Tools["git"])
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Contains(t, cfg.Cache.Dir, "cache")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Registries, cfg.Registries)
}

func TestLoad_Precedence(t *testing.T) {
	// Given: user config, a project config in a parent folder, and env
	dir := isolate(t)
	writeFile(t, GetUserConfigPath(), `
registries:
  - name: corp
    location: https://artifacts.example.com/registry.zip
index:
  workers: 8
tools:
  svn: tools/subversion
log:
  level: warn
`)
	writeFile(t, filepath.Join(dir, ProjectFileName), `
registries:
  - name: local
    location: ./registry
  - name: corp
    location: https://artifacts.example.com/registry.zip
host:
  tags: [ci]
`)
	work := filepath.Join(dir, "src", "app")
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Setenv("ARTMAN_LOG_LEVEL", "debug")
	t.Setenv("ARTMAN_HOST_TAGS", "gpu, docker")

	// When: loading from a nested folder
	cfg, err := Load(work)

	// Then: each layer overrides the one below
	require.NoError(t, err)
	require.Len(t, cfg.Registries, 2)
	assert.Equal(t, "local", cfg.Registries[0].Name)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.Equal(t, 512, cfg.Index.CacheSize)
	assert.Equal(t, "tools/git", cfg.Tools["git"])
	assert.Equal(t, "tools/subversion", cfg.Tools["svn"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"ci", "gpu", "docker"}, cfg.Host.Tags)
}

func TestLoad_EmptyRegistryListIsKept(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ProjectFileName), "registries: []\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Empty(t, cfg.Registries)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"malformed yaml", "registries: [", nil},
		{"missing location", "registries:\n  - name: x\n", nil},
		{"colon in name", "registries:\n  - name: a:b\n    location: /srv/r\n", nil},
		{"duplicate name", "registries:\n  - {name: a, location: /srv/1}\n  - {name: a, location: /srv/2}\n", nil},
		{"duplicate location", "registries:\n  - {name: a, location: /srv/1}\n  - {name: b, location: /srv/1}\n", nil},
		{"bad level", "log:\n  level: loud\n", nil},
		{"negative workers", "index:\n  workers: -1\n", nil},
		{"bad worker env", "", map[string]string{"ARTMAN_WORKERS": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.content != "" {
				writeFile(t, filepath.Join(dir, ProjectFileName), tt.content)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoad_CacheDirExpandsHome(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ARTMAN_CACHE_DIR", "~/artifacts")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "artifacts"), cfg.Cache.Dir)
}

func TestConfig_AddRemoveRegistry(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.AddRegistry("extra", "/srv/extra"))
	assert.Error(t, cfg.AddRegistry("extra", "/srv/other"))
	assert.Error(t, cfg.AddRegistry("again", "/srv/extra"))
	assert.Len(t, cfg.Registries, 2)

	assert.True(t, cfg.RemoveRegistry(DefaultRegistryName))
	assert.False(t, cfg.RemoveRegistry(DefaultRegistryName))
	assert.Equal(t, []RegistryConfig{{Name: "extra", Location: "/srv/extra"}}, cfg.Registries)
}

func TestConfig_WriteYAMLRoundTrip(t *testing.T) {
	// Given: a modified configuration
	dir := isolate(t)
	cfg := NewConfig()
	require.NoError(t, cfg.AddRegistry("extra", "/srv/extra"))
	cfg.Host.Tags = []string{"ci"}

	// When: writing it as the user config and loading it back
	require.NoError(t, cfg.WriteYAML(GetUserConfigPath()))
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, cfg.Registries, loaded.Registries)
	assert.Equal(t, []string{"ci"}, loaded.Host.Tags)
}

func TestFindProjectConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "version: 1\n")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok := FindProjectConfig(nested)

	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, ProjectFileName), path)
}
