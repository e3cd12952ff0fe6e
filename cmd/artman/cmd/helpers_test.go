package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// workspace is an isolated home with one configured local registry.
type workspace struct {
	home       string
	registry   string
	configFile string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("NO_COLOR", "1")
	for _, env := range []string{"ARTMAN_CACHE_DIR", "ARTMAN_WORKERS", "ARTMAN_LOG_LEVEL", "ARTMAN_HOST_TAGS"} {
		t.Setenv(env, "")
	}

	ws := &workspace{
		home:       home,
		registry:   filepath.Join(home, "registry"),
		configFile: filepath.Join(home, "artman.yaml"),
	}
	ws.writeDocs(t, map[string]string{
		"compilers/toolchain-1.5.0.yaml": `
info:
  id: compilers/toolchain
  version: 1.5.0
  summary: Cross compiler toolchain
  priority: 10
requires:
  tools/make: ">=4.0.0"
install:
  kind: zip
  location: https://example.com/toolchain-1.5.0.zip
`,
		"compilers/toolchain-2.0.0.yaml": `
info:
  id: compilers/toolchain
  version: 2.0.0
  summary: Cross compiler toolchain
  priority: 10
requires:
  tools/make: ">=4.0.0"
`,
		"tools/make.yaml": `
info:
  id: tools/make
  version: 4.3.0
  summary: GNU make build tool
  priority: 50
warning: make is deprecated here
`,
	})
	ws.writeConfig(t, fmt.Sprintf(`
registries:
  - name: local
    location: %s
cache:
  dir: %s
`, ws.registry, filepath.Join(home, "cache")))
	return ws
}

func (ws *workspace) writeDocs(t *testing.T, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(ws.registry, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func (ws *workspace) writeConfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(ws.configFile, []byte(body), 0o644))
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// run executes args against the workspace config file.
func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return run(t, append([]string{"--config", ws.configFile}, args...)...)
}
