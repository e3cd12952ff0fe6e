package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/artman/internal/artifact"
)

func quietOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		CacheDir: t.TempDir(),
		Workers:  2,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func doc(id, version, summary string) string {
	return fmt.Sprintf("info:\n  id: %s\n  version: %s\n  summary: %s\n", id, version, summary)
}

func writeDocs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func ids(arts []*artifact.Artifact) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.String()
	}
	return out
}

// fakeRegistry is an in-memory Registry counting calls.
type fakeRegistry struct {
	location string
	arts     []*artifact.Artifact
	err      error
	searches atomic.Int32
	loads    atomic.Int32
}

func newFake(location string, arts ...*artifact.Artifact) *fakeRegistry {
	for _, a := range arts {
		a.Registry = location
	}
	return &fakeRegistry{location: location, arts: arts}
}

func (f *fakeRegistry) Location() string { return f.location }

func (f *fakeRegistry) Load(ctx context.Context, force bool) error {
	f.loads.Add(1)
	return f.err
}

func (f *fakeRegistry) Regenerate(ctx context.Context) error { return f.err }
func (f *fakeRegistry) Update(ctx context.Context) error     { return f.err }
func (f *fakeRegistry) Save(ctx context.Context) error       { return nil }
func (f *fakeRegistry) State() State                         { return State{Loaded: f.err == nil, Count: len(f.arts), Err: f.err} }

func (f *fakeRegistry) Search(ctx context.Context, c artifact.Criteria) ([]*artifact.Artifact, error) {
	f.searches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []*artifact.Artifact
	for _, a := range f.arts {
		if c.IDOrShortName == "" || a.ID == c.IDOrShortName || filepath.Base(a.ID) == c.IDOrShortName {
			out = append(out, a)
		}
	}
	return out, nil
}

func art(id, version string) *artifact.Artifact {
	return &artifact.Artifact{Record: artifact.Record{ID: id, Version: version}}
}
