package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarGzArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func fastRetry() amerrors.RetryConfig {
	return amerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestFetchAndUnpack_ZipOverHTTP_StripsTopLevelFolder(t *testing.T) {
	// Given: a server serving a source-hosting style snapshot
	body := zipArchive(t, map[string]string{
		"registry-main/compilers/gcc.yaml": "info: {id: compilers/gcc, version: 1.0.0}\n",
		"registry-main/README.md":          "# registry\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cache")

	// When: fetching it
	err := New(WithRetry(fastRetry())).FetchAndUnpack(context.Background(), srv.URL+"/archive/refs/heads/main.zip", dest)

	// Then: files land under dest without the top-level folder
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dest, "compilers", "gcc.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "compilers/gcc")

	// And: the downloaded archive is gone
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(dest), ".artman-download-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchAndUnpack_TarGzDetectedByMagic(t *testing.T) {
	body := tarGzArchive(t, map[string]string{"a.yaml": "a", "nested/b.yaml": "b"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()
	dest := t.TempDir()

	require.NoError(t, New(WithRetry(fastRetry())).FetchAndUnpack(context.Background(), srv.URL+"/snapshot", dest))

	data, err := os.ReadFile(filepath.Join(dest, "nested", "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	assert.FileExists(t, filepath.Join(dest, "a.yaml"))
}

func TestFetchAndUnpack_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	body := zipArchive(t, map[string]string{"a.yaml": "a"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	err := New(WithRetry(fastRetry())).FetchAndUnpack(context.Background(), srv.URL+"/x.zip", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchAndUnpack_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := New(WithRetry(fastRetry())).FetchAndUnpack(context.Background(), srv.URL+"/x.zip", t.TempDir())

	assert.Equal(t, amerrors.ErrCodeFetchFailed, amerrors.GetCode(err))
	assert.Equal(t, amerrors.KindIO, amerrors.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchAndUnpack_LocalArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "snapshot.zip")
	require.NoError(t, os.WriteFile(src, zipArchive(t, map[string]string{"a.yaml": "a", "b.yaml": "b"}), 0o644))
	dest := t.TempDir()

	require.NoError(t, New().FetchAndUnpack(context.Background(), src, dest))

	assert.FileExists(t, filepath.Join(dest, "b.yaml"))
	assert.FileExists(t, src)

	err := New().FetchAndUnpack(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), dest)
	assert.Equal(t, amerrors.ErrCodeFileNotFound, amerrors.GetCode(err))
}

func TestSafeJoin_AnchorsAtDest(t *testing.T) {
	dest := t.TempDir()

	for _, name := range []string{"../../evil.yaml", "/abs/evil.yaml", "a/../../evil.yaml"} {
		got, err := safeJoin(dest, name)
		require.NoError(t, err)
		rel, err := filepath.Rel(dest, got)
		require.NoError(t, err)
		assert.NotContains(t, rel, "..", name)
	}
}

func TestCommonRoot(t *testing.T) {
	assert.Equal(t, "repo-main/", commonRoot([]entry{{name: "repo-main/", dir: true}, {name: "repo-main/a.yaml"}}))
	assert.Equal(t, "", commonRoot([]entry{{name: "a/x.yaml"}, {name: "b/y.yaml"}}))
	assert.Equal(t, "", commonRoot([]entry{{name: "a/x.yaml"}, {name: "top.yaml"}}))
}

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatZip, Detect("https://x/y.zip", ""))
	assert.Equal(t, FormatTarGz, Detect("https://x/y.tgz", ""))
	assert.Equal(t, FormatTarGz, Detect("https://x/y.TAR.GZ", ""))
	assert.Equal(t, FormatZip, Detect("https://x/y", filepath.Join(t.TempDir(), "missing")))
}
