package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/index"
)

// IndexFileName is the persisted index file inside a registry folder.
const IndexFileName = "index.yaml"

// Sentinel is the first line of every persisted index file. Document
// scans skip files starting with it.
const Sentinel = "# artman-index v1"

var sentinelLine = []byte(Sentinel + "\n")

// writeIndex atomically writes p to path. It refuses to replace a file
// that is not a persisted index.
func writeIndex(path string, p index.Persisted) error {
	if err := checkReplaceable(path); err != nil {
		return err
	}
	body, err := yaml.Marshal(p)
	if err != nil {
		return amerrors.InternalError("failed to encode index", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(sentinelLine) + len(body))
	buf.Write(sentinelLine)
	buf.Write(body)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.IOError("failed to create index directory", err).WithDetail("path", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return amerrors.IOError("failed to create index file", err).WithDetail("path", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return amerrors.IOError("failed to write index file", err).WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return amerrors.IOError("failed to write index file", err).WithDetail("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return amerrors.IOError("failed to replace index file", err).WithDetail("path", path)
	}
	return nil
}

// checkReplaceable fails when path holds something other than a persisted
// index, such as a document that happens to use the index file name.
func checkReplaceable(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return amerrors.IOError("failed to read index file", err).WithDetail("path", path)
	}
	defer f.Close()

	head := make([]byte, len(sentinelLine))
	n, _ := io.ReadFull(f, head)
	if bytes.Equal(head[:n], sentinelLine) {
		return nil
	}
	return amerrors.New(amerrors.ErrCodeIndexPathTaken, "index file name is used by another file", nil).
		WithDetail("path", path).
		WithSuggestion(fmt.Sprintf("Rename the file; artman keeps its index in %s", IndexFileName))
}

// readIndex reads the persisted index at path. A missing file is reported
// with os.ErrNotExist in the chain; anything unreadable as an index is
// ErrCodeCorruptIndex.
func readIndex(path string) (index.Persisted, error) {
	var p index.Persisted
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, amerrors.New(amerrors.ErrCodeFileNotFound, "no persisted index", err).WithDetail("path", path)
		}
		return p, amerrors.IOError("failed to read index file", err).WithDetail("path", path)
	}

	if !bytes.HasPrefix(content, sentinelLine) {
		return p, corrupt(path, fmt.Errorf("missing sentinel line"))
	}
	if err := yaml.Unmarshal(content[len(sentinelLine):], &p); err != nil {
		return p, corrupt(path, err)
	}
	return p, nil
}

func corrupt(path string, cause error) error {
	return amerrors.New(amerrors.ErrCodeCorruptIndex, "persisted index is corrupt", cause).
		WithDetail("path", path).
		WithSuggestion("Run 'artman registry regenerate' to rebuild it")
}
