package fetch

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// entry is one archive member, normalized across formats.
type entry struct {
	name string
	mode fs.FileMode
	dir  bool
	open func() (io.ReadCloser, error)
}

// Unpack extracts the archive at src over dest. When every member sits
// under one top-level folder, as in source-hosting snapshots, that folder
// is stripped.
func Unpack(src string, format Format, dest string) error {
	var (
		entries []entry
		closer  io.Closer
		err     error
	)
	switch format {
	case FormatZip:
		entries, closer, err = zipEntries(src)
	case FormatTarGz:
		entries, closer, err = tarEntries(src)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return amerrors.New(amerrors.ErrCodeUnpackFailed, "failed to read archive", err).WithDetail("archive", src)
	}
	defer closer.Close()

	prefix := commonRoot(entries)
	for _, e := range entries {
		rel := strings.TrimPrefix(e.name, prefix)
		if rel == "" {
			continue
		}
		target, err := safeJoin(dest, rel)
		if err != nil {
			return amerrors.New(amerrors.ErrCodeUnpackFailed, "unsafe archive member", err).WithDetail("archive", src)
		}
		if err := write(e, target); err != nil {
			return amerrors.New(amerrors.ErrCodeUnpackFailed, "failed to extract archive member", err).
				WithDetail("archive", src).
				WithDetail("member", e.name)
		}
	}
	return nil
}

func zipEntries(src string) ([]entry, io.Closer, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, entry{
			name: f.Name,
			mode: f.Mode(),
			dir:  f.FileInfo().IsDir(),
			open: f.Open,
		})
	}
	return entries, zr, nil
}

// tarEntries buffers the members of a tar.gz in memory, since tar is a
// stream and cannot reopen members.
func tarEntries(src string) ([]entry, io.Closer, error) {
	fh, err := os.Open(src)
	if err != nil {
		return nil, nil, err
	}
	defer fh.Close()

	gz, err := gzip.NewReader(fh)
	if err != nil {
		return nil, nil, err
	}
	defer gz.Close()

	var entries []entry
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			entries = append(entries, entry{name: hdr.Name, mode: fs.FileMode(hdr.Mode).Perm(), dir: true})
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, err
			}
			entries = append(entries, entry{
				name: hdr.Name,
				mode: fs.FileMode(hdr.Mode).Perm(),
				open: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(data)), nil
				},
			})
		}
	}
	return entries, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// commonRoot returns "<dir>/" when every entry lives under a single
// top-level directory, else "".
func commonRoot(entries []entry) string {
	root := ""
	for _, e := range entries {
		name := strings.TrimPrefix(path.Clean("/"+e.name), "/")
		first, _, nested := strings.Cut(name, "/")
		if !nested && !e.dir {
			return ""
		}
		if root == "" {
			root = first
		} else if root != first {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}

func safeJoin(dest, name string) (string, error) {
	clean := filepath.FromSlash(path.Clean("/" + name))
	target := filepath.Join(dest, clean)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("member %q escapes destination", name)
	}
	return target, nil
}

func write(e entry, target string) error {
	if e.dir {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := e.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := e.mode.Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
