// Package scanner discovers artifact documents in a registry folder.
// It streams documents as they are found, skipping hidden entries, oversized
// files, and files that start with a caller-supplied marker such as the
// persisted index sentinel.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxFileSize is the default maximum document size (1MB).
const DefaultMaxFileSize = 1 << 20

// DefaultExtensions are the document file extensions scanned by default.
var DefaultExtensions = []string{".yaml", ".yml"}

// Document is a discovered document file.
type Document struct {
	Path    string // Relative to the scan root, slash-separated
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Options configures a scan.
type Options struct {
	// Root is the folder to scan.
	Root string

	// Extensions lists accepted file extensions (empty = DefaultExtensions).
	Extensions []string

	// MaxFileSize skips larger files (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// SkipMarker skips files whose content starts with these bytes.
	SkipMarker []byte

	// FollowSymlinks includes symlinked files (default: false).
	FollowSymlinks bool
}

// Result is sent on the scan channel: either a document or an error.
type Result struct {
	Doc   *Document
	Error error
}

// Scan walks opts.Root and streams matching documents. The channel is
// closed when the walk completes or ctx is done.
func Scan(ctx context.Context, opts Options) (<-chan Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat registry folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry folder is not a directory: %s", root)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		walk(ctx, root, opts, results)
	}()
	return results, nil
}

// All collects every document of a scan, stopping at the first walk error.
func All(ctx context.Context, opts Options) ([]*Document, error) {
	ch, err := Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	var docs []*Document
	for r := range ch {
		if r.Error != nil {
			return nil, r.Error
		}
		docs = append(docs, r.Doc)
	}
	return docs, ctx.Err()
}

func walk(ctx context.Context, root string, opts Options, results chan<- Result) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if !hasExtension(d.Name(), opts.Extensions) {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() > opts.MaxFileSize {
			return nil
		}
		if len(opts.SkipMarker) > 0 && startsWith(path, opts.SkipMarker) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		doc := &Document{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		select {
		case results <- Result{Doc: doc}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- Result{Error: err}:
		case <-ctx.Done():
		}
	}
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// startsWith reports whether the file at path begins with marker.
func startsWith(path string, marker []byte) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, len(marker))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf, marker)
}
