// Package fetch downloads packed registry snapshots and unpacks them onto
// local disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// Fetcher downloads and unpacks archives. The zero value is not usable;
// call New.
type Fetcher struct {
	client *http.Client
	retry  amerrors.RetryConfig
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetry replaces the retry policy for transient network failures.
func WithRetry(cfg amerrors.RetryConfig) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	// No client timeout: callers bound a fetch with their context.
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				IdleConnTimeout:     10 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retry: amerrors.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAndUnpack downloads the archive at location (an http(s) URL, a
// file URL or a local path) and unpacks it over dest. The downloaded
// archive is deleted afterwards.
func (f *Fetcher) FetchAndUnpack(ctx context.Context, location, dest string) error {
	start := time.Now()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return amerrors.IOError("failed to create destination", err).WithDetail("path", dest)
	}

	archive, cleanup, err := f.obtain(ctx, location, filepath.Dir(dest))
	if err != nil {
		return err
	}
	defer cleanup()

	format := Detect(location, archive)
	if err := Unpack(archive, format, dest); err != nil {
		return err
	}

	slog.Debug("fetch_complete",
		slog.String("location", location),
		slog.String("format", string(format)),
		slog.String("dest", dest),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// obtain returns a local path to the archive and a cleanup func.
func (f *Fetcher) obtain(ctx context.Context, location, tmpDir string) (string, func(), error) {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.download(ctx, location, tmpDir)
	}
	path := location
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil, amerrors.New(amerrors.ErrCodeFileNotFound, "archive not found", err).WithDetail("location", location)
	}
	// Local archives belong to the caller and are left in place.
	return path, func() {}, nil
}

func (f *Fetcher) download(ctx context.Context, location, tmpDir string) (string, func(), error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", nil, amerrors.IOError("failed to create download directory", err)
	}
	tmp, err := os.CreateTemp(tmpDir, ".artman-download-*")
	if err != nil {
		return "", nil, amerrors.IOError("failed to create download file", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(name) }

	err = amerrors.Retry(ctx, f.retry, func() error {
		return f.get(ctx, location, name)
	})
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}

func (f *Fetcher) get(ctx context.Context, location, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeFetchFailed, "failed to create request", err).WithDetail("location", location)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return classify(location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return amerrors.New(amerrors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("server returned %s", resp.Status), nil).WithDetail("location", location)
	case resp.StatusCode != http.StatusOK:
		return amerrors.New(amerrors.ErrCodeFetchFailed,
			fmt.Sprintf("server returned %s", resp.Status), nil).
			WithDetail("location", location).
			WithSuggestion("Check the registry location")
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return amerrors.IOError("failed to open download file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return classify(location, err)
	}
	if err := out.Close(); err != nil {
		return amerrors.IOError("failed to write download file", err)
	}
	return nil
}

// classify maps transport failures onto retryable network codes.
func classify(location string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return amerrors.New(amerrors.ErrCodeFetchFailed, "fetch cancelled", err).WithDetail("location", location)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return amerrors.New(amerrors.ErrCodeNetworkTimeout, "fetch timed out", err).WithDetail("location", location)
	}
	return amerrors.New(amerrors.ErrCodeNetworkUnavailable, "fetch failed", err).WithDetail("location", location)
}

// Format is an archive format.
type Format string

// Supported formats.
const (
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
)

// Detect picks the archive format from the location suffix, falling back
// to the file's magic bytes.
func Detect(location, path string) Format {
	lower := strings.ToLower(location)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	}
	magic := make([]byte, 2)
	if fh, err := os.Open(path); err == nil {
		_, _ = io.ReadFull(fh, magic)
		_ = fh.Close()
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return FormatTarGz
	}
	return FormatZip
}
