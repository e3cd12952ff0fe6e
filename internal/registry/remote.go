package registry

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/Aman-CERP/artman/internal/fslock"
)

// Remote is a registry whose documents come from a packed snapshot at a
// URL, unpacked into a cache folder named after the URL.
type Remote struct {
	*core
	archive string
}

// NewRemote returns the registry for the snapshot at location.
func NewRemote(location string, opts Options) (*Remote, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, unsupported(location)
	}
	opts = opts.withDefaults()
	folder := filepath.Join(opts.CacheDir, "registries", CacheKey(location))
	r := &Remote{
		core:    newCore(location, folder, opts),
		archive: ArchiveURL(location),
	}
	r.refresh = r.fetch
	return r, nil
}

// ArchiveLocation returns the URL the snapshot is fetched from.
func (r *Remote) ArchiveLocation() string {
	return r.archive
}

func (r *Remote) fetch(ctx context.Context) error {
	r.log.Info("registry_fetch_start", slog.String("archive", r.archive))
	return fslock.With(ctx, r.folder, func() error {
		return r.opts.Fetcher.FetchAndUnpack(ctx, r.archive, r.folder)
	})
}

// CacheKey names the cache folder of a remote location.
func CacheKey(location string) string {
	sum := blake3.Sum256([]byte(location))
	return hex.EncodeToString(sum[:16])
}

// ArchiveURL rewrites a bare source-hosting repository URL, such as
// https://github.com/org/repo, to its default-branch archive. Other URLs
// are returned unchanged.
func ArchiveURL(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	host := strings.ToLower(u.Host)
	if host != "github.com" && host != "www.github.com" {
		return location
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return location
	}
	repo := strings.TrimSuffix(parts[1], ".git")
	return "https://github.com/" + parts[0] + "/" + repo + "/archive/refs/heads/main.zip"
}
