// Package registry provides the registries artifacts are searched in.
//
// A Registry is a folder of artifact documents plus the artifact record
// index built from them. Local registries index a folder already on disk;
// Remote registries fetch a packed snapshot into a cache folder first. An
// Aggregate fans queries out over several named registries.
package registry

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/artman/internal/artifact"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/fetch"
)

// Registry is a searchable set of artifact documents.
type Registry interface {
	// Location is the identity of the registry: a folder path or URL.
	Location() string
	// Load makes the index available, from the persisted index when
	// present and otherwise by regenerating. Without force, an already
	// loaded registry is left alone.
	Load(ctx context.Context, force bool) error
	// Regenerate rescans every document into a fresh index generation.
	Regenerate(ctx context.Context) error
	// Update refreshes the documents from their source, then regenerates
	// and saves.
	Update(ctx context.Context) error
	// Search returns matching artifacts grouped by identity, each group
	// sorted by descending version.
	Search(ctx context.Context, c artifact.Criteria) ([]*artifact.Artifact, error)
	// Save persists the index.
	Save(ctx context.Context) error
	// State reports the registry's current state.
	State() State
}

// State describes a registry for display and diagnostics.
type State struct {
	Loaded    bool
	Count     int
	Err       error
	Folder    string
	IndexPath string
	LoadedAt  time.Time
}

// Options configures registries.
type Options struct {
	// CacheDir holds remote registry snapshots.
	CacheDir string
	// Workers bounds concurrent document parsing during regenerate.
	Workers int
	// CacheSize bounds the number of opened artifacts kept in memory.
	CacheSize int
	// Fetcher downloads remote snapshots. Nil uses fetch.New().
	Fetcher *fetch.Fetcher
	// Logger receives registry events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Defaults for Options.
const (
	DefaultWorkers   = 4
	DefaultCacheSize = 512
)

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Fetcher == nil {
		o.Fetcher = fetch.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Open returns the registry for location: Remote for http(s) URLs,
// Local for file URLs and plain paths.
func Open(location string, opts Options) (Registry, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || isDriveLetter(u.Scheme) {
		return NewLocal(location, opts)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewRemote(location, opts)
	case "file":
		return NewLocal(filepath.FromSlash(u.Path), opts)
	default:
		return nil, unsupported(location)
	}
}

func isDriveLetter(scheme string) bool {
	return len(scheme) == 1
}

func unsupported(location string) error {
	return amerrors.New(amerrors.ErrCodeUnsupportedLocation, "unsupported registry location", nil).
		WithDetail("location", location).
		WithSuggestion("Use a folder path, a file:// URL or an http(s) URL")
}
