package watcher

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Aman-CERP/artman/internal/registry"
	"github.com/Aman-CERP/artman/internal/scanner"
)

// Operation is the kind of change observed on a document.
type Operation int

const (
	// OpCreate indicates a new document appeared.
	OpCreate Operation = iota
	// OpModify indicates a document's content changed.
	OpModify
	// OpDelete indicates a document was removed.
	OpDelete
	// OpRename indicates a document was moved away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change.
type FileEvent struct {
	// Path is slash-separated and relative to the watched folder.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher emits batches of debounced document changes under a folder.
type Watcher interface {
	// Start watches path recursively until Stop is called or ctx ends.
	Start(ctx context.Context, path string) error
	// Stop releases resources. Safe to call multiple times.
	Stop() error
	// Events returns the batch channel, closed on Stop.
	Events() <-chan []FileEvent
	// Errors returns non-fatal errors, closed on Stop.
	Errors() <-chan error
}

// Options configures a watcher.
type Options struct {
	// DebounceWindow is the quiet time before a batch is emitted.
	// Default: 300ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval in polling mode.
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered.
	// Default: 64
	EventBufferSize int

	// Extensions are the document extensions that matter.
	// Default: scanner.DefaultExtensions
	Extensions []string

	// ForcePolling skips fsnotify.
	ForcePolling bool

	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  300 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 64,
		Extensions:      scanner.DefaultExtensions,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// relevant reports whether a change at rel can affect the index. Hidden
// entries are never scanned, and the persisted index lives beside the
// documents.
func (o Options) relevant(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	if isDir {
		return true
	}
	if rel == registry.IndexFileName {
		return false
	}
	ext := strings.ToLower(path.Ext(rel))
	for _, e := range o.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
