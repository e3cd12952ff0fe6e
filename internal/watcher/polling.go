package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning the folder on an interval.
type PollingWatcher struct {
	interval time.Duration
	opts     Options
	root     string
	state    map[string]snapshot
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
}

type snapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher using opts.PollInterval.
func NewPollingWatcher(opts Options) *PollingWatcher {
	opts = opts.WithDefaults()
	return &PollingWatcher{
		interval: opts.PollInterval,
		opts:     opts,
		state:    make(map[string]snapshot),
		events:   make(chan FileEvent, 256),
		errors:   make(chan error, 8),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline and then polls until ctx ends or Stop.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.mu.Lock()
	p.root = abs
	p.state, err = p.walk()
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.poll(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// walk snapshots every relevant document under the root.
func (p *PollingWatcher) walk() (map[string]snapshot, error) {
	out := make(map[string]snapshot)
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !p.opts.relevant(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[rel] = snapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return out, err
}

func (p *PollingWatcher) poll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.walk()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}
	now := time.Now()
	for rel, snap := range current {
		prev, ok := p.state[rel]
		switch {
		case !ok:
			p.emit(FileEvent{Path: rel, Operation: OpCreate, Timestamp: now})
		case prev != snap:
			p.emit(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel := range p.state {
		if _, ok := current[rel]; !ok {
			p.emit(FileEvent{Path: rel, Operation: OpDelete, Timestamp: now})
		}
	}
	p.state = current
	return nil
}

// emit must be called with the lock held.
func (p *PollingWatcher) emit(e FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- e:
	default:
		p.opts.Logger.Warn("polling_buffer_full", slog.String("path", e.Path), slog.String("op", e.Operation.String()))
	}
}

// Stop stops polling. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the unbatched event channel.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the error channel.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}
