package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Target is a registry whose index can be rebuilt and persisted.
type Target interface {
	Location() string
	Regenerate(ctx context.Context) error
	Save(ctx context.Context) error
}

// Source emits batches of changes.
type Source interface {
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// Refresher regenerates and saves target once per batch from source.
type Refresher struct {
	target Target
	source Source
	log    *slog.Logger

	// OnRefresh, when set, is called after every batch with its outcome.
	OnRefresh func(batch []FileEvent, err error)
}

// NewRefresher returns a refresher for target fed by source.
func NewRefresher(target Target, source Source, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{target: target, source: source, log: logger}
}

// Run refreshes until ctx ends or the source closes. A failed refresh is
// logged and the previous index stays in service.
func (r *Refresher) Run(ctx context.Context) error {
	errs := r.source.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.log.Warn("watch_error", slog.String("error", err.Error()))
		case batch, ok := <-r.source.Events():
			if !ok {
				return nil
			}
			err := r.refresh(ctx, batch)
			if r.OnRefresh != nil {
				r.OnRefresh(batch, err)
			}
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, batch []FileEvent) error {
	start := time.Now()
	err := r.target.Regenerate(ctx)
	if err == nil {
		err = r.target.Save(ctx)
	}
	if err != nil {
		r.log.Error("registry_refresh_failed",
			slog.String("registry", r.target.Location()),
			slog.Int("changes", len(batch)),
			slog.String("error", err.Error()))
		return err
	}
	r.log.Info("registry_refreshed",
		slog.String("registry", r.target.Location()),
		slog.Int("changes", len(batch)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
