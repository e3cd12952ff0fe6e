// Package watcher keeps a local registry's persisted index in step with
// its folder.
//
// Changes to artifact documents are observed with fsnotify, falling back
// to polling where fsnotify is unavailable (network mounts, container
// volumes). Changes are debounced so that an editor save or a git checkout
// produces one batch, and each batch triggers one regeneration.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, reg.Folder()) }()
//	return watcher.NewRefresher(reg, w, logger).Run(ctx)
package watcher
