package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/artman/internal/artifact"
	"github.com/Aman-CERP/artman/internal/document"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/fslock"
	"github.com/Aman-CERP/artman/internal/scanner"
)

// core is the folder-backed index shared by Local and Remote.
//
// The canonical index is replaced, never mutated, once published: readers
// take the current pointer under the read lock and query it freely.
type core struct {
	location string
	folder   string
	opts     Options
	log      *slog.Logger
	// refresh repopulates folder from the registry's source; nil when the
	// folder is the source.
	refresh func(ctx context.Context) error

	// ops serializes load, regenerate, update and save.
	ops sync.Mutex

	mu     sync.RWMutex
	idx    *artifact.Index
	state  State
	opened *lru.Cache[string, *artifact.Artifact]
}

func newCore(location, folder string, opts Options) *core {
	opts = opts.withDefaults()
	// lru.New only fails for a non-positive size.
	opened, _ := lru.New[string, *artifact.Artifact](opts.CacheSize)
	return &core{
		location: location,
		folder:   folder,
		opts:     opts,
		log:      opts.Logger.With(slog.String("registry", location)),
		opened:   opened,
		state: State{
			Folder:    folder,
			IndexPath: filepath.Join(folder, IndexFileName),
		},
	}
}

func (c *core) indexPath() string {
	return filepath.Join(c.folder, IndexFileName)
}

// State implements Registry.
func (c *core) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *core) loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx != nil
}

func (c *core) current() *artifact.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx
}

func (c *core) publish(idx *artifact.Index) {
	c.mu.Lock()
	c.idx = idx
	c.state.Loaded = true
	c.state.Count = idx.Len()
	c.state.Err = nil
	c.state.LoadedAt = time.Now()
	c.mu.Unlock()
	c.opened.Purge()
}

func (c *core) fail(err error) error {
	c.mu.Lock()
	c.state.Err = err
	c.mu.Unlock()
	return err
}

// loadPersisted imports the persisted index. It reports whether a usable
// index was found; corrupt files are logged and treated as absent.
func (c *core) loadPersisted() (bool, error) {
	p, err := readIndex(c.indexPath())
	switch {
	case err == nil:
	case amerrors.GetCode(err) == amerrors.ErrCodeFileNotFound:
		return false, nil
	case amerrors.GetCode(err) == amerrors.ErrCodeCorruptIndex:
		c.log.Warn("persisted_index_corrupt", slog.String("path", c.indexPath()), slog.String("error", err.Error()))
		return false, nil
	default:
		return false, err
	}

	idx := artifact.NewIndex()
	if err := idx.Import(p); err != nil {
		c.log.Warn("persisted_index_corrupt", slog.String("path", c.indexPath()), slog.String("error", err.Error()))
		return false, nil
	}
	c.publish(idx)
	c.log.Debug("persisted_index_loaded", slog.Int("records", idx.Len()))
	return true, nil
}

// Location implements Registry.
func (c *core) Location() string {
	return c.location
}

// Load implements Registry.
func (c *core) Load(ctx context.Context, force bool) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.load(ctx, force)
}

// Regenerate implements Registry.
func (c *core) Regenerate(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.regenerate(ctx)
}

// Save implements Registry.
func (c *core) Save(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.save(ctx)
}

// Update implements Registry. Registries without a separate source just
// regenerate.
func (c *core) Update(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	if c.refresh != nil {
		if err := c.refresh(ctx); err != nil {
			return c.fail(err)
		}
	}
	if err := c.regenerate(ctx); err != nil {
		return err
	}
	return c.save(ctx)
}

// Search implements Registry.
func (c *core) Search(ctx context.Context, criteria artifact.Criteria) ([]*artifact.Artifact, error) {
	if err := c.Load(ctx, false); err != nil {
		return nil, err
	}
	return c.search(criteria)
}

func (c *core) load(ctx context.Context, force bool) error {
	if c.loaded() && !force {
		return nil
	}
	if c.refresh != nil {
		if _, err := os.Stat(c.folder); os.IsNotExist(err) {
			if err := c.refresh(ctx); err != nil {
				return c.fail(err)
			}
		}
	}
	ok, err := c.loadPersisted()
	if err != nil {
		return c.fail(err)
	}
	if ok {
		return nil
	}
	if err := c.regenerate(ctx); err != nil {
		return err
	}
	// The regenerated index stays usable in memory when it cannot be saved
	// next to a document holding the index file name.
	if err := c.save(ctx); err != nil && amerrors.GetCode(err) != amerrors.ErrCodeIndexPathTaken {
		return err
	}
	return nil
}

type parsed struct {
	rec            *artifact.Record
	formatErrs     []error
	validationErrs []error
	readErr        error
}

func (p parsed) problems() []error {
	if p.readErr != nil {
		return []error{p.readErr}
	}
	return append(append([]error(nil), p.formatErrs...), p.validationErrs...)
}

// regenerate rebuilds the index from every document under the folder.
// Documents are parsed on a bounded window of workers; inserts happen on
// the coordinating goroutine, in scan order, and each parsed record is
// dropped once inserted.
func (c *core) regenerate(ctx context.Context) error {
	start := time.Now()
	if info, err := os.Stat(c.folder); err != nil || !info.IsDir() {
		return c.fail(amerrors.New(amerrors.ErrCodeFileNotFound, "registry folder not found", err).
			WithDetail("folder", c.folder))
	}

	docs, err := scanner.All(ctx, scanner.Options{Root: c.folder, SkipMarker: sentinelLine})
	if err != nil {
		return c.fail(amerrors.IOError("failed to scan registry folder", err).WithDetail("folder", c.folder))
	}

	idx := artifact.NewIndex()
	seen := make(map[string]string, len(docs))
	skipped := 0
	err = ordered(ctx, c.opts.Workers, docs, parseDocument, func(d *scanner.Document, r parsed) {
		if problems := r.problems(); len(problems) > 0 {
			skipped++
			c.log.Warn("document_skipped",
				slog.String("path", d.Path),
				slog.String("error", errors.Join(problems...).Error()))
			return
		}
		key := r.rec.ID + "@" + r.rec.Version
		if first, dup := seen[key]; dup {
			skipped++
			c.log.Warn("document_skipped",
				slog.String("path", d.Path),
				slog.String("error", fmt.Sprintf("%s already defined by %s", key, first)))
			return
		}
		if _, err := idx.Insert(r.rec, d.Path); err != nil {
			skipped++
			c.log.Warn("document_skipped", slog.String("path", d.Path), slog.String("error", err.Error()))
			return
		}
		seen[key] = d.Path
	})
	if err != nil {
		return c.fail(err)
	}
	idx.DoneInsertion()
	c.publish(idx)

	c.log.Info("registry_regenerate_complete",
		slog.Int("documents", len(docs)),
		slog.Int("records", idx.Len()),
		slog.Int("skipped", skipped),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func parseDocument(d *scanner.Document) parsed {
	content, err := os.ReadFile(d.AbsPath)
	if err != nil {
		return parsed{readErr: err}
	}
	rec, formatErrs, validationErrs := document.Parse(d.Path, content)
	return parsed{rec: rec, formatErrs: formatErrs, validationErrs: validationErrs}
}

// save persists the current index under the folder lock.
func (c *core) save(ctx context.Context) error {
	idx := c.current()
	if idx == nil {
		return amerrors.InternalError("registry is not loaded", nil).WithDetail("registry", c.location)
	}
	return fslock.With(ctx, c.folder, func() error {
		if err := writeIndex(c.indexPath(), idx.Export()); err != nil {
			if amerrors.GetCode(err) == amerrors.ErrCodeIndexPathTaken {
				c.log.Warn("persisted_index_not_saved", slog.String("path", c.indexPath()), slog.String("error", err.Error()))
				return err
			}
			return c.fail(err)
		}
		c.log.Debug("persisted_index_saved", slog.String("path", c.indexPath()), slog.Int("records", idx.Len()))
		return nil
	})
}

func (c *core) search(criteria artifact.Criteria) ([]*artifact.Artifact, error) {
	locs, err := c.current().Select(criteria)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeInvalidVersion, "invalid version range", err).
			WithDetail("range", criteria.Version)
	}

	out := make([]*artifact.Artifact, 0, len(locs))
	for _, loc := range locs {
		a, err := c.open(loc)
		if err != nil {
			// The document changed since the index was built.
			c.log.Warn("indexed_document_unavailable", slog.String("path", loc), slog.String("error", err.Error()))
			continue
		}
		out = append(out, a)
	}
	SortArtifacts(out)
	return out, nil
}

// OpenArtifact materializes the artifact whose document is at loc, a
// folder-relative path as stored in Record.Location.
func (c *core) OpenArtifact(loc string) (*artifact.Artifact, error) {
	return c.open(loc)
}

// open materializes the artifact at loc, a folder-relative document path.
func (c *core) open(loc string) (*artifact.Artifact, error) {
	if a, ok := c.opened.Get(loc); ok {
		return a, nil
	}
	rec, err := document.ParseFile(filepath.Join(c.folder, filepath.FromSlash(loc)))
	if err != nil {
		return nil, err
	}
	rec.Location = loc
	a := &artifact.Artifact{Record: *rec, Registry: c.location}
	c.opened.Add(loc, a)
	return a, nil
}

// SortArtifacts orders artifacts by identity, then by descending version.
func SortArtifacts(arts []*artifact.Artifact) {
	sort.SliceStable(arts, func(i, j int) bool {
		if arts[i].ID != arts[j].ID {
			return arts[i].ID < arts[j].ID
		}
		vi, erri := semver.NewVersion(arts[i].Version)
		vj, errj := semver.NewVersion(arts[j].Version)
		if erri != nil || errj != nil {
			return arts[i].Version > arts[j].Version
		}
		return vi.GreaterThan(vj)
	})
}
