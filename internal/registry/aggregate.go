package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/artman/internal/artifact"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// SourceSeparator separates a registry name from an identity, as in
// "extra:compilers/gcc".
const SourceSeparator = ":"

// Member is a registry and its display name.
type Member struct {
	Name     string
	Registry Registry
}

// Aggregate is a registry of registries. Members keep the order they were
// added in and a stable display name.
type Aggregate struct {
	mu      sync.RWMutex
	members []Member
	byName  map[string]Registry
	byLoc   map[string]Registry
	log     *slog.Logger
}

// NewAggregate returns an empty aggregate.
func NewAggregate(logger *slog.Logger) *Aggregate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregate{
		byName: map[string]Registry{},
		byLoc:  map[string]Registry{},
		log:    logger,
	}
}

// Add registers r under name, deriving a name from the location when name
// is empty. Re-adding the same registry is a no-op; reusing a name or a
// location for a different registry fails.
func (a *Aggregate) Add(r Registry, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	loc := r.Location()
	if existing, ok := a.byLoc[loc]; ok {
		if existing != r {
			return amerrors.New(amerrors.ErrCodeDuplicateRegistry, "registry location already registered", nil).
				WithDetail("location", loc).
				WithDetail("name", a.nameOfLocked(existing))
		}
		if name == "" || a.byName[name] == r {
			return nil
		}
	}
	if name == "" {
		name = a.deriveNameLocked(loc)
	}
	if strings.Contains(name, SourceSeparator) {
		return amerrors.ValidationError(fmt.Sprintf("registry name %q must not contain %q", name, SourceSeparator), nil)
	}
	if existing, ok := a.byName[name]; ok {
		if existing == r {
			return nil
		}
		return amerrors.New(amerrors.ErrCodeDuplicateRegistry, "registry name already in use", nil).
			WithDetail("name", name).
			WithDetail("location", existing.Location())
	}
	if _, ok := a.byLoc[loc]; ok {
		return amerrors.New(amerrors.ErrCodeDuplicateRegistry, "registry already registered under another name", nil).
			WithDetail("location", loc).
			WithDetail("name", a.nameOfLocked(r))
	}

	a.members = append(a.members, Member{Name: name, Registry: r})
	a.byName[name] = r
	a.byLoc[loc] = r
	return nil
}

// deriveNameLocked names a registry after the last element of its
// location, suffixed until unique.
func (a *Aggregate) deriveNameLocked(loc string) string {
	base := path.Base(strings.TrimRight(strings.ReplaceAll(loc, "\\", "/"), "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, SourceSeparator, "-")
	if base == "" || base == "." || base == "/" {
		base = "registry"
	}
	name := base
	for i := 2; ; i++ {
		if _, taken := a.byName[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

func (a *Aggregate) nameOfLocked(r Registry) string {
	for _, m := range a.members {
		if m.Registry == r {
			return m.Name
		}
	}
	return ""
}

// Remove drops the member called name.
func (a *Aggregate) Remove(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.byName[name]
	if !ok {
		return false
	}
	delete(a.byName, name)
	delete(a.byLoc, r.Location())
	for i, m := range a.members {
		if m.Name == name {
			a.members = append(a.members[:i:i], a.members[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the member called name.
func (a *Aggregate) Get(name string) (Registry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.byName[name]
	return r, ok
}

// ByLocation returns the member at location.
func (a *Aggregate) ByLocation(location string) (Registry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.byLoc[location]
	return r, ok
}

// NameOf returns the display name of the member at location.
func (a *Aggregate) NameOf(location string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if r, ok := a.byLoc[location]; ok {
		return a.nameOfLocked(r)
	}
	return ""
}

// Members returns the members in the order they were added.
func (a *Aggregate) Members() []Member {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Member(nil), a.members...)
}

// Load loads every member concurrently. A member's failure neither stops
// its siblings nor fails the aggregate; it is recorded in that member's
// State and logged. Only cancellation of ctx is returned.
func (a *Aggregate) Load(ctx context.Context, force bool) error {
	return a.each(ctx, "registry_load_failed", func(r Registry) error {
		return r.Load(ctx, force)
	})
}

// Update updates every member concurrently, with the failure semantics of
// Load.
func (a *Aggregate) Update(ctx context.Context) error {
	return a.each(ctx, "registry_update_failed", func(r Registry) error {
		return r.Update(ctx)
	})
}

func (a *Aggregate) each(ctx context.Context, event string, fn func(Registry) error) error {
	var g errgroup.Group
	for _, m := range a.Members() {
		g.Go(func() error {
			if err := fn(m.Registry); err != nil {
				a.log.Warn(event,
					slog.String("registry", m.Name),
					slog.String("location", m.Registry.Location()),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// SplitSource splits an optional "source:" prefix off a request.
func SplitSource(s string) (source, rest string) {
	if i := strings.Index(s, SourceSeparator); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// Search routes a "source:"-prefixed IDOrShortName to that member alone;
// otherwise every member is searched concurrently and the results are
// concatenated in member order. Failing members are logged and skipped;
// if every member fails their joined errors are returned.
func (a *Aggregate) Search(ctx context.Context, c artifact.Criteria) ([]*artifact.Artifact, error) {
	source, rest := SplitSource(c.IDOrShortName)
	if source != "" {
		r, ok := a.Get(source)
		if !ok {
			return nil, a.unknown(source)
		}
		c.IDOrShortName = rest
		return r.Search(ctx, c)
	}

	members := a.Members()
	results := make([][]*artifact.Artifact, len(members))
	errs := make([]error, len(members))
	var g errgroup.Group
	for i, m := range members {
		g.Go(func() error {
			results[i], errs[i] = m.Registry.Search(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	var out []*artifact.Artifact
	failed := 0
	for i, m := range members {
		if errs[i] != nil {
			failed++
			a.log.Warn("registry_search_failed", slog.String("registry", m.Name), slog.String("error", errs[i].Error()))
			continue
		}
		out = append(out, results[i]...)
	}
	if len(members) > 0 && failed == len(members) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (a *Aggregate) unknown(source string) error {
	members := a.Members()
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return amerrors.New(amerrors.ErrCodeUnknownRegistry, fmt.Sprintf("unknown registry %q", source), nil).
		WithCandidates(names).
		WithSuggestion("Run 'artman registry list' to see configured registries")
}
