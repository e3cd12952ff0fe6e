// Package resolve turns requested identities into the complete,
// deduplicated set of artifacts to install.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/artman/internal/artifact"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/hostenv"
	"github.com/Aman-CERP/artman/internal/registry"
)

// Registries is the registry set a resolution searches.
type Registries interface {
	Search(ctx context.Context, c artifact.Criteria) ([]*artifact.Artifact, error)
	ByLocation(location string) (registry.Registry, bool)
	NameOf(location string) string
}

// Evaluator decides host conditions.
type Evaluator interface {
	Match(cond string, ctx *hostenv.Context) (bool, error)
}

// Options tunes a resolution.
type Options struct {
	// Tools maps a tool family to the identity of the artifact that
	// bootstraps it, e.g. "git" -> "tools/git".
	Tools map[string]string
}

// DefaultTools is the bootstrap table used when none is configured.
var DefaultTools = map[string]string{
	"git": "tools/git",
}

// ResolutionContext carries everything one resolution depends on.
type ResolutionContext struct {
	Env        *hostenv.Context
	Registries Registries
	Evaluator  Evaluator
	Options    Options
	Logger     *slog.Logger
}

// maxCandidates bounds the near matches offered for an unresolved request.
const maxCandidates = 10

func (rc *ResolutionContext) logger() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}

func (rc *ResolutionContext) tools() map[string]string {
	if rc.Options.Tools != nil {
		return rc.Options.Tools
	}
	return DefaultTools
}

func (rc *ResolutionContext) match(cond string) (bool, error) {
	return rc.Evaluator.Match(cond, rc.Env)
}

// Resolve computes the closure of requests. Any failure aborts the whole
// resolution; no partial set is returned.
func (rc *ResolutionContext) Resolve(ctx context.Context, requests []Request) (*Set, error) {
	if rc.Registries == nil || rc.Evaluator == nil || rc.Env == nil {
		return nil, amerrors.InternalError("resolution context is incomplete", nil)
	}
	start := time.Now()
	set := newSet()
	var queue []*Entry

	for _, req := range requests {
		a, err := rc.find(ctx, req, "")
		if err != nil {
			return nil, err
		}
		e := &Entry{Artifact: a, RegistryName: rc.Registries.NameOf(a.Registry), Requested: req}
		if set.add(e) {
			queue = append(queue, e)
		}
	}

	for {
		if err := rc.expand(ctx, set, queue); err != nil {
			return nil, err
		}
		injected, err := rc.injectTools(ctx, set)
		if err != nil {
			return nil, err
		}
		if len(injected) == 0 {
			break
		}
		queue = injected
	}

	rc.logger().Info("resolve_complete",
		slog.Int("requested", len(requests)),
		slog.Int("resolved", set.Len()),
		slog.Duration("duration", time.Since(start)))
	return set, nil
}

// expand merges the demands of every queued entry and adds what they
// require, breadth first. Entries already in the set are not expanded
// again, which ends cycles and collapses diamonds.
func (rc *ResolutionContext) expand(ctx context.Context, set *Set, queue []*Entry) error {
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		d, err := artifact.Merge(&e.Artifact.Record, rc.match)
		if err != nil {
			return err
		}
		e.Demands = d
		if len(d.Errors) > 0 {
			return amerrors.New(amerrors.ErrCodeArtifactError,
				fmt.Sprintf("%s: %s", e.Artifact, strings.Join(d.Errors, "; ")), nil).
				WithDetail("registry", e.RegistryName).
				WithDetail("document", e.Artifact.Location)
		}
		for _, w := range d.Warnings {
			rc.logger().Warn("artifact_warning", slog.String("artifact", e.Artifact.String()), slog.String("warning", w))
		}

		ids := d.RequiredIDs()
		found := make([]*artifact.Artifact, len(ids))
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range ids {
			g.Go(func() error {
				a, err := rc.find(gctx, requirement(id, d.Requires[id]), e.Artifact.Registry)
				if err != nil {
					if ae, ok := amerrors.As(err); ok {
						ae.WithDetail("required_by", e.Artifact.String())
					}
					return err
				}
				found[i] = a
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, a := range found {
			child := &Entry{
				Artifact:     a,
				RegistryName: rc.Registries.NameOf(a.Registry),
				Requested:    requirement(ids[i], d.Requires[ids[i]]),
				RequiredBy:   e.Key(),
			}
			if set.add(child) {
				queue = append(queue, child)
			}
		}
	}
	return nil
}

// injectTools adds the bootstrap artifact of every tool family the set's
// install instructions need and nothing in the set provides.
func (rc *ResolutionContext) injectTools(ctx context.Context, set *Set) ([]*Entry, error) {
	families := map[string]struct{}{}
	for _, e := range set.Entries() {
		if e.Demands == nil {
			continue
		}
		for _, t := range e.Demands.RequiredTools() {
			families[t] = struct{}{}
		}
	}
	names := make([]string, 0, len(families))
	for f := range families {
		names = append(names, f)
	}
	sort.Strings(names)

	var injected []*Entry
	for _, family := range names {
		id, ok := rc.tools()[family]
		if !ok {
			rc.logger().Warn("tool_bootstrap_unknown", slog.String("tool", family))
			continue
		}
		if set.provides(id) {
			continue
		}
		req := Request{ID: id}
		a, err := rc.find(ctx, req, "")
		if err != nil {
			if ae, ok := amerrors.As(err); ok {
				ae.WithDetail("tool", family)
			}
			return nil, err
		}
		e := &Entry{Artifact: a, RegistryName: rc.Registries.NameOf(a.Registry), Requested: req, Injected: true}
		if set.add(e) {
			rc.logger().Debug("tool_injected", slog.String("tool", family), slog.String("artifact", a.String()))
			injected = append(injected, e)
		}
	}
	return injected, nil
}

// find resolves one request to a single artifact. A requirement is looked
// up first in the registry of the artifact declaring it (local), then in
// the whole set.
func (rc *ResolutionContext) find(ctx context.Context, req Request, local string) (*artifact.Artifact, error) {
	c := artifact.Criteria{IDOrShortName: req.Query(), Version: req.Range}

	if local != "" && req.Source == "" {
		if r, ok := rc.Registries.ByLocation(local); ok {
			arts, err := r.Search(ctx, c)
			if err != nil {
				return nil, err
			}
			if len(arts) > 0 {
				return rc.choose(req, arts)
			}
		}
	}

	arts, err := rc.Registries.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, rc.unresolved(ctx, req)
	}
	return rc.choose(req, arts)
}

// choose picks the highest version of the single identity arts match,
// from the first registry holding it. Several distinct identities for a
// short name are ambiguous.
func (rc *ResolutionContext) choose(req Request, arts []*artifact.Artifact) (*artifact.Artifact, error) {
	var identities []string
	seen := map[string]bool{}
	for _, a := range arts {
		if !seen[a.ID] {
			seen[a.ID] = true
			identities = append(identities, a.ID)
		}
	}
	if len(identities) > 1 {
		var candidates []string
		listed := map[string]bool{}
		for _, a := range arts {
			c := rc.Registries.NameOf(a.Registry) + registry.SourceSeparator + a.ID
			if !listed[c] {
				listed[c] = true
				candidates = append(candidates, c)
			}
		}
		msg := fmt.Sprintf("%q matches %d identities", req.Query(), len(identities))
		return nil, amerrors.New(amerrors.ErrCodeAmbiguousIdentity, msg, nil).
			WithCandidates(candidates).
			WithSuggestion("Use the full identity or prefix it with a registry name")
	}

	first := arts[0].Registry
	best := arts[0]
	for _, a := range arts[1:] {
		if a.Registry != first {
			break
		}
		if newer(a, best) {
			best = a
		}
	}
	return best, nil
}

// unresolved builds the error for a request with no match, offering
// keyword near matches.
func (rc *ResolutionContext) unresolved(ctx context.Context, req Request) error {
	keyword := strings.ReplaceAll(path.Base(req.ID), "-", " ")
	var candidates []string
	if near, err := rc.Registries.Search(ctx, artifact.Criteria{Keyword: keyword}); err == nil {
		seen := map[string]bool{}
		for _, a := range near {
			if !seen[a.ID] {
				seen[a.ID] = true
				candidates = append(candidates, a.ID)
			}
		}
	}
	if near, err := rc.Registries.Search(ctx, artifact.Criteria{IDOrShortName: req.Query()}); err == nil && len(near) > 0 && req.Range != "" {
		for _, a := range near {
			candidates = append(candidates, a.String())
		}
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return amerrors.New(amerrors.ErrCodeUnresolved, fmt.Sprintf("unresolved dependency %s", req), nil).
		WithCandidates(candidates)
}
