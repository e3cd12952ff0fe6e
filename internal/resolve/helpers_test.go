package resolve

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/artman/internal/artifact"
	"github.com/Aman-CERP/artman/internal/hostenv"
	"github.com/Aman-CERP/artman/internal/registry"
)

// memRegistry is an in-memory registry searched through a real artifact
// index, so short names and keywords behave as they do on disk.
type memRegistry struct {
	location string
	arts     []*artifact.Artifact
	idx      *artifact.Index
}

func newMem(location string, arts ...*artifact.Artifact) *memRegistry {
	idx := artifact.NewIndex()
	for i, a := range arts {
		a.Registry = location
		if _, err := idx.Insert(&a.Record, strconv.Itoa(i)); err != nil {
			panic(err)
		}
	}
	idx.DoneInsertion()
	return &memRegistry{location: location, arts: arts, idx: idx}
}

func (m *memRegistry) Location() string                         { return m.location }
func (m *memRegistry) Load(ctx context.Context, force bool) error { return nil }
func (m *memRegistry) Regenerate(ctx context.Context) error       { return nil }
func (m *memRegistry) Update(ctx context.Context) error           { return nil }
func (m *memRegistry) Save(ctx context.Context) error             { return nil }
func (m *memRegistry) State() registry.State                      { return registry.State{Loaded: true, Count: len(m.arts)} }

func (m *memRegistry) Search(ctx context.Context, c artifact.Criteria) ([]*artifact.Artifact, error) {
	locs, err := m.idx.Select(c)
	if err != nil {
		return nil, err
	}
	out := make([]*artifact.Artifact, 0, len(locs))
	for _, loc := range locs {
		i, err := strconv.Atoi(loc)
		if err != nil {
			return nil, err
		}
		out = append(out, m.arts[i])
	}
	registry.SortArtifacts(out)
	return out, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newContext builds a linux/amd64 resolution over members added in order
// under the names reg1, reg2, ...
func newContext(t *testing.T, members ...*memRegistry) *ResolutionContext {
	t.Helper()
	agg := registry.NewAggregate(quiet())
	for i, m := range members {
		require.NoError(t, agg.Add(m, "reg"+string(rune('1'+i))))
	}
	return &ResolutionContext{
		Env:        hostenv.For("linux", "amd64"),
		Registries: agg,
		Evaluator:  hostenv.NewEvaluator(),
		Logger:     quiet(),
	}
}

func rec(id, version string, blocks ...artifact.DemandBlock) *artifact.Artifact {
	return &artifact.Artifact{Record: artifact.Record{ID: id, Version: version, Summary: id, Demands: blocks}}
}

func requires(pairs ...string) artifact.DemandBlock {
	b := artifact.DemandBlock{Name: "always", Requires: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		b.Requires[pairs[i]] = pairs[i+1]
	}
	return b
}

func requests(t *testing.T, specs ...string) []Request {
	t.Helper()
	out := make([]Request, len(specs))
	for i, s := range specs {
		r, err := ParseRequest(s)
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

func names(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Artifact.String()
	}
	return out
}
