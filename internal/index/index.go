package index

import (
	"errors"
	"fmt"
)

var (
	// ErrMixedGeneration is returned when Insert and Import are mixed
	// within one generation.
	ErrMixedGeneration = errors.New("index: insertion and import mixed in one generation")
	// ErrUnknownScheme is returned for a query against a scheme the index does not own.
	ErrUnknownScheme = errors.New("index: unknown scheme")
)

// Index owns the dense id -> location list and one Scheme per attribute.
// It is not safe for concurrent mutation; queries through Where may run
// concurrently once DoneInsertion has been called.
type Index[T any] struct {
	items   []string
	schemes []Scheme[T]
	byName  map[string]Scheme[T]

	inserted bool
	imported bool
}

// New returns an empty index over schemes. Scheme names must be unique.
func New[T any](schemes ...Scheme[T]) *Index[T] {
	idx := &Index[T]{
		schemes: schemes,
		byName:  make(map[string]Scheme[T], len(schemes)),
	}
	for _, s := range schemes {
		if _, dup := idx.byName[s.Name()]; dup {
			panic(fmt.Sprintf("index: duplicate scheme %q", s.Name()))
		}
		idx.byName[s.Name()] = s
	}
	return idx
}

// Insert assigns record the next id and indexes it under location. Every
// scheme checks the record before any scheme indexes it, so a rejected
// record leaves no partial entries behind.
func (x *Index[T]) Insert(record T, location string) (int, error) {
	if x.imported {
		return 0, ErrMixedGeneration
	}
	for _, s := range x.schemes {
		if err := s.Check(record); err != nil {
			return 0, err
		}
	}
	id := len(x.items)
	for _, s := range x.schemes {
		if err := s.Insert(record, id); err != nil {
			return 0, err
		}
	}
	x.items = append(x.items, location)
	x.inserted = true
	return id, nil
}

// DoneInsertion finalizes every scheme. It must be called after the last
// Insert and may be called again on an unchanged record set.
func (x *Index[T]) DoneInsertion() {
	for _, s := range x.schemes {
		s.DoneInsertion()
	}
}

// Reset starts a fresh generation.
func (x *Index[T]) Reset() {
	x.items = nil
	x.inserted = false
	x.imported = false
	for _, s := range x.schemes {
		s.Reset()
	}
}

// Len returns the number of records.
func (x *Index[T]) Len() int {
	return len(x.items)
}

// Location returns the location of id.
func (x *Index[T]) Location(id int) (string, bool) {
	if id < 0 || id >= len(x.items) {
		return "", false
	}
	return x.items[id], true
}

// Scheme returns the scheme named name, or nil.
func (x *Index[T]) Scheme(name string) Scheme[T] {
	return x.byName[name]
}

// Export returns the persisted form of the index.
func (x *Index[T]) Export() Persisted {
	p := Persisted{
		Items:   append([]string(nil), x.items...),
		Indexes: make(map[string]PersistedScheme, len(x.schemes)),
	}
	for _, s := range x.schemes {
		p.Indexes[s.Name()] = s.Export()
	}
	return p
}

// Import loads p into an index that has had nothing inserted in this
// generation, then runs DoneInsertion. A scheme missing from p is left
// empty. On error the index is reset.
func (x *Index[T]) Import(p Persisted) error {
	if x.inserted {
		return ErrMixedGeneration
	}
	x.Reset()
	for name := range p.Indexes {
		if _, ok := x.byName[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScheme, name)
		}
	}
	for _, s := range x.schemes {
		ps, ok := p.Indexes[s.Name()]
		if !ok {
			continue
		}
		if err := s.Import(ps, len(p.Items)); err != nil {
			x.Reset()
			return err
		}
	}
	x.items = append([]string(nil), p.Items...)
	x.imported = true
	x.DoneInsertion()
	return nil
}

// Where starts a query with every record selected.
func (x *Index[T]) Where() *Query[T] {
	return &Query[T]{idx: x}
}

// Query is a filtered view over an Index. The selection starts as "all
// records" and every operation intersects it with that operation's match
// set. The first error sticks; later operations are skipped.
type Query[T any] struct {
	idx      *Index[T]
	selected Set
	err      error
}

// Match narrows the selection by ids. A nil set is no constraint.
func (q *Query[T]) Match(ids Set) *Query[T] {
	if q.err != nil || ids == nil {
		return q
	}
	if q.selected == nil {
		q.selected = ids.Clone()
		return q
	}
	q.selected = q.selected.Intersect(ids)
	return q
}

// MatchErr is Match for operations that can fail.
func (q *Query[T]) MatchErr(ids Set, err error) *Query[T] {
	if q.err != nil {
		return q
	}
	if err != nil {
		q.err = err
		return q
	}
	return q.Match(ids)
}

func (q *Query[T]) scheme(name string) Scheme[T] {
	s := q.idx.byName[name]
	if s == nil && q.err == nil {
		q.err = fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	return s
}

// Equals narrows to records whose scheme value equals v.
func (q *Query[T]) Equals(scheme, v string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.MatchErr(s.Equals(v))
	}
	return q
}

// Contains narrows to records whose scheme value contains the words of text.
func (q *Query[T]) Contains(scheme, text string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.Match(s.Contains(text))
	}
	return q
}

// StartsWith narrows to records whose scheme value starts with prefix.
func (q *Query[T]) StartsWith(scheme, prefix string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.Match(s.StartsWith(prefix))
	}
	return q
}

// EndsWith narrows to records whose scheme value ends with suffix.
func (q *Query[T]) EndsWith(scheme, suffix string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.Match(s.EndsWith(suffix))
	}
	return q
}

// GreaterThan narrows to records whose scheme value orders after v.
func (q *Query[T]) GreaterThan(scheme, v string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.MatchErr(s.GreaterThan(v))
	}
	return q
}

// LessThan narrows to records whose scheme value orders before v.
func (q *Query[T]) LessThan(scheme, v string) *Query[T] {
	if s := q.scheme(scheme); s != nil {
		return q.MatchErr(s.LessThan(v))
	}
	return q
}

// Err returns the first error hit by the query.
func (q *Query[T]) Err() error {
	return q.err
}

// IDs returns the selected ids in ascending order.
func (q *Query[T]) IDs() ([]int, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.selected == nil {
		ids := make([]int, len(q.idx.items))
		for i := range ids {
			ids[i] = i
		}
		return ids, nil
	}
	return q.selected.Sorted(), nil
}

// Locations returns the locations of the selected ids in id order.
func (q *Query[T]) Locations() ([]string, error) {
	ids, err := q.IDs()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, q.idx.items[id])
	}
	return out, nil
}

// Count returns the number of selected records.
func (q *Query[T]) Count() (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	if q.selected == nil {
		return len(q.idx.items), nil
	}
	return len(q.selected), nil
}
