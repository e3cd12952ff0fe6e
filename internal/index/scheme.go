package index

import (
	"fmt"
	"sort"
	"strings"
)

// Scheme is one indexed attribute over records of type T.
//
// Match methods return nil when their input is empty, meaning "no
// constraint"; a non-nil, possibly empty, Set is the match set.
type Scheme[T any] interface {
	// Name identifies the scheme in the persisted form.
	Name() string
	// Check reports whether record can be inserted without error.
	Check(record T) error
	// Insert adds id under every value record holds for this attribute.
	Insert(record T, id int) error
	// DoneInsertion finalizes the scheme after the last Insert or Import.
	DoneInsertion()
	// Reset drops all entries.
	Reset()
	// Export returns the persisted form.
	Export() PersistedScheme
	// Import loads a persisted form whose ids are all below size.
	Import(p PersistedScheme, size int) error

	Equals(v string) (Set, error)
	Contains(text string) Set
	StartsWith(prefix string) Set
	EndsWith(suffix string) Set
	GreaterThan(v string) (Set, error)
	LessThan(v string) (Set, error)
}

// Codec converts between the string form of a key and its ordered value.
type Codec[K any] struct {
	// Coerce parses a string form.
	Coerce func(string) (K, error)
	// Format renders the canonical string form used as the map key.
	Format func(K) string
	// Compare orders two keys.
	Compare func(a, b K) int
}

// StringCodec orders keys lexically.
var StringCodec = Codec[string]{
	Coerce:  func(s string) (string, error) { return s, nil },
	Format:  func(s string) string { return s },
	Compare: strings.Compare,
}

type bucket[K any] struct {
	raw string
	key K
	ids Set
}

// KeyScheme is the generic Scheme implementation.
type KeyScheme[T any, K any] struct {
	name    string
	values  func(T) []string
	codec   Codec[K]
	noWords bool

	newChild func(value string) Scheme[T]
	children map[string]Scheme[T]

	keys   map[string]*bucket[K]
	sorted []*bucket[K]
	words  map[string]Set
}

// Option configures a KeyScheme.
type Option[T any, K any] func(*KeyScheme[T, K])

// WithoutWords disables the word map, for attributes where free-text
// search is meaningless.
func WithoutWords[T any, K any]() Option[T, K] {
	return func(s *KeyScheme[T, K]) {
		s.noWords = true
	}
}

// WithChildren nests a child scheme under every distinct value of this
// scheme. The child sees only the records holding that value.
func WithChildren[T any, K any](newChild func(value string) Scheme[T]) Option[T, K] {
	return func(s *KeyScheme[T, K]) {
		s.newChild = newChild
	}
}

// NewKeyScheme returns a scheme named name whose values are extracted
// from each record by values.
func NewKeyScheme[T any, K any](name string, values func(T) []string, codec Codec[K], opts ...Option[T, K]) *KeyScheme[T, K] {
	s := &KeyScheme[T, K]{
		name:   name,
		values: values,
		codec:  codec,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Name implements Scheme.
func (s *KeyScheme[T, K]) Name() string {
	return s.name
}

// Reset implements Scheme.
func (s *KeyScheme[T, K]) Reset() {
	s.keys = make(map[string]*bucket[K])
	s.sorted = nil
	s.words = make(map[string]Set)
	s.children = make(map[string]Scheme[T])
}

// Check implements Scheme.
func (s *KeyScheme[T, K]) Check(record T) error {
	for _, v := range s.values(record) {
		if _, err := s.codec.Coerce(v); err != nil {
			return fmt.Errorf("%s %q: %w", s.name, v, err)
		}
	}
	if s.newChild == nil {
		return nil
	}
	for _, v := range s.values(record) {
		child, ok := s.children[v]
		if !ok {
			child = s.newChild(v)
		}
		if err := child.Check(record); err != nil {
			return err
		}
	}
	return nil
}

// Insert implements Scheme.
func (s *KeyScheme[T, K]) Insert(record T, id int) error {
	for _, v := range s.values(record) {
		key, err := s.codec.Coerce(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", s.name, v, err)
		}
		s.addKey(s.codec.Format(key), key, id)

		if !s.noWords {
			for _, phrase := range Phrases(v) {
				s.addWord(phrase, id)
			}
		}

		if s.newChild != nil {
			child, ok := s.children[v]
			if !ok {
				child = s.newChild(v)
				s.children[v] = child
			}
			if err := child.Insert(record, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *KeyScheme[T, K]) addKey(raw string, key K, id int) {
	b, ok := s.keys[raw]
	if !ok {
		b = &bucket[K]{raw: raw, key: key, ids: make(Set)}
		s.keys[raw] = b
	}
	b.ids.Add(id)
}

func (s *KeyScheme[T, K]) addWord(word string, id int) {
	ids, ok := s.words[word]
	if !ok {
		ids = make(Set)
		s.words[word] = ids
	}
	ids.Add(id)
}

// DoneInsertion implements Scheme. It rebuilds the sorted key order used
// by range queries and finalizes every child scheme.
func (s *KeyScheme[T, K]) DoneInsertion() {
	s.sorted = make([]*bucket[K], 0, len(s.keys))
	for _, b := range s.keys {
		s.sorted = append(s.sorted, b)
	}
	sort.Slice(s.sorted, func(i, j int) bool {
		c := s.codec.Compare(s.sorted[i].key, s.sorted[j].key)
		if c != 0 {
			return c < 0
		}
		return s.sorted[i].raw < s.sorted[j].raw
	})
	for _, child := range s.children {
		child.DoneInsertion()
	}
}

// Child returns the nested scheme for value, or nil.
func (s *KeyScheme[T, K]) Child(value string) Scheme[T] {
	return s.children[value]
}

// Keys returns the canonical key strings in sorted order.
func (s *KeyScheme[T, K]) Keys() []string {
	out := make([]string, len(s.sorted))
	for i, b := range s.sorted {
		out[i] = b.raw
	}
	return out
}

// Equals implements Scheme.
func (s *KeyScheme[T, K]) Equals(v string) (Set, error) {
	if v == "" {
		return nil, nil
	}
	key, err := s.codec.Coerce(v)
	if err != nil {
		return nil, err
	}
	if b, ok := s.keys[s.codec.Format(key)]; ok {
		return b.ids, nil
	}
	return Set{}, nil
}

// Contains implements Scheme. The words of text must occur in the value
// as one contiguous run. Schemes without a word map fall back to a substring scan.
func (s *KeyScheme[T, K]) Contains(text string) Set {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.noWords {
		needle := strings.ToLower(text)
		return s.scan(func(raw string) bool {
			return strings.Contains(strings.ToLower(raw), needle)
		})
	}

	phrases := queryPhrases(text)
	if len(phrases) == 0 {
		return Set{}
	}
	var out Set
	for _, p := range phrases {
		ids, ok := s.words[p]
		if !ok {
			return Set{}
		}
		if out == nil {
			out = ids
			continue
		}
		out = out.Intersect(ids)
	}
	if len(phrases) > 1 {
		out = s.adjacent(out, strings.Join(Tokenize(text), " "))
	}
	return out
}

// adjacent keeps the candidates holding a value in which phrase occurs as
// one contiguous word run. Overlapping windows alone can match runs found
// in different places of the value.
func (s *KeyScheme[T, K]) adjacent(candidates Set, phrase string) Set {
	out := make(Set)
	if len(candidates) == 0 {
		return out
	}
	needle := " " + phrase + " "
	for _, b := range s.sorted {
		if !strings.Contains(" "+strings.Join(Tokenize(b.raw), " ")+" ", needle) {
			continue
		}
		for id := range b.ids {
			if candidates.Has(id) {
				out.Add(id)
			}
		}
	}
	return out
}

// StartsWith implements Scheme. This is a linear scan over every key.
func (s *KeyScheme[T, K]) StartsWith(prefix string) Set {
	if prefix == "" {
		return nil
	}
	prefix = strings.ToLower(prefix)
	return s.scan(func(raw string) bool {
		return strings.HasPrefix(strings.ToLower(raw), prefix)
	})
}

// EndsWith implements Scheme. This is a linear scan over every key.
func (s *KeyScheme[T, K]) EndsWith(suffix string) Set {
	if suffix == "" {
		return nil
	}
	suffix = strings.ToLower(suffix)
	return s.scan(func(raw string) bool {
		return strings.HasSuffix(strings.ToLower(raw), suffix)
	})
}

func (s *KeyScheme[T, K]) scan(match func(raw string) bool) Set {
	out := make(Set)
	for _, b := range s.sorted {
		if match(b.raw) {
			out.Union(b.ids)
		}
	}
	return out
}

// GreaterThan implements Scheme.
func (s *KeyScheme[T, K]) GreaterThan(v string) (Set, error) {
	if v == "" {
		return nil, nil
	}
	key, err := s.codec.Coerce(v)
	if err != nil {
		return nil, err
	}
	start := sort.Search(len(s.sorted), func(i int) bool {
		return s.codec.Compare(s.sorted[i].key, key) > 0
	})
	out := make(Set)
	for _, b := range s.sorted[start:] {
		out.Union(b.ids)
	}
	return out, nil
}

// LessThan implements Scheme.
func (s *KeyScheme[T, K]) LessThan(v string) (Set, error) {
	if v == "" {
		return nil, nil
	}
	key, err := s.codec.Coerce(v)
	if err != nil {
		return nil, err
	}
	end := sort.Search(len(s.sorted), func(i int) bool {
		return s.codec.Compare(s.sorted[i].key, key) >= 0
	})
	out := make(Set)
	for _, b := range s.sorted[:end] {
		out.Union(b.ids)
	}
	return out, nil
}

// Filter returns the union of every bucket whose key satisfies keep.
func (s *KeyScheme[T, K]) Filter(keep func(K) bool) Set {
	out := make(Set)
	for _, b := range s.sorted {
		if keep(b.key) {
			out.Union(b.ids)
		}
	}
	return out
}

// Export implements Scheme.
func (s *KeyScheme[T, K]) Export() PersistedScheme {
	p := PersistedScheme{Keys: make(map[string][]int, len(s.keys))}
	for raw, b := range s.keys {
		p.Keys[raw] = b.ids.Sorted()
	}
	if !s.noWords {
		p.Words = make(map[string][]int, len(s.words))
		for w, ids := range s.words {
			p.Words[w] = ids.Sorted()
		}
	}
	if len(s.children) > 0 {
		p.Children = make(map[string]PersistedScheme, len(s.children))
		for v, child := range s.children {
			p.Children[v] = child.Export()
		}
	}
	return p
}

// Import implements Scheme. The scheme is reset first.
func (s *KeyScheme[T, K]) Import(p PersistedScheme, size int) error {
	s.Reset()
	for raw, ids := range p.Keys {
		key, err := s.codec.Coerce(raw)
		if err != nil {
			return fmt.Errorf("%s key %q: %w", s.name, raw, err)
		}
		for _, id := range ids {
			if id < 0 || id >= size {
				return fmt.Errorf("%s key %q: id %d out of range", s.name, raw, id)
			}
			s.addKey(s.codec.Format(key), key, id)
		}
	}
	if !s.noWords {
		for w, ids := range p.Words {
			for _, id := range ids {
				if id < 0 || id >= size {
					return fmt.Errorf("%s word %q: id %d out of range", s.name, w, id)
				}
				s.addWord(w, id)
			}
		}
	}
	if len(p.Children) > 0 && s.newChild == nil {
		return fmt.Errorf("%s: persisted children but scheme has none", s.name)
	}
	for v, cp := range p.Children {
		child := s.newChild(v)
		if err := child.Import(cp, size); err != nil {
			return err
		}
		s.children[v] = child
	}
	return nil
}
