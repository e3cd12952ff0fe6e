package index

import "strings"

// IdentitySeparator delimits the segments of a hierarchical identity.
const IdentitySeparator = "/"

// IdentityScheme indexes slash-delimited identities and maintains the
// short-name table for the current generation.
type IdentityScheme[T any] struct {
	*KeyScheme[T, string]

	short    map[string]string   // short name -> identity
	shortOf  map[string]string   // identity -> short name
	collided map[string][]string // shared suffix -> identities
}

// NewIdentityScheme returns an identity scheme reading one identity per record.
func NewIdentityScheme[T any](name string, identity func(T) string) *IdentityScheme[T] {
	values := func(r T) []string {
		if id := identity(r); id != "" {
			return []string{id}
		}
		return nil
	}
	return &IdentityScheme[T]{
		KeyScheme: NewKeyScheme[T, string](name, values, StringCodec),
		short:     map[string]string{},
		shortOf:   map[string]string{},
		collided:  map[string][]string{},
	}
}

// Reset implements Scheme.
func (s *IdentityScheme[T]) Reset() {
	s.KeyScheme.Reset()
	s.short = map[string]string{}
	s.shortOf = map[string]string{}
	s.collided = map[string][]string{}
}

// Import implements Scheme. The short-name table is not persisted; it is
// recomputed by DoneInsertion.
func (s *IdentityScheme[T]) Import(p PersistedScheme, size int) error {
	s.short = map[string]string{}
	s.shortOf = map[string]string{}
	s.collided = map[string][]string{}
	return s.KeyScheme.Import(p, size)
}

// DoneInsertion implements Scheme and recomputes the short-name table.
func (s *IdentityScheme[T]) DoneInsertion() {
	s.KeyScheme.DoneInsertion()
	s.short, s.collided = shortNames(s.Keys())
	s.shortOf = make(map[string]string, len(s.short))
	for name, identity := range s.short {
		s.shortOf[identity] = name
	}
}

// ShortName returns the short name of identity, or "" when it has none.
func (s *IdentityScheme[T]) ShortName(identity string) string {
	return s.shortOf[identity]
}

// ShortNames returns a copy of the short name -> identity table.
func (s *IdentityScheme[T]) ShortNames() map[string]string {
	out := make(map[string]string, len(s.short))
	for k, v := range s.short {
		out[k] = v
	}
	return out
}

// NameOrShortNameIs matches the identity whose short name is value, and
// falls back to full-identity equality.
func (s *IdentityScheme[T]) NameOrShortNameIs(value string) Set {
	if value == "" {
		return nil
	}
	if identity, ok := s.short[value]; ok {
		value = identity
	}
	ids, _ := s.Equals(value)
	return ids
}

// Collisions returns the identities sharing the suffix value when value
// is neither a short name nor an identity.
func (s *IdentityScheme[T]) Collisions(value string) []string {
	if _, ok := s.short[value]; ok {
		return nil
	}
	if _, ok := s.KeyScheme.keys[value]; ok {
		return nil
	}
	return append([]string(nil), s.collided[value]...)
}

// CollisionsIs matches every identity in the collision group of value.
// It is empty when value is a short name or an identity.
func (s *IdentityScheme[T]) CollisionsIs(value string) Set {
	out := make(Set)
	for _, identity := range s.Collisions(value) {
		ids, _ := s.Equals(identity)
		out.Union(ids)
	}
	return out
}

// ShortNames computes the minimal unique suffix of every identity.
//
// Starting with one trailing segment, identities are grouped by suffix. A
// group of one confirms that suffix as the member's short name; members of
// larger groups retry with one more segment until their suffix is the whole
// identity, at which point they get no short name.
func ShortNames(identities []string) map[string]string {
	short, _ := shortNames(identities)
	return short
}

// shortNames also returns, for every suffix shared by more than one
// identity in some round, the identities sharing it.
func shortNames(identities []string) (map[string]string, map[string][]string) {
	type pending struct {
		identity string
		segments []string
	}

	result := make(map[string]string, len(identities))
	collided := make(map[string][]string)
	var todo []pending
	seen := make(map[string]struct{}, len(identities))
	for _, identity := range identities {
		if _, dup := seen[identity]; dup || identity == "" {
			continue
		}
		seen[identity] = struct{}{}
		todo = append(todo, pending{identity: identity, segments: strings.Split(identity, IdentitySeparator)})
	}

	for n := 1; len(todo) > 0; n++ {
		groups := make(map[string][]pending, len(todo))
		var order []string
		for _, p := range todo {
			suffix := suffixOf(p.segments, n)
			if _, ok := groups[suffix]; !ok {
				order = append(order, suffix)
			}
			groups[suffix] = append(groups[suffix], p)
		}

		todo = todo[:0:0]
		for _, suffix := range order {
			members := groups[suffix]
			if len(members) == 1 {
				result[suffix] = members[0].identity
				continue
			}
			for _, m := range members {
				collided[suffix] = append(collided[suffix], m.identity)
				if n < len(m.segments) {
					todo = append(todo, m)
				}
			}
		}
	}
	return result, collided
}

func suffixOf(segments []string, n int) string {
	if n >= len(segments) {
		return strings.Join(segments, IdentitySeparator)
	}
	return strings.Join(segments[len(segments)-n:], IdentitySeparator)
}
