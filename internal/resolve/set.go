package resolve

import (
	"sort"

	"github.com/Aman-CERP/artman/internal/artifact"
)

// Entry is one resolved artifact.
type Entry struct {
	Artifact *artifact.Artifact
	// RegistryName is the display name of the registry it came from.
	RegistryName string
	// Requested is the request that first discovered the artifact.
	Requested Request
	// RequiredBy is the global key of the artifact whose demands
	// discovered it; empty for requested and injected artifacts.
	RequiredBy string
	// Injected marks bootstrap tools added for install instructions.
	Injected bool
	// Demands is the merge of the artifact's applicable blocks.
	Demands *artifact.Demands
}

// Key returns the global artifact key of e.
func (e *Entry) Key() string {
	return e.Artifact.Key()
}

// Set is the Resolved Artifact Set: entries keyed by global artifact key,
// add-only, in discovery order.
type Set struct {
	entries map[string]*Entry
	order   []*Entry
}

func newSet() *Set {
	return &Set{entries: map[string]*Entry{}}
}

// add inserts e unless its key is present and reports whether it did.
func (s *Set) add(e *Entry) bool {
	k := e.Key()
	if _, ok := s.entries[k]; ok {
		return false
	}
	s.entries[k] = e
	s.order = append(s.order, e)
	return true
}

// Get returns the entry for key.
func (s *Set) Get(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.order)
}

// Entries returns the entries in discovery order.
func (s *Set) Entries() []*Entry {
	return append([]*Entry(nil), s.order...)
}

// Ordered returns the entries by descending priority; ties keep
// discovery order.
func (s *Set) Ordered() []*Entry {
	out := s.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Artifact.Priority > out[j].Artifact.Priority
	})
	return out
}

// Warnings returns every merged warning, in discovery order.
func (s *Set) Warnings() []string {
	var out []string
	for _, e := range s.order {
		if e.Demands != nil {
			out = append(out, e.Demands.Warnings...)
		}
	}
	return out
}

// Messages returns every merged message, in discovery order.
func (s *Set) Messages() []string {
	var out []string
	for _, e := range s.order {
		if e.Demands != nil {
			out = append(out, e.Demands.Messages...)
		}
	}
	return out
}

func (s *Set) provides(id string) bool {
	for _, e := range s.order {
		if e.Artifact.ID == id {
			return true
		}
	}
	return false
}
