package resolve

import (
	"strings"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/registry"
)

// Request asks for an identity, optionally from one named registry and
// within a version range.
type Request struct {
	Source string
	ID     string
	Range  string
}

// ParseRequest parses "[source:]identity[@range]".
func ParseRequest(s string) (Request, error) {
	s = strings.TrimSpace(s)
	var r Request
	if i := strings.Index(s, "@"); i >= 0 {
		r.Range = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	r.Source, r.ID = registry.SplitSource(strings.TrimSpace(s))
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return Request{}, amerrors.ValidationError("request has no identity", nil).
			WithSuggestion("Use [source:]identity[@range], e.g. compilers/gcc@>=12.0.0")
	}
	return r, nil
}

// requirement builds the request for one requires entry of a demand.
func requirement(key, rng string) Request {
	source, id := registry.SplitSource(key)
	return Request{Source: source, ID: id, Range: strings.TrimSpace(rng)}
}

// Query is the identity as searched: with its source prefix when set.
func (r Request) Query() string {
	if r.Source == "" {
		return r.ID
	}
	return r.Source + registry.SourceSeparator + r.ID
}

// String renders r in request syntax.
func (r Request) String() string {
	if r.Range == "" {
		return r.Query()
	}
	return r.Query() + "@" + r.Range
}
