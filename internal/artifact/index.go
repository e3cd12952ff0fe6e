package artifact

import (
	"github.com/Aman-CERP/artman/internal/index"
)

// Scheme names of the artifact record index.
const (
	SchemeID      = "id"
	SchemeVersion = "version"
	SchemeSummary = "summary"
)

// Index is the artifact record index: identity, semantic version and
// summary text.
type Index struct {
	*index.Index[*Record]

	IDs      *index.IdentityScheme[*Record]
	Versions *index.VersionScheme[*Record]
}

// NewIndex returns an empty artifact record index.
func NewIndex() *Index {
	ids := index.NewIdentityScheme(SchemeID, func(r *Record) string { return r.ID })
	versions := index.NewVersionScheme(SchemeVersion, func(r *Record) string { return r.Version })
	summary := index.NewKeyScheme(SchemeSummary, func(r *Record) []string {
		if r.Summary == "" {
			return nil
		}
		return []string{r.Summary}
	}, index.StringCodec)

	return &Index{
		Index:    index.New[*Record](ids, versions, summary),
		IDs:      ids,
		Versions: versions,
	}
}

// Criteria filters a search. Empty fields are no constraint.
type Criteria struct {
	IDOrShortName string
	Keyword       string
	Version       string
}

// Select applies c in sequence and returns the matching locations. A
// suffix shared by several identities matches all of them, so that
// callers can report the ambiguity.
func (x *Index) Select(c Criteria) ([]string, error) {
	ids := x.IDs.NameOrShortNameIs(c.IDOrShortName)
	if ids != nil && len(ids) == 0 {
		ids = x.IDs.CollisionsIs(c.IDOrShortName)
	}
	q := x.Where().
		Match(ids).
		Contains(SchemeSummary, c.Keyword)
	rng, err := x.Versions.RangeMatch(c.Version)
	if err != nil {
		return nil, err
	}
	return q.Match(rng).Locations()
}
