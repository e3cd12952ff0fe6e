package index

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SemverCodec orders keys as semantic versions.
var SemverCodec = Codec[*semver.Version]{
	Coerce:  semver.NewVersion,
	Format:  func(v *semver.Version) string { return v.String() },
	Compare: func(a, b *semver.Version) int { return a.Compare(b) },
}

// VersionScheme indexes semantic versions. It persists without a word map.
type VersionScheme[T any] struct {
	*KeyScheme[T, *semver.Version]
}

// NewVersionScheme returns a version scheme reading one version per record.
func NewVersionScheme[T any](name string, version func(T) string) *VersionScheme[T] {
	values := func(r T) []string {
		if v := version(r); v != "" {
			return []string{v}
		}
		return nil
	}
	return &VersionScheme[T]{
		KeyScheme: NewKeyScheme(name, values, SemverCodec, WithoutWords[T, *semver.Version]()),
	}
}

// ParseRange parses a version range such as ">=1.0.0 <2.0.0".
func ParseRange(constraint string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(strings.TrimSpace(constraint))
	if err != nil {
		return nil, fmt.Errorf("invalid version range %q: %w", constraint, err)
	}
	return c, nil
}

// RangeMatch matches every version satisfying constraint. An empty
// constraint is no constraint.
func (s *VersionScheme[T]) RangeMatch(constraint string) (Set, error) {
	if strings.TrimSpace(constraint) == "" {
		return nil, nil
	}
	c, err := ParseRange(constraint)
	if err != nil {
		return nil, err
	}
	return s.Filter(c.Check), nil
}
