package resolve

import (
	"github.com/Masterminds/semver/v3"

	"github.com/Aman-CERP/artman/internal/artifact"
)

// newer reports whether a has a higher version than b. Unparseable
// versions never win.
func newer(a, b *artifact.Artifact) bool {
	va, err := semver.NewVersion(a.Version)
	if err != nil {
		return false
	}
	vb, err := semver.NewVersion(b.Version)
	if err != nil {
		return true
	}
	return va.GreaterThan(vb)
}
