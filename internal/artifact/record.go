// Package artifact defines artifact records, their demand blocks, and the
// artifact record index built on the generic index engine.
package artifact

import (
	"fmt"
	"strings"
)

// Record is the parsed description of one artifact version.
// Records are immutable once indexed.
type Record struct {
	ID       string
	Version  string
	Summary  string
	Priority int
	// Location is the document path the record was parsed from.
	Location string
	Demands  []DemandBlock
}

// InstallInstruction describes how to obtain an artifact's payload.
type InstallInstruction struct {
	Kind     string `yaml:"kind" json:"kind"`
	Location string `yaml:"location" json:"location"`
	SHA256   string `yaml:"sha256,omitempty" json:"sha256,omitempty"`
	// Tool names an external tool family the installer needs. When empty
	// it is derived from Kind.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`
}

// toolKinds maps install kinds onto the tool family they need.
var toolKinds = map[string]string{
	"git": "git",
	"svn": "svn",
	"hg":  "hg",
}

// RequiredTool returns the tool family this instruction relies on, or "".
func (i InstallInstruction) RequiredTool() string {
	if i.Tool != "" {
		return i.Tool
	}
	return toolKinds[strings.ToLower(i.Kind)]
}

// Artifact is a Record materialized from a specific registry.
type Artifact struct {
	Record
	// Registry is the location of the registry the record came from.
	Registry string
}

// Key returns the global artifact key of a.
func (a *Artifact) Key() string {
	return Key(a.Registry, a.ID, a.Version)
}

// String renders a as identity@version.
func (a *Artifact) String() string {
	return a.ID + "@" + a.Version
}

// Key builds the global artifact key used for deduplication.
func Key(registry, id, version string) string {
	return fmt.Sprintf("%s::%s::%s", registry, id, version)
}
