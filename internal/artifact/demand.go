package artifact

import (
	"fmt"
	"sort"
	"strings"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// BlockKind tags a DemandBlock as always applying or as guarded by a
// host condition.
type BlockKind int

const (
	// Unconditioned blocks always apply.
	Unconditioned BlockKind = iota
	// Conditional blocks apply when their condition matches the host.
	Conditional
)

// DemandBlock is one section of requirements, settings, messages and
// install instructions.
type DemandBlock struct {
	// Name is the section name in the source document.
	Name string
	// Condition is the host condition guarding the block; empty means always.
	Condition string
	Requires  map[string]string
	Settings  map[string]any
	Error     string
	Warning   string
	Message   string
	Install   []InstallInstruction
}

// Kind reports which variant b is.
func (b DemandBlock) Kind() BlockKind {
	if b.Condition == "" {
		return Unconditioned
	}
	return Conditional
}

// ConditionFunc decides whether a condition matches the current host.
type ConditionFunc func(condition string) (bool, error)

// Demands is the merge of every block that applies to one artifact.
type Demands struct {
	Requires map[string]string
	Settings map[string]any
	Errors   []string
	Warnings []string
	Messages []string
	Install  []InstallInstruction
	// InstallBlock names the block Install came from.
	InstallBlock string
}

// Merge unions every applicable block of r, in document order. Ranges
// required twice for the same identity must both hold. Later settings
// override earlier ones. At most one applicable block may carry install
// instructions.
func Merge(r *Record, match ConditionFunc) (*Demands, error) {
	d := &Demands{
		Requires: map[string]string{},
		Settings: map[string]any{},
	}
	for _, b := range r.Demands {
		switch b.Kind() {
		case Conditional:
			ok, err := match(b.Condition)
			if err != nil {
				return nil, amerrors.New(amerrors.ErrCodeInvalidCondition,
					fmt.Sprintf("%s@%s: block %q has an invalid condition", r.ID, r.Version, b.Name), err).
					WithDetail("document", r.Location)
			}
			if !ok {
				continue
			}
		case Unconditioned:
		}

		for id, rng := range b.Requires {
			d.Requires[id] = joinRanges(d.Requires[id], rng)
		}
		for k, v := range b.Settings {
			d.Settings[k] = v
		}
		appendNonEmpty(&d.Errors, b.Error)
		appendNonEmpty(&d.Warnings, b.Warning)
		appendNonEmpty(&d.Messages, b.Message)

		if len(b.Install) == 0 {
			continue
		}
		if d.Install != nil {
			return nil, amerrors.New(amerrors.ErrCodeAmbiguousInstall,
				fmt.Sprintf("%s@%s: multiple installs matched (blocks %q and %q)", r.ID, r.Version, d.InstallBlock, b.Name), nil).
				WithDetail("document", r.Location).
				WithSuggestion("Make the conditions of install blocks mutually exclusive")
		}
		d.Install = b.Install
		d.InstallBlock = b.Name
	}
	return d, nil
}

// RequiredTools returns the distinct tool families d's install
// instructions need, sorted.
func (d *Demands) RequiredTools() []string {
	seen := map[string]struct{}{}
	for _, i := range d.Install {
		if t := i.RequiredTool(); t != "" {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// RequiredIDs returns the required identities in sorted order.
func (d *Demands) RequiredIDs() []string {
	out := make([]string, 0, len(d.Requires))
	for id := range d.Requires {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// joinRanges returns a range satisfied by versions satisfying both a and
// b. Alternatives ("||") are distributed so the result stays flat.
func joinRanges(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	}
	var out []string
	for _, x := range strings.Split(a, "||") {
		for _, y := range strings.Split(b, "||") {
			out = append(out, strings.TrimSpace(x)+" "+strings.TrimSpace(y))
		}
	}
	return strings.Join(out, " || ")
}

func appendNonEmpty(dst *[]string, s string) {
	if s != "" {
		*dst = append(*dst, s)
	}
}
