// Package hostenv describes the host an artifact is resolved for and
// evaluates the boolean conditions guarding demand blocks.
//
// A host is a set of tags: the operating system, the architecture, their
// common aliases, and any user-supplied tags. A condition is an expression
// over tags:
//
//	linux & (x64 | arm64)
//	windows and not arm64
//	!osx, freebsd
//
// "&" and "and" bind tighter than "|", "or" and ",". "!" and "not" negate.
package hostenv

import (
	"runtime"
	"sort"
	"strings"
)

var osAliases = map[string][]string{
	"darwin":  {"osx", "macos", "unix"},
	"linux":   {"unix"},
	"freebsd": {"unix", "bsd"},
	"openbsd": {"unix", "bsd"},
	"netbsd":  {"unix", "bsd"},
}

var archAliases = map[string][]string{
	"amd64": {"x64", "x86_64"},
	"386":   {"x86"},
	"arm64": {"aarch64"},
}

// Context is the set of tags describing a host.
type Context struct {
	tags map[string]struct{}
}

// NewContext returns a context holding exactly tags, lower-cased.
func NewContext(tags ...string) *Context {
	c := &Context{tags: make(map[string]struct{}, len(tags))}
	c.Add(tags...)
	return c
}

// Host returns the context of the running host plus extra tags.
func Host(extra ...string) *Context {
	return For(runtime.GOOS, runtime.GOARCH, extra...)
}

// For returns the context of a host with the given GOOS and GOARCH.
func For(goos, goarch string, extra ...string) *Context {
	c := NewContext(goos, goarch)
	c.Add(osAliases[goos]...)
	c.Add(archAliases[goarch]...)
	c.Add(extra...)
	return c
}

// Add adds tags to c. Blank tags are ignored.
func (c *Context) Add(tags ...string) {
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			c.tags[t] = struct{}{}
		}
	}
}

// Has reports whether c carries tag.
func (c *Context) Has(tag string) bool {
	_, ok := c.tags[strings.ToLower(tag)]
	return ok
}

// Tags returns the tags of c in sorted order.
func (c *Context) Tags() []string {
	out := make([]string, 0, len(c.tags))
	for t := range c.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
