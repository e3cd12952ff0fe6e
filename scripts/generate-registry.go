//go:build ignore

// Package main generates a synthetic artifact registry for benchmarking.
// Usage: go run scripts/generate-registry.go -identities 500 -versions 4 -output testdata/bench-registry
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numIdentities = flag.Int("identities", 500, "Number of artifact identities to generate")
	numVersions   = flag.Int("versions", 4, "Versions per identity")
	outputDir     = flag.String("output", "testdata/bench-registry", "Output directory")
	seed          = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Word pools for generating realistic identities
var (
	namespaces = []string{
		"compilers", "tools", "sdks", "libs", "runtimes",
		"editors", "linters", "debuggers", "emulators", "drivers",
	}
	stems = []string{
		"gcc", "clang", "make", "ninja", "cmake", "meson", "android", "ios",
		"glibc", "musl", "node", "python", "ruby", "java", "zig", "rust",
		"vim", "emacs", "gdb", "lldb", "qemu", "cuda", "openssl", "zlib",
	}
	suffixes = []string{"", "-lite", "-tools", "-cross", "-static", "-dev"}
	words    = []string{
		"cross", "compiler", "toolchain", "build", "system", "runtime",
		"library", "debugger", "emulator", "portable", "static", "embedded",
	}
	conditions = []string{"linux", "windows", "macos", "arm64", "linux & x64", "!windows"}
)

type identity struct {
	namespace string
	name      string
}

func (i identity) String() string {
	return i.namespace + "/" + i.name
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	ids := make([]identity, 0, *numIdentities)
	seen := map[string]bool{}
	for len(ids) < *numIdentities {
		id := identity{
			namespace: pick(rng, namespaces),
			name:      fmt.Sprintf("%s%s%d", pick(rng, stems), pick(rng, suffixes), rng.Intn(1000)),
		}
		if !seen[id.String()] {
			seen[id.String()] = true
			ids = append(ids, id)
		}
	}

	fmt.Printf("Generating %d identities x %d versions in %s...\n", len(ids), *numVersions, *outputDir)

	generated := 0
	for i, id := range ids {
		for v := 0; v < *numVersions; v++ {
			version := fmt.Sprintf("%d.%d.%d", 1+v, rng.Intn(10), rng.Intn(20))
			// Requirements only point backwards so the graph stays acyclic.
			var requires []identity
			for r := 0; r < rng.Intn(3) && i > 0; r++ {
				requires = append(requires, ids[rng.Intn(i)])
			}
			if err := writeDocument(rng, id, version, requires); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s@%s: %v\n", id, version, err)
				os.Exit(1)
			}
			generated++
		}
	}

	fmt.Printf("Generated %d documents\n", generated)
}

func writeDocument(rng *rand.Rand, id identity, version string, requires []identity) error {
	var b strings.Builder
	fmt.Fprintf(&b, "info:\n  id: %s\n  version: %s\n", id, version)
	fmt.Fprintf(&b, "  summary: %s %s %s\n", strings.ToUpper(id.name[:1])+id.name[1:], pick(rng, words), pick(rng, words))
	fmt.Fprintf(&b, "  priority: %d\n", rng.Intn(100))
	if len(requires) > 0 {
		b.WriteString("requires:\n")
		for _, r := range requires {
			fmt.Fprintf(&b, "  %s: \">=1.0.0\"\n", r)
		}
	}
	fmt.Fprintf(&b, "install:\n  kind: zip\n  location: https://example.com/%s-%s.zip\n", id.name, version)
	if rng.Intn(4) == 0 {
		fmt.Fprintf(&b, "when:\n  %q:\n    warning: %s is experimental on this host\n", pick(rng, conditions), id)
	}

	path := filepath.Join(*outputDir, id.namespace, fmt.Sprintf("%s-%s.yaml", id.name, version))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}
