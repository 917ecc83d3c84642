package target

import (
	"fmt"
	"sort"
	"strings"
)

// A validated compilation target.
//
// The triple is decomposed into its components at validation time so that
// later stages never re-parse it. Two calls to [Validate] with the same
// triple always produce identical values.
type Target struct {
	Triple string // Full target triple (e.g., "x86_64-unknown-linux-gnu").
	Arch   string // CPU architecture (e.g., "x86_64").
	Vendor string // Vendor component, always "unknown" for supported triples.
	OS     string // Operating system, always "linux" for supported triples.
	ABI    string // C library / ABI (e.g., "gnu", "musl").
}

// Describes one supported triple and the compilation behavior it implies.
type profile struct {
	lambdaArch string   // Lambda architecture tag ("x86_64" or "arm64").
	ociArch    string   // OCI platform architecture for sandboxed builds.
	rustflags  []string // Extra compiler flags required by the target.
}

// Triples the execution environment accepts, mapped to their deterministic
// compilation behavior. The Lambda provided.al2023 runtime runs x86_64 and
// arm64 Linux executables; musl targets are linked fully statically so the
// binary carries no glibc version requirement.
var supported = map[string]profile{
	"x86_64-unknown-linux-gnu":   {lambdaArch: "x86_64", ociArch: "amd64"},
	"x86_64-unknown-linux-musl":  {lambdaArch: "x86_64", ociArch: "amd64", rustflags: []string{"-C", "target-feature=+crt-static"}},
	"aarch64-unknown-linux-gnu":  {lambdaArch: "arm64", ociArch: "arm64"},
	"aarch64-unknown-linux-musl": {lambdaArch: "arm64", ociArch: "arm64", rustflags: []string{"-C", "target-feature=+crt-static"}},
}

// Parses and validates a target triple.
//
// The triple must name an architecture-vendor-OS-ABI combination the
// execution environment can run. Unknown combinations fail with
// [ErrUnsupportedTarget]; malformed strings never panic.
func Validate(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)

	if _, ok := supported[triple]; !ok {
		return Target{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedTarget, triple, strings.Join(Supported(), ", "))
	}

	parts := strings.SplitN(triple, "-", 4)
	return Target{
		Triple: triple,
		Arch:   parts[0],
		Vendor: parts[1],
		OS:     parts[2],
		ABI:    parts[3],
	}, nil
}

// Returns the supported triples in lexical order.
func Supported() []string {
	triples := make([]string, 0, len(supported))
	for t := range supported {
		triples = append(triples, t)
	}
	sort.Strings(triples)
	return triples
}

// Returns the extra compiler flags the target requires.
//
// The mapping is fixed per triple: the same target always yields the same
// flags. The returned slice is a copy.
func (t Target) Rustflags() []string {
	p := supported[t.Triple]
	return append([]string(nil), p.rustflags...)
}

// Returns the Lambda architecture tag for the target ("x86_64" or "arm64").
func (t Target) LambdaArch() string {
	return supported[t.Triple].lambdaArch
}

// Returns the OCI platform for sandboxed builds (e.g., "linux/amd64").
func (t Target) OCIPlatform() string {
	return "linux/" + supported[t.Triple].ociArch
}

func (t Target) String() string {
	return t.Triple
}
