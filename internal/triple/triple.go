// Package triple implements the narrow slice of LLVM-style target triple
// parsing the bundler core needs: splitting a canonical
// arch-vendor-os-environment string into components, normalizing absent
// components to an explicit empty string, and a compatibility relation
// used by the target-id matcher.
//
// This stands in for the "triple parser" the top-level spec calls out as
// an external collaborator (§6): a real toolchain links against a much
// larger implementation, but the bundler only ever needs Parse and
// CompatibleWith.
package triple

import "strings"

// knownArches lists architectures this bundler recognizes as valid triple
// components. archAliases maps alternate spellings onto a canonical member
// of this set so "x86_64" and "amd64" (say) compare equal.
var knownArches = map[string]bool{
	"x86_64":      true,
	"i386":        true,
	"aarch64":     true,
	"arm64":       true,
	"amdgcn":      true,
	"nvptx":       true,
	"nvptx64":     true,
	"spir64":      true,
	"spirv64":     true,
	"powerpc64le": true,
	"wasm32":      true,
	"wasm64":      true,
}

var archAliases = map[string]string{
	"amd64":  "x86_64",
	"arm64e": "aarch64",
}

// canonicalArch returns the canonical spelling for arch, following
// archAliases. Unknown arches are returned unchanged.
func canonicalArch(arch string) string {
	if canon, ok := archAliases[arch]; ok {
		return canon
	}
	return arch
}

// Triple is a parsed architecture-vendor-os-environment tuple. The
// environment component is always materialized: an absent environment is
// represented as an empty string rather than being omitted, so two
// triples that differ only in an absent vs. explicit-empty environment
// compare equal.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	Env    string
}

// Parse splits text on every "-" and takes exactly the first four
// components as arch, vendor, os, and env. Fewer than four components
// leave the trailing ones as empty strings. A fifth or later component is
// dropped rather than folded into Env: this matters for a triple-text
// substring like "x86_64-unknown-linux-gnu-" taken from a TargetId with
// no processor suffix, where the trailing empty component is a TargetId
// field separator rather than part of the environment.
func Parse(text string) Triple {
	parts := strings.Split(text, "-")
	t := Triple{}
	if len(parts) > 0 {
		t.Arch = parts[0]
	}
	if len(parts) > 1 {
		t.Vendor = parts[1]
	}
	if len(parts) > 2 {
		t.OS = parts[2]
	}
	if len(parts) > 3 {
		t.Env = parts[3]
	}
	return t
}

// String renders the triple back to its canonical four-component form.
// An empty environment still renders as a trailing empty component
// ("arch-vendor-os-"), matching the textual form in §3.
func (t Triple) String() string {
	return strings.Join([]string{t.Arch, t.Vendor, t.OS, t.Env}, "-")
}

// IsValidArch reports whether the triple's architecture is in the known
// set. A triple is "valid" (§3) when non-empty and its architecture is
// known.
func (t Triple) IsValidArch() bool {
	if t.Arch == "" {
		return false
	}
	return knownArches[canonicalArch(t.Arch)]
}

// CompatibleWith reports whether t and other name the same target per the
// triple library's compatibility relation (§4.1 condition 2): the
// architectures must be equivalent (after alias canonicalization); vendor,
// OS, and environment must match exactly once both are non-empty, but an
// empty component on either side is treated as a wildcard that matches
// anything. This mirrors the permissive matching real toolchains need
// when one side of a comparison has not fully specified its triple.
func (t Triple) CompatibleWith(other Triple) bool {
	if canonicalArch(t.Arch) != canonicalArch(other.Arch) {
		return false
	}
	return fieldCompatible(t.Vendor, other.Vendor) &&
		fieldCompatible(t.OS, other.OS) &&
		fieldCompatible(t.Env, other.Env)
}

func fieldCompatible(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return a == b
}
