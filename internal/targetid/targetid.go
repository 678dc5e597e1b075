// Package targetid parses, renders, and compares bundle entry
// identifiers: the kind-triple-target_id value that names a single
// artifact inside an offload bundle (§3, §4.1 of the design).
package targetid

import (
	"strings"

	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/cudaarch"
	"github.com/obundle/obundle/internal/triple"
)

// validKinds is the closed set of compilation models a TargetId's Kind
// may name.
var validKinds = map[string]bool{
	"host":   true,
	"openmp": true,
	"hip":    true,
	"hipv4":  true,
}

// FeatureSign is the sign a GPU feature carries in a target-id suffix:
// required on ("+"), required off ("-"), or don't-care (bare name).
type FeatureSign int

const (
	// SignDontCare means the feature's state was not constrained.
	SignDontCare FeatureSign = iota
	// SignOn means the feature must be enabled ("+").
	SignOn
	// SignOff means the feature must be disabled ("-").
	SignOff
)

// Feature is one `name±` entry from a target-id suffix.
type Feature struct {
	Name string
	Sign FeatureSign
}

// TargetID is a parsed bundle entry identifier: kind, triple, and the
// (possibly empty) GPU processor/feature suffix.
type TargetID struct {
	Kind   string
	Triple triple.Triple

	// Text is the raw target-id suffix exactly as it appeared after the
	// triple (e.g. "gfx906:xnack+"), or "" if there was none. Equal
	// compares this byte-for-byte per §3; Processor and Features are
	// the same information parsed out for use by Compatible.
	Text string

	Processor string
	Features  []Feature
}

// Parse parses a textual TargetId of the form
// "kind-arch-vendor-os-env[-processor[:feat±...]]" following the
// algorithm of §4.1: split on the first ":" into head and features, find
// the processor suffix on head by looking at the tail after its last
// "-", and split the remaining kind-triple on its first "-".
func Parse(s string) (TargetID, error) {
	if s == "" {
		return TargetID{}, bundleerr.New(bundleerr.InvalidArgument, "empty target id")
	}

	head, _, _ := strings.Cut(s, ":")

	kindTriple := head
	idx := strings.LastIndex(head, "-")
	if idx >= 0 {
		tail := head[idx+1:]
		if _, ok := cudaarch.FromText(tail); ok {
			kindTriple = head[:idx]
		}
	}

	kind, tripleText, found := strings.Cut(kindTriple, "-")
	if !found {
		return TargetID{}, bundleerr.New(bundleerr.InvalidArgument, "target id missing triple: "+s)
	}

	tr := triple.Parse(tripleText)

	var text string
	if len(kindTriple) < len(head) {
		// A processor was recognized: the target-id text starts right
		// after the "-" that was cut off kindTriple, and runs to the
		// end of the original string (carrying any ":feature" suffix).
		text = s[len(kindTriple)+1:]
	}

	processor, features := parseProcessorAndFeatures(text)

	return TargetID{
		Kind:      kind,
		Triple:    tr,
		Text:      text,
		Processor: processor,
		Features:  features,
	}, nil
}

// parseProcessorAndFeatures splits a target-id suffix ("gfx906:xnack+")
// into its processor name and ordered feature list.
func parseProcessorAndFeatures(text string) (string, []Feature) {
	if text == "" {
		return "", nil
	}
	parts := strings.Split(text, ":")
	processor := parts[0]
	if len(parts) == 1 {
		return processor, nil
	}

	features := make([]Feature, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		switch p[len(p)-1] {
		case '+':
			features = append(features, Feature{Name: p[:len(p)-1], Sign: SignOn})
		case '-':
			features = append(features, Feature{Name: p[:len(p)-1], Sign: SignOff})
		default:
			features = append(features, Feature{Name: p, Sign: SignDontCare})
		}
	}
	return processor, features
}

// String renders the canonical textual form. The target-id suffix is
// always rendered, even when empty, because an empty suffix still
// contributes the separating "-" that the triple's own trailing dash (for
// an explicit empty environment) relies on to round-trip
// ("amdgcn-amd-amdhsa-" + "-" + "gfx906" == "amdgcn-amd-amdhsa--gfx906").
func (t TargetID) String() string {
	return t.Kind + "-" + t.Triple.String() + "-" + t.Text
}

// IsKindValid reports whether kind is one of the closed set of
// compilation models.
func IsKindValid(kind string) bool {
	return validKinds[kind]
}

// IsTripleValid reports whether t's triple is non-empty and names a
// known architecture (§3: "valid" TargetId requires this).
func (t TargetID) IsTripleValid() bool {
	return t.Triple.Arch != "" && t.Triple.IsValidArch()
}

// HasHostKind reports whether kind names the host compilation model.
func HasHostKind(kind string) bool {
	return kind == "host"
}

// Equal reports whether a and b identify the same bundle entry per §3:
// kinds match exactly, triples are compatible, and target-id suffixes
// match byte-for-byte. This is a stricter, symmetric relation than
// Compatible, which implements the asymmetric bundle-vs-request matching
// of §4.1 condition 3.
func (a TargetID) Equal(b TargetID) bool {
	return a.Kind == b.Kind && a.Triple.CompatibleWith(b.Triple) && a.Text == b.Text
}

// Compatible reports whether bundle (a) satisfies requested target (b)
// per §4.1: kinds match, or hipOpenmpCompatible relaxes kind equality
// across hip/hipv4 and openmp; triples are compatible; and the
// target-id/feature subsetting rule holds.
func (a TargetID) Compatible(b TargetID, hipOpenmpCompatible bool) bool {
	if !kindCompatible(a.Kind, b.Kind, hipOpenmpCompatible) {
		return false
	}
	if !a.Triple.CompatibleWith(b.Triple) {
		return false
	}
	return processorCompatible(a, b)
}

func isHipKind(kind string) bool {
	return kind == "hip" || kind == "hipv4"
}

func kindCompatible(a, b string, hipOpenmpCompatible bool) bool {
	if a == b {
		return true
	}
	if !hipOpenmpCompatible {
		return false
	}
	return (isHipKind(a) && b == "openmp") || (isHipKind(b) && a == "openmp")
}

// processorCompatible implements §4.1 condition 3: bundle a satisfies
// request b iff their processors agree when both are set (missing
// processors on both sides are a match), and for every feature b
// mentions with a signed (non-don't-care) constraint, a declares that
// same feature with the same sign.
func processorCompatible(a, b TargetID) bool {
	if a.Processor != "" && b.Processor != "" && a.Processor != b.Processor {
		return false
	}

	for _, bf := range b.Features {
		if bf.Sign == SignDontCare {
			continue
		}
		af, found := featureByName(a.Features, bf.Name)
		if !found || af.Sign != bf.Sign {
			return false
		}
	}
	return true
}

func featureByName(features []Feature, name string) (Feature, bool) {
	for _, f := range features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}
