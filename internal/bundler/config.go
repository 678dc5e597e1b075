// Package bundler implements the top-level operations (§4.6): List,
// Bundle, Unbundle, UnbundleArchive, CheckSection, and
// ListWithCompatibility. It owns file I/O, the target→output mapping,
// and the archive-splitting pipeline, dispatching to internal/container
// for the per-file-type read/write contract and internal/targetid for
// compatibility matching.
package bundler

import (
	"sort"
	"strings"
	"time"

	"github.com/obundle/obundle/internal/bundleerr"
)

// NoHostIndex is the sentinel meaning "no host target was requested",
// per §3's BundlerConfig.host_input_index.
const NoHostIndex = -1

// Config is the immutable configuration for one bundler operation (§3).
type Config struct {
	// TargetNames is the ordered, requested set of bundle identifiers
	// (TargetId textual form); it also defines ordering for Bundle and
	// the (target → output) pairing for Unbundle.
	TargetNames []string

	// InputPaths is aligned positionally with TargetNames for Bundle.
	// A path of "-" means read from stdin.
	InputPaths []string

	// OutputPaths is aligned positionally with TargetNames for
	// Unbundle; for Bundle it holds the single container output path
	// at index 0.
	OutputPaths []string

	// HostInputIndex is an index into TargetNames, or NoHostIndex.
	HostInputIndex int

	// FileType selects the container flavor (§6).
	FileType string

	// BundleAlignment is the power-of-two byte alignment the binary
	// container applies to payloads.
	BundleAlignment uint64

	// HipOpenmpCompatible relaxes kind equality during matching.
	HipOpenmpCompatible bool

	// AllowMissingBundles makes missing targets yield empty outputs
	// instead of errors.
	AllowMissingBundles bool

	// AllowNoHost permits Bundle to proceed without a host entry.
	AllowNoHost bool

	// PrintExternalCommands dry-runs the object-container write path.
	PrintExternalCommands bool

	// ObjcopyPath is the external section-injection tool to invoke.
	ObjcopyPath string

	// ExternalToolTimeout bounds the objcopy-equivalent invocation.
	ExternalToolTimeout time.Duration
}

// HasHostIndex reports whether a host target was requested.
func (c Config) HasHostIndex() bool {
	return c.HostInputIndex != NoHostIndex
}

// HostTargetName returns the host target's requested name, or "" if
// HasHostIndex is false.
func (c Config) HostTargetName() string {
	if !c.HasHostIndex() {
		return ""
	}
	return c.TargetNames[c.HostInputIndex]
}

// ValidateConfig checks the supplemented invariants the original tool
// enforces before any I/O happens (SUPPLEMENTED FEATURES items 4-5):
// target-name lists must be non-empty and aligned with inputs/outputs,
// and no target name may repeat.
func ValidateConfig(c Config, forBundle bool) error {
	if len(c.TargetNames) == 0 {
		return bundleerr.New(bundleerr.InvalidArgument, "no target names given")
	}

	seen := make(map[string]bool, len(c.TargetNames))
	dupes := map[string]bool{}
	for _, name := range c.TargetNames {
		if seen[name] {
			dupes[name] = true
		}
		seen[name] = true
	}
	if len(dupes) > 0 {
		names := make([]string, 0, len(dupes))
		for n := range dupes {
			names = append(names, n)
		}
		sort.Strings(names)
		return bundleerr.New(bundleerr.InvalidArgument, "duplicate target name(s): "+strings.Join(names, ", "))
	}

	if forBundle {
		if len(c.InputPaths) != len(c.TargetNames) {
			return bundleerr.New(bundleerr.InvalidArgument, "number of input files and targets don't match")
		}
		if len(c.OutputPaths) != 1 {
			return bundleerr.New(bundleerr.InvalidArgument, "bundle requires exactly one output path")
		}
		if !c.AllowNoHost && !c.HasHostIndex() {
			return bundleerr.New(bundleerr.InvalidArgument, "bundle requires a host target unless allow_no_host is set")
		}
	} else {
		if len(c.OutputPaths) != len(c.TargetNames) {
			return bundleerr.New(bundleerr.InvalidArgument, "number of output files and targets don't match")
		}
	}

	if c.BundleAlignment != 0 && c.BundleAlignment&(c.BundleAlignment-1) != 0 {
		return bundleerr.New(bundleerr.InvalidArgument, "bundle_alignment must be a power of two")
	}

	return nil
}
