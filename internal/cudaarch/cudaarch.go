// Package cudaarch enumerates the GPU processor names the bundler needs
// to recognize when splitting a TargetId's head into kind-triple and
// target-id (§4.1): a trailing "-<proc>" component is only a processor,
// and not part of the triple, when <proc> names a known CUDA or AMDGPU
// architecture.
//
// This stands in for the "CUDA arch enum" the top-level spec calls out as
// an external collaborator (§6); a real toolchain's enum is much larger
// and versioned against the CUDA/ROCm SDKs it ships with.
package cudaarch

import "strings"

// Family identifies which GPU architecture family a processor name
// belongs to.
type Family int

const (
	// Unknown means the text did not match any recognized processor.
	Unknown Family = iota
	// NVPTX identifies an NVIDIA "sm_NN" compute-capability name.
	NVPTX
	// AMDGPU identifies an AMD "gfxNNN" GCN/RDNA/CDNA name.
	AMDGPU
)

// Arch is a recognized GPU processor name.
type Arch struct {
	Name   string
	Family Family
}

// knownAMDGPU lists the gfx* target names this bundler recognizes.
var knownAMDGPU = map[string]bool{
	"gfx803": true, "gfx900": true, "gfx902": true, "gfx906": true,
	"gfx908": true, "gfx90a": true, "gfx90c": true,
	"gfx1010": true, "gfx1030": true, "gfx1031": true, "gfx1032": true,
	"gfx1100": true, "gfx1101": true, "gfx1102": true,
}

// knownNVPTX lists the sm_* compute capability names this bundler
// recognizes.
var knownNVPTX = map[string]bool{
	"sm_20": true, "sm_30": true, "sm_35": true, "sm_37": true,
	"sm_50": true, "sm_52": true, "sm_53": true,
	"sm_60": true, "sm_61": true, "sm_62": true,
	"sm_70": true, "sm_72": true, "sm_75": true,
	"sm_80": true, "sm_86": true, "sm_87": true,
	"sm_89": true, "sm_90": true,
}

// FromText looks up s as a known GPU processor name, ignoring any
// feature suffix (the caller is expected to have already split on ":").
// Returns ok=false if s does not name a recognized architecture.
func FromText(s string) (Arch, bool) {
	if knownAMDGPU[s] {
		return Arch{Name: s, Family: AMDGPU}, true
	}
	if knownNVPTX[s] {
		return Arch{Name: s, Family: NVPTX}, true
	}
	return Arch{}, false
}

// DeviceExtension returns the file extension the archive-splitting
// pipeline (§4.6) uses for a synthesized per-target archive member,
// chosen by processor family: ".bc" for AMDGPU (LLVM bitcode), ".cubin"
// for NVPTX (CUDA binary), or fallback unchanged for anything else.
func DeviceExtension(processor, fallback string) string {
	switch {
	case strings.HasPrefix(processor, "gfx"):
		return ".bc"
	case strings.HasPrefix(processor, "sm_"):
		return ".cubin"
	default:
		return fallback
	}
}
