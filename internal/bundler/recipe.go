package bundler

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/obundle/obundle/internal/bundleerr"
)

// recipeFile is the on-disk shape of a declarative batch-bundle recipe,
// an alternative to flag-only invocation for --config.
type recipeFile struct {
	Targets             []string `toml:"targets"`
	Inputs              []string `toml:"inputs"`
	Outputs             []string `toml:"outputs"`
	HostTarget          string   `toml:"host_target"`
	FileType            string   `toml:"file_type"`
	BundleAlignment     uint64   `toml:"bundle_alignment"`
	HipOpenmpCompatible bool     `toml:"hip_openmp_compatible"`
	AllowMissingBundles bool     `toml:"allow_missing_bundles"`
	AllowNoHost         bool     `toml:"allow_no_host"`
	ObjcopyPath         string   `toml:"objcopy_path"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
}

// LoadRecipe parses a TOML recipe file into a Config. host_target, if
// set, is resolved against the recipe's own targets list.
func LoadRecipe(path string) (Config, error) {
	var rf recipeFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return Config{}, bundleerr.Wrap(bundleerr.InvalidArgument, path, "failed to parse recipe", err)
	}

	hostIndex := NoHostIndex
	if rf.HostTarget != "" {
		for i, t := range rf.Targets {
			if t == rf.HostTarget {
				hostIndex = i
				break
			}
		}
	}

	timeout := time.Duration(rf.TimeoutSeconds) * time.Second

	return Config{
		TargetNames:           rf.Targets,
		InputPaths:            rf.Inputs,
		OutputPaths:           rf.Outputs,
		HostInputIndex:        hostIndex,
		FileType:              rf.FileType,
		BundleAlignment:       rf.BundleAlignment,
		HipOpenmpCompatible:   rf.HipOpenmpCompatible,
		AllowMissingBundles:   rf.AllowMissingBundles,
		AllowNoHost:           rf.AllowNoHost,
		ObjcopyPath:           rf.ObjcopyPath,
		ExternalToolTimeout:   timeout,
		PrintExternalCommands: false,
	}, nil
}
