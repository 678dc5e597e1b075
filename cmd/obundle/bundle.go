package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/bundler"
	"github.com/obundle/obundle/internal/config"
)

var (
	bundleTargets       string
	bundleInputs        string
	bundleOutput        string
	bundleHostTarget    string
	bundleFileType      string
	bundleAlignment     uint64
	bundleHipOpenmp     bool
	bundleAllowNoHost   bool
	bundlePrintCommands bool
	bundleObjcopyPath   string
	bundleTimeout       time.Duration
	bundleRecipe        string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Pack per-target inputs into a single offload container",
	Long: `bundle reads one input file per requested target and writes a
single container holding all of them, choosing the container layout
from --type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg bundler.Config

		if bundleRecipe != "" {
			var err error
			cfg, err = bundler.LoadRecipe(bundleRecipe)
			if err != nil {
				return err
			}
		} else {
			if bundleTargets == "" || bundleInputs == "" || bundleOutput == "" || bundleFileType == "" {
				return bundleerr.New(bundleerr.InvalidArgument, "--targets, --inputs, --output, and --type are required without --config")
			}
			targets := splitList(bundleTargets)
			cfg = bundler.Config{
				TargetNames:           targets,
				InputPaths:            splitList(bundleInputs),
				OutputPaths:           []string{bundleOutput},
				HostInputIndex:        resolveHostIndex(targets, bundleHostTarget),
				FileType:              bundleFileType,
				BundleAlignment:       bundleAlignment,
				HipOpenmpCompatible:   bundleHipOpenmp,
				AllowNoHost:           bundleAllowNoHost,
				PrintExternalCommands: bundlePrintCommands,
				ObjcopyPath:           bundleObjcopyPath,
				ExternalToolTimeout:   bundleTimeout,
			}
		}

		cfg.BundleAlignment, cfg.ObjcopyPath = defaultConfig(cfg.BundleAlignment, cfg.ObjcopyPath)
		if cfg.ExternalToolTimeout == 0 {
			cfg.ExternalToolTimeout = config.GetExternalToolTimeout()
		}

		if err := bundler.Bundle(context.Background(), cfg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", cfg.OutputPaths[0])
		return nil
	},
}

func init() {
	bundleCmd.Flags().StringVar(&bundleTargets, "targets", "", "comma-separated list of target ids, in output order")
	bundleCmd.Flags().StringVar(&bundleInputs, "inputs", "", "comma-separated list of input files, aligned with --targets")
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "path to write the bundled container")
	bundleCmd.Flags().StringVar(&bundleHostTarget, "host-target", "", "which --targets entry is the host (must match exactly)")
	bundleCmd.Flags().StringVar(&bundleFileType, "type", "", "file type selecting the container flavor (i, ii, cui, hipi, d, ll, bc, s, o, a, gch, ast, f95)")
	bundleCmd.Flags().Uint64Var(&bundleAlignment, "bundle-align", 0, "power-of-two byte alignment for binary container payloads (default from OBUNDLE_ALIGNMENT)")
	bundleCmd.Flags().BoolVar(&bundleHipOpenmp, "hip-openmp-compatible", false, "relax kind matching to cross hip/hipv4 with openmp")
	bundleCmd.Flags().BoolVar(&bundleAllowNoHost, "allow-no-host", false, "allow bundling without a host target")
	bundleCmd.Flags().BoolVar(&bundlePrintCommands, "print-external-commands", false, "print, rather than run, the objcopy-equivalent invocation")
	bundleCmd.Flags().StringVar(&bundleObjcopyPath, "objcopy", "", "path to the objcopy-equivalent tool (default from OBUNDLE_OBJCOPY)")
	bundleCmd.Flags().DurationVar(&bundleTimeout, "timeout", 0, "timeout for the external-tool invocation (default from OBUNDLE_TIMEOUT)")
	bundleCmd.Flags().StringVar(&bundleRecipe, "config", "", "load a TOML recipe instead of --targets/--inputs/--output/--type")

	rootCmd.AddCommand(bundleCmd)
}
