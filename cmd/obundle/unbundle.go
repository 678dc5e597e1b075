package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obundle/obundle/internal/bundler"
)

var (
	unbundleTargets      string
	unbundleOutputs      string
	unbundleInput        string
	unbundleHostTarget   string
	unbundleFileType     string
	unbundleHipOpenmp    bool
	unbundleAllowMissing bool
	unbundleArchive      bool
)

var unbundleCmd = &cobra.Command{
	Use:   "unbundle",
	Short: "Extract per-target files out of an offload container",
	Long: `unbundle reads a single bundled container and writes one output
file per requested target, matched by TargetId compatibility. With
--archive, the input is treated as an ar archive of bundled members and
each output is itself a per-target ar archive (see the "split" command
for a higher-level wrapper around this mode).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := splitList(unbundleTargets)
		outputs := splitList(unbundleOutputs)

		cfg := bundler.Config{
			TargetNames:         targets,
			InputPaths:          []string{unbundleInput},
			OutputPaths:         outputs,
			HostInputIndex:      resolveHostIndex(targets, unbundleHostTarget),
			FileType:            unbundleFileType,
			HipOpenmpCompatible: unbundleHipOpenmp,
			AllowMissingBundles: unbundleAllowMissing,
		}

		var err error
		if unbundleArchive {
			err = bundler.UnbundleArchive(cfg)
		} else {
			err = bundler.Unbundle(context.Background(), cfg)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d output(s)\n", len(outputs))
		return nil
	},
}

func init() {
	unbundleCmd.Flags().StringVar(&unbundleTargets, "targets", "", "comma-separated list of requested target ids")
	unbundleCmd.Flags().StringVar(&unbundleOutputs, "outputs", "", "comma-separated list of output files, aligned with --targets")
	unbundleCmd.Flags().StringVarP(&unbundleInput, "input", "i", "", "path to the bundled container (or archive, with --archive)")
	unbundleCmd.Flags().StringVar(&unbundleHostTarget, "host-target", "", "which --targets entry is the host (must match exactly)")
	unbundleCmd.Flags().StringVar(&unbundleFileType, "type", "", "file type selecting the container flavor; ignored with --archive")
	unbundleCmd.Flags().BoolVar(&unbundleHipOpenmp, "hip-openmp-compatible", false, "relax kind matching to cross hip/hipv4 with openmp")
	unbundleCmd.Flags().BoolVar(&unbundleAllowMissing, "allow-missing-bundles", false, "write empty outputs for unmatched targets instead of erroring")
	unbundleCmd.Flags().BoolVar(&unbundleArchive, "archive", false, "treat the input as an ar archive of bundled members and fan out per-target archives")

	unbundleCmd.MarkFlagRequired("targets")
	unbundleCmd.MarkFlagRequired("outputs")
	unbundleCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(unbundleCmd)
}
