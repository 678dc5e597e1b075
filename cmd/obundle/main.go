// Command obundle bundles and unbundles per-target compiled artifacts
// into a single offload container, in the manner of clang-offload-bundler.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version of obundle.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "obundle",
	Short: "Bundle and unbundle heterogeneous offload artifacts",
	Long: `obundle packages per-target compiled artifacts (host and device
code from one translation unit) into a single container, and reverses
that packaging back into per-target files.`,
	Version: Version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
