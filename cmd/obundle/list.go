package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obundle/obundle/internal/bundler"
)

var (
	listInput      string
	listFileType   string
	listCheck      string
	listCompatWith string
	listHipOpenmp  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bundle ids present in a container",
	Long: `list prints every bundle id found in a container's header, one
per line, in the order the container stores them.

With --check <target>, list instead reports whether the container has
a bundle compatible with that target, exiting nonzero if not.

With --compat-with, each listed id is annotated with which of the given
comma-separated requested targets it would satisfy during unbundle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bundler.Config{InputPaths: []string{listInput}, FileType: listFileType}

		if listCheck != "" {
			ok, err := bundler.CheckSection(cfg, listCheck, listHipOpenmp)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(os.Stderr, "no bundle compatible with %s\n", listCheck)
				exitWithCode(ExitMissingBundle)
				return nil
			}
			printInfof("%s: present\n", listCheck)
			return nil
		}

		if listCompatWith != "" {
			entries, err := bundler.ListWithCompatibility(cfg, splitList(listCompatWith), listHipOpenmp)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if len(e.CompatibleWith) == 0 {
					printInfof("%s\n", e.ID)
					continue
				}
				printInfof("%s  (compatible with: %s)\n", e.ID, strings.Join(e.CompatibleWith, ", "))
			}
			return nil
		}

		ids, err := bundler.List(cfg)
		if err != nil {
			return err
		}
		for _, id := range ids {
			printInfo(id)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listInput, "input", "i", "", "path to the bundled container")
	listCmd.Flags().StringVar(&listFileType, "type", "", "file type selecting the container flavor")
	listCmd.Flags().StringVar(&listCheck, "check", "", "report whether the container has a bundle compatible with this target, instead of listing")
	listCmd.Flags().StringVar(&listCompatWith, "compat-with", "", "comma-separated list of requested targets to annotate each listed id against")
	listCmd.Flags().BoolVar(&listHipOpenmp, "hip-openmp-compatible", false, "relax kind matching to cross hip/hipv4 with openmp")

	listCmd.MarkFlagRequired("input")
	listCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(listCmd)
}
