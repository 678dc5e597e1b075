package main

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sorairolake/lzip-go"
	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"

	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/bundler"
)

var (
	splitInput    string
	splitTargets  string
	splitOutDir   string
	splitCompress string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Fan out an archive of bundled objects into per-target archives",
	Long: `split is a higher-level wrapper around "unbundle --archive": it
writes one ar archive per requested target into --out-dir, then,
when --compress is set, also stages a .tar.<fmt> of that directory's
archives for distribution (this does not change the ar archives
themselves, which remain uncompressed).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := splitList(splitTargets)
		if err := os.MkdirAll(splitOutDir, 0755); err != nil {
			return bundleerr.Wrap(bundleerr.FileIO, splitOutDir, "failed to create output directory", err)
		}

		outputs := make([]string, len(targets))
		for i, t := range targets {
			outputs[i] = filepath.Join(splitOutDir, sanitizeFilename(t)+".a")
		}

		cfg := bundler.Config{
			TargetNames: targets,
			InputPaths:  []string{splitInput},
			OutputPaths: outputs,
		}
		if err := bundler.UnbundleArchive(cfg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d archive(s) to %s\n", len(outputs), splitOutDir)

		if splitCompress == "" {
			return nil
		}

		tarPath, err := writeCompressedTar(splitOutDir, outputs, splitCompress)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", tarPath)
		return nil
	},
}

// sanitizeFilename makes a TargetId textual form safe to use as a
// filename component.
func sanitizeFilename(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// writeCompressedTar tars the given per-target archives and compresses
// the result with format, writing alongside them in dir.
func writeCompressedTar(dir string, paths []string, format string) (string, error) {
	ext, ok := compressExtensions[format]
	if !ok {
		return "", bundleerr.New(bundleerr.InvalidArgument, "unknown --compress format: "+format)
	}
	tarPath := filepath.Join(dir, "archives.tar."+ext)

	out, err := os.Create(tarPath)
	if err != nil {
		return "", bundleerr.Wrap(bundleerr.FileIO, tarPath, "failed to create compressed tar", err)
	}
	defer out.Close()

	compressed, err := newCompressWriter(out, format)
	if err != nil {
		return "", err
	}
	defer compressed.Close()

	tw := tar.NewWriter(compressed)
	defer tw.Close()

	for _, p := range paths {
		if err := addTarEntry(tw, p); err != nil {
			return "", err
		}
	}

	return tarPath, nil
}

var compressExtensions = map[string]string{
	"zstd": "zst",
	"xz":   "xz",
	"lzip": "lz",
}

// newCompressWriter wraps w with the requested compression format.
func newCompressWriter(w io.Writer, format string) (io.WriteCloser, error) {
	switch format {
	case "zstd":
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, bundleerr.Wrap(bundleerr.FileIO, "", "failed to open zstd writer", err)
		}
		return enc, nil
	case "xz":
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, bundleerr.Wrap(bundleerr.FileIO, "", "failed to open xz writer", err)
		}
		return xw, nil
	case "lzip":
		lw := lzip.NewWriter(w)
		return lw, nil
	default:
		return nil, bundleerr.New(bundleerr.InvalidArgument, "unknown --compress format: "+format)
	}
}

func addTarEntry(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to open archive for tar staging", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to stat archive for tar staging", err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to build tar header", err)
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to write tar header", err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to write tar entry", err)
	}
	return nil
}

func init() {
	splitCmd.Flags().StringVarP(&splitInput, "input", "i", "", "path to the archive of bundled members")
	splitCmd.Flags().StringVar(&splitTargets, "targets", "", "comma-separated list of requested target ids")
	splitCmd.Flags().StringVar(&splitOutDir, "out-dir", "", "directory to write per-target archives into")
	splitCmd.Flags().StringVar(&splitCompress, "compress", "", "also stage a compressed tar of the output directory's archives: zstd, xz, or lzip")

	splitCmd.MarkFlagRequired("input")
	splitCmd.MarkFlagRequired("targets")
	splitCmd.MarkFlagRequired("out-dir")

	rootCmd.AddCommand(splitCmd)
}
