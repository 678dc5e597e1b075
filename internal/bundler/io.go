package bundler

import (
	"io"
	"os"

	"github.com/obundle/obundle/internal/bundleerr"
)

// slurp reads path fully into memory, or stdin if path is "-", matching
// §5's assumption that the entire input is addressable as contiguous
// bytes.
func slurp(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, bundleerr.Wrap(bundleerr.FileIO, path, "failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bundleerr.Wrap(bundleerr.FileIO, path, "failed to read input", err)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout if path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return bundleerr.Wrap(bundleerr.FileIO, path, "failed to write stdout", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, path, "failed to write output", err)
	}
	return nil
}
