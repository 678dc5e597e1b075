// Package container implements the three on-disk representations an
// offload bundle can take — binary, text, and native object file — behind
// one read/write contract, plus the file-type dispatch table that picks
// among them.
package container

import (
	"io"

	"github.com/obundle/obundle/internal/log"
)

// Magic is the literal marker used in both the binary header and, as a
// prefix, in object-container section names.
const Magic = "__CLANG_OFFLOAD_BUNDLE__"

// Container is the uniform read/write contract every backend implements.
// Callers must call ReadHeader (or WriteHeader) exactly once before any
// other method.
type Container interface {
	// ReadHeader populates the container's index, or resets its cursor
	// for streaming formats. input must support the access pattern the
	// concrete backend needs (ReaderAt for indexed formats).
	ReadHeader(input io.ReaderAt, size int64) error

	// ReadBundleStart returns the next bundle's identifier, or ("", false)
	// when no bundles remain.
	ReadBundleStart() (string, bool, error)

	// ReadBundle copies the current bundle's payload to sink.
	ReadBundle(sink io.Writer) error

	// ReadBundleEnd advances past the current bundle.
	ReadBundleEnd() error

	// WriteHeader writes the container preamble for the given ordered
	// set of bundle identifiers. sizes gives each bundle's payload size
	// in the same order, so indexed formats can precompute offsets;
	// streaming formats ignore it.
	WriteHeader(sink io.WriteSeeker, ids []string, sizes []uint64) error

	// WriteBundleStart begins emitting the named bundle.
	WriteBundleStart(sink io.WriteSeeker, id string) error

	// WriteBundle copies input's full contents as the current bundle's
	// payload.
	WriteBundle(sink io.WriteSeeker, input io.Reader) error

	// WriteBundleEnd finishes emitting the current bundle.
	WriteBundleEnd(sink io.WriteSeeker, id string) error
}

// ListBundleIDs iterates every entry in a container already positioned
// by ReadHeader and returns their identifiers in encounter order.
func ListBundleIDs(c Container) ([]string, error) {
	var ids []string
	for {
		id, ok, err := c.ReadBundleStart()
		if err != nil {
			return nil, err
		}
		if !ok {
			return ids, nil
		}
		ids = append(ids, id)
		if err := c.ReadBundleEnd(); err != nil {
			return nil, err
		}
	}
}

// logDebug is a small shorthand for debug-level logging through the
// default logger.
func logDebug(msg string, args ...any) {
	log.Default().Debug(msg, args...)
}
