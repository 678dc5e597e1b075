package container

import (
	"io"
	"time"

	"github.com/obundle/obundle/internal/bundleerr"
)

// Options carries the operational knobs needed to construct whichever
// container backend a file type resolves to.
type Options struct {
	Alignment             uint64
	ObjcopyPath           string
	ExternalToolTimeout   time.Duration
	PrintExternalCommands bool
	Stderr                io.Writer
	HostID                string
}

// ForFileType implements §6's file-type dispatch table. data is
// required only for the `o`/`a` case, to probe whether the input
// actually parses as a recognized object file before falling back to
// the binary handler per §9's note on that fallback's fragility.
func ForFileType(fileType string, data []byte) (Container, error) {
	return ForFileTypeWithOptions(fileType, data, Options{Alignment: 1})
}

// ForFileTypeWithOptions is ForFileType parameterized by the options a
// real bundling operation needs (alignment, objcopy path, and so on).
func ForFileTypeWithOptions(fileType string, data []byte, opts Options) (Container, error) {
	if prefix, ok := commentPrefixForFileType(fileType); ok {
		return NewTextContainer(prefix), nil
	}

	switch fileType {
	case "bc", "gch", "ast":
		return NewBinaryContainer(opts.Alignment), nil
	case "o", "a":
		if IsObjectFile(data) {
			c := NewObjectContainer(opts.ObjcopyPath, opts.ExternalToolTimeout, opts.PrintExternalCommands, opts.Stderr)
			c.HostID = opts.HostID
			return c, nil
		}
		return NewBinaryContainer(opts.Alignment), nil
	default:
		return nil, bundleerr.New(bundleerr.InvalidArgument, "unrecognized file type: "+fileType)
	}
}
