package container

import (
	"bytes"
	"io"

	"github.com/obundle/obundle/internal/bundleerr"
)

const (
	startTag = "__CLANG_OFFLOAD_BUNDLE__ __START__ "
	endTag   = "__CLANG_OFFLOAD_BUNDLE__ __END__ "
)

// TextContainer implements Container over the line-comment-delimited
// text layout (§4.4), parameterized by the comment prefix used for a
// given file type ("//", "#", ";", "!").
type TextContainer struct {
	CommentPrefix string

	data   []byte
	cursor int

	curStart int
	curEnd   int
}

// NewTextContainer constructs a TextContainer using commentPrefix for
// both its start/end markers.
func NewTextContainer(commentPrefix string) *TextContainer {
	return &TextContainer{CommentPrefix: commentPrefix}
}

func (c *TextContainer) startMarker(id string) string {
	return "\n" + c.CommentPrefix + "  " + startTag + id + "\n"
}

func (c *TextContainer) endMarker(id string) string {
	return "\n" + c.CommentPrefix + "  " + endTag + id + "\n"
}

// ReadHeader slurps input and resets the scan cursor; the text container
// has no preamble of its own to validate.
func (c *TextContainer) ReadHeader(input io.ReaderAt, size int64) error {
	buf := make([]byte, size)
	if _, err := input.ReadAt(buf, 0); err != nil && err != io.EOF {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to read text container", err)
	}
	c.data = buf
	c.cursor = 0
	return nil
}

// ReadBundleStart scans forward for the next start marker and captures
// the characters up to its terminating newline as the triple.
func (c *TextContainer) ReadBundleStart() (string, bool, error) {
	marker := []byte(c.CommentPrefix + "  " + startTag)
	idx := bytes.Index(c.data[c.cursor:], marker)
	if idx < 0 {
		return "", false, nil
	}
	lineStart := c.cursor + idx + len(marker)
	nl := bytes.IndexByte(c.data[lineStart:], '\n')
	if nl < 0 {
		return "", false, nil
	}
	id := string(c.data[lineStart : lineStart+nl])
	c.curStart = lineStart + nl + 1
	return id, true, nil
}

// ReadBundle copies the payload between the current start marker and
// its matching end marker (or EOF, which is tolerated for the last
// bundle per §4.4).
func (c *TextContainer) ReadBundle(sink io.Writer) error {
	endMarker := []byte(c.CommentPrefix + "  " + endTag)
	rel := bytes.Index(c.data[c.curStart:], endMarker)
	var payloadEnd int
	if rel < 0 {
		payloadEnd = len(c.data)
		c.curEnd = payloadEnd
	} else {
		// The payload does not include the newline that introduces the
		// end marker's leading blank line.
		markerLineStart := c.curStart + rel
		payloadEnd = markerLineStart
		if payloadEnd > c.curStart && c.data[payloadEnd-1] == '\n' {
			payloadEnd--
		}
		nl := bytes.IndexByte(c.data[markerLineStart+len(endMarker):], '\n')
		if nl < 0 {
			c.curEnd = len(c.data)
		} else {
			c.curEnd = markerLineStart + len(endMarker) + nl + 1
		}
	}
	if _, err := sink.Write(c.data[c.curStart:payloadEnd]); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write bundle payload", err)
	}
	return nil
}

// ReadBundleEnd advances the cursor past the current bundle's end marker.
func (c *TextContainer) ReadBundleEnd() error {
	c.cursor = c.curEnd
	return nil
}

// WriteHeader has nothing to emit up front; the text layout has no
// preamble, only per-bundle markers.
func (c *TextContainer) WriteHeader(sink io.WriteSeeker, ids []string, sizes []uint64) error {
	return nil
}

// WriteBundleStart emits the start marker for id.
func (c *TextContainer) WriteBundleStart(sink io.WriteSeeker, id string) error {
	if _, err := io.WriteString(sink, c.startMarker(id)); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write start marker", err)
	}
	return nil
}

// WriteBundle copies input's contents verbatim as the bundle payload.
func (c *TextContainer) WriteBundle(sink io.WriteSeeker, input io.Reader) error {
	if _, err := io.Copy(sink, input); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write bundle payload", err)
	}
	return nil
}

// WriteBundleEnd emits the end marker for id.
func (c *TextContainer) WriteBundleEnd(sink io.WriteSeeker, id string) error {
	if _, err := io.WriteString(sink, c.endMarker(id)); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write end marker", err)
	}
	return nil
}

// commentPrefixForFileType implements §6's file-type dispatch table for
// the text container's comment prefix column.
func commentPrefixForFileType(fileType string) (string, bool) {
	switch fileType {
	case "i", "ii", "cui", "hipi":
		return "//", true
	case "d":
		return "#", true
	case "ll":
		return ";", true
	case "s":
		return "#", true
	case "f95":
		return "!", true
	default:
		return "", false
	}
}
