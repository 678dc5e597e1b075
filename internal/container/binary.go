package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/obundle/obundle/internal/bundleerr"
)

// magicSize is the fixed width of the ASCII magic at the start of a
// binary container; it is never NUL-terminated or padded.
const magicSize = 24

// binaryRecord is one entry of the binary container's index.
type binaryRecord struct {
	id     string
	offset uint64
	size   uint64
}

// BinaryContainer implements Container over the self-describing binary
// layout (§4.3): magic, bundle count, then one fixed-size record per
// bundle, followed by the concatenated, alignment-padded payloads.
type BinaryContainer struct {
	Alignment uint64

	input     io.ReaderAt
	inputSize int64
	records   []binaryRecord
	cursor    int
}

// NewBinaryContainer constructs a BinaryContainer using alignment for
// write operations. alignment is ignored on read, since the layout
// already encodes each payload's absolute offset.
func NewBinaryContainer(alignment uint64) *BinaryContainer {
	if alignment == 0 {
		alignment = 1
	}
	return &BinaryContainer{Alignment: alignment}
}

// ReadHeader parses the magic and index. Per §4.3, any failure of the
// magic check or a bounds check degrades to "zero bundles" rather than
// an error — a plain file is not a corrupt bundle.
func (c *BinaryContainer) ReadHeader(input io.ReaderAt, size int64) error {
	c.input = input
	c.inputSize = size
	c.records = nil
	c.cursor = 0

	if size < magicSize+8 {
		logDebug("binary container: file too small for header, treating as zero bundles", "size", size)
		return nil
	}

	magic := make([]byte, magicSize)
	if _, err := input.ReadAt(magic, 0); err != nil {
		logDebug("binary container: failed to read magic, treating as zero bundles", "error", err)
		return nil
	}
	if string(magic) != Magic {
		logDebug("binary container: magic mismatch, treating as zero bundles")
		return nil
	}

	countBuf := make([]byte, 8)
	if _, err := input.ReadAt(countBuf, magicSize); err != nil {
		logDebug("binary container: failed to read bundle count, treating as zero bundles", "error", err)
		return nil
	}
	n := binary.LittleEndian.Uint64(countBuf)

	records := make([]binaryRecord, 0, n)
	pos := int64(magicSize + 8)
	for i := uint64(0); i < n; i++ {
		recHeader := make([]byte, 24)
		if pos+24 > size {
			logDebug("binary container: truncated record header, treating as zero bundles", "index", i)
			c.records = nil
			return nil
		}
		if _, err := input.ReadAt(recHeader, pos); err != nil {
			logDebug("binary container: failed to read record header, treating as zero bundles", "error", err)
			c.records = nil
			return nil
		}
		offset := binary.LittleEndian.Uint64(recHeader[0:8])
		payloadSize := binary.LittleEndian.Uint64(recHeader[8:16])
		tripleLen := binary.LittleEndian.Uint64(recHeader[16:24])
		pos += 24

		if tripleLen > uint64(size) || pos+int64(tripleLen) > size {
			logDebug("binary container: truncated triple bytes, treating as zero bundles", "index", i)
			c.records = nil
			return nil
		}
		tripleBytes := make([]byte, tripleLen)
		if _, err := input.ReadAt(tripleBytes, pos); err != nil {
			logDebug("binary container: failed to read triple bytes, treating as zero bundles", "error", err)
			c.records = nil
			return nil
		}
		pos += int64(tripleLen)

		if offset == 0 || offset+payloadSize > uint64(size) {
			logDebug("binary container: bundle offset out of range, treating as zero bundles", "index", i, "offset", offset, "size", payloadSize)
			c.records = nil
			return nil
		}

		records = append(records, binaryRecord{
			id:     string(tripleBytes),
			offset: offset,
			size:   payloadSize,
		})
	}

	c.records = records
	return nil
}

// ReadBundleStart returns the next indexed bundle's identifier.
func (c *BinaryContainer) ReadBundleStart() (string, bool, error) {
	if c.cursor >= len(c.records) {
		return "", false, nil
	}
	return c.records[c.cursor].id, true, nil
}

// ReadBundle copies the current bundle's payload to sink.
func (c *BinaryContainer) ReadBundle(sink io.Writer) error {
	if c.cursor >= len(c.records) {
		return bundleerr.New(bundleerr.InvalidArgument, "ReadBundle called with no current bundle")
	}
	rec := c.records[c.cursor]
	_, err := io.Copy(sink, io.NewSectionReader(c.input, int64(rec.offset), int64(rec.size)))
	if err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to read bundle payload", err)
	}
	return nil
}

// ReadBundleEnd advances to the next indexed record.
func (c *BinaryContainer) ReadBundleEnd() error {
	c.cursor++
	return nil
}

// align rounds n up to the next multiple of c.Alignment.
func (c *BinaryContainer) align(n uint64) uint64 {
	if c.Alignment <= 1 {
		return n
	}
	rem := n % c.Alignment
	if rem == 0 {
		return n
	}
	return n + (c.Alignment - rem)
}

// WriteHeader computes the exact header size, then emits magic, bundle
// count, and one record per id with offsets committed up front by
// walking the running cursor forward by each bundle's (already known)
// payload size, rounded up to alignment (§4.3's write algorithm).
func (c *BinaryContainer) WriteHeader(sink io.WriteSeeker, ids []string, sizes []uint64) error {
	headerSize := uint64(magicSize + 8)
	for _, id := range ids {
		headerSize += 24 + uint64(len(id))
	}

	if _, err := sink.Write([]byte(Magic)); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write magic", err)
	}
	countBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(countBuf, uint64(len(ids)))
	if _, err := sink.Write(countBuf); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write bundle count", err)
	}

	c.records = make([]binaryRecord, len(ids))
	cursor := headerSize
	for i, id := range ids {
		offset := c.align(cursor)
		size := sizes[i]
		c.records[i] = binaryRecord{id: id, offset: offset, size: size}

		rec := make([]byte, 24+len(id))
		binary.LittleEndian.PutUint64(rec[0:8], offset)
		binary.LittleEndian.PutUint64(rec[8:16], size)
		binary.LittleEndian.PutUint64(rec[16:24], uint64(len(id)))
		copy(rec[24:], id)
		if _, err := sink.Write(rec); err != nil {
			return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write record header", err)
		}

		cursor = offset + size
	}

	c.cursor = 0
	return nil
}

// WriteBundleStart seeks to the precommitted offset for id.
func (c *BinaryContainer) WriteBundleStart(sink io.WriteSeeker, id string) error {
	rec := c.findRecord(id)
	if rec == nil {
		return bundleerr.New(bundleerr.InvalidArgument, fmt.Sprintf("no precommitted offset for bundle %q", id))
	}
	if _, err := sink.Seek(int64(rec.offset), io.SeekStart); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to seek to bundle offset", err)
	}
	return nil
}

// WriteBundle copies input's contents to sink at the current seek
// position. The payload size was already committed to the header by
// WriteHeader, so the caller is responsible for input matching that size.
func (c *BinaryContainer) WriteBundle(sink io.WriteSeeker, input io.Reader) error {
	if _, err := io.Copy(sink, input); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write bundle payload", err)
	}
	return nil
}

// WriteBundleEnd is a no-op for the binary container: writing payloads
// via absolute seek makes header/payload sequencing order-independent,
// so there is nothing left to finalize per bundle.
func (c *BinaryContainer) WriteBundleEnd(sink io.WriteSeeker, id string) error {
	return nil
}

func (c *BinaryContainer) findRecord(id string) *binaryRecord {
	for i := range c.records {
		if c.records[i].id == id {
			return &c.records[i]
		}
	}
	return nil
}
