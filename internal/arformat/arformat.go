// Package arformat adapts github.com/blakesmith/ar's `ar`-archive
// reader/writer into the member-iteration and write_archive contract
// the archive-splitting pipeline needs (§4.6, §6's "archive reader/writer
// with member iteration and write_archive(path, members, ...)").
package arformat

import (
	"io"
	"time"

	"github.com/blakesmith/ar"

	"github.com/obundle/obundle/internal/bundleerr"
)

// Member is one named entry of an `ar` archive, held fully in memory.
// The archive-fan-out path keeps every synthesized member alive until
// the writer has consumed it (§9's memory-ownership note).
type Member struct {
	Name string
	Data []byte
}

// ReadMembers reads every member of an `ar` archive from r.
func ReadMembers(r io.Reader) ([]Member, error) {
	reader := ar.NewReader(r)
	var members []Member
	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return nil, bundleerr.Wrap(bundleerr.FileIO, "", "failed to read archive member header", err)
		}
		data := make([]byte, hdr.Size)
		if _, err := io.ReadFull(reader, data); err != nil {
			return nil, bundleerr.Wrap(bundleerr.FileIO, hdr.Name, "failed to read archive member data", err)
		}
		members = append(members, Member{Name: hdr.Name, Data: data})
	}
}

// WriteArchive writes members to w as a single `ar` archive, in order.
// Writing zero members still produces a valid, empty archive (just the
// global header), matching §4.6's "write an empty archive" fallback so
// downstream linkers don't complain about a missing input.
func WriteArchive(w io.Writer, members []Member) error {
	writer := ar.NewWriter(w)
	if err := writer.WriteGlobalHeader(); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write archive global header", err)
	}
	for _, m := range members {
		hdr := &ar.Header{
			Name:    m.Name,
			Size:    int64(len(m.Data)),
			Mode:    0644,
			ModTime: time.Time{},
		}
		if err := writer.WriteHeader(hdr); err != nil {
			return bundleerr.Wrap(bundleerr.FileIO, m.Name, "failed to write archive member header", err)
		}
		if _, err := writer.Write(m.Data); err != nil {
			return bundleerr.Wrap(bundleerr.FileIO, m.Name, "failed to write archive member data", err)
		}
	}
	return nil
}
