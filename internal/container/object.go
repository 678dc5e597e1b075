package container

import (
	"bytes"
	"context"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/log"
	"github.com/obundle/obundle/internal/procexec"
)

// objSection is a uniform view over the section table of whichever
// native object format (ELF, Mach-O, PE) the input turned out to be.
type objSection struct {
	name string
	data []byte
}

// readObjectSections dispatches to the first native object reader that
// accepts data. Returns an InvalidArgument error if none recognize it,
// so callers can fall back to the binary container per §4.2's dispatch
// table note on `.o`/`.a` inputs.
func readObjectSections(data []byte) ([]objSection, error) {
	if f, err := elf.NewFile(bytes.NewReader(data)); err == nil {
		return sectionsFromELF(f), nil
	}
	if f, err := macho.NewFile(bytes.NewReader(data)); err == nil {
		return sectionsFromMachO(f), nil
	}
	if f, err := pe.NewFile(bytes.NewReader(data)); err == nil {
		return sectionsFromPE(f), nil
	}
	return nil, bundleerr.New(bundleerr.InvalidArgument, "input is not a recognized ELF, Mach-O, or PE object file")
}

func sectionsFromELF(f *elf.File) []objSection {
	var secs []objSection
	for _, s := range f.Sections {
		data, err := s.Data()
		if err != nil {
			continue
		}
		secs = append(secs, objSection{name: s.Name, data: data})
	}
	return secs
}

func sectionsFromMachO(f *macho.File) []objSection {
	var secs []objSection
	for _, s := range f.Sections {
		data, err := s.Data()
		if err != nil {
			continue
		}
		secs = append(secs, objSection{name: s.Name, data: data})
	}
	return secs
}

func sectionsFromPE(f *pe.File) []objSection {
	var secs []objSection
	for _, s := range f.Sections {
		data, err := s.Data()
		if err != nil {
			continue
		}
		secs = append(secs, objSection{name: s.Name, data: data})
	}
	return secs
}

// IsObjectFile reports whether data parses as a recognized native object
// file, per the dispatch rule in §6.
func IsObjectFile(data []byte) bool {
	_, err := readObjectSections(data)
	return err == nil
}

// objBundle is one bundle discovered in an object container's section
// table, or the single synthesized host bundle.
type objBundle struct {
	id       string
	isHost   bool
	sectData []byte
}

// ObjectContainer implements Container by reading sections of a native
// object file directly, and by delegating writes to an external
// section-injection tool (§4.5).
type ObjectContainer struct {
	ObjcopyPath           string
	Timeout               time.Duration
	PrintExternalCommands bool
	Stderr                io.Writer

	// HostID is the bundle identifier of the host target, used to
	// substitute the zero-byte placeholder for that entry's section
	// (§4.5's "For the host input itself..." rule).
	HostID string

	hostObject []byte
	bundles    []objBundle
	cursor     int

	// write-side accumulated inputs, flushed to the external tool by
	// Flush once every entry has been staged (mirrors §9's note that
	// the object writer's real work happens on the final entry).
	pendingAdds  []pendingAdd
	currentWrite string
	writeGuard   *tempFileGuard
}

type pendingAdd struct {
	id   string
	path string
}

// NewObjectContainer constructs an ObjectContainer. stderr receives the
// quoted dry-run command when printExternalCommands is set; it defaults
// to os.Stderr if nil.
func NewObjectContainer(objcopyPath string, timeout time.Duration, printExternalCommands bool, stderr io.Writer) *ObjectContainer {
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ObjectContainer{
		ObjcopyPath:           objcopyPath,
		Timeout:               timeout,
		PrintExternalCommands: printExternalCommands,
		Stderr:                stderr,
	}
}

// ReadHeader parses the section table and identifies bundles whose name
// begins with Magic. A section containing exactly one zero byte is the
// host placeholder: its bundle's payload is the entire input object,
// not the section's own contents.
func (c *ObjectContainer) ReadHeader(input io.ReaderAt, size int64) error {
	data := make([]byte, size)
	if _, err := input.ReadAt(data, 0); err != nil && err != io.EOF {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to read object file", err)
	}

	sections, err := readObjectSections(data)
	if err != nil {
		return err
	}

	c.hostObject = data
	c.bundles = nil
	c.cursor = 0

	for _, s := range sections {
		if len(s.name) <= len(Magic) || s.name[:len(Magic)] != Magic {
			continue
		}
		id := s.name[len(Magic):]
		isHost := len(s.data) == 1 && s.data[0] == 0
		c.bundles = append(c.bundles, objBundle{id: id, isHost: isHost, sectData: s.data})
	}
	return nil
}

// ReadBundleStart returns the next bundle's identifier.
func (c *ObjectContainer) ReadBundleStart() (string, bool, error) {
	if c.cursor >= len(c.bundles) {
		return "", false, nil
	}
	return c.bundles[c.cursor].id, true, nil
}

// ReadBundle copies the current bundle's payload. For the host
// placeholder bundle, the payload is the entire input object file.
func (c *ObjectContainer) ReadBundle(sink io.Writer) error {
	if c.cursor >= len(c.bundles) {
		return bundleerr.New(bundleerr.InvalidArgument, "ReadBundle called with no current bundle")
	}
	b := c.bundles[c.cursor]
	payload := b.sectData
	if b.isHost {
		payload = c.hostObject
	}
	if _, err := sink.Write(payload); err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, "", "failed to write bundle payload", err)
	}
	return nil
}

// ReadBundleEnd advances to the next section-table entry.
func (c *ObjectContainer) ReadBundleEnd() error {
	c.cursor++
	return nil
}

// WriteHeader resets the accumulated add-section list; the object
// writer performs all real work in Flush, per §9's note on
// NumberOfProcessedInputs triggering the objcopy invocation only on
// the final entry.
func (c *ObjectContainer) WriteHeader(sink io.WriteSeeker, ids []string, sizes []uint64) error {
	c.pendingAdds = nil
	if c.writeGuard != nil {
		c.writeGuard.cleanup()
	}
	c.writeGuard = newTempFileGuard()
	return nil
}

// WriteBundleStart remembers which bundle id is about to be written.
func (c *ObjectContainer) WriteBundleStart(sink io.WriteSeeker, id string) error {
	c.currentWrite = id
	return nil
}

// WriteBundle stages input to a scope-owned temporary file; the host
// entry is substituted with a single zero byte, per §4.5 — the real
// host object flows through Flush's hostObjectPath argument instead.
func (c *ObjectContainer) WriteBundle(sink io.WriteSeeker, input io.Reader) error {
	tmp, err := c.writeGuard.create("obundle-add-*")
	if err != nil {
		return err
	}

	if c.currentWrite == c.HostID {
		_, err = tmp.Write([]byte{0})
	} else {
		_, err = io.Copy(tmp, input)
	}
	if err != nil {
		tmp.Close()
		return bundleerr.Wrap(bundleerr.FileIO, tmp.Name(), "failed to stage bundle input", err)
	}
	tmp.Close()

	c.pendingAdds = append(c.pendingAdds, pendingAdd{id: c.currentWrite, path: tmp.Name()})
	return nil
}

// WriteBundleEnd is a no-op; Flush performs the deferred objcopy
// invocation once every bundle has been staged.
func (c *ObjectContainer) WriteBundleEnd(sink io.WriteSeeker, id string) error {
	return nil
}

// Flush performs the deferred objcopy invocation (§4.5's write path),
// given the real host object path and the final output path. Every
// staged temporary file is removed on return, on success or failure.
func (c *ObjectContainer) Flush(ctx context.Context, hostObjectPath, outputPath string) error {
	defer func() {
		if c.writeGuard != nil {
			c.writeGuard.cleanup()
		}
	}()

	argv := make([]string, 0, len(c.pendingAdds)*2+3)
	for _, add := range c.pendingAdds {
		sectionName := Magic + add.id
		argv = append(argv,
			fmt.Sprintf("--add-section=%s=%s", sectionName, add.path),
			fmt.Sprintf("--set-section-flags=%s=readonly,exclude", sectionName),
		)
	}
	argv = append(argv, "--", hostObjectPath, outputPath)

	if c.PrintExternalCommands {
		log.Default().Warn("dry run: not invoking external tool", "tool", c.ObjcopyPath)
		fmt.Fprintln(c.Stderr, procexec.QuotedCommand(c.ObjcopyPath, argv))
		return nil
	}

	_, err := procexec.Run(ctx, c.ObjcopyPath, argv, c.Timeout)
	return err
}

// tempFileGuard owns a set of temporary files and unconditionally
// removes them on cleanup, matching §5's scoped-ownership requirement.
type tempFileGuard struct {
	paths []string
}

func newTempFileGuard() *tempFileGuard {
	return &tempFileGuard{}
}

func (g *tempFileGuard) create(pattern string) (*os.File, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, bundleerr.Wrap(bundleerr.FileIO, "", "failed to create temporary file", err)
	}
	g.paths = append(g.paths, f.Name())
	return f, nil
}

func (g *tempFileGuard) cleanup() {
	for _, p := range g.paths {
		os.Remove(p)
	}
}
