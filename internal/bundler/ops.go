package bundler

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/container"
	"github.com/obundle/obundle/internal/log"
	"github.com/obundle/obundle/internal/targetid"
)

// containerOptions builds the container.Options a Config implies.
func containerOptions(c Config, hostID string) container.Options {
	return container.Options{
		Alignment:             c.BundleAlignment,
		ObjcopyPath:           c.ObjcopyPath,
		ExternalToolTimeout:   c.ExternalToolTimeout,
		PrintExternalCommands: c.PrintExternalCommands,
		Stderr:                os.Stderr,
		HostID:                hostID,
	}
}

// parseTargets parses every entry of names as a TargetID.
func parseTargets(names []string) ([]targetid.TargetID, error) {
	ids := make([]targetid.TargetID, len(names))
	for i, name := range names {
		id, err := targetid.Parse(name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Bundle implements §4.6's Bundle operation: select a container from
// FileType, write the header, then emit each input as a named bundle in
// target-name order.
func Bundle(ctx context.Context, c Config) error {
	if err := ValidateConfig(c, true); err != nil {
		return err
	}

	ids, err := parseTargets(c.TargetNames)
	if err != nil {
		return err
	}
	if dup := findDuplicateTriple(ids); dup != "" {
		return bundleerr.New(bundleerr.DuplicateBundle, "two inputs share a triple: "+dup)
	}

	inputs := make([][]byte, len(c.InputPaths))
	for i, p := range c.InputPaths {
		data, err := slurp(p)
		if err != nil {
			return err
		}
		inputs[i] = data
	}

	var hostID string
	if c.HasHostIndex() {
		hostID = c.TargetNames[c.HostInputIndex]
	}

	sniff := inputs[0]
	if c.HasHostIndex() {
		sniff = inputs[c.HostInputIndex]
	}
	cont, err := container.ForFileTypeWithOptions(c.FileType, sniff, containerOptions(c, hostID))
	if err != nil {
		return err
	}

	outPath := c.OutputPaths[0]
	sink, err := os.Create(outPath)
	if err != nil {
		return bundleerr.Wrap(bundleerr.FileIO, outPath, "failed to create output", err)
	}
	defer sink.Close()

	sizes := make([]uint64, len(inputs))
	for i, data := range inputs {
		sizes[i] = uint64(len(data))
	}

	log.Default().Info("bundle: writing header", "targets", len(c.TargetNames), "fileType", c.FileType)
	if err := cont.WriteHeader(sink, c.TargetNames, sizes); err != nil {
		return err
	}

	for i, name := range c.TargetNames {
		if err := cont.WriteBundleStart(sink, name); err != nil {
			return err
		}
		if err := cont.WriteBundle(sink, bytes.NewReader(inputs[i])); err != nil {
			return err
		}
		if err := cont.WriteBundleEnd(sink, name); err != nil {
			return err
		}
	}

	if objc, ok := cont.(*container.ObjectContainer); ok {
		hostPath := c.InputPaths[0]
		if c.HasHostIndex() {
			hostPath = c.InputPaths[c.HostInputIndex]
		}
		if err := objc.Flush(ctx, hostPath, outPath); err != nil {
			return err
		}
	}

	return nil
}

func findDuplicateTriple(ids []targetid.TargetID) string {
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if ids[i].Equal(ids[j]) {
				return ids[i].String()
			}
		}
	}
	return ""
}

// worklistEntry is one (requested target, output path) pair still
// awaiting a matching bundle during Unbundle.
type worklistEntry struct {
	name   string
	target targetid.TargetID
	output string
}

// Unbundle implements §4.6's Unbundle operation and its post-processing
// rules, including the raw-host-artifact fallback (rule 2) and the
// missing-bundle/missing-host error surfacing (rules 1 and 3).
func Unbundle(ctx context.Context, c Config) error {
	if err := ValidateConfig(c, false); err != nil {
		return err
	}

	ids, err := parseTargets(c.TargetNames)
	if err != nil {
		return err
	}

	worklist := make([]worklistEntry, len(c.TargetNames))
	for i, name := range c.TargetNames {
		worklist[i] = worklistEntry{name: name, target: ids[i], output: c.OutputPaths[i]}
	}

	inputPath := c.InputPaths[0]
	data, err := slurp(inputPath)
	if err != nil {
		return err
	}

	var hostID string
	if c.HasHostIndex() {
		hostID = c.TargetNames[c.HostInputIndex]
	}
	cont, err := container.ForFileTypeWithOptions(c.FileType, data, containerOptions(c, hostID))
	if err != nil {
		return err
	}

	if err := cont.ReadHeader(bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}

	hostObserved := false
	matchedCount := 0

	for {
		bundleIDText, ok, err := cont.ReadBundleStart()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		bundleID, err := targetid.Parse(bundleIDText)
		if err == nil {
			idx := findCompatible(worklist, bundleID, c.HipOpenmpCompatible)
			if idx >= 0 {
				entry := worklist[idx]
				if err := extractBundleTo(cont, entry.output); err != nil {
					return err
				}
				if targetid.HasHostKind(bundleID.Kind) {
					hostObserved = true
				}
				worklist = append(worklist[:idx], worklist[idx+1:]...)
				matchedCount++
			}
		}

		if err := cont.ReadBundleEnd(); err != nil {
			return err
		}
	}

	if matchedCount == 0 {
		log.Default().Info("unbundle: no recognized bundles, treating input as raw host artifact", "input", inputPath)
		return rawHostFallback(c, ids, data)
	}

	if c.HasHostIndex() && !hostObserved && !c.AllowMissingBundles {
		return bundleerr.New(bundleerr.MissingBundle, "cannot find host bundle")
	}

	if !c.AllowMissingBundles && len(worklist) > 0 {
		names := make([]string, len(worklist))
		for i, e := range worklist {
			names[i] = e.name
		}
		sort.Strings(names)
		return bundleerr.New(bundleerr.MissingBundle, "missing bundle(s) for target(s): "+strings.Join(names, ", "))
	}

	for _, e := range worklist {
		if err := writeOutput(e.output, nil); err != nil {
			return err
		}
	}

	return nil
}

// rawHostFallback implements §4.6 rule 2: every host-kind target gets a
// byte-identical copy of the input, every other target gets an empty
// output file.
func rawHostFallback(c Config, ids []targetid.TargetID, data []byte) error {
	for i, id := range ids {
		out := c.OutputPaths[i]
		if targetid.HasHostKind(id.Kind) {
			if err := writeOutput(out, data); err != nil {
				return err
			}
		} else {
			if err := writeOutput(out, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// findCompatible returns the index of the first worklist entry whose
// target is compatible with bundleID, or -1.
func findCompatible(worklist []worklistEntry, bundleID targetid.TargetID, hipOpenmpCompatible bool) int {
	for i, e := range worklist {
		if bundleID.Compatible(e.target, hipOpenmpCompatible) {
			return i
		}
	}
	return -1
}

// extractBundleTo copies the container's current bundle payload to path.
func extractBundleTo(cont container.Container, path string) error {
	var buf bytes.Buffer
	if err := cont.ReadBundle(&buf); err != nil {
		return err
	}
	return writeOutput(path, buf.Bytes())
}

// List implements §4.6's List operation: delegate to ListBundleIds.
func List(c Config) ([]string, error) {
	data, err := slurp(c.InputPaths[0])
	if err != nil {
		return nil, err
	}
	cont, err := container.ForFileTypeWithOptions(c.FileType, data, containerOptions(c, ""))
	if err != nil {
		return nil, err
	}
	if err := cont.ReadHeader(bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, err
	}
	return container.ListBundleIDs(cont)
}

// CheckSection implements the supplemented checking-mode operation: does
// the input contain a bundle section compatible with target, without
// extracting it.
func CheckSection(c Config, target string, hipOpenmpCompatible bool) (bool, error) {
	requested, err := targetid.Parse(target)
	if err != nil {
		return false, err
	}
	ids, err := List(c)
	if err != nil {
		return false, err
	}
	for _, idText := range ids {
		id, err := targetid.Parse(idText)
		if err != nil {
			continue
		}
		if id.Compatible(requested, hipOpenmpCompatible) {
			return true, nil
		}
	}
	return false, nil
}

// CompatibilityEntry annotates one bundle id found in a container with
// the subset of requested targets it would satisfy, for the
// supplemented "list with compatibility" operation.
type CompatibilityEntry struct {
	ID             string
	CompatibleWith []string
}

// ListWithCompatibility implements the supplemented combined
// list+compatibility-check operation: for each bundle id found, which
// of requestedTargets it would match during an Unbundle.
func ListWithCompatibility(c Config, requestedTargets []string, hipOpenmpCompatible bool) ([]CompatibilityEntry, error) {
	ids, err := List(c)
	if err != nil {
		return nil, err
	}
	requested, err := parseTargets(requestedTargets)
	if err != nil {
		return nil, err
	}

	entries := make([]CompatibilityEntry, 0, len(ids))
	for _, idText := range ids {
		id, err := targetid.Parse(idText)
		if err != nil {
			entries = append(entries, CompatibilityEntry{ID: idText})
			continue
		}
		var matches []string
		for i, r := range requested {
			if id.Compatible(r, hipOpenmpCompatible) {
				matches = append(matches, requestedTargets[i])
			}
		}
		entries = append(entries, CompatibilityEntry{ID: idText, CompatibleWith: matches})
	}
	return entries, nil
}
