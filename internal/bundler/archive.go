package bundler

import (
	"bytes"
	"path"
	"strings"

	"github.com/obundle/obundle/internal/arformat"
	"github.com/obundle/obundle/internal/bundleerr"
	"github.com/obundle/obundle/internal/container"
	"github.com/obundle/obundle/internal/cudaarch"
	"github.com/obundle/obundle/internal/log"
	"github.com/obundle/obundle/internal/targetid"
)

// UnbundleArchive implements §4.6's archive-fan-out pipeline: the single
// input is itself an `ar` archive whose members are bundled objects.
// Every bundle entry found in every member is fanned out, by target
// compatibility, into a synthesized per-target archive; c.OutputPaths
// is positionally aligned with c.TargetNames as the destination for
// each target's archive.
func UnbundleArchive(c Config) error {
	if err := ValidateConfig(c, false); err != nil {
		return err
	}

	ids, err := parseTargets(c.TargetNames)
	if err != nil {
		return err
	}

	data, err := slurp(c.InputPaths[0])
	if err != nil {
		return err
	}

	members, err := arformat.ReadMembers(bytes.NewReader(data))
	if err != nil {
		return err
	}

	log.Default().Info("unbundle-archive: read archive", "members", len(members), "targets", len(c.TargetNames))

	accum := make([][]arformat.Member, len(c.TargetNames))

	for _, m := range members {
		if err := fanOutMember(m, ids, c.HipOpenmpCompatible, accum); err != nil {
			return err
		}
	}

	for i, name := range c.TargetNames {
		out := accum[i]
		if len(out) == 0 && !c.AllowMissingBundles {
			return bundleerr.New(bundleerr.MissingBundle, "no archive members matched target: "+name)
		}
		var buf bytes.Buffer
		if err := arformat.WriteArchive(&buf, out); err != nil {
			return err
		}
		if err := writeOutput(c.OutputPaths[i], buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// fanOutMember dispatches one archive member as a bundle container,
// walks its bundle entries, and appends a synthesized per-target member
// to accum for every requested target the entry satisfies. Host
// bundles are skipped, per §4.6.
func fanOutMember(m arformat.Member, requested []targetid.TargetID, hipOpenmpCompatible bool, accum [][]arformat.Member) error {
	cont, err := container.ForFileTypeWithOptions("o", m.Data, container.Options{Alignment: 1})
	if err != nil {
		return err
	}
	if err := cont.ReadHeader(bytes.NewReader(m.Data), int64(len(m.Data))); err != nil {
		return err
	}

	stem := strings.TrimSuffix(path.Base(m.Name), path.Ext(m.Name))
	ext := path.Ext(m.Name)

	for {
		idText, ok, err := cont.ReadBundleStart()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		id, parseErr := targetid.Parse(idText)
		if parseErr != nil {
			if err := cont.ReadBundleEnd(); err != nil {
				return err
			}
			continue
		}

		if targetid.HasHostKind(id.Kind) {
			if err := cont.ReadBundleEnd(); err != nil {
				return err
			}
			continue
		}

		var payload bytes.Buffer
		if err := cont.ReadBundle(&payload); err != nil {
			return err
		}
		if err := cont.ReadBundleEnd(); err != nil {
			return err
		}

		for i, r := range requested {
			if !id.Compatible(r, hipOpenmpCompatible) {
				continue
			}
			memberExt := cudaarch.DeviceExtension(id.Processor, ext)
			name := stem + "-" + sanitizeMemberName(id.String()) + memberExt
			accum[i] = append(accum[i], arformat.Member{Name: name, Data: append([]byte(nil), payload.Bytes()...)})
		}
	}

	return nil
}

// sanitizeMemberName replaces ":" with "_" in a bundle id so it can
// appear in a synthesized archive member name, per §4.6.
func sanitizeMemberName(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
