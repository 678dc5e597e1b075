package container

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestTextContainer_Scenario_TwoTargets(t *testing.T) {
	c := NewTextContainer(";")
	sink := &seekBuf{}

	ids := []string{"T1", "T2"}
	payloads := []string{"x\n", "y\n"}

	if err := c.WriteHeader(sink, ids, nil); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	for i, id := range ids {
		if err := c.WriteBundleStart(sink, id); err != nil {
			t.Fatalf("WriteBundleStart() error = %v", err)
		}
		if err := c.WriteBundle(sink, strings.NewReader(payloads[i])); err != nil {
			t.Fatalf("WriteBundle() error = %v", err)
		}
		if err := c.WriteBundleEnd(sink, id); err != nil {
			t.Fatalf("WriteBundleEnd() error = %v", err)
		}
	}

	out := string(sink.buf)
	for _, marker := range []string{
		";  __CLANG_OFFLOAD_BUNDLE__ __START__ T1\n",
		";  __CLANG_OFFLOAD_BUNDLE__ __END__ T1\n",
		";  __CLANG_OFFLOAD_BUNDLE__ __START__ T2\n",
		";  __CLANG_OFFLOAD_BUNDLE__ __END__ T2\n",
	} {
		if !strings.Contains(out, marker) {
			t.Errorf("output missing marker %q\nfull output: %q", marker, out)
		}
	}

	// Markers must appear in order.
	idxStart1 := strings.Index(out, "__START__ T1")
	idxEnd1 := strings.Index(out, "__END__ T1")
	idxStart2 := strings.Index(out, "__START__ T2")
	idxEnd2 := strings.Index(out, "__END__ T2")
	if !(idxStart1 < idxEnd1 && idxEnd1 < idxStart2 && idxStart2 < idxEnd2) {
		t.Errorf("markers out of order: %d %d %d %d", idxStart1, idxEnd1, idxStart2, idxEnd2)
	}
}

func TestTextContainer_RoundTrip(t *testing.T) {
	c := NewTextContainer(";")
	sink := &seekBuf{}
	ids := []string{"T1", "T2"}
	payloads := []string{"x\n", "y\n"}

	for i, id := range ids {
		c.WriteBundleStart(sink, id)
		c.WriteBundle(sink, strings.NewReader(payloads[i]))
		c.WriteBundleEnd(sink, id)
	}

	reader := NewTextContainer(";")
	r := bytes.NewReader(sink.buf)
	if err := reader.ReadHeader(r, int64(r.Len())); err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}

	for i, wantID := range ids {
		id, ok, err := reader.ReadBundleStart()
		if err != nil {
			t.Fatalf("ReadBundleStart() error = %v", err)
		}
		if !ok {
			t.Fatalf("ReadBundleStart() ok = false at index %d", i)
		}
		if id != wantID {
			t.Errorf("id = %q, want %q", id, wantID)
		}
		var buf bytes.Buffer
		if err := reader.ReadBundle(&buf); err != nil {
			t.Fatalf("ReadBundle() error = %v", err)
		}
		if buf.String() != payloads[i] {
			t.Errorf("payload = %q, want %q", buf.String(), payloads[i])
		}
		if err := reader.ReadBundleEnd(); err != nil {
			t.Fatalf("ReadBundleEnd() error = %v", err)
		}
	}

	_, ok, err := reader.ReadBundleStart()
	if err != nil {
		t.Fatalf("ReadBundleStart() error = %v", err)
	}
	if ok {
		t.Error("ReadBundleStart() ok = true after last bundle, want false")
	}
}

func TestTextContainer_MissingEndMarker_Tolerated(t *testing.T) {
	c := NewTextContainer(";")
	sink := &seekBuf{}
	c.WriteBundleStart(sink, "T1")
	io.WriteString(sink, "payload without end marker")

	reader := NewTextContainer(";")
	r := bytes.NewReader(sink.buf)
	if err := reader.ReadHeader(r, int64(r.Len())); err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	id, ok, err := reader.ReadBundleStart()
	if err != nil || !ok {
		t.Fatalf("ReadBundleStart() = (%q, %v, %v)", id, ok, err)
	}
	var buf bytes.Buffer
	if err := reader.ReadBundle(&buf); err != nil {
		t.Fatalf("ReadBundle() error = %v", err)
	}
	if buf.String() != "payload without end marker" {
		t.Errorf("payload = %q", buf.String())
	}
}

func TestCommentPrefixForFileType(t *testing.T) {
	tests := []struct {
		fileType string
		want     string
		ok       bool
	}{
		{"i", "//", true},
		{"ii", "//", true},
		{"cui", "//", true},
		{"hipi", "//", true},
		{"d", "#", true},
		{"ll", ";", true},
		{"s", "#", true},
		{"f95", "!", true},
		{"o", "", false},
		{"bc", "", false},
	}
	for _, tt := range tests {
		got, ok := commentPrefixForFileType(tt.fileType)
		if got != tt.want || ok != tt.ok {
			t.Errorf("commentPrefixForFileType(%q) = (%q, %v), want (%q, %v)", tt.fileType, got, ok, tt.want, tt.ok)
		}
	}
}
