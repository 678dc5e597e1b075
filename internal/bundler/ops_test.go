package bundler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/obundle/obundle/internal/bundleerr"
)

func writeTempInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", p, err)
	}
	return p
}

// TestBundleUnbundle_Scenario1_TwoTargetBinaryBundle exercises §8
// scenario 1 end to end through the operation layer.
func TestBundleUnbundle_Scenario1_TwoTargetBinaryBundle(t *testing.T) {
	dir := t.TempDir()
	hostData := bytes.Repeat([]byte{0xAA}, 16)
	gpuData := bytes.Repeat([]byte{0xBB}, 32)

	hostIn := writeTempInput(t, dir, "host.bc", hostData)
	gpuIn := writeTempInput(t, dir, "gpu.bc", gpuData)
	bundlePath := filepath.Join(dir, "out.bundle")

	cfg := Config{
		TargetNames:     []string{"host-x86_64-unknown-linux-gnu-", "hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:      []string{hostIn, gpuIn},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  0,
		FileType:        "bc",
		BundleAlignment: 4096,
	}

	if err := Bundle(context.Background(), cfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	hostOut := filepath.Join(dir, "host.out")
	gpuOut := filepath.Join(dir, "gpu.out")
	unCfg := Config{
		TargetNames: cfg.TargetNames,
		InputPaths:  []string{bundlePath},
		OutputPaths: []string{hostOut, gpuOut},
		FileType:    "bc",
	}
	if err := Unbundle(context.Background(), unCfg); err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}

	gotHost, err := os.ReadFile(hostOut)
	if err != nil {
		t.Fatalf("ReadFile(hostOut) error = %v", err)
	}
	if !bytes.Equal(gotHost, hostData) {
		t.Errorf("host output = %x, want %x", gotHost, hostData)
	}
	gotGPU, err := os.ReadFile(gpuOut)
	if err != nil {
		t.Fatalf("ReadFile(gpuOut) error = %v", err)
	}
	if !bytes.Equal(gotGPU, gpuData) {
		t.Errorf("gpu output = %x, want %x", gotGPU, gpuData)
	}
}

// TestUnbundle_OrderingIndependence covers §8 invariant 3: unbundle
// output does not depend on the order bundles appear in the container.
// The binary container's record order matches Bundle's target-name
// order, so the targets are requested in the reverse of that order and
// Unbundle must still match each bundle to its own output.
func TestUnbundle_OrderingIndependence(t *testing.T) {
	dir := t.TempDir()
	aData := []byte("aaaa")
	bData := []byte("bbbb")
	aIn := writeTempInput(t, dir, "a.bc", aData)
	bIn := writeTempInput(t, dir, "b.bc", bData)
	bundlePath := filepath.Join(dir, "out.bundle")

	// Bundle the openmp target first and the host target second.
	bundleCfg := Config{
		TargetNames:     []string{"openmp-amdgcn-amd-amdhsa-", "host-x86_64-unknown-linux-gnu-"},
		InputPaths:      []string{aIn, bIn},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  1,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	hostOut := filepath.Join(dir, "host.out")
	openmpOut := filepath.Join(dir, "openmp.out")
	unCfg := Config{
		// Requested in the reverse of the bundled order.
		TargetNames: []string{"host-x86_64-unknown-linux-gnu-", "openmp-amdgcn-amd-amdhsa-"},
		InputPaths:  []string{bundlePath},
		OutputPaths: []string{hostOut, openmpOut},
		FileType:    "bc",
	}
	if err := Unbundle(context.Background(), unCfg); err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}

	gotHost, _ := os.ReadFile(hostOut)
	if !bytes.Equal(gotHost, bData) {
		t.Errorf("host output = %q, want %q", gotHost, bData)
	}
	gotOpenmp, _ := os.ReadFile(openmpOut)
	if !bytes.Equal(gotOpenmp, aData) {
		t.Errorf("openmp output = %q, want %q", gotOpenmp, aData)
	}
}

// TestUnbundle_CrossKindCompatibility covers §8 scenario 2.
func TestUnbundle_CrossKindCompatibility(t *testing.T) {
	dir := t.TempDir()
	data := []byte("payload")
	in := writeTempInput(t, dir, "in.bc", data)
	bundlePath := filepath.Join(dir, "out.bundle")

	bundleCfg := Config{
		TargetNames:     []string{"openmp-amdgcn-amd-amdhsa-"},
		InputPaths:      []string{in},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  NoHostIndex,
		AllowNoHost:     true,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	out := filepath.Join(dir, "out.hip")
	unCfg := Config{
		TargetNames:         []string{"hip-amdgcn-amd-amdhsa-"},
		InputPaths:          []string{bundlePath},
		OutputPaths:         []string{out},
		HostInputIndex:      NoHostIndex,
		FileType:            "bc",
		HipOpenmpCompatible: true,
	}
	if err := Unbundle(context.Background(), unCfg); err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}
	got, _ := os.ReadFile(out)
	if !bytes.Equal(got, data) {
		t.Errorf("output = %q, want %q", got, data)
	}
}

// TestUnbundle_MissingBundleHostFallback covers §8 scenario 6 and
// invariant 6.
func TestUnbundle_MissingBundleHostFallback(t *testing.T) {
	dir := t.TempDir()
	plain := []byte("just some plain text, not a bundle at all")
	in := writeTempInput(t, dir, "plain.ll", plain)

	hostOut := filepath.Join(dir, "host.out")
	gpuOut := filepath.Join(dir, "gpu.out")
	cfg := Config{
		TargetNames:    []string{"host-x86_64-unknown-linux-gnu-", "hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:     []string{in},
		OutputPaths:    []string{hostOut, gpuOut},
		HostInputIndex: 0,
		FileType:       "ll",
	}
	if err := Unbundle(context.Background(), cfg); err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}

	gotHost, err := os.ReadFile(hostOut)
	if err != nil {
		t.Fatalf("ReadFile(hostOut) error = %v", err)
	}
	if !bytes.Equal(gotHost, plain) {
		t.Errorf("host output = %q, want byte-identical copy of input %q", gotHost, plain)
	}

	gotGPU, err := os.ReadFile(gpuOut)
	if err != nil {
		t.Fatalf("ReadFile(gpuOut) error = %v", err)
	}
	if len(gotGPU) != 0 {
		t.Errorf("gpu output = %q, want empty", gotGPU)
	}
}

// TestUnbundle_MissingHostBundle_Errors checks that a container missing
// only the (specifically requested) host bundle, with recognized
// non-host bundles present, surfaces the host-specific error.
func TestUnbundle_MissingHostBundle_Errors(t *testing.T) {
	dir := t.TempDir()
	data := []byte("gpu-only")
	in := writeTempInput(t, dir, "gpu.bc", data)
	bundlePath := filepath.Join(dir, "out.bundle")

	bundleCfg := Config{
		TargetNames:     []string{"hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:      []string{in},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  NoHostIndex,
		AllowNoHost:     true,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	hostOut := filepath.Join(dir, "host.out")
	gpuOut := filepath.Join(dir, "gpu.out")
	unCfg := Config{
		TargetNames:    []string{"host-x86_64-unknown-linux-gnu-", "hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:     []string{bundlePath},
		OutputPaths:    []string{hostOut, gpuOut},
		HostInputIndex: 0,
		FileType:       "bc",
	}
	err := Unbundle(context.Background(), unCfg)
	if err == nil {
		t.Fatal("Unbundle() error = nil, want a missing-host error")
	}
	var berr *bundleerr.Error
	if !errors.As(err, &berr) || berr.Kind != bundleerr.MissingBundle {
		t.Errorf("Unbundle() error = %v, want a bundleerr.MissingBundle", err)
	}
}

// TestUnbundle_AllowMissingBundles checks that setting
// AllowMissingBundles turns a missing target into an empty output
// instead of an error.
func TestUnbundle_AllowMissingBundles(t *testing.T) {
	dir := t.TempDir()
	data := []byte("host-only")
	in := writeTempInput(t, dir, "host.bc", data)
	bundlePath := filepath.Join(dir, "out.bundle")

	bundleCfg := Config{
		TargetNames:     []string{"host-x86_64-unknown-linux-gnu-"},
		InputPaths:      []string{in},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  0,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	hostOut := filepath.Join(dir, "host.out")
	gpuOut := filepath.Join(dir, "gpu.out")
	unCfg := Config{
		TargetNames:         []string{"host-x86_64-unknown-linux-gnu-", "hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:          []string{bundlePath},
		OutputPaths:         []string{hostOut, gpuOut},
		HostInputIndex:      0,
		FileType:            "bc",
		AllowMissingBundles: true,
	}
	if err := Unbundle(context.Background(), unCfg); err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}
	gotGPU, err := os.ReadFile(gpuOut)
	if err != nil {
		t.Fatalf("ReadFile(gpuOut) error = %v", err)
	}
	if len(gotGPU) != 0 {
		t.Errorf("gpu output = %q, want empty", gotGPU)
	}
}

// TestList_Idempotence covers §8 invariant 5: list_bundle_ids over the
// output of Bundle lists targets in input order.
func TestList_Idempotence(t *testing.T) {
	dir := t.TempDir()
	in1 := writeTempInput(t, dir, "a.bc", []byte("a"))
	in2 := writeTempInput(t, dir, "b.bc", []byte("b"))
	bundlePath := filepath.Join(dir, "out.bundle")

	names := []string{"host-x86_64-unknown-linux-gnu-", "hip-amdgcn-amd-amdhsa--gfx906"}
	bundleCfg := Config{
		TargetNames:     names,
		InputPaths:      []string{in1, in2},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  0,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	got, err := List(Config{InputPaths: []string{bundlePath}, FileType: "bc"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("List() = %v, want %v", got, names)
	}
	for i, want := range names {
		if got[i] != want {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want)
		}
	}
}

// TestCheckSection covers the supplemented CheckSection operation.
func TestCheckSection(t *testing.T) {
	dir := t.TempDir()
	in := writeTempInput(t, dir, "a.bc", []byte("a"))
	bundlePath := filepath.Join(dir, "out.bundle")

	bundleCfg := Config{
		TargetNames:     []string{"hip-amdgcn-amd-amdhsa--gfx906"},
		InputPaths:      []string{in},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  NoHostIndex,
		AllowNoHost:     true,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	c := Config{InputPaths: []string{bundlePath}, FileType: "bc"}

	ok, err := CheckSection(c, "hip-amdgcn-amd-amdhsa--gfx906", false)
	if err != nil {
		t.Fatalf("CheckSection() error = %v", err)
	}
	if !ok {
		t.Error("CheckSection() = false, want true for a present target")
	}

	ok, err = CheckSection(c, "hip-amdgcn-amd-amdhsa--gfx908", false)
	if err != nil {
		t.Fatalf("CheckSection() error = %v", err)
	}
	if ok {
		t.Error("CheckSection() = true, want false for an incompatible processor")
	}
}

// TestListWithCompatibility covers the supplemented combined
// list+compatibility operation.
func TestListWithCompatibility(t *testing.T) {
	dir := t.TempDir()
	in := writeTempInput(t, dir, "a.bc", []byte("a"))
	bundlePath := filepath.Join(dir, "out.bundle")

	bundleCfg := Config{
		TargetNames:     []string{"hip-amdgcn-amd-amdhsa--gfx906:xnack+"},
		InputPaths:      []string{in},
		OutputPaths:     []string{bundlePath},
		HostInputIndex:  NoHostIndex,
		AllowNoHost:     true,
		FileType:        "bc",
		BundleAlignment: 1,
	}
	if err := Bundle(context.Background(), bundleCfg); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	c := Config{InputPaths: []string{bundlePath}, FileType: "bc"}
	entries, err := ListWithCompatibility(c, []string{
		"hip-amdgcn-amd-amdhsa--gfx906",
		"hip-amdgcn-amd-amdhsa--gfx906:xnack-",
	}, false)
	if err != nil {
		t.Fatalf("ListWithCompatibility() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ListWithCompatibility() = %d entries, want 1", len(entries))
	}
	if len(entries[0].CompatibleWith) != 1 || entries[0].CompatibleWith[0] != "hip-amdgcn-amd-amdhsa--gfx906" {
		t.Errorf("CompatibleWith = %v, want exactly the don't-care request", entries[0].CompatibleWith)
	}
}

// TestValidateConfig_DuplicateTargetNames checks the supplemented
// upfront validation.
func TestValidateConfig_DuplicateTargetNames(t *testing.T) {
	c := Config{
		TargetNames: []string{"host-x86_64-unknown-linux-gnu-", "host-x86_64-unknown-linux-gnu-"},
		InputPaths:  []string{"a", "b"},
		OutputPaths: []string{"o"},
	}
	err := ValidateConfig(c, true)
	if err == nil {
		t.Fatal("ValidateConfig() error = nil, want duplicate-name error")
	}
	var berr *bundleerr.Error
	if !errors.As(err, &berr) || berr.Kind != bundleerr.InvalidArgument {
		t.Errorf("ValidateConfig() error = %v, want InvalidArgument", err)
	}
}

// TestValidateConfig_BundleRequiresSingleOutput guards Bundle's
// unconditional use of OutputPaths[0] against a malformed recipe.
func TestValidateConfig_BundleRequiresSingleOutput(t *testing.T) {
	c := Config{
		TargetNames: []string{"host-x86_64-unknown-linux-gnu-"},
		InputPaths:  []string{"a"},
		OutputPaths: []string{},
	}
	err := ValidateConfig(c, true)
	if err == nil {
		t.Fatal("ValidateConfig() error = nil, want single-output error")
	}
	var berr *bundleerr.Error
	if !errors.As(err, &berr) || berr.Kind != bundleerr.InvalidArgument {
		t.Errorf("ValidateConfig() error = %v, want InvalidArgument", err)
	}
}
