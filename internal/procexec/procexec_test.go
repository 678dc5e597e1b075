package procexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obundle/obundle/internal/bundleerr"
)

func TestRun_Success(t *testing.T) {
	result, err := Run(context.Background(), "/bin/echo", []string{"hello"}, time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "hello\n")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	result, err := Run(context.Background(), "/bin/false", nil, time.Second)
	if err == nil {
		t.Fatal("Run() error = nil, want ExternalToolFailure")
	}
	var bundleErr *bundleerr.Error
	if !errors.As(err, &bundleErr) {
		t.Fatalf("error is not *bundleerr.Error: %v", err)
	}
	if bundleErr.Kind != bundleerr.ExternalToolFailure {
		t.Errorf("Kind = %v, want ExternalToolFailure", bundleErr.Kind)
	}
	if result.ExitCode == 0 {
		t.Errorf("ExitCode = 0, want nonzero")
	}
}

func TestRun_MissingBinary(t *testing.T) {
	_, err := Run(context.Background(), "/no/such/tool-obundle-test", nil, time.Second)
	if err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	var bundleErr *bundleerr.Error
	if !errors.As(err, &bundleErr) {
		t.Fatalf("error is not *bundleerr.Error: %v", err)
	}
	if bundleErr.Kind != bundleerr.ExternalToolFailure {
		t.Errorf("Kind = %v, want ExternalToolFailure", bundleErr.Kind)
	}
}

func TestRun_Timeout(t *testing.T) {
	_, err := Run(context.Background(), "/bin/sleep", []string{"5"}, 20*time.Millisecond)
	if err == nil {
		t.Fatal("Run() error = nil, want timeout failure")
	}
	var bundleErr *bundleerr.Error
	if !errors.As(err, &bundleErr) {
		t.Fatalf("error is not *bundleerr.Error: %v", err)
	}
	if bundleErr.Kind != bundleerr.ExternalToolFailure {
		t.Errorf("Kind = %v, want ExternalToolFailure", bundleErr.Kind)
	}
}

func TestQuotedCommand(t *testing.T) {
	tests := []struct {
		name string
		path string
		argv []string
		want string
	}{
		{"simple", "objcopy", []string{"--add-section", "a.o"}, "objcopy --add-section a.o"},
		{"needs quoting", "objcopy", []string{"--add-section=foo bar"}, "objcopy '--add-section=foo bar'"},
		{"empty arg", "objcopy", []string{""}, "objcopy ''"},
		{"embedded quote", "objcopy", []string{"it's"}, `objcopy 'it'\''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuotedCommand(tt.path, tt.argv); got != tt.want {
				t.Errorf("QuotedCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}
