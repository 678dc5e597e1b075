// Package procexec runs the external section-injection tool
// (objcopy-equivalent, §4.5) synchronously and reports its exit code.
// This is the "process executor" collaborator the top-level spec
// describes (§6): exec_and_wait(path, argv) -> exit_code.
package procexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/obundle/obundle/internal/bundleerr"
)

// Result captures the outcome of a synchronous external-tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run executes path with argv, inheriting the parent's standard streams
// per §5 ("Standard streams are inherited from the parent") while also
// capturing output for error reporting. The command is killed if it does
// not complete within timeout.
//
// Returns a *bundleerr.Error of kind ExternalToolFailure if the tool
// cannot be started, exits non-zero, or is killed for exceeding timeout.
func Run(ctx context.Context, path string, argv []string, timeout time.Duration) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, path, argv...)
	setProcAttr(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &teeWriter{os.Stdout, &stdout}
	cmd.Stderr = &teeWriter{os.Stderr, &stderr}

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return result, bundleerr.Wrap(bundleerr.ExternalToolFailure, path,
				fmt.Sprintf("timed out after %s", timeout), err)
		}
		if cmd.ProcessState == nil {
			return result, bundleerr.Wrap(bundleerr.ExternalToolFailure, path,
				"failed to start tool", err)
		}
		return result, bundleerr.Wrap(bundleerr.ExternalToolFailure, path,
			"tool exited non-zero", err)
	}

	return result, nil
}

// QuotedCommand renders path and argv as a shell-quotable string for the
// dry-run diagnostic path (§4.5 print_external_commands).
func QuotedCommand(path string, argv []string) string {
	parts := make([]string, 0, len(argv)+1)
	parts = append(parts, quote(path))
	for _, a := range argv {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\$") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// teeWriter writes to both the parent's inherited stream and a capture
// buffer, so Run can both honor §5's "inherited standard streams" and
// still surface tool output in a returned error.
type teeWriter struct {
	inherit *os.File
	capture *bytes.Buffer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.capture.Write(p)
	return w.inherit.Write(p)
}
