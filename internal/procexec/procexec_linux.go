//go:build linux

package procexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr puts the external tool in its own process group and asks
// the kernel to SIGKILL it if this process dies first, so a killed
// obundle invocation never leaves an orphaned objcopy-equivalent running.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}
