//go:build windows

package ssh

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {
	// No process groups on Windows; the plain kill below is the best we can do.
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
