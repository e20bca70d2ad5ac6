package ssh

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// clientBinary is the external remote-shell client invoked for every phase.
const clientBinary = "ssh"

// Invocation is the observable outcome of one ssh client process: exit status,
// captured output, and whether the per-connection timeout expired. Launch
// failures land in Err; everything else is plain data for the caller to branch
// on.
type Invocation struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Err      error
}

// Runner spawns the external ssh client. The process abstraction is an
// interface so tests can substitute an instrumented fake.
type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) Invocation
}

// ExecRunner runs the system ssh binary through os/exec. Each process gets its
// own process group so cancellation kills the whole tree instead of leaking
// stragglers past the run.
type ExecRunner struct{}

// Run invokes ssh with args, bounded by timeout when positive and by ctx always.
func (ExecRunner) Run(ctx context.Context, args []string, timeout time.Duration) Invocation {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, clientBinary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	configureProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	inv := Invocation{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() != nil {
		inv.TimedOut = true
		inv.ExitCode = 124
		return inv
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			inv.ExitCode = exitErr.ExitCode()
		} else {
			inv.ExitCode = -1
			inv.Err = err
		}
	}

	return inv
}

// CheckClient verifies the ssh client binary is available before any task
// starts. A missing client is fatal to the whole run.
func CheckClient() error {
	if _, err := exec.LookPath(clientBinary); err != nil {
		return errors.New("SSH client is not installed")
	}
	return nil
}
