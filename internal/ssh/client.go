// Package ssh executes tasks against the external ssh client in two phases:
// a reachability probe followed by the real command.
package ssh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/UMD-UROC/ssh-operations-hub/internal/logging"
	"github.com/UMD-UROC/ssh-operations-hub/internal/task"
)

// Options holds the per-invocation parameters the client needs.
type Options struct {
	SSHOptions     []string      // Protocol-client flags, passed verbatim before the destination
	ConnectTimeout time.Duration // Bound on each individual client invocation
}

// Result is the single outcome produced for a task. Message is the complete,
// already-labeled block handed to the output sink; one host's block is emitted
// atomically relative to other hosts.
type Result struct {
	Task     task.Task
	Success  bool
	Message  string
	Duration time.Duration
}

// Label returns the attribution tag for this result's host.
func (r Result) Label() string {
	return r.Task.Host.Label()
}

// Client runs tasks against the remote-shell binary.
type Client struct {
	runner Runner
	logger *logging.Logger
}

// NewClient creates a client backed by the system ssh binary.
func NewClient(logger *logging.Logger) *Client {
	return &Client{runner: ExecRunner{}, logger: logger}
}

// NewClientWithRunner creates a client with a custom process runner.
func NewClientWithRunner(runner Runner, logger *logging.Logger) *Client {
	return &Client{runner: runner, logger: logger}
}

// Execute runs one task: probe first, command second. Every outcome is folded
// into a Result; Execute never fails in a way that could abort sibling tasks.
func (c *Client) Execute(ctx context.Context, t task.Task, opts Options) Result {
	start := time.Now()
	label := t.Host.Label()
	destination := t.User + "@" + t.Host.Addr()

	if ctx.Err() != nil {
		return Result{
			Task:     t,
			Message:  label + " Aborted due to shutdown",
			Duration: time.Since(start),
		}
	}

	// Probe phase: a no-op remote command to test reachability. Any failure
	// here means the command phase is never attempted.
	probe := c.runner.Run(ctx, buildArgs(opts.SSHOptions, destination, "exit 0"), opts.ConnectTimeout)

	// Shutdown may arrive while the probe is in flight; an interrupted probe
	// is an aborted task, not a connection failure.
	if ctx.Err() != nil {
		return Result{
			Task:     t,
			Message:  label + " Aborted due to shutdown",
			Duration: time.Since(start),
		}
	}

	if probe.Err != nil || probe.TimedOut || probe.ExitCode != 0 {
		if c.logger != nil {
			c.logger.LogProbeFailure(t.Host, t.User)
		}
		return Result{
			Task:     t,
			Message:  fmt.Sprintf("%s Error: Could not establish SSH connection to %s", label, destination),
			Duration: time.Since(start),
		}
	}

	if c.logger != nil {
		c.logger.LogCommandStart(t.Host, t.User, t.Command)
	}

	run := c.runner.Run(ctx, buildArgs(opts.SSHOptions, destination, t.Command), opts.ConnectTimeout)
	duration := time.Since(start)

	switch {
	case run.TimedOut:
		// The runner folds any context end into TimedOut; distinguish an
		// interrupt from the per-invocation deadline.
		if ctx.Err() != nil {
			return Result{
				Task:     t,
				Message:  label + " Aborted due to shutdown",
				Duration: duration,
			}
		}
		return Result{
			Task:     t,
			Message:  label + " Error: Command timed out",
			Duration: duration,
		}

	case run.Err != nil:
		return Result{
			Task:     t,
			Message:  fmt.Sprintf("%s Error: %v", label, run.Err),
			Duration: duration,
		}

	case run.ExitCode != 0:
		errOutput := strings.TrimSpace(run.Stderr)
		if errOutput == "" {
			errOutput = "Unknown error"
		}
		if c.logger != nil {
			c.logger.LogCommandResult(t.Host, t.User, run.ExitCode, duration)
		}
		return Result{
			Task: t,
			Message: fmt.Sprintf("%s Error: Command failed with status %d\n%s Output: %s",
				label, run.ExitCode, label, errOutput),
			Duration: duration,
		}

	default:
		if c.logger != nil {
			c.logger.LogCommandResult(t.Host, t.User, 0, duration)
		}
		return Result{
			Task:     t,
			Success:  true,
			Message:  labelLines(label, run.Stdout),
			Duration: duration,
		}
	}
}

// buildArgs assembles the ssh argument list: configured options, then the
// destination, then the remote command.
func buildArgs(sshOptions []string, destination, command string) []string {
	args := make([]string, 0, len(sshOptions)+2)
	args = append(args, sshOptions...)
	args = append(args, destination, command)
	return args
}

// labelLines prefixes every non-blank stdout line with the host label and joins
// them with newlines. Blank lines are dropped.
func labelLines(label, stdout string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, label+" "+line)
	}
	return strings.Join(lines, "\n")
}
