// Package executor runs tasks under a bounded worker pool and streams results
// back in completion order.
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UMD-UROC/ssh-operations-hub/internal/logging"
	"github.com/UMD-UROC/ssh-operations-hub/internal/ssh"
	"github.com/UMD-UROC/ssh-operations-hub/internal/task"
)

// DefaultMaxParallel bounds concurrency when the configuration does not.
const DefaultMaxParallel = 10

// Config holds the dispatch parameters. It is built once by the caller from
// validated configuration; the dispatcher never inspects raw config keys.
type Config struct {
	MaxParallel    int           // Maximum concurrent ssh invocations
	ConnectTimeout time.Duration // Bound on each individual client invocation
	GlobalTimeout  time.Duration // Wall-clock bound on the whole run (0 for none)
	SSHOptions     []string      // Protocol-client flags
}

// TaskRunner executes one task and folds every outcome into a Result.
// *ssh.Client is the production implementation.
type TaskRunner interface {
	Execute(ctx context.Context, t task.Task, opts ssh.Options) ssh.Result
}

// Dispatcher fans tasks out across a fixed-size worker pool.
type Dispatcher struct {
	config   Config
	runner   TaskRunner
	logger   *logging.Logger
	timedOut atomic.Bool
}

// NewDispatcher creates a dispatcher with the given runner.
func NewDispatcher(config Config, runner TaskRunner, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Dispatch runs all tasks with at most MaxParallel in flight and returns a
// channel on which each task's result arrives as it completes. The channel is
// closed when the run is over.
//
// An empty task list closes the channel immediately. If ctx is already
// cancelled before dispatch begins, no task is submitted and zero results are
// produced. When the global timeout fires, the dispatcher stops waiting for
// stragglers and emits nothing further; their subprocesses are killed through
// context cancellation rather than left to run out the clock. On interrupt,
// queued tasks are never started and produce no result, while in-flight tasks
// finish quickly with a failed result.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []task.Task) <-chan ssh.Result {
	results := make(chan ssh.Result, len(tasks))

	if len(tasks) == 0 || ctx.Err() != nil {
		close(results)
		return results
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if d.config.GlobalTimeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, d.config.GlobalTimeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}

	opts := ssh.Options{
		SSHOptions:     d.config.SSHOptions,
		ConnectTimeout: d.config.ConnectTimeout,
	}

	workers := workerCount(d.config.MaxParallel, len(tasks))
	if d.logger != nil {
		d.logger.LogDispatchStart(len(tasks), workers)
	}

	jobs := make(chan task.Task)
	var emitted, failed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				result := d.runner.Execute(execCtx, t, opts)

				// Once the global timeout has fired the caller is no longer
				// waiting; drop straggler results instead of emitting them.
				if execCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
					continue
				}

				emitted.Add(1)
				if !result.Success {
					failed.Add(1)
				}
				results <- result
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range tasks {
			// Not-yet-started tasks are skipped without being submitted.
			if execCtx.Err() != nil {
				return
			}
			select {
			case jobs <- t:
			case <-execCtx.Done():
				return
			}
		}
	}()

	start := time.Now()
	go func() {
		wg.Wait()
		if execCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			d.timedOut.Store(true)
		}
		if d.logger != nil {
			d.logger.LogDispatchComplete(len(tasks), int(emitted.Load()), int(failed.Load()), time.Since(start))
		}
		cancel()
		close(results)
	}()

	return results
}

// TimedOut reports whether the run hit the global timeout. Valid once the
// result channel has been closed.
func (d *Dispatcher) TimedOut() bool {
	return d.timedOut.Load()
}

// workerCount sizes the pool: the configured bound, defaulted when unset, and
// never more workers than tasks.
func workerCount(maxParallel, taskCount int) int {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if taskCount < maxParallel {
		return taskCount
	}
	return maxParallel
}
