package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-UROC/ssh-operations-hub/internal/ssh"
	"github.com/UMD-UROC/ssh-operations-hub/internal/target"
	"github.com/UMD-UROC/ssh-operations-hub/internal/task"
)

// instrumentedRunner counts concurrent Execute entries and fakes results.
type instrumentedRunner struct {
	active    atomic.Int64
	maxActive atomic.Int64
	delay     time.Duration
	execute   func(ctx context.Context, t task.Task) ssh.Result
}

func (r *instrumentedRunner) Execute(ctx context.Context, t task.Task, opts ssh.Options) ssh.Result {
	now := r.active.Add(1)
	defer r.active.Add(-1)

	for {
		max := r.maxActive.Load()
		if now <= max || r.maxActive.CompareAndSwap(max, now) {
			break
		}
	}

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ssh.Result{Task: t, Message: t.Host.Label() + " Aborted due to shutdown"}
		}
	}

	if r.execute != nil {
		return r.execute(ctx, t)
	}
	return ssh.Result{Task: t, Success: true, Message: t.Host.Label() + " ok"}
}

func makeTasks(n int) []task.Task {
	tasks := make([]task.Task, 0, n)
	for i := 0; i < n; i++ {
		suffix := string(rune('1' + i))
		tasks = append(tasks, task.Task{
			User:    "root",
			Host:    target.Host{Prefix: "10.0.0", Suffix: suffix},
			Command: "echo ok",
		})
	}
	return tasks
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	runner := &instrumentedRunner{delay: 20 * time.Millisecond}
	d := NewDispatcher(Config{MaxParallel: 2}, runner, nil)

	results := d.Dispatch(context.Background(), makeTasks(8))

	count := 0
	for range results {
		count++
	}

	assert.Equal(t, 8, count)
	assert.LessOrEqual(t, runner.maxActive.Load(), int64(2),
		"no more than MaxParallel executions may be active at once")
}

func TestDispatchStreamsEveryResult(t *testing.T) {
	runner := &instrumentedRunner{}
	d := NewDispatcher(Config{MaxParallel: 4}, runner, nil)

	tasks := makeTasks(2)
	results := d.Dispatch(context.Background(), tasks)

	var messages []string
	for result := range results {
		assert.True(t, result.Success)
		messages = append(messages, result.Message)
	}

	// Completion order is unspecified; both hosts must be present.
	require.Len(t, messages, 2)
	assert.ElementsMatch(t, []string{
		"[Client 1 | 10.0.0.1] ok",
		"[Client 2 | 10.0.0.2] ok",
	}, messages)
}

func TestDispatchEmptyTaskList(t *testing.T) {
	d := NewDispatcher(Config{MaxParallel: 2}, &instrumentedRunner{}, nil)

	results := d.Dispatch(context.Background(), nil)

	_, open := <-results
	assert.False(t, open, "channel must close with no results")
}

func TestDispatchShutdownBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &instrumentedRunner{}
	d := NewDispatcher(Config{MaxParallel: 2}, runner, nil)

	results := d.Dispatch(ctx, makeTasks(5))

	count := 0
	for range results {
		count++
	}

	assert.Zero(t, count, "no results may be produced once shutdown was requested before dispatch")
	assert.Zero(t, runner.maxActive.Load(), "no task may be started")
}

func TestDispatchGlobalTimeout(t *testing.T) {
	runner := &instrumentedRunner{delay: time.Second}
	runner.execute = func(ctx context.Context, tk task.Task) ssh.Result {
		return ssh.Result{Task: tk, Success: true, Message: tk.Host.Label() + " ok"}
	}

	d := NewDispatcher(Config{MaxParallel: 2, GlobalTimeout: 50 * time.Millisecond}, runner, nil)

	done := make(chan struct{})
	var count int
	go func() {
		defer close(done)
		for range d.Dispatch(context.Background(), makeTasks(6)) {
			count++
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not stop waiting after the global timeout")
	}

	assert.True(t, d.TimedOut(), "run-level timeout must be surfaced")
	assert.Less(t, count, 6, "straggler results must not be emitted after the global timeout")
}

func TestDispatchInterruptSkipsQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var startedOnce sync.Once
	runner := &instrumentedRunner{delay: 50 * time.Millisecond}
	runner.execute = func(execCtx context.Context, tk task.Task) ssh.Result {
		startedOnce.Do(cancel) // interrupt arrives while the first tasks run
		return ssh.Result{Task: tk, Message: tk.Host.Label() + " Aborted due to shutdown"}
	}

	d := NewDispatcher(Config{MaxParallel: 1}, runner, nil)

	count := 0
	for range d.Dispatch(ctx, makeTasks(6)) {
		count++
	}

	assert.False(t, d.TimedOut())
	assert.Less(t, count, 6, "queued tasks must be skipped after interrupt")
	assert.GreaterOrEqual(t, count, 1, "in-flight tasks still yield a result")
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 2, workerCount(2, 10))
	assert.Equal(t, 3, workerCount(10, 3))
	assert.Equal(t, DefaultMaxParallel, workerCount(0, 100))
	assert.Equal(t, 5, workerCount(-1, 5))
}
