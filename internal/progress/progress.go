// Package progress provides a simple progress display for long fleet runs.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker tracks and displays completion progress across the fleet.
type Tracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	lastDraw  time.Time
	mu        sync.Mutex
	writer    io.Writer
	enabled   bool
}

// NewTracker creates a tracker for total tasks.
func NewTracker(total int, writer io.Writer, enabled bool) *Tracker {
	return &Tracker{
		total:     total,
		startTime: time.Now(),
		writer:    writer,
		enabled:   enabled,
	}
}

// Update records one finished task.
func (p *Tracker) Update(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		p.completed++
	} else {
		p.failed++
	}

	if p.enabled {
		p.draw()
	}
}

// Finish clears the progress line and prints the final summary.
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}

	elapsed := time.Since(p.startTime).Round(time.Second)
	done := p.completed + p.failed

	fmt.Fprint(p.writer, "\r\033[K")
	if p.failed == 0 {
		fmt.Fprintf(p.writer, "Completed %d/%d hosts in %v\n", p.completed, p.total, elapsed)
	} else {
		fmt.Fprintf(p.writer, "Completed %d/%d hosts (%d ok, %d failed) in %v\n",
			done, p.total, p.completed, p.failed, elapsed)
	}
}

// Stats returns the current counters.
func (p *Tracker) Stats() (completed, failed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.failed, p.total
}

func (p *Tracker) draw() {
	now := time.Now()
	// Throttle redraws to keep terminal output sane on fast fleets.
	if now.Sub(p.lastDraw) < 100*time.Millisecond {
		return
	}
	p.lastDraw = now

	if p.total == 0 {
		return
	}

	done := p.completed + p.failed
	percentage := float64(done) / float64(p.total) * 100

	fmt.Fprintf(p.writer, "\r[%d/%d] %.0f%% ok:%d failed:%d %v",
		done, p.total, percentage, p.completed, p.failed,
		now.Sub(p.startTime).Round(time.Second))
}
