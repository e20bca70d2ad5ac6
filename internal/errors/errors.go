// Package errors classifies per-task failures for end-of-run reporting.
package errors

import (
	"fmt"
	"strings"
	"sync"
)

// FailureType classifies why a task failed.
type FailureType int

const (
	// ValidationFailure covers bad prefixes and rejected suffixes.
	ValidationFailure FailureType = iota

	// ConnectionFailure covers probe failures: the host was unreachable.
	ConnectionFailure

	// CommandFailure covers non-zero remote exits.
	CommandFailure

	// TimeoutFailure covers per-command timeouts.
	TimeoutFailure

	// AbortedFailure covers tasks cut short by shutdown.
	AbortedFailure

	// UnknownFailure covers everything else.
	UnknownFailure
)

// String returns a string representation of the failure type
func (ft FailureType) String() string {
	switch ft {
	case ValidationFailure:
		return "validation"
	case ConnectionFailure:
		return "connection"
	case CommandFailure:
		return "command"
	case TimeoutFailure:
		return "timeout"
	case AbortedFailure:
		return "aborted"
	default:
		return "unknown"
	}
}

// ClassifyMessage derives the failure type from a task's result message. The
// executor produces a fixed set of message shapes; anything outside them is
// unknown.
func ClassifyMessage(message string) FailureType {
	switch {
	case strings.Contains(message, "Could not establish SSH connection"):
		return ConnectionFailure
	case strings.Contains(message, "Command timed out"):
		return TimeoutFailure
	case strings.Contains(message, "Command failed with status"):
		return CommandFailure
	case strings.Contains(message, "Aborted due to shutdown"):
		return AbortedFailure
	default:
		return UnknownFailure
	}
}

// Collector tallies failures by type across a run. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	counts map[FailureType]int
	total  int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{counts: make(map[FailureType]int)}
}

// AddMessage classifies a failed result message and records it.
func (c *Collector) AddMessage(message string) {
	c.Add(ClassifyMessage(message))
}

// Add records one failure of the given type.
func (c *Collector) Add(ft FailureType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ft]++
	c.total++
}

// Count returns the total number of recorded failures.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// CountByType returns the number of failures of one type.
func (c *Collector) CountByType(ft FailureType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ft]
}

// HasFailures returns true if anything was recorded.
func (c *Collector) HasFailures() bool {
	return c.Count() > 0
}

// Summary returns a one-line breakdown, e.g. "3 failures (2 connection, 1 command)".
func (c *Collector) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 {
		return "no failures"
	}

	ordered := []FailureType{
		ValidationFailure, ConnectionFailure, CommandFailure,
		TimeoutFailure, AbortedFailure, UnknownFailure,
	}

	var parts []string
	for _, ft := range ordered {
		if n := c.counts[ft]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, ft))
		}
	}

	return fmt.Sprintf("%d failures (%s)", c.total, strings.Join(parts, ", "))
}
