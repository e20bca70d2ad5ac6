package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/UMD-UROC/ssh-operations-hub/internal/ssh"
)

// Mode defines the available output formatting modes
type Mode string

const (
	// StreamedMode emits each host's labeled block as soon as it arrives
	StreamedMode Mode = "streamed"

	// BufferedMode shows complete output per host after all executions finish
	BufferedMode Mode = "buffered"

	// JSONMode emits one NDJSON object per result
	JSONMode Mode = "json"
)

// ValidMode reports whether s names a supported output mode.
func ValidMode(s string) bool {
	switch Mode(s) {
	case StreamedMode, BufferedMode, JSONMode:
		return true
	}
	return false
}

// Formatter renders execution results to the output sink.
type Formatter interface {
	// Format processes and outputs a single result
	Format(result ssh.Result) error

	// Finalize performs any final output operations
	Finalize() error
}

// NewFormatter creates a formatter for the given mode and writer.
func NewFormatter(mode Mode, writer io.Writer) Formatter {
	if writer == nil {
		writer = os.Stdout
	}

	f := &defaultFormatter{
		mode:   mode,
		writer: writer,
	}
	return f
}

type defaultFormatter struct {
	mode     Mode
	writer   io.Writer
	mu       sync.Mutex
	buffered []ssh.Result
}

func (f *defaultFormatter) Format(result ssh.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.mode {
	case StreamedMode:
		return f.formatStreamed(result)
	case BufferedMode:
		f.buffered = append(f.buffered, result)
		return nil
	case JSONMode:
		return f.formatJSON(result)
	default:
		return fmt.Errorf("unknown output mode: %s", f.mode)
	}
}

func (f *defaultFormatter) Finalize() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == BufferedMode {
		return f.flushBuffered()
	}
	return nil
}

// formatStreamed writes the already-labeled message block. The mutex keeps one
// host's block atomic relative to other hosts.
func (f *defaultFormatter) formatStreamed(result ssh.Result) error {
	if result.Message == "" {
		return nil
	}
	if _, err := fmt.Fprintln(f.writer, result.Message); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// flushBuffered writes all stored blocks ordered by numeric suffix, then by
// user. The same host can carry results for multiple users (one per group);
// every stored result is written.
func (f *defaultFormatter) flushBuffered() error {
	sort.SliceStable(f.buffered, func(i, j int) bool {
		si := suffixValue(f.buffered[i].Task.Host.Suffix)
		sj := suffixValue(f.buffered[j].Task.Host.Suffix)
		if si != sj {
			return si < sj
		}
		return f.buffered[i].Task.User < f.buffered[j].Task.User
	})

	for _, result := range f.buffered {
		if result.Message == "" {
			continue
		}
		if _, err := fmt.Fprintln(f.writer, result.Message); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return nil
}

// suffixValue parses a host suffix for ordering. Suffixes are validated as
// digits upstream; anything else sorts first.
func suffixValue(suffix string) int {
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return -1
	}
	return n
}

// jsonResult is the NDJSON shape for one execution result.
type jsonResult struct {
	Host       string `json:"host"`
	Suffix     string `json:"suffix"`
	User       string `json:"user"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
}

func (f *defaultFormatter) formatJSON(result ssh.Result) error {
	out := jsonResult{
		Host:       result.Task.Host.Addr(),
		Suffix:     result.Task.Host.Suffix,
		User:       result.Task.User,
		Success:    result.Success,
		Message:    result.Message,
		DurationMs: result.Duration.Milliseconds(),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintf(f.writer, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
