// Package task builds per-host execution tasks from validated hosts and templates.
package task

import (
	"strings"

	"github.com/UMD-UROC/ssh-operations-hub/internal/target"
)

// Placeholder is the single recognized substitution token. It is replaced with
// the host's numeric suffix by literal text replacement; no other templating is
// supported.
const Placeholder = "$CLIENT_NUM"

// Task is one unit of work: run Command as User on Host. Immutable after creation.
type Task struct {
	User    string
	Host    target.Host
	Command string
}

// Build produces the flat task list for a run: every primary host with the
// primary user template, then every secondary host with the secondary user
// template, each in host input order. The command template is shared across both
// groups. User and command are substituted independently per host.
func Build(primary, secondary []target.Host, primaryUser, secondaryUser, command string) []Task {
	tasks := make([]Task, 0, len(primary)+len(secondary))

	for _, host := range primary {
		tasks = append(tasks, forHost(host, primaryUser, command))
	}
	for _, host := range secondary {
		tasks = append(tasks, forHost(host, secondaryUser, command))
	}

	return tasks
}

func forHost(host target.Host, userTmpl, commandTmpl string) Task {
	return Task{
		User:    Substitute(userTmpl, host.Suffix),
		Host:    host,
		Command: Substitute(commandTmpl, host.Suffix),
	}
}

// Substitute replaces every occurrence of Placeholder in text with the suffix.
func Substitute(text, suffix string) string {
	return strings.ReplaceAll(text, Placeholder, suffix)
}
