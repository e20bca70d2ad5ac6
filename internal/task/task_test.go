package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-UROC/ssh-operations-hub/internal/target"
)

func hosts(prefix string, suffixes ...string) []target.Host {
	out := make([]target.Host, 0, len(suffixes))
	for _, s := range suffixes {
		out = append(out, target.Host{Prefix: prefix, Suffix: s})
	}
	return out
}

func TestBuildSubstitutesPlaceholder(t *testing.T) {
	primary := hosts("10.0.0", "1", "2")

	tasks := Build(primary, nil, "user$CLIENT_NUM", "admin", "echo client $CLIENT_NUM")

	require.Len(t, tasks, 2)
	assert.Equal(t, "user1", tasks[0].User)
	assert.Equal(t, "echo client 1", tasks[0].Command)
	assert.Equal(t, "user2", tasks[1].User)
	assert.Equal(t, "echo client 2", tasks[1].Command)
}

func TestBuildOrdersPrimaryThenSecondary(t *testing.T) {
	primary := hosts("10.0.0", "2", "1")
	secondary := hosts("10.0.0", "5")

	tasks := Build(primary, secondary, "root", "admin", "uptime")

	require.Len(t, tasks, 3)
	assert.Equal(t, "2", tasks[0].Host.Suffix)
	assert.Equal(t, "root", tasks[0].User)
	assert.Equal(t, "1", tasks[1].Host.Suffix)
	assert.Equal(t, "5", tasks[2].Host.Suffix)
	assert.Equal(t, "admin", tasks[2].User)
}

func TestBuildEmptyGroups(t *testing.T) {
	assert.Empty(t, Build(nil, nil, "root", "admin", "uptime"))

	tasks := Build(nil, hosts("10.0.0", "3"), "root", "admin$CLIENT_NUM", "true")
	require.Len(t, tasks, 1)
	assert.Equal(t, "admin3", tasks[0].User)
}

func TestSubstituteIsLiteral(t *testing.T) {
	// Only the exact token is replaced; no templating syntax is recognized.
	assert.Equal(t, "a7b7", Substitute("a$CLIENT_NUMb$CLIENT_NUM", "7"))
	assert.Equal(t, "{{.Suffix}}", Substitute("{{.Suffix}}", "7"))
	assert.Equal(t, "no token", Substitute("no token", "7"))
}
