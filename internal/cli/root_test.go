package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/internal/cli"
)

func TestCommandTree(t *testing.T) {
	tests := []struct {
		path  []string
		flags []string
	}{
		{path: []string{"simulate"}, flags: []string{"duration", "personas", "message", "channels"}},
		{path: []string{"prompt"}, flags: []string{"persona", "user-id", "username"}},
		{path: []string{"memory", "list"}, flags: []string{"persona", "kind", "limit"}},
		{path: []string{"memory", "query"}, flags: []string{"persona", "limit"}},
		{path: []string{"memory", "stats"}, flags: []string{"persona"}},
	}
	for _, tt := range tests {
		cmd, rest, err := cli.RootCmd.Find(tt.path)
		require.NoError(t, err, tt.path)
		assert.Empty(t, rest)
		for _, f := range tt.flags {
			assert.NotNil(t, cmd.Flags().Lookup(f), "%v --%s", tt.path, f)
		}
	}

	for _, f := range []string{"config", "archetypes"} {
		assert.NotNil(t, cli.RootCmd.PersistentFlags().Lookup(f))
	}
}

func TestRequiredFlags(t *testing.T) {
	tests := [][]string{
		{"prompt", "hello"},
		{"memory", "list"},
		{"memory", "query"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		cli.RootCmd.SetOut(&out)
		cli.RootCmd.SetErr(&out)
		cli.RootCmd.SetArgs(args)
		assert.Error(t, cli.RootCmd.Execute(), args)
	}
}
