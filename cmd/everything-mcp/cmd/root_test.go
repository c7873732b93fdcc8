package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"serve", "search", "status", "rebuild", "config", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %q", name)
	}
}

func TestRootCmd_Help(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "everything-mcp")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "search")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"search"})

	assert.Error(t, root.Execute())
}

func TestSearchCmd_RejectsUnknownSort(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"search", "q", "--sort", "by_vibes"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort order")
}

func TestConfigCmds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Run("path", func(t *testing.T) {
		root := NewRootCmd()
		buf := &bytes.Buffer{}
		root.SetOut(buf)
		root.SetArgs([]string{"--config", path, "config", "path"})

		require.NoError(t, root.Execute())
		assert.Contains(t, buf.String(), path)
	})

	t.Run("init and show", func(t *testing.T) {
		root := NewRootCmd()
		buf := &bytes.Buffer{}
		root.SetOut(buf)
		root.SetArgs([]string{"--config", path, "config", "init"})
		require.NoError(t, root.Execute())

		root = NewRootCmd()
		buf = &bytes.Buffer{}
		root.SetOut(buf)
		root.SetArgs([]string{"--config", path, "config", "show"})
		require.NoError(t, root.Execute())
		assert.Contains(t, buf.String(), "window_class: EVERYTHING")
	})

	t.Run("init refuses overwrite", func(t *testing.T) {
		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"--config", path, "config", "init"})

		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})
}
