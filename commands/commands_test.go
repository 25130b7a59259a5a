package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRoot("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "conceptpipe version test")
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ideas.csv"), []byte("concept\none\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.bak"), []byte("x"), 0o644))

	out, err := execute(t, "scan", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "accept")
	assert.Contains(t, out, "ideas.csv")
	assert.Contains(t, out, "ignore")
	assert.Contains(t, out, "notes.bak")
	assert.Contains(t, out, "1 accepted, 1 ignored")
}

func TestScanCommand_MissingPath(t *testing.T) {
	_, err := execute(t, "scan", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRunCommand_RequiresInput(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--text")
}

func TestExtensionSet(t *testing.T) {
	set := extensionSet(nil)
	assert.True(t, set[".csv"])
	assert.True(t, set[".txt"])

	set = extensionSet([]string{"CSV", ".md"})
	assert.True(t, set[".csv"])
	assert.True(t, set[".md"])
	assert.False(t, set[".txt"])
}

func TestWatchLoop_Relevant(t *testing.T) {
	w := &watchLoop{extensions: extensionSet([]string{".csv"})}

	assert.True(t, w.relevant(fsnotify.Event{Name: "a.csv", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "b.CSV", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "a.csv", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "a.md", Op: fsnotify.Write}))
}
