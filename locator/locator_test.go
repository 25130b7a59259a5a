package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/conceptpipe/fault"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScan_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ideas.csv", "concept,notes\nwarp drive,fast\n")

	result, err := New(DefaultScanOptions()).Scan(path)
	require.NoError(t, err)

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "ideas.csv", result.Accepted[0].Name)
	assert.Equal(t, "ideas", result.Accepted[0].Stem())
	assert.Empty(t, result.Ignored)
	assert.Equal(t, 1, result.Visited)
}

func TestScan_DirectoryPartition(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "concept\nx\n")
	writeFile(t, dir, "b.tsv", "concept\tnotes\ny\tz\n")
	writeFile(t, dir, "notes.md", "# not tabular\n")
	writeFile(t, dir, ".hidden.csv", "concept\nx\n")
	writeFile(t, dir, "old.csv.bak", "concept\nx\n")
	writeFile(t, dir, ".DS_Store", "junk")

	result, err := New(DefaultScanOptions()).Scan(dir)
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 2)
	assert.Len(t, result.Ignored, 4)
	assert.Equal(t, result.Visited, len(result.Accepted)+len(result.Ignored),
		"every visited entry lands in exactly one partition")
}

func TestScan_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeFile(t, dir, "top.csv", "concept\nx\n")
	writeFile(t, sub, "deep.csv", "concept\ny\n")

	opts := DefaultScanOptions()

	flat, err := New(opts).Scan(dir)
	require.NoError(t, err)
	assert.Len(t, flat.Accepted, 1, "non-recursive scan skips subdirectories")

	opts.Recursive = true
	nested, err := New(opts).Scan(dir)
	require.NoError(t, err)
	assert.Len(t, nested.Accepted, 2)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := New(DefaultScanOptions()).Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var f *fault.Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, fault.KindNotFound, f.Kind)
	assert.False(t, f.Recoverable)
}

func TestScan_StructuralSniffWarnsButAccepts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "")
	writeFile(t, dir, "nocommas.csv", "just one column header\nvalue\n")

	result, err := New(DefaultScanOptions()).Scan(dir)
	require.NoError(t, err)

	assert.Len(t, result.Accepted, 2, "suspect files stay accepted")
	assert.Len(t, result.Warnings, 2)
}

func TestScan_SymlinksIgnoredByDefault(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real.csv", "concept\nx\n")
	link := filepath.Join(dir, "link.csv")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result, err := New(DefaultScanOptions()).Scan(dir)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
	assert.Contains(t, result.Ignored, link)

	opts := DefaultScanOptions()
	opts.FollowSymlinks = true
	followed, err := New(opts).Scan(dir)
	require.NoError(t, err)
	assert.Len(t, followed.Accepted, 2)
}
