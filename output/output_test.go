package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/conceptpipe/extract"
	"github.com/c360studio/conceptpipe/fault"
)

func item(concept, file string, row int) extract.WorkItem {
	return extract.WorkItem{
		Row:     row,
		Concept: concept,
		Source:  extract.SourceRef{File: file, Row: row, TotalRows: 10},
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Space Saga", "space_saga"},
		{"what/about:slashes?", "what_about_slashes"},
		{"  lots   of   spaces  ", "lots_of_spaces"},
		{"___already__separated___", "already_separated"},
		{"", "item"},
		{"!!!", "item"},
		{"ünïcödé", "n_c_d"},
		{strings.Repeat("a", 200), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestDeriveLabel(t *testing.T) {
	assert.Equal(t, "a_ghost_that_pays", DeriveLabel("a ghost that pays rent in memories"))
	assert.Equal(t, "warp_drive", DeriveLabel("warp drive"))
	assert.Equal(t, "item", DeriveLabel("   "))
}

func TestResolver_NamingStrategies(t *testing.T) {
	dir := t.TempDir()
	it := item("space saga", "/data/ideas.csv", 3)

	tests := []struct {
		naming NamingStrategy
		want   string
	}{
		{NamingLabel, "space_saga.json"},
		{NamingRowNumber, "ideas_row_3.json"},
		{NamingHybrid, "space_saga_row_3.json"},
	}
	for _, tt := range tests {
		t.Run(string(tt.naming), func(t *testing.T) {
			r := NewResolver(Config{BaseDir: dir, Naming: tt.naming, Organization: OrgFlat})
			path, err := r.Resolve(it)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), path)
		})
	}
}

func TestResolver_HybridEmptyLabelFallsBackToRowForm(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(Config{BaseDir: dir, Naming: NamingHybrid, Organization: OrgFlat})

	path, err := r.Resolve(item("", "/data/ideas.csv", 7))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ideas_row_7.json"), path)
}

func TestResolver_OrganizationStrategies(t *testing.T) {
	dir := t.TempDir()
	it := item("space saga", "/data/My Ideas.csv", 1)

	tests := []struct {
		org  OrgStrategy
		want string
	}{
		{OrgFlat, filepath.Join(dir, "space_saga.json")},
		{OrgBySource, filepath.Join(dir, "my_ideas", "space_saga.json")},
		{OrgByLabel, filepath.Join(dir, "space_saga", "space_saga.json")},
	}
	for _, tt := range tests {
		t.Run(string(tt.org), func(t *testing.T) {
			r := NewResolver(Config{BaseDir: dir, Naming: NamingLabel, Organization: tt.org})
			path, err := r.Resolve(it)
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestResolver_UniquenessWithinRun(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(Config{BaseDir: dir, Naming: NamingHybrid, Organization: OrgFlat})

	first, err := r.Resolve(item("space saga", "/data/a.csv", 1))
	require.NoError(t, err)

	// Same derived label and row from a different source.
	second, err := r.Resolve(item("space  saga", "/data/b.csv", 1))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "space_saga_row_1.json"), first,
		"first item's path is unaffected by the collision")
	assert.Equal(t, filepath.Join(dir, "space_saga_row_1_2.json"), second)
}

func TestResolver_ExistingFilesForceSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "space_saga.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "space_saga_2.json"), []byte("{}"), 0o644))

	r := NewResolver(Config{BaseDir: dir, Naming: NamingLabel, Organization: OrgFlat})
	path, err := r.Resolve(item("space saga", "/data/a.csv", 1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "space_saga_3.json"), path)
}

func TestResolver_OverwriteAllowsCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "space_saga.json"), []byte("{}"), 0o644))

	r := NewResolver(Config{BaseDir: dir, Naming: NamingLabel, Organization: OrgFlat, Overwrite: true})

	first, err := r.Resolve(item("space saga", "/data/a.csv", 1))
	require.NoError(t, err)
	second, err := r.Resolve(item("space saga", "/data/b.csv", 2))
	require.NoError(t, err)

	assert.Equal(t, first, second, "overwrite policy explicitly allows collision")
}

func TestResolver_TimestampFallbackTerminates(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(Config{BaseDir: dir, Naming: NamingLabel, Organization: OrgFlat})
	r.now = func() time.Time { return time.Unix(0, 1234567890) }

	it := item("space saga", "/data/a.csv", 1)
	seen := make(map[string]bool)
	for i := 0; i < maxSuffixAttempts; i++ {
		path, err := r.Resolve(it)
		require.NoError(t, err)
		require.False(t, seen[path], "duplicate path %s", path)
		seen[path] = true
	}

	path, err := r.Resolve(it)
	require.NoError(t, err)
	assert.Contains(t, path, "1234567890", "numeric suffixes exhausted, timestamp takes over")
}

func TestWriter_WriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	doc := Document{
		Metadata: Metadata{
			GeneratedAt:  time.Now().UTC(),
			SourceFile:   "/data/a.csv",
			Row:          2,
			ProcessingMS: 41,
			Success:      true,
		},
		Payload:  map[string]any{"expansion": "a much longer text"},
		Warnings: []string{"minor quirk"},
	}

	require.NoError(t, NewWriter().Write(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	meta := got["metadata"].(map[string]any)
	assert.Equal(t, true, meta["success"])
	assert.Equal(t, float64(2), meta["row"])
	assert.Contains(t, got, "payload")
	assert.NotContains(t, got, "error", "error section omitted on success")
}

func TestWriter_FailureIsWriteFault(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	readonly := filepath.Join(dir, "ro")
	require.NoError(t, os.MkdirAll(readonly, 0o555))

	err := NewWriter().Write(filepath.Join(readonly, "sub", "out.json"), Document{})
	require.Error(t, err)

	var f *fault.Fault
	require.ErrorAs(t, err, &f)
	assert.Contains(t, []fault.Kind{fault.KindWrite, fault.KindPermission}, f.Kind)
}

func TestParseStrategies(t *testing.T) {
	_, err := ParseNamingStrategy("nope")
	assert.Error(t, err)
	ns, err := ParseNamingStrategy("hybrid")
	require.NoError(t, err)
	assert.Equal(t, NamingHybrid, ns)

	_, err = ParseOrgStrategy("nope")
	assert.Error(t, err)
	os2, err := ParseOrgStrategy("by_source")
	require.NoError(t, err)
	assert.Equal(t, OrgBySource, os2)
}
