package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/conceptpipe/extract"
)

// maxSuffixAttempts bounds the numeric-suffix search before falling back to
// a timestamp suffix, guaranteeing termination.
const maxSuffixAttempts = 100

// Config holds the output naming and organization settings for a run.
// Read-only for the run's duration.
type Config struct {
	// BaseDir is the output root.
	BaseDir string

	// Naming selects the file-name strategy.
	Naming NamingStrategy

	// Organization selects the directory strategy.
	Organization OrgStrategy

	// Overwrite allows resolved paths to collide with existing files.
	Overwrite bool

	// Extension is appended to resolved names. Defaults to ".json".
	Extension string
}

// Resolver computes collision-free destination paths. Paths resolved within
// one run are reserved, so two items can never race to the same path even
// before anything is written.
type Resolver struct {
	cfg Config

	mu       sync.Mutex
	reserved map[string]struct{}

	// now is stubbed in tests for the timestamp fallback.
	now func() time.Time
}

// NewResolver creates a Resolver for one run.
func NewResolver(cfg Config) *Resolver {
	if cfg.Extension == "" {
		cfg.Extension = ".json"
	}
	return &Resolver{
		cfg:      cfg,
		reserved: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Resolve computes the destination path for a work item. The returned path
// is guaranteed not to exist and not to have been handed out earlier in this
// run, unless overwrite is enabled.
func (r *Resolver) Resolve(item extract.WorkItem) (string, error) {
	name, err := r.baseName(item)
	if err != nil {
		return "", err
	}
	dir, err := r.directory(item)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := filepath.Join(dir, name+r.cfg.Extension)
	if r.available(candidate) {
		r.reserved[candidate] = struct{}{}
		return candidate, nil
	}

	for n := 2; n <= maxSuffixAttempts; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, n, r.cfg.Extension))
		if r.available(candidate) {
			r.reserved[candidate] = struct{}{}
			return candidate, nil
		}
	}

	// Numeric suffixes exhausted: a timestamp suffix terminates the search.
	candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, r.now().UnixNano(), r.cfg.Extension))
	r.reserved[candidate] = struct{}{}
	return candidate, nil
}

// available reports whether a candidate path may be handed out. With
// overwrite enabled every candidate is available: the policy explicitly
// allows collision, both with existing files and within the run.
func (r *Resolver) available(path string) bool {
	if r.cfg.Overwrite {
		return true
	}
	if _, taken := r.reserved[path]; taken {
		return false
	}
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// baseName applies the naming strategy.
func (r *Resolver) baseName(item extract.WorkItem) (string, error) {
	stem := sourceStem(item)
	hasLabel := len(strings.Fields(item.Concept)) > 0

	switch r.cfg.Naming {
	case NamingLabel:
		return DeriveLabel(item.Concept), nil
	case NamingRowNumber:
		return fmt.Sprintf("%s_row_%d", stem, item.Row), nil
	case NamingHybrid:
		if !hasLabel {
			return fmt.Sprintf("%s_row_%d", stem, item.Row), nil
		}
		return fmt.Sprintf("%s_row_%d", DeriveLabel(item.Concept), item.Row), nil
	default:
		return "", fmt.Errorf("unknown naming strategy %q", r.cfg.Naming)
	}
}

// directory applies the organization strategy.
func (r *Resolver) directory(item extract.WorkItem) (string, error) {
	switch r.cfg.Organization {
	case OrgFlat:
		return r.cfg.BaseDir, nil
	case OrgBySource:
		return filepath.Join(r.cfg.BaseDir, Sanitize(sourceStem(item))), nil
	case OrgByLabel:
		return filepath.Join(r.cfg.BaseDir, DeriveLabel(item.Concept)), nil
	default:
		return "", fmt.Errorf("unknown organization strategy %q", r.cfg.Organization)
	}
}

// sourceStem returns the item's source file name without extension.
func sourceStem(item extract.WorkItem) string {
	base := filepath.Base(item.Source.File)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
