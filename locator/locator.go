// Package locator discovers candidate input sources under a root path,
// filtering by extension and ignore patterns. Traversal is read-only; files
// that look structurally suspect are recorded as warnings, never excluded —
// the row extractor gets the final say.
package locator

import (
	"bufio"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/conceptpipe/fault"
)

// SourceFile is one accepted input file.
type SourceFile struct {
	// Path is the full path to the file.
	Path string `json:"path"`

	// Name is the base name.
	Name string `json:"name"`

	// Size is the file size in bytes at scan time.
	Size int64 `json:"size"`
}

// Stem returns the base name without its extension, used by the output
// resolver for by-source grouping and row-number naming.
func (s SourceFile) Stem() string {
	return strings.TrimSuffix(s.Name, filepath.Ext(s.Name))
}

// ScanResult partitions the files visited under a root into accepted and
// ignored, plus scan-level warnings. Read-only after Scan returns.
type ScanResult struct {
	Root     string       `json:"root"`
	Accepted []SourceFile `json:"accepted"`
	Ignored  []string     `json:"ignored"`
	Warnings []string     `json:"warnings,omitempty"`

	// Visited counts every file entry considered. Always equals
	// len(Accepted) + len(Ignored).
	Visited int `json:"visited"`
}

// ScanOptions configures a scan.
type ScanOptions struct {
	// Recursive walks subdirectories. Ignored when the root is a file.
	Recursive bool

	// FollowSymlinks resolves symlinked files. Default off: symlinks are
	// counted as ignored.
	FollowSymlinks bool

	// Extensions is the accepted extension set (lower-case, with dot).
	Extensions []string

	// IgnorePatterns are doublestar globs matched against base names.
	IgnorePatterns []string
}

// DefaultScanOptions returns the standard option set: non-recursive, no
// symlink following, tabular/text extensions, and the usual editor and OS
// droppings ignored.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Extensions: []string{".csv", ".tsv", ".txt"},
		IgnorePatterns: []string{
			".*",       // hidden files
			"*~",       // editor backups
			"*.tmp",
			"*.bak",
			"*.swp",
			"~$*",      // office lock files
			".DS_Store",
			"Thumbs.db",
		},
	}
}

// Locator scans roots for input sources.
type Locator struct {
	opts   ScanOptions
	logger *slog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		l.logger = logger
	}
}

// New creates a Locator with the given scan options.
func New(opts ScanOptions, options ...Option) *Locator {
	l := &Locator{
		opts:   opts,
		logger: slog.Default(),
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Scan locates input sources under root, which may be a single file or a
// directory. Failures at the root (missing, unreadable) return a fault; all
// other anomalies become warnings on the result.
func (l *Locator) Scan(root string) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fault.Classify(err, fault.Context{Op: fault.OpScan, File: root})
	}

	result := &ScanResult{Root: root}

	if !info.IsDir() {
		l.visit(result, root, info.Name(), info.Size())
		return result, nil
	}

	if l.opts.Recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			l.visitEntry(result, path, d)
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(root)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			l.visitEntry(result, filepath.Join(root, entry.Name()), entry)
		}
	}
	if err != nil {
		return nil, fault.Classify(err, fault.Context{Op: fault.OpScan, File: root})
	}

	l.logger.Debug("Scan complete",
		"root", root,
		"accepted", len(result.Accepted),
		"ignored", len(result.Ignored),
		"warnings", len(result.Warnings))

	return result, nil
}

// visitEntry resolves entry metadata and routes the file into a partition.
func (l *Locator) visitEntry(result *ScanResult, path string, d fs.DirEntry) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !l.opts.FollowSymlinks {
			result.Visited++
			result.Ignored = append(result.Ignored, path)
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			result.Visited++
			result.Ignored = append(result.Ignored, path)
			if err != nil {
				result.Warnings = append(result.Warnings, "broken symlink: "+path)
			}
			return
		}
		l.visit(result, path, d.Name(), info.Size())
		return
	}

	info, err := d.Info()
	if err != nil {
		result.Visited++
		result.Ignored = append(result.Ignored, path)
		result.Warnings = append(result.Warnings, "stat failed: "+path)
		return
	}
	l.visit(result, path, d.Name(), info.Size())
}

// visit partitions one file into accepted or ignored and runs the structural
// sniff on accepted files.
func (l *Locator) visit(result *ScanResult, path, name string, size int64) {
	result.Visited++

	if !l.accepts(name) {
		result.Ignored = append(result.Ignored, path)
		return
	}

	result.Accepted = append(result.Accepted, SourceFile{Path: path, Name: name, Size: size})

	if warn := l.sniff(path, name, size); warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}
}

// accepts reports whether a base name passes the extension filter and no
// ignore pattern.
func (l *Locator) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	matched := false
	for _, e := range l.opts.Extensions {
		if ext == e {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, pattern := range l.opts.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return false
		}
	}
	return true
}

// sniff performs a cheap structural sanity check: non-empty, and a first
// line that plausibly carries the expected delimiter. Problems become
// warnings only.
func (l *Locator) sniff(path, name string, size int64) string {
	if size == 0 {
		return "empty file: " + path
	}

	f, err := os.Open(path)
	if err != nil {
		return "unreadable file: " + path
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	if !scanner.Scan() {
		return "empty file: " + path
	}
	first := scanner.Text()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		if !strings.Contains(first, ",") {
			return "first line has no comma, may not be CSV: " + path
		}
	case ".tsv":
		if !strings.Contains(first, "\t") {
			return "first line has no tab, may not be TSV: " + path
		}
	}
	return ""
}
