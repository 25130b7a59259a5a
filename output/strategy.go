// Package output computes collision-free destination paths for expansion
// results under configurable naming and organization strategies, and writes
// the result documents themselves.
package output

import "fmt"

// NamingStrategy selects how an output file's base name is derived.
type NamingStrategy string

const (
	// NamingLabel names files by the item's sanitized label.
	NamingLabel NamingStrategy = "label"

	// NamingRowNumber names files `<source-stem>_row_<n>`.
	NamingRowNumber NamingStrategy = "row"

	// NamingHybrid combines the label with a row suffix, falling back to
	// the row-number form when the label is empty.
	NamingHybrid NamingStrategy = "hybrid"
)

// ParseNamingStrategy converts a configuration string into a NamingStrategy.
func ParseNamingStrategy(s string) (NamingStrategy, error) {
	switch NamingStrategy(s) {
	case NamingLabel, NamingRowNumber, NamingHybrid:
		return NamingStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown naming strategy %q (want label, row, or hybrid)", s)
	}
}

// OrgStrategy selects how output files are grouped into directories.
type OrgStrategy string

const (
	// OrgFlat puts all outputs directly in the base directory.
	OrgFlat OrgStrategy = "flat"

	// OrgBySource groups outputs into one subdirectory per input file stem.
	OrgBySource OrgStrategy = "by_source"

	// OrgByLabel groups outputs into one subdirectory per sanitized label.
	OrgByLabel OrgStrategy = "by_label"
)

// ParseOrgStrategy converts a configuration string into an OrgStrategy.
func ParseOrgStrategy(s string) (OrgStrategy, error) {
	switch OrgStrategy(s) {
	case OrgFlat, OrgBySource, OrgByLabel:
		return OrgStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown organization strategy %q (want flat, by_source, or by_label)", s)
	}
}
