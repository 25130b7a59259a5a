// Package extract turns one tabular source into an ordered sequence of typed
// work items, applying a configurable field-name mapping and validating that
// mandatory fields are present.
package extract

// Canonical field names work items are built from. Source columns map onto
// these via the field mapping.
const (
	// FieldConcept is the mandatory field: the text to expand.
	FieldConcept = "concept"

	// FieldBody is optional supporting text passed alongside the concept.
	FieldBody = "body"
)

// SourceRef locates a work item within its source file.
type SourceRef struct {
	// File is the source file path.
	File string `json:"file"`

	// Row is the 1-based data row number, stable across skipped rows.
	Row int `json:"row"`

	// TotalRows is the number of data rows in the file.
	TotalRows int `json:"total_rows"`
}

// WorkItem is one unit of input awaiting expansion. Immutable once
// extracted.
type WorkItem struct {
	// Row is the 1-based data row this item came from.
	Row int `json:"row"`

	// Concept is the canonical text to expand.
	Concept string `json:"concept"`

	// Body is optional supporting text.
	Body string `json:"body,omitempty"`

	// Extras holds the remaining mapped fields by canonical name.
	Extras map[string]string `json:"extras,omitempty"`

	// Source identifies where the item was extracted from.
	Source SourceRef `json:"source"`
}
