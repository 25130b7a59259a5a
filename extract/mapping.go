package extract

import "strings"

// FieldMapping maps source column names to canonical field names. Lookups
// are case-insensitive; when two source columns map to the same canonical
// field, the first column in header order wins.
type FieldMapping map[string]string

// DefaultMapping maps the obvious column spellings onto canonical fields.
func DefaultMapping() FieldMapping {
	return FieldMapping{
		"concept":     FieldConcept,
		"idea":        FieldConcept,
		"body":        FieldBody,
		"description": FieldBody,
		"notes":       FieldBody,
	}
}

// CanonicalFor returns the canonical field a source column maps to.
func (m FieldMapping) CanonicalFor(column string) (string, bool) {
	canonical, ok := m[strings.ToLower(strings.TrimSpace(column))]
	return canonical, ok
}

// apply maps a header row onto canonical names. Unmapped columns keep their
// original (lower-cased) name so their values survive into extras. Duplicate
// canonical targets beyond the first are suffixed so no value is lost.
func (m FieldMapping) apply(headers []string) []string {
	canonical := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))

	for i, h := range headers {
		name, ok := m.CanonicalFor(h)
		if !ok {
			name = strings.ToLower(strings.TrimSpace(h))
		}
		if name == "" {
			name = "column"
		}
		if seen[name] {
			// First match wins the canonical slot.
			name = name + "_dup"
		}
		seen[name] = true
		canonical[i] = name
	}
	return canonical
}

// conceptKeywords are the substrings the heuristic fallback scans column
// names for, in precedence order. Best-effort only: a fallback match always
// produces a warning recommending an explicit mapping.
var conceptKeywords = []string{"concept", "description", "text", "idea", "name"}

// guessConceptColumn scans raw headers for a keyword hint and returns the
// matched column name. Explicit mapping is checked by the caller first; this
// runs only when no mapped column provides the concept field.
func guessConceptColumn(headers []string) (string, bool) {
	for _, keyword := range conceptKeywords {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), keyword) {
				return h, true
			}
		}
	}
	return "", false
}
