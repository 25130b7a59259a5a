package output

import "strings"

// maxNameLength bounds sanitized names so deep organization strategies stay
// under filesystem path limits.
const maxNameLength = 80

// placeholder is returned when sanitization leaves nothing usable.
const placeholder = "item"

// labelWords is how many leading words DeriveLabel takes from a concept.
const labelWords = 4

// Sanitize converts arbitrary text into a safe file name component:
// lower-cased, filesystem-invalid characters and whitespace replaced with
// underscores, repeated separators collapsed, bounded length, never empty.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_.-")

	if len(out) > maxNameLength {
		out = strings.Trim(out[:maxNameLength], "_.-")
	}
	if out == "" {
		return placeholder
	}
	return out
}

// DeriveLabel produces a short slug from the first few words of a concept.
// Empty concepts yield the generic placeholder.
func DeriveLabel(concept string) string {
	words := strings.Fields(concept)
	if len(words) > labelWords {
		words = words[:labelWords]
	}
	return Sanitize(strings.Join(words, "_"))
}
