package expand

import (
	"fmt"
	"strings"
)

// systemPrompt frames every expansion request.
const systemPrompt = `You are a concept-expansion assistant. Given a short concept, develop it into a rich, concrete treatment: what it is, how it works, what makes it distinctive, and two or three directions it could be taken further. Write flowing prose, no headings.`

// buildUserPrompt renders the request into the user message.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s\n", strings.TrimSpace(req.Concept))
	if body := strings.TrimSpace(req.Body); body != "" {
		fmt.Fprintf(&b, "\nSupporting notes:\n%s\n", body)
	}
	b.WriteString("\nExpand this concept.")
	return b.String()
}
