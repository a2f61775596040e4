package responder

import (
	"fmt"
	"strings"

	"github.com/sonant-dev/sonant/pkg/types"
)

// defaultPersona is used when no persona is configured.
const defaultPersona = "You are Sonant, a helpful voice assistant. " +
	"You answer spoken questions out loud, so keep replies short, conversational, " +
	"and free of markup, lists, or code."

// buildSystemPrompt assembles the persona paragraph and an optional knowledge
// section. Entries arrive pre-ranked from the store and are emitted in order.
func buildSystemPrompt(persona string, entries []types.KnowledgeEntry) string {
	var b strings.Builder
	b.WriteString(persona)

	if len(entries) > 0 {
		b.WriteString("\n\nYou have access to the following local knowledge. ")
		b.WriteString("Prefer it over general knowledge when it is relevant:\n")
		for _, e := range entries {
			if e.Title != "" {
				fmt.Fprintf(&b, "\n## %s\n%s\n", e.Title, e.Content)
			} else {
				fmt.Fprintf(&b, "\n%s\n", e.Content)
			}
		}
	}

	return b.String()
}
