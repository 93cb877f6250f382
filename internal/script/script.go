// Package script provides the script-generation collaborator: an
// OpenAI-compatible chat client and a demo-script fallback.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

// Request describes the meditation script to write.
type Request struct {
	// TargetWords is how many spoken words the script should contain.
	TargetWords int
	// Theme is the subject of the meditation, e.g. "sleep" or "focus".
	Theme string
	// Context is free-form text from the listener.
	Context string
	// Profile selects sparse guided narration or dense reflective narration.
	Profile pacing.Profile
}

// Generator writes meditation scripts.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// systemPrompt instructs the model to produce plain, speakable prose.
const systemPrompt = `You write scripts for spoken guided meditations.
Write plain prose only: no headings, no lists, no stage directions, no markup.
Use short sentences that end with a period, question mark or exclamation mark.
Start a new paragraph when the listener should settle for a longer moment.
Pauses are added later, so never write pause instructions.`

// userPrompt renders the per-request instructions.
func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a meditation script of about %d words.\n", req.TargetWords)

	switch req.Profile {
	case pacing.ProfileDense:
		b.WriteString("Style: reflective and flowing, with fuller sentences.\n")
	default:
		b.WriteString("Style: slow and guided, with very short sentences and simple words.\n")
	}
	if t := strings.TrimSpace(req.Theme); t != "" {
		fmt.Fprintf(&b, "Theme: %s\n", t)
	}
	if c := strings.TrimSpace(req.Context); c != "" {
		fmt.Fprintf(&b, "About the listener: %s\n", c)
	}
	b.WriteString("Return only the script text.")
	return b.String()
}
