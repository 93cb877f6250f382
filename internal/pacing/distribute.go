package pacing

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// AtomWithSilence is an atom paired with the pause that follows it.
type AtomWithSilence struct {
	Atom
	// SilenceAfter is the pause after the atom in seconds (0 for none).
	SilenceAfter float64
}

// MarkupResult is the outcome of the legacy markup pacing path.
type MarkupResult struct {
	// Markup is the script with inline break tags.
	Markup string
	// TotalChars is the non-whitespace character count over all atoms.
	TotalChars int
	// TotalWords is the word count over all atoms.
	TotalWords int
	// EstimatedSpeechSeconds is the character-rate speech estimate.
	EstimatedSpeechSeconds float64
	// RawSilenceBudget is max(0, target - estimated speech).
	RawSilenceBudget float64
	// FinalSilenceBudget is RawSilenceBudget times the safety buffer.
	FinalSilenceBudget float64
	// TotalSilenceAdded is the silence actually rendered as break tags.
	TotalSilenceAdded float64
	// TargetDurationSeconds echoes the requested duration.
	TargetDurationSeconds float64
	// EstimatedTotalSeconds is speech estimate plus added silence.
	EstimatedTotalSeconds float64
	// AtomCount is the number of atoms in the script.
	AtomCount int
}

// Distribute allocates silenceBudget across atoms proportionally to their
// weight. The last atom never receives silence, and allocations below
// MinBreakSeconds are dropped to zero. The input slice is not modified.
func (c Config) Distribute(atoms []Atom, silenceBudget float64) []AtomWithSilence {
	out := make([]AtomWithSilence, len(atoms))
	if len(atoms) == 0 {
		return out
	}

	totalWeight := 0
	for _, a := range atoms[:len(atoms)-1] {
		totalWeight += a.Weight
	}

	perUnit := 0.0
	if totalWeight > 0 && silenceBudget > 0 {
		perUnit = silenceBudget / float64(totalWeight)
	}

	for i, a := range atoms {
		out[i] = AtomWithSilence{Atom: a}
		if i == len(atoms)-1 {
			continue
		}
		pause := float64(a.Weight) * perUnit
		if pause >= c.MinBreakSeconds {
			out[i].SilenceAfter = pause
		}
	}
	return out
}

// RenderMarkup renders atoms back into text with break tags after each pause.
func (c Config) RenderMarkup(atoms []AtomWithSilence) string {
	var b strings.Builder
	for i, a := range atoms {
		b.WriteString(a.Text)
		b.WriteString(a.Mark)
		if a.SilenceAfter > 0 {
			b.WriteString(c.BreakTags(a.SilenceAfter))
		}
		if i < len(atoms)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// BreakTags renders a pause as consecutive break tags, each no longer than
// MaxBreakSeconds. A remainder at or below MinBreakSeconds is dropped.
func (c Config) BreakTags(seconds float64) string {
	maxBreak := c.MaxBreakSeconds
	if maxBreak <= 0 {
		maxBreak = MaxBreakSeconds
	}

	var b strings.Builder
	remaining := seconds
	for remaining > c.MinBreakSeconds {
		d := math.Min(remaining, maxBreak)
		fmt.Fprintf(&b, `<break time="%.1fs"/>`, d)
		remaining -= d
	}
	return b.String()
}

// Markup runs the full legacy path: segment, budget, distribute and render.
func (c Config) Markup(text string, targetDurationSeconds float64) MarkupResult {
	atoms := c.Segment(text)

	res := MarkupResult{
		TargetDurationSeconds: targetDurationSeconds,
		AtomCount:             len(atoms),
	}
	for _, a := range atoms {
		res.TotalChars += a.CharCount
		res.TotalWords += a.WordCount
	}

	if c.CharsPerSecond > 0 {
		res.EstimatedSpeechSeconds = float64(res.TotalChars) / c.CharsPerSecond
	}
	res.RawSilenceBudget = math.Max(0, targetDurationSeconds-res.EstimatedSpeechSeconds)
	res.FinalSilenceBudget = res.RawSilenceBudget * c.SilenceSafetyBuffer

	distributed := c.Distribute(atoms, res.FinalSilenceBudget)
	for _, a := range distributed {
		res.TotalSilenceAdded += a.SilenceAfter
	}
	res.Markup = c.RenderMarkup(distributed)
	res.EstimatedTotalSeconds = res.EstimatedSpeechSeconds + res.TotalSilenceAdded

	return res
}

var (
	breakTagPattern = regexp.MustCompile(`<break\s+[^>]*/?>`)
	spacePattern    = regexp.MustCompile(`[ \t]{2,}`)
)

// StripBreakTags removes inline break markup so pacing can be decided after synthesis.
func StripBreakTags(text string) string {
	stripped := breakTagPattern.ReplaceAllString(text, " ")
	stripped = spacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
