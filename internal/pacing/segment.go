package pacing

import (
	"regexp"
	"strings"
)

// Punctuation classifies the punctuation run that terminates an atom.
type Punctuation string

const (
	PunctuationNone        Punctuation = "none"
	PunctuationComma       Punctuation = "comma"
	PunctuationSentenceEnd Punctuation = "sentenceEnd"
	PunctuationParagraph   Punctuation = "paragraph"
)

// Atom is a contiguous run of words terminated by punctuation.
type Atom struct {
	// Text is the content without its trailing punctuation.
	Text string
	// Punctuation is the class of the trailing punctuation run.
	Punctuation Punctuation
	// Mark is the punctuation reproduced when rendering markup.
	Mark string
	// Weight is the pause weight derived from Punctuation.
	Weight int
	// WordCount is the number of words in Text.
	WordCount int
	// CharCount is the number of non-whitespace characters in Text.
	CharCount int
}

// atomPattern captures a run of content followed by its punctuation run.
var atomPattern = regexp.MustCompile(`([^,.?!\n]+)([,.?!\n]*)`)

// Segment splits text into atoms using the default weights.
func Segment(text string) []Atom {
	return DefaultConfig().Segment(text)
}

// Segment splits text into atoms in left-to-right order.
// Runs with no content (stray punctuation, blank lines) produce no atom.
func (c Config) Segment(text string) []Atom {
	var atoms []Atom
	for _, m := range atomPattern.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[1])
		if content == "" {
			continue
		}
		class, mark := classifyPunctuation(m[2])
		atoms = append(atoms, Atom{
			Text:        content,
			Punctuation: class,
			Mark:        mark,
			Weight:      c.weight(class),
			WordCount:   CountWords(content),
			CharCount:   CountChars(content),
		})
	}
	return atoms
}

// classifyPunctuation returns the class of a punctuation run and the mark
// to render for it. A line break wins over any other punctuation.
func classifyPunctuation(run string) (Punctuation, string) {
	switch {
	case run == "":
		return PunctuationNone, ""
	case strings.Contains(run, "\n"):
		return PunctuationParagraph, run
	case strings.ContainsAny(run, ".?!"):
		// Keep only the first terminal mark so "?!" or "..." render as one character.
		i := strings.IndexAny(run, ".?!")
		return PunctuationSentenceEnd, run[i : i+1]
	case strings.Contains(run, ","):
		return PunctuationComma, ","
	default:
		return PunctuationNone, ""
	}
}
