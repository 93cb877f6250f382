package alignment

import (
	"strings"
	"unicode"
)

// maxTagChars bounds how far a markup tag may run before its closing '>'.
const maxTagChars = 64

// Normalize accumulates characters into words. Whitespace closes the current
// word; a word takes the start time of its first character and the end time
// of its last. A tag such as <break time="2s"/> is markup and never reaches a
// word, and any word that is empty or begins with tag syntax is discarded.
// A '<' that does not open a closed tag is ordinary text.
//
// Arrays of unequal length are truncated to the shortest.
func Normalize(a CharacterAlignment) []Word {
	n := min(len(a.Characters), len(a.StartTimes), len(a.EndTimes))

	var (
		words   []Word
		buf     strings.Builder
		start   float64
		end     float64
		started bool
	)

	flush := func() {
		if started {
			text := strings.TrimSpace(buf.String())
			if text != "" && !isTagStart(text) {
				words = append(words, Word{Text: text, Start: start, End: end})
			}
		}
		buf.Reset()
		started = false
	}

	for i := 0; i < n; i++ {
		ch := a.Characters[i]

		if ch == "<" {
			if end := tagEnd(a.Characters, i, n); end > i {
				flush()
				i = end
				continue
			}
		}
		if isBlank(ch) {
			flush()
			continue
		}

		if !started {
			start = a.StartTimes[i]
			started = true
		}
		buf.WriteString(ch)
		end = a.EndTimes[i]
	}
	flush()

	return words
}

// tagEnd returns the index of the character closing the tag opened at i, or
// -1 when no tag name follows the '<' or no '>' arrives within maxTagChars.
func tagEnd(chars []string, i, n int) int {
	if i+1 >= n || !isTagStart("<"+chars[i+1]) {
		return -1
	}
	for j := i + 1; j < n && j <= i+maxTagChars; j++ {
		if strings.Contains(chars[j], ">") {
			return j
		}
		if strings.Contains(chars[j], "<") {
			return -1
		}
	}
	return -1
}

// isTagStart reports whether s begins like a tag: '<' then a letter or '/'.
func isTagStart(s string) bool {
	rest, ok := strings.CutPrefix(s, "<")
	if !ok || rest == "" {
		return false
	}
	r := []rune(rest)[0]
	return r == '/' || unicode.IsLetter(r)
}

func isBlank(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// closers are trailing characters ignored when looking for terminal punctuation.
const closers = "\"')]}»”’"

// SplicePoints returns the words that end a sentence, in time order.
func SplicePoints(words []Word) []SplicePoint {
	var points []SplicePoint
	for i, w := range words {
		if endsSentence(w.Text) {
			points = append(points, SplicePoint{WordIndex: i, Word: w.Text, Time: w.End})
		}
	}
	return points
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, closers)
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, "!")
}

// SpeechEnd returns the end time of the last word, or 0 when there are none.
// Synthesis containers often carry trailing padding; this is the real end of speech.
func SpeechEnd(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	return words[len(words)-1].End
}

// Text joins the words with single spaces.
func Text(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}
