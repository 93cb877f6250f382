package pacing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// ErrUnknownProfile is returned when a narration profile name is not recognised.
var ErrUnknownProfile = errors.New("pacing: unknown narration profile")

// Profile is a narration density profile.
// Dense reflective narration needs less injected silence to fill the same
// duration, so it requests more words per minute than sparse guided narration.
type Profile string

const (
	// ProfileSparse is slow, guided narration with long pauses.
	ProfileSparse Profile = "sparse"
	// ProfileDense is reflective narration with shorter pauses.
	ProfileDense Profile = "dense"
)

// Words per minute for each profile.
const (
	SparseWordsPerMinute = 28.0
	DenseWordsPerMinute  = 45.0
)

// WordsPerMinute returns the word density of the profile.
// Unknown profiles fall back to the sparse density.
func (p Profile) WordsPerMinute() float64 {
	if p == ProfileDense {
		return DenseWordsPerMinute
	}
	return SparseWordsPerMinute
}

// IsValid returns true if the profile is known.
func (p Profile) IsValid() bool {
	return p == ProfileSparse || p == ProfileDense
}

// ParseProfile converts a string into a Profile. An empty string yields ProfileSparse.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileSparse, nil
	}
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
	}
	return p, nil
}

// TargetWordCount returns how many words of speech to request from the
// script generator for a clip of durationSeconds under the given profile.
// The result is only an estimate; the real speech duration is known after synthesis.
func TargetWordCount(durationSeconds float64, profile Profile) int {
	return TargetWordCountCustom(durationSeconds, profile.WordsPerMinute())
}

// TargetWordCountCustom is TargetWordCount with an explicit word density.
func TargetWordCountCustom(durationSeconds, wordsPerMinute float64) int {
	if durationSeconds <= 0 || wordsPerMinute <= 0 || math.IsNaN(durationSeconds) {
		return 0
	}
	return int(math.Round(durationSeconds / 60 * wordsPerMinute))
}

// EstimateSpeechDuration estimates the spoken duration of text in seconds
// using the default character rate.
func EstimateSpeechDuration(text string) float64 {
	return DefaultConfig().EstimateSpeechDuration(text)
}

// EstimateSpeechDuration estimates the spoken duration of text in seconds.
func (c Config) EstimateSpeechDuration(text string) float64 {
	if c.CharsPerSecond <= 0 {
		return 0
	}
	return float64(CountChars(text)) / c.CharsPerSecond
}

// CountChars counts the non-whitespace runes in text.
func CountChars(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// CountWords counts whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
