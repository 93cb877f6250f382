// Package alignment turns character-level synthesis timestamps into word
// timings and extracts the sentence boundaries where silence may be inserted.
package alignment

import (
	"errors"
	"fmt"
)

// ErrMismatchedLengths is returned when the parallel character arrays differ in length.
var ErrMismatchedLengths = errors.New("alignment: characters and timestamps have different lengths")

// CharacterAlignment is the character-level timing returned by the synthesis engine.
type CharacterAlignment struct {
	Characters []string  `json:"characters"`
	StartTimes []float64 `json:"character_start_times_seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds"`
}

// Validate checks that the three arrays are parallel.
func (a CharacterAlignment) Validate() error {
	if len(a.Characters) != len(a.StartTimes) || len(a.Characters) != len(a.EndTimes) {
		return fmt.Errorf("%w: %d characters, %d starts, %d ends",
			ErrMismatchedLengths, len(a.Characters), len(a.StartTimes), len(a.EndTimes))
	}
	return nil
}

// IsEmpty reports whether the alignment carries no characters.
func (a CharacterAlignment) IsEmpty() bool {
	return len(a.Characters) == 0
}

// Word is one spoken word with its timing relative to the start of the audio.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SplicePoint is a sentence-ending word: the only place interior silence may go.
type SplicePoint struct {
	// WordIndex is the index of the word in the normalized word list.
	WordIndex int     `json:"word_index"`
	Word      string  `json:"word"`
	Time      float64 `json:"time"`
}
