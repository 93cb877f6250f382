// Package pacing provides the pre-synthesis pacing model for meditation scripts.
//
// It covers three concerns that all work on text and seconds, never on samples:
// estimating how many words to request for a target duration, segmenting a
// script into punctuation-delimited speech atoms, and distributing a silence
// budget across those atoms as inline break markup. It also owns the
// PacingPlan arithmetic used by the post-synthesis silence injector.
package pacing

// Calibrated defaults.
const (
	// CharsPerSecond is the observed speech rate of the synthesis engine,
	// counted over non-whitespace characters (~310 chars ≈ 26 s of speech).
	CharsPerSecond = 12.0

	// SilenceSafetyBuffer inflates the legacy markup silence budget because
	// synthesized speech usually runs faster than the character estimate.
	SilenceSafetyBuffer = 1.1

	// MaxBreakSeconds is the longest pause a single break tag may carry.
	MaxBreakSeconds = 3.0

	// MinBreakSeconds is the shortest perceptible pause. Shorter allocations are dropped.
	MinBreakSeconds = 0.1

	// EndSilenceSeconds is the trailing silence reserved at the end of every
	// generated clip, held apart from the distributed pool.
	EndSilenceSeconds = 2.0
)

// Punctuation weights. Heavier punctuation receives a longer pause.
const (
	WeightComma     = 1
	WeightSentence  = 3
	WeightParagraph = 5
)

// Config holds the tunable parameters of the pacing model.
type Config struct {
	// CharsPerSecond is the speech rate used for duration estimates.
	CharsPerSecond float64

	// SilenceSafetyBuffer multiplies the legacy silence budget (must be >= 1).
	// It is an empirical constant; validate it against real engine output.
	SilenceSafetyBuffer float64

	// MaxBreakSeconds is the per-tag ceiling imposed by the synthesis platform.
	MaxBreakSeconds float64

	// MinBreakSeconds is the perceptibility floor for a single pause.
	MinBreakSeconds float64

	// Weights per punctuation class.
	WeightComma     int
	WeightSentence  int
	WeightParagraph int
}

// DefaultConfig returns the production-calibrated pacing configuration.
func DefaultConfig() Config {
	return Config{
		CharsPerSecond:      CharsPerSecond,
		SilenceSafetyBuffer: SilenceSafetyBuffer,
		MaxBreakSeconds:     MaxBreakSeconds,
		MinBreakSeconds:     MinBreakSeconds,
		WeightComma:         WeightComma,
		WeightSentence:      WeightSentence,
		WeightParagraph:     WeightParagraph,
	}
}

// weight returns the configured weight for a punctuation class.
func (c Config) weight(p Punctuation) int {
	switch p {
	case PunctuationComma:
		return c.WeightComma
	case PunctuationSentenceEnd:
		return c.WeightSentence
	case PunctuationParagraph:
		return c.WeightParagraph
	default:
		return 0
	}
}
