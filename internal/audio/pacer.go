package audio

import (
	"log/slog"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

// Strategy names the transform that produced an Output.
type Strategy string

const (
	// StrategySentenceBoundary inserts silence after sentence-ending words.
	StrategySentenceBoundary Strategy = "sentence_boundary"
	// StrategyBreakPoint widens silent gaps found in the waveform.
	StrategyBreakPoint Strategy = "break_point"
	// StrategyConcatenate joins several clips with silence between them.
	StrategyConcatenate Strategy = "concatenate"
)

// Output is the result of a pacing transform.
type Output struct {
	// Data is the encoded audio. It is WAV unless Degraded is set.
	Data []byte
	// Format is the container of Data.
	Format Format
	// Strategy is the transform that ran.
	Strategy Strategy
	// Plan describes where silence was placed. Nil when Degraded.
	Plan *pacing.PacingPlan
	// Degraded is set when the input could not be decoded and Data holds
	// the original bytes unchanged.
	Degraded bool
	// Duration is the length of Data in seconds, 0 when Degraded.
	Duration float64
}

// Input is the synthesized speech handed to the Pacer: either Aligned or Unaligned.
type Input interface {
	audioBytes() []byte
}

// Aligned is speech with word timings.
type Aligned struct {
	Data  []byte
	Words []alignment.Word
}

// Unaligned is speech without word timings.
type Unaligned struct {
	Data []byte
}

func (a Aligned) audioBytes() []byte   { return a.Data }
func (u Unaligned) audioBytes() []byte { return u.Data }

// Pacer picks exactly one pacing strategy per input.
type Pacer struct {
	injector  *SilenceInjector
	stretcher *BreakStretcher
}

// NewPacer creates a Pacer. Nil strategies are replaced by defaults.
func NewPacer(injector *SilenceInjector, stretcher *BreakStretcher) *Pacer {
	if injector == nil {
		injector = NewSilenceInjector(nil)
	}
	if stretcher == nil {
		stretcher = NewBreakStretcher(DefaultStretchOpts(), nil)
	}
	return &Pacer{injector: injector, stretcher: stretcher}
}

// NewDefaultPacer creates a Pacer with default strategies sharing logger.
func NewDefaultPacer(logger *slog.Logger) *Pacer {
	return NewPacer(NewSilenceInjector(logger), NewBreakStretcher(DefaultStretchOpts(), logger))
}

// Pace reshapes in to targetSeconds. Aligned input with words goes through
// the sentence-boundary injector; everything else through the break-point
// stretcher. Empty alignment is not an error, and a nil input degrades like
// undecodable audio.
func (p *Pacer) Pace(in Input, targetSeconds float64) Output {
	switch v := in.(type) {
	case Aligned:
		if len(v.Words) > 0 {
			return p.injector.Inject(v.Data, v.Words, targetSeconds)
		}
		return p.stretcher.Stretch(v.Data, targetSeconds)
	case *Aligned:
		if v != nil {
			return p.Pace(*v, targetSeconds)
		}
	case Unaligned:
		return p.stretcher.Stretch(v.Data, targetSeconds)
	case *Unaligned:
		if v != nil {
			return p.stretcher.Stretch(v.Data, targetSeconds)
		}
	}
	return p.stretcher.Stretch(nil, targetSeconds)
}
