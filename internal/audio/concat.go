package audio

import (
	"errors"
	"fmt"
	"math"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

var (
	// ErrNoClips is returned when Concatenate is called without clips.
	ErrNoClips = errors.New("audio: no clips to concatenate")
	// ErrSampleRateMismatch is returned when clips have different sample rates.
	ErrSampleRateMismatch = errors.New("audio: clips have different sample rates")
)

// ConcatOpts configures clip concatenation.
type ConcatOpts struct {
	// MinGapTotal is the least silence, in seconds, placed between clips
	// even when the clips alone already reach the target.
	// Default: 1 second.
	MinGapTotal float64
}

// DefaultConcatOpts returns the default concatenation options.
func DefaultConcatOpts() ConcatOpts {
	return ConcatOpts{MinGapTotal: 1.0}
}

// Concatenate decodes clips and joins them in order with evenly sized silent
// gaps so the result lasts targetSeconds. The silence between clips is
// max(MinGapTotal, target - sum of clip durations); clip content is never
// trimmed, so the output exceeds the target when the clips are too long.
func Concatenate(clips [][]byte, targetSeconds float64, opts ConcatOpts) (Output, error) {
	if len(clips) == 0 {
		return Output{}, ErrNoClips
	}

	waves := make([]*Waveform, len(clips))
	for i, data := range clips {
		w, _, err := Decode(data)
		if err != nil {
			return Output{}, fmt.Errorf("decode clip %d: %w", i, err)
		}
		waves[i] = w
	}

	out, plan, err := ConcatenateWaveforms(waves, targetSeconds, opts)
	if err != nil {
		return Output{}, err
	}

	return Output{
		Data:     EncodeWAV(out),
		Format:   FormatWAV,
		Strategy: StrategyConcatenate,
		Plan:     &plan,
		Duration: out.Duration(),
	}, nil
}

// ConcatenateWaveforms is Concatenate on decoded waveforms. The output has
// as many channels as the widest clip; a narrower clip fills the missing
// channels from its last channel.
func ConcatenateWaveforms(clips []*Waveform, targetSeconds float64, opts ConcatOpts) (*Waveform, pacing.PacingPlan, error) {
	if len(clips) == 0 {
		return nil, pacing.PacingPlan{}, ErrNoClips
	}

	rate := clips[0].SampleRate
	channels := 0
	total := 0
	for i, c := range clips {
		if c.SampleRate != rate {
			return nil, pacing.PacingPlan{}, fmt.Errorf("%w: clip 0 is %d Hz, clip %d is %d Hz",
				ErrSampleRateMismatch, rate, i, c.SampleRate)
		}
		channels = max(channels, c.Channels())
		total += c.Len()
	}

	clipSeconds := SampleTime(total, rate)
	plan := pacing.PacingPlan{
		TargetDuration: targetSeconds,
		SpeechDuration: clipSeconds,
	}

	gapCount := len(clips) - 1
	gapLen := 0
	if gapCount > 0 {
		remaining := math.Max(opts.MinGapTotal, targetSeconds-clipSeconds)
		gapLen = SampleIndex(remaining/float64(gapCount), rate)
		plan.Allocations = make([]float64, gapCount)
		for i := range plan.Allocations {
			plan.Allocations[i] = SampleTime(gapLen, rate)
		}
		plan.TotalSilence = SampleTime(gapLen*gapCount, rate)
	}

	out := NewSilence(rate, channels, total+gapLen*gapCount)
	for c := 0; c < channels; c++ {
		dst := out.Samples[c]
		write := 0
		for i, clip := range clips {
			if clip.Channels() > 0 {
				write += copyClamped(dst, write, clip.Samples[min(c, clip.Channels()-1)])
			}
			if i < gapCount {
				write += gapLen
			}
		}
	}
	return out, plan, nil
}
