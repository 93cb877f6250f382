package audio

import (
	"log/slog"
	"math"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

// StretchOpts configures break detection and gap widening.
type StretchOpts struct {
	// WindowMs is the RMS analysis window in milliseconds. Larger windows
	// are faster but place breaks less precisely.
	// Default: 50 milliseconds.
	WindowMs int

	// GuardMs is skipped at the start and end of the clip so encoder
	// lead-in and lead-out are not mistaken for breaks.
	// Default: 250 milliseconds.
	GuardMs int

	// SilenceThreshDB is the RMS level in dBFS below which a window is silent.
	// Default: -40 dBFS.
	SilenceThreshDB float64

	// MinSilenceMs is the length a silent run must exceed to count as a break.
	// Default: 300 milliseconds.
	MinSilenceMs int

	// FadeMs is the length of the fade on each side of an inserted gap.
	// Default: 15 milliseconds.
	FadeMs int
}

// DefaultStretchOpts returns the default options for break-point stretching.
func DefaultStretchOpts() StretchOpts {
	return StretchOpts{
		WindowMs:        50,
		GuardMs:         250,
		SilenceThreshDB: -40,
		MinSilenceMs:    300,
		FadeMs:          15,
	}
}

func msToSamples(ms, sampleRate int) int {
	return ms * sampleRate / 1000
}

// Break is a silent region of a waveform, in samples.
type Break struct {
	Start int
	End   int
	// Mid is where silence is inserted.
	Mid int
}

// DetectBreaks finds silent regions longer than opts.MinSilenceMs by
// computing windowed RMS over a mono mix of w, ignoring the guard margins.
// Only runs with speech on both sides are breaks: a run that starts at the
// first analyzed window or reaches the trailing guard is lead-in or padding.
func DetectBreaks(w *Waveform, opts StretchOpts) []Break {
	rate := w.SampleRate
	window := max(1, msToSamples(opts.WindowMs, rate))
	guard := max(0, msToSamples(opts.GuardMs, rate))
	minLen := msToSamples(opts.MinSilenceMs, rate)
	threshold := math.Pow(10, opts.SilenceThreshDB/20)

	samples := w.mono()
	limit := len(samples) - guard

	var (
		breaks   []Break
		runStart = -1
		heard    bool
	)
	for pos := guard; pos+window <= limit; pos += window {
		if rms(samples[pos:pos+window]) < threshold {
			if runStart < 0 {
				runStart = pos
			}
			continue
		}
		if heard && runStart >= 0 && pos-runStart > minLen {
			breaks = append(breaks, Break{Start: runStart, End: pos, Mid: runStart + (pos-runStart)/2})
		}
		runStart = -1
		heard = true
	}

	return breaks
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// BreakStretcher lengthens unaligned speech by widening its natural pauses.
type BreakStretcher struct {
	opts   StretchOpts
	logger *slog.Logger
}

// NewBreakStretcher creates a BreakStretcher.
// If logger is nil, slog.Default() is used.
func NewBreakStretcher(opts StretchOpts, logger *slog.Logger) *BreakStretcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakStretcher{opts: opts, logger: logger}
}

// Stretch decodes data and returns it lengthened to targetSeconds as 16-bit
// WAV. If data cannot be decoded the original bytes are returned with
// Degraded set.
func (s *BreakStretcher) Stretch(data []byte, targetSeconds float64) Output {
	w, format, err := Decode(data)
	if err != nil {
		s.logger.Error("break-point stretch skipped, returning original audio",
			slog.String("format", string(format)),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()),
		)
		return degraded(data, format, StrategyBreakPoint)
	}

	out, plan, breaks := StretchWaveform(w, targetSeconds, s.opts)

	s.logger.Debug("waveform stretched",
		slog.Float64("original", w.Duration()),
		slog.Float64("target", targetSeconds),
		slog.Int("breaks", len(breaks)),
	)

	return Output{
		Data:     EncodeWAV(out),
		Format:   FormatWAV,
		Strategy: StrategyBreakPoint,
		Plan:     &plan,
		Duration: out.Duration(),
	}
}

// StretchWaveform inserts silence at the midpoint of every detected break so
// the result holds SampleCount(target) samples. The extra samples are split
// evenly, the last break taking the remainder. Without breaks the silence is
// appended after the content. Waveforms already long enough are returned as is.
func StretchWaveform(w *Waveform, target float64, opts StretchOpts) (*Waveform, pacing.PacingPlan, []Break) {
	rate := w.SampleRate
	srcLen := w.Len()
	outLen := SampleCount(target, rate)

	plan := pacing.PacingPlan{
		TargetDuration: target,
		SpeechDuration: w.Duration(),
	}
	if outLen <= srcLen {
		return w, plan, nil
	}

	extra := outLen - srcLen
	plan.TotalSilence = SampleTime(extra, rate)

	breaks := DetectBreaks(w, opts)
	if len(breaks) == 0 {
		out := NewSilence(rate, w.Channels(), outLen)
		for c, src := range w.Samples {
			copy(out.Samples[c], src)
		}
		plan.TrailingSilence = plan.TotalSilence
		return out, plan, nil
	}

	gaps := make([]int, len(breaks))
	per := extra / len(breaks)
	for i := range gaps {
		gaps[i] = per
	}
	gaps[len(gaps)-1] += extra - per*len(breaks)

	plan.Allocations = make([]float64, len(gaps))
	for i, g := range gaps {
		plan.Allocations[i] = SampleTime(g, rate)
	}

	curve := smoothstepCurve(max(1, msToSamples(opts.FadeMs, rate)))
	fade := len(curve)

	out := NewSilence(rate, w.Channels(), outLen)
	for c, src := range w.Samples {
		dst := out.Samples[c]
		read, write := 0, 0
		resume := make([]int, len(breaks))
		for i, b := range breaks {
			n := copy(dst[write:], src[read:b.Mid])
			fadeOut(dst[max(write, write+n-fade):write+n], curve)
			write += n + gaps[i]
			read = b.Mid
			resume[i] = write
		}
		copy(dst[write:], src[read:])
		for _, r := range resume {
			fadeIn(dst[r:min(len(dst), r+fade)], curve)
		}
	}
	return out, plan, breaks
}
