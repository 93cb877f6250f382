package audio

import (
	"log/slog"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

// SilenceInjector stretches aligned speech to a target duration by inserting
// silence after sentence-ending words.
type SilenceInjector struct {
	endReserve float64
	logger     *slog.Logger
}

// NewSilenceInjector creates a SilenceInjector that reserves
// pacing.EndSilenceSeconds of trailing silence.
// If logger is nil, slog.Default() is used.
func NewSilenceInjector(logger *slog.Logger) *SilenceInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SilenceInjector{endReserve: pacing.EndSilenceSeconds, logger: logger}
}

// Inject decodes data and returns it reshaped to targetSeconds as WAV.
//
// The end of speech is taken from the last word, not from the container,
// since synthesis engines pad their output. Audio already at or past the
// target is re-encoded without changes; speech is never truncated. If data
// cannot be decoded the original bytes are returned with Degraded set.
func (s *SilenceInjector) Inject(data []byte, words []alignment.Word, targetSeconds float64) Output {
	w, format, err := Decode(data)
	if err != nil {
		s.logger.Error("silence injection skipped, returning original audio",
			slog.String("format", string(format)),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()),
		)
		return degraded(data, format, StrategySentenceBoundary)
	}

	speechEnd := alignment.SpeechEnd(words)
	if len(words) == 0 {
		speechEnd = w.Duration()
	}
	points := alignment.SplicePoints(words)

	out, plan := InjectSilence(w, points, speechEnd, targetSeconds, s.endReserve)

	s.logger.Debug("silence injected",
		slog.Float64("speech_end", plan.SpeechDuration),
		slog.Float64("target", targetSeconds),
		slog.Float64("total_silence", plan.TotalSilence),
		slog.Int("splice_points", len(points)),
		slog.Float64("trailing_silence", plan.TrailingSilence),
	)

	return Output{
		Data:     EncodeWAV(out),
		Format:   FormatWAV,
		Strategy: StrategySentenceBoundary,
		Plan:     &plan,
		Duration: out.Duration(),
	}
}

// InjectSilence builds the paced waveform. The output holds exactly
// SampleCount(target) samples per channel; source samples past speechEnd
// are dropped. When no silence is needed w is returned as is.
func InjectSilence(w *Waveform, points []alignment.SplicePoint, speechEnd, target, endReserve float64) (*Waveform, pacing.PacingPlan) {
	plan := pacing.PlanSentenceSilence(speechEnd, target, len(points), endReserve)
	if plan.TotalSilence == 0 {
		return w, plan
	}

	rate := w.SampleRate
	outLen := SampleCount(target, rate)
	endIdx := min(SampleIndex(plan.SpeechDuration, rate), w.Len())

	// Cut positions and gap lengths are the same for every channel.
	cuts := make([]int, len(plan.Allocations))
	gaps := make([]int, len(plan.Allocations))
	prev := 0
	for i, alloc := range plan.Allocations {
		cut := min(SampleIndex(points[i].Time, rate), endIdx)
		cut = max(cut, prev)
		cuts[i] = cut
		gaps[i] = SampleIndex(alloc, rate)
		prev = cut
	}

	out := NewSilence(rate, w.Channels(), outLen)
	for c := range w.Samples {
		src := w.Samples[c]
		dst := out.Samples[c]
		read, write := 0, 0
		for i, cut := range cuts {
			write += copyClamped(dst, write, src[read:cut])
			read = cut
			write += gaps[i]
		}
		copyClamped(dst, write, src[read:endIdx])
	}
	return out, plan
}

// copyClamped copies src into dst at offset, never past the end of dst, and
// returns the number of samples the write cursor advances.
func copyClamped(dst []float32, offset int, src []float32) int {
	if offset >= len(dst) {
		return len(src)
	}
	copy(dst[offset:], src)
	return len(src)
}

func degraded(data []byte, format Format, strategy Strategy) Output {
	return Output{
		Data:     data,
		Format:   format,
		Strategy: strategy,
		Degraded: true,
	}
}
