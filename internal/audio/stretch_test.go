package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stretchRate = 8000

// toneGapTone is 1 s tone, 0.6 s silence, 1 s tone at 8 kHz.
func toneGapTone() *Waveform {
	return join(
		tone(stretchRate, 1, 1.0, 220, 0.5),
		NewSilence(stretchRate, 1, SampleCount(0.6, stretchRate)),
		tone(stretchRate, 1, 1.0, 220, 0.5),
	)
}

func TestDetectBreaks(t *testing.T) {
	breaks := DetectBreaks(toneGapTone(), DefaultStretchOpts())
	require.Len(t, breaks, 1)

	b := breaks[0]
	assert.Equal(t, 8000, b.Start)
	assert.Equal(t, 12800, b.End)
	assert.Equal(t, 10400, b.Mid)
}

func TestDetectBreaks_IgnoresShortPauses(t *testing.T) {
	w := join(
		tone(stretchRate, 1, 1.0, 220, 0.5),
		NewSilence(stretchRate, 1, SampleCount(0.2, stretchRate)),
		tone(stretchRate, 1, 1.0, 220, 0.5),
	)
	assert.Empty(t, DetectBreaks(w, DefaultStretchOpts()))
}

func TestDetectBreaks_IgnoresGuardMargins(t *testing.T) {
	w := join(
		NewSilence(stretchRate, 1, SampleCount(0.2, stretchRate)),
		tone(stretchRate, 1, 2.0, 220, 0.5),
		NewSilence(stretchRate, 1, SampleCount(0.2, stretchRate)),
	)
	assert.Empty(t, DetectBreaks(w, DefaultStretchOpts()))
}

func TestDetectBreaks_IgnoresEnginePadding(t *testing.T) {
	padding := func() *Waveform { return NewSilence(stretchRate, 1, SampleCount(1.0, stretchRate)) }

	tests := []struct {
		name      string
		w         *Waveform
		wantStart int
		wantEnd   int
	}{
		{"trailing", join(toneGapTone(), padding()), 8000, 12800},
		{"leading", join(padding(), toneGapTone()), 16000, 20800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaks := DetectBreaks(tt.w, DefaultStretchOpts())
			require.Len(t, breaks, 1)
			assert.Equal(t, tt.wantStart, breaks[0].Start)
			assert.Equal(t, tt.wantEnd, breaks[0].End)
		})
	}
}

func TestDetectBreaks_MultipleBreaks(t *testing.T) {
	gap := func() *Waveform { return NewSilence(stretchRate, 2, SampleCount(0.5, stretchRate)) }
	speech := func() *Waveform { return tone(stretchRate, 2, 0.8, 180, 0.4) }

	w := join(speech(), gap(), speech(), gap(), speech())
	breaks := DetectBreaks(w, DefaultStretchOpts())
	require.Len(t, breaks, 2)
	assert.Less(t, breaks[0].Mid, breaks[1].Mid)
}

func TestStretchWaveform_WidensBreak(t *testing.T) {
	src := toneGapTone()
	out, plan, breaks := StretchWaveform(src, 4.0, DefaultStretchOpts())

	require.Len(t, breaks, 1)
	require.Equal(t, 32000, out.Len())
	extra := 32000 - src.Len()

	s, o := src.Samples[0], out.Samples[0]
	assert.Equal(t, s[:8000], o[:8000], "speech before the break is untouched")
	assert.True(t, allZero(o[8000:10400+extra+2400]))
	assert.Equal(t, s[12800:], o[10400+extra+2400:], "speech after the break is untouched")

	require.Len(t, plan.Allocations, 1)
	assert.InDelta(t, float64(extra)/stretchRate, plan.Allocations[0], 1e-9)
	assert.InDelta(t, plan.TotalSilence, plan.InteriorSilence(), 1e-9)
}

func TestStretchWaveform_SilenceGoesBetweenSpeech(t *testing.T) {
	src := join(toneGapTone(), NewSilence(stretchRate, 1, SampleCount(1.0, stretchRate)))
	out, plan, breaks := StretchWaveform(src, 10.0, DefaultStretchOpts())

	require.Len(t, breaks, 1)
	require.Equal(t, 80000, out.Len())
	assert.Equal(t, []float64{6.4}, plan.Allocations)
	assert.Equal(t, src.Samples[0][12800:20800], out.Samples[0][12800+51200:20800+51200], "second sentence follows the widened break")
}

func TestStretchWaveform_EvenSplitWithRemainder(t *testing.T) {
	speech := func() *Waveform { return tone(stretchRate, 1, 0.8, 180, 0.4) }
	gap := func() *Waveform { return NewSilence(stretchRate, 1, SampleCount(0.5, stretchRate)) }
	src := join(speech(), gap(), speech(), gap(), speech())

	target := SampleTime(src.Len()+1001, stretchRate)
	out, plan, breaks := StretchWaveform(src, target, DefaultStretchOpts())

	require.Len(t, breaks, 2)
	assert.Equal(t, src.Len()+1001, out.Len())
	assert.InDelta(t, 500.0/stretchRate, plan.Allocations[0], 1e-9)
	assert.InDelta(t, 501.0/stretchRate, plan.Allocations[1], 1e-9)
}

func TestStretchWaveform_NoBreaksAppends(t *testing.T) {
	src := tone(stretchRate, 1, 2.0, 220, 0.5)
	out, plan, breaks := StretchWaveform(src, 3.0, DefaultStretchOpts())

	assert.Empty(t, breaks)
	require.Equal(t, 24000, out.Len())
	assert.Equal(t, src.Samples[0], out.Samples[0][:16000])
	assert.True(t, allZero(out.Samples[0][16000:]))
	assert.InDelta(t, 1.0, plan.TrailingSilence, 1e-9)
	assert.Empty(t, plan.Allocations)
}

func TestStretchWaveform_AlreadyLongEnough(t *testing.T) {
	src := toneGapTone()
	out, plan, _ := StretchWaveform(src, 1.0, DefaultStretchOpts())
	assert.Same(t, src, out)
	assert.Equal(t, 0.0, plan.TotalSilence)
}

func TestBreakStretcher_Stretch(t *testing.T) {
	data := EncodeWAV(toneGapTone())
	s := NewBreakStretcher(DefaultStretchOpts(), nil)

	out := s.Stretch(data, 5.25)
	assert.Equal(t, StrategyBreakPoint, out.Strategy)
	got := decodeOutput(t, out)
	assert.Equal(t, SampleCount(5.25, stretchRate), got.Len())
	assert.InDelta(t, 5.25, out.Duration, 1.0/stretchRate)
}

func TestBreakStretcher_DecodeFailureDegrades(t *testing.T) {
	garbage := []byte("not audio at all")
	out := NewBreakStretcher(DefaultStretchOpts(), nil).Stretch(garbage, 10)

	assert.True(t, out.Degraded)
	assert.Equal(t, garbage, out.Data)
	assert.Equal(t, FormatUnknown, out.Format)
}

func TestSmoothstepCurve(t *testing.T) {
	curve := smoothstepCurve(64)
	require.Len(t, curve, 64)
	assert.Less(t, curve[0], float32(0.01))
	assert.Greater(t, curve[63], float32(0.99))
	for i := 1; i < len(curve); i++ {
		assert.Greater(t, curve[i], curve[i-1])
	}
}

func TestFades(t *testing.T) {
	curve := smoothstepCurve(8)

	out := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	fadeOut(out, curve)
	assert.Equal(t, float32(1), out[0], "only the tail fades")
	assert.Less(t, out[9], float32(0.05))

	in := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	fadeIn(in, curve)
	assert.Less(t, in[0], float32(0.05))
	assert.Equal(t, float32(1), in[9], "only the head fades")

	short := []float32{1, 1}
	fadeOut(short, curve)
	assert.Less(t, short[1], float32(0.05))
}
