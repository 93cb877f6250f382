package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveSecondClips(t *testing.T) []*Waveform {
	t.Helper()
	return []*Waveform{
		quantized(t, tone(testRate, 1, 5, 40, 0.5)),
		quantized(t, tone(testRate, 1, 5, 60, 0.5)),
		quantized(t, tone(testRate, 1, 5, 80, 0.5)),
	}
}

func TestConcatenateWaveforms_FillsTarget(t *testing.T) {
	clips := fiveSecondClips(t)

	out, plan, err := ConcatenateWaveforms(clips, 20, DefaultConcatOpts())
	require.NoError(t, err)

	require.Equal(t, 20000, out.Len())
	assert.InDelta(t, 20.0, out.Duration(), 1e-9)
	assert.Equal(t, []float64{2.5, 2.5}, plan.Allocations)
	assert.InDelta(t, 5.0, plan.TotalSilence, 1e-9)

	o := out.Samples[0]
	assert.Equal(t, clips[0].Samples[0], o[0:5000])
	assert.True(t, allZero(o[5000:7500]))
	assert.Equal(t, clips[1].Samples[0], o[7500:12500])
	assert.True(t, allZero(o[12500:15000]))
	assert.Equal(t, clips[2].Samples[0], o[15000:20000])
}

func TestConcatenateWaveforms_MinimumGapWhenClipsAreLong(t *testing.T) {
	out, plan, err := ConcatenateWaveforms(fiveSecondClips(t), 12, DefaultConcatOpts())
	require.NoError(t, err)

	assert.Equal(t, 16000, out.Len(), "clips are never trimmed")
	assert.Equal(t, []float64{0.5, 0.5}, plan.Allocations)
}

func TestConcatenateWaveforms_WidensChannels(t *testing.T) {
	mono := tone(testRate, 1, 1, 50, 0.5)
	stereo := tone(testRate, 2, 1, 70, 0.5)

	out, _, err := ConcatenateWaveforms([]*Waveform{mono, stereo}, 3, DefaultConcatOpts())
	require.NoError(t, err)

	require.Equal(t, 2, out.Channels())
	assert.Equal(t, mono.Samples[0], out.Samples[0][:1000])
	assert.Equal(t, mono.Samples[0], out.Samples[1][:1000], "missing channel reuses the mono channel")
	assert.Equal(t, stereo.Samples[1], out.Samples[1][2000:3000])
}

func TestConcatenateWaveforms_SingleClip(t *testing.T) {
	clip := tone(testRate, 1, 2, 50, 0.5)
	out, plan, err := ConcatenateWaveforms([]*Waveform{clip}, 10, DefaultConcatOpts())
	require.NoError(t, err)
	assert.Equal(t, clip.Len(), out.Len())
	assert.Empty(t, plan.Allocations)
}

func TestConcatenateWaveforms_Errors(t *testing.T) {
	_, _, err := ConcatenateWaveforms(nil, 10, DefaultConcatOpts())
	assert.ErrorIs(t, err, ErrNoClips)

	a := tone(16000, 1, 1, 50, 0.5)
	b := tone(22050, 1, 1, 50, 0.5)
	_, _, err = ConcatenateWaveforms([]*Waveform{a, b}, 10, DefaultConcatOpts())
	assert.ErrorIs(t, err, ErrSampleRateMismatch)
}

func TestConcatenate_Bytes(t *testing.T) {
	clips := fiveSecondClips(t)
	data := [][]byte{EncodeWAV(clips[0]), EncodeWAV(clips[1]), EncodeWAV(clips[2])}

	out, err := Concatenate(data, 20, DefaultConcatOpts())
	require.NoError(t, err)
	assert.Equal(t, StrategyConcatenate, out.Strategy)
	assert.Equal(t, FormatWAV, out.Format)
	assert.InDelta(t, 20.0, out.Duration, 1e-9)

	got := decodeOutput(t, out)
	assert.Equal(t, 20000, got.Len())
}

func TestConcatenate_DecodeError(t *testing.T) {
	good := EncodeWAV(tone(testRate, 1, 1, 50, 0.5))
	_, err := Concatenate([][]byte{good, []byte("broken")}, 5, DefaultConcatOpts())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Concatenate(nil, 5, DefaultConcatOpts())
	assert.ErrorIs(t, err, ErrNoClips)
}
