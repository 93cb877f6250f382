package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleIndex(t *testing.T) {
	tests := []struct {
		seconds float64
		rate    int
		want    int
	}{
		{0, 44100, 0},
		{1.2, 1000, 1200},
		{4.35, 100, 435},
		{0.0149, 100, 1},
		{-1, 100, 0},
		{math.NaN(), 100, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SampleIndex(tt.seconds, tt.rate), "SampleIndex(%v, %d)", tt.seconds, tt.rate)
	}
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		seconds float64
		rate    int
		want    int
	}{
		{10, 44100, 441000},
		{4.35, 100, 435},
		{0.0101, 100, 2},
		{0, 100, 0},
		{-3, 100, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SampleCount(tt.seconds, tt.rate), "SampleCount(%v, %d)", tt.seconds, tt.rate)
	}
}

func TestSampleTime(t *testing.T) {
	assert.InDelta(t, 2.5, SampleTime(2500, 1000), 1e-12)
	assert.Equal(t, 0.0, SampleTime(10, 0))
}

func TestWaveform(t *testing.T) {
	w := NewSilence(8000, 2, 4000)
	assert.Equal(t, 2, w.Channels())
	assert.Equal(t, 4000, w.Len())
	assert.InDelta(t, 0.5, w.Duration(), 1e-12)
	assert.True(t, allZero(w.Samples[1]))

	empty := &Waveform{SampleRate: 8000}
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0.0, empty.Duration())
}

func TestWaveform_Mono(t *testing.T) {
	w := &Waveform{SampleRate: 10, Samples: [][]float32{{1, 0.5}, {0, -0.5}}}
	assert.Equal(t, []float32{0.5, 0}, w.mono())
}
