// Package audio decodes, reshapes and encodes meditation audio.
//
// All sample positions are derived from seconds through SampleIndex and
// SampleCount so every component rounds the same way.
package audio

import "math"

// epsilon absorbs float error such as 4.35*100 = 434.99999999999994.
const epsilon = 1e-9

// Waveform is a decoded audio buffer with one float sample slice per channel.
// Samples are in [-1, 1] and every channel has the same length.
type Waveform struct {
	SampleRate int
	Samples    [][]float32
}

// NewSilence returns an all-zero waveform of n samples per channel.
func NewSilence(sampleRate, channels, n int) *Waveform {
	if n < 0 {
		n = 0
	}
	samples := make([][]float32, channels)
	for c := range samples {
		samples[c] = make([]float32, n)
	}
	return &Waveform{SampleRate: sampleRate, Samples: samples}
}

// Channels returns the channel count.
func (w *Waveform) Channels() int {
	return len(w.Samples)
}

// Len returns the number of samples per channel.
func (w *Waveform) Len() int {
	if len(w.Samples) == 0 {
		return 0
	}
	return len(w.Samples[0])
}

// Duration returns the length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(w.Len()) / float64(w.SampleRate)
}

// SampleIndex converts a time in seconds into the index of the sample that
// contains it (floor). Negative and NaN times map to 0.
func SampleIndex(seconds float64, sampleRate int) int {
	if seconds <= 0 || math.IsNaN(seconds) || sampleRate <= 0 {
		return 0
	}
	return int(math.Floor(seconds*float64(sampleRate) + epsilon))
}

// SampleCount converts a duration in seconds into the number of samples
// needed to hold it (ceil).
func SampleCount(seconds float64, sampleRate int) int {
	if seconds <= 0 || math.IsNaN(seconds) || sampleRate <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*float64(sampleRate) - epsilon))
}

// SampleTime converts a sample index back to seconds.
func SampleTime(index, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(index) / float64(sampleRate)
}

// mono mixes all channels down to a single slice.
func (w *Waveform) mono() []float32 {
	n := w.Len()
	ch := w.Channels()
	if ch == 1 {
		return w.Samples[0]
	}
	out := make([]float32, n)
	for c := 0; c < ch; c++ {
		for i, v := range w.Samples[c][:n] {
			out[i] += v
		}
	}
	inv := 1 / float32(ch)
	for i := range out {
		out[i] *= inv
	}
	return out
}
