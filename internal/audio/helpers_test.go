package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// tone returns a waveform of a sine at freq Hz with the given amplitude.
func tone(rate, channels int, seconds, freq, amp float64) *Waveform {
	n := SampleCount(seconds, rate)
	w := NewSilence(rate, channels, n)
	for c := range w.Samples {
		for i := range w.Samples[c] {
			w.Samples[c][i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		}
	}
	return w
}

// join concatenates waveforms of equal rate and channel count.
func join(parts ...*Waveform) *Waveform {
	out := &Waveform{SampleRate: parts[0].SampleRate, Samples: make([][]float32, parts[0].Channels())}
	for _, p := range parts {
		for c := range out.Samples {
			out.Samples[c] = append(out.Samples[c], p.Samples[c]...)
		}
	}
	return out
}

// quantized round-trips w through the WAV encoder so comparisons against
// decoded output are exact.
func quantized(t *testing.T, w *Waveform) *Waveform {
	t.Helper()
	d, _, err := Decode(EncodeWAV(w))
	require.NoError(t, err)
	return d
}

func decodeOutput(t *testing.T, out Output) *Waveform {
	t.Helper()
	require.False(t, out.Degraded)
	require.Equal(t, FormatWAV, out.Format)
	w, _, err := Decode(out.Data)
	require.NoError(t, err)
	return w
}

func allZero(s []float32) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}
