package synth

import (
	"context"
	"math"
	"sync"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/audio"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, MockSpeech is returned.
	SynthesizeFunc func(ctx context.Context, req Request) (Speech, error)

	// HealthFunc is called when Health is invoked. If nil, returns nil.
	HealthFunc func(ctx context.Context) error

	mu       sync.Mutex
	requests []Request
}

var _ Provider = (*Mock)(nil)

// NewMock creates a mock provider whose default output is MockSpeech.
func NewMock() *Mock {
	return &Mock{}
}

// Synthesize calls SynthesizeFunc and records the request.
func (m *Mock) Synthesize(ctx context.Context, req Request) (Speech, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	return MockSpeech(req.Text, req.WithAlignment), nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Requests returns a copy of the recorded requests.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Mock speech parameters.
const (
	MockSampleRate  = 8000
	MockCharSeconds = 0.05
	// MockPadSeconds of silence follow the last character, like a real engine.
	MockPadSeconds = 0.3
)

// MockSpeech renders text as a WAV tone, one MockCharSeconds slot per
// character with silence for whitespace, followed by MockPadSeconds of
// padding. With aligned set the character timestamps are included.
func MockSpeech(text string, aligned bool) Speech {
	chars := []rune(text)
	slot := audio.SampleCount(MockCharSeconds, MockSampleRate)
	n := slot*len(chars) + audio.SampleCount(MockPadSeconds, MockSampleRate)

	w := audio.NewSilence(MockSampleRate, 1, n)
	var ca alignment.CharacterAlignment
	for i, r := range chars {
		start := float64(i) * MockCharSeconds
		ca.Characters = append(ca.Characters, string(r))
		ca.StartTimes = append(ca.StartTimes, start)
		ca.EndTimes = append(ca.EndTimes, start+MockCharSeconds)

		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		for j := i * slot; j < (i+1)*slot; j++ {
			w.Samples[0][j] = float32(0.4 * math.Sin(2*math.Pi*200*float64(j)/MockSampleRate))
		}
	}

	data := audio.EncodeWAV(w)
	if !aligned {
		return PlainSpeech{Audio: data, Format: audio.FormatWAV}
	}
	return AlignedSpeech{Audio: data, Format: audio.FormatWAV, Alignment: ca}
}
