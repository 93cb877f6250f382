// Package synth provides the speech-synthesis collaborator used by the
// meditation pipeline.
package synth

import (
	"context"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/audio"
)

// Request is a single synthesis call.
type Request struct {
	// Text is the script to speak. It may contain break markup.
	Text string
	// WithAlignment asks the engine for character timestamps.
	WithAlignment bool
}

// Speech is the result of a synthesis call: AlignedSpeech or PlainSpeech.
type Speech interface {
	// AudioBytes returns the encoded audio.
	AudioBytes() []byte
	// AudioFormat returns the container of the audio.
	AudioFormat() audio.Format
	isSpeech()
}

// AlignedSpeech is synthesized audio with character timestamps.
type AlignedSpeech struct {
	Audio     []byte
	Format    audio.Format
	Alignment alignment.CharacterAlignment
}

// PlainSpeech is synthesized audio without timing data.
type PlainSpeech struct {
	Audio  []byte
	Format audio.Format
}

func (s AlignedSpeech) AudioBytes() []byte        { return s.Audio }
func (s AlignedSpeech) AudioFormat() audio.Format { return s.Format }
func (AlignedSpeech) isSpeech()                   {}

func (s PlainSpeech) AudioBytes() []byte        { return s.Audio }
func (s PlainSpeech) AudioFormat() audio.Format { return s.Format }
func (PlainSpeech) isSpeech()                   {}

// Words returns the normalized word timings of the speech, or nil when the
// engine returned none.
func Words(s Speech) []alignment.Word {
	aligned, ok := s.(AlignedSpeech)
	if !ok {
		return nil
	}
	return alignment.Normalize(aligned.Alignment)
}

// PacerInput converts speech into the input of the audio pacer. Speech with
// usable word timings becomes audio.Aligned, anything else audio.Unaligned.
func PacerInput(s Speech) audio.Input {
	if words := Words(s); len(words) > 0 {
		return audio.Aligned{Data: s.AudioBytes(), Words: words}
	}
	return audio.Unaligned{Data: s.AudioBytes()}
}

// Provider defines the interface for speech-synthesis engines.
type Provider interface {
	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req Request) (Speech, error)

	// Health checks connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases resources held by the provider.
	Close() error
}
