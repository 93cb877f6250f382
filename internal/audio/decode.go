package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

var (
	// ErrUnsupportedFormat is returned when the bytes are neither WAV nor MP3.
	ErrUnsupportedFormat = errors.New("audio: unsupported audio format")
	// ErrEmptyAudio is returned when a container decodes to zero samples.
	ErrEmptyAudio = errors.New("audio: no samples decoded")
)

// Format identifies an encoded audio container.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatWAV:
		return ".wav"
	case FormatMP3:
		return ".mp3"
	default:
		return ".bin"
	}
}

// DetectFormat sniffs the container from its magic bytes.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Decode decodes WAV or MP3 bytes into a Waveform. The detected format is
// returned even when decoding fails so callers can pass the bytes through.
func Decode(data []byte) (*Waveform, Format, error) {
	format := DetectFormat(data)

	var (
		w   *Waveform
		err error
	)
	switch format {
	case FormatWAV:
		w, err = decodeWAV(data)
	case FormatMP3:
		w, err = decodeMP3(data)
	default:
		return nil, format, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, format, err
	}
	if w.Len() == 0 {
		return nil, format, ErrEmptyAudio
	}
	return w, format, nil
}

func decodeWAV(data []byte) (*Waveform, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("decode wav: invalid file")
	}
	// PCM and WAVE_FORMAT_EXTENSIBLE integer data only.
	if d.WavAudioFormat != 1 && d.WavAudioFormat != 0xFFFE {
		return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decode wav: missing format")
	}

	return fromIntBuffer(buf, int(d.BitDepth)), nil
}

// fromIntBuffer deinterleaves integer PCM into a Waveform.
func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) *Waveform {
	channels := buf.Format.NumChannels
	n := len(buf.Data) / channels

	w := NewSilence(buf.Format.SampleRate, channels, n)
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			v := buf.Data[i*channels+c]
			if bitDepth == 8 {
				// 8-bit WAV is unsigned.
				w.Samples[c][i] = float32(v-128) / 128
				continue
			}
			w.Samples[c][i] = pcmToFloat(v, bitDepth)
		}
	}
	return w
}

// decodeMP3 decodes to stereo; go-mp3 always emits 16-bit little-endian stereo frames.
func decodeMP3(data []byte) (*Waveform, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: read pcm: %w", err)
	}

	const bytesPerFrame = 4
	n := len(pcm) / bytesPerFrame

	w := NewSilence(d.SampleRate(), 2, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
		right := int16(binary.LittleEndian.Uint16(pcm[off+2 : off+4]))
		w.Samples[0][i] = pcmToFloat(int(left), 16)
		w.Samples[1][i] = pcmToFloat(int(right), 16)
	}
	return w, nil
}
