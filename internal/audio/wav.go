package audio

import (
	"encoding/binary"
	"math"
)

const (
	wavHeaderSize = 44
	wavBitDepth   = 16
	pcmFormatTag  = 1
)

// EncodeWAV serializes w as a 16-bit PCM WAV file with a 44-byte header.
// Samples are clamped to [-1, 1]; positive values scale by 32767 and
// negative values by 32768 so both ends of the int16 range are reachable.
func EncodeWAV(w *Waveform) []byte {
	channels := w.Channels()
	n := w.Len()
	blockAlign := channels * wavBitDepth / 8
	dataSize := n * blockAlign

	buf := make([]byte, wavHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], 16)
	le.PutUint16(buf[20:22], pcmFormatTag)
	le.PutUint16(buf[22:24], uint16(channels))
	le.PutUint32(buf[24:28], uint32(w.SampleRate))
	le.PutUint32(buf[28:32], uint32(w.SampleRate*blockAlign))
	le.PutUint16(buf[32:34], uint16(blockAlign))
	le.PutUint16(buf[34:36], wavBitDepth)
	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], uint32(dataSize))

	off := wavHeaderSize
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			le.PutUint16(buf[off:off+2], uint16(floatToPCM16(w.Samples[c][i])))
			off += 2
		}
	}
	return buf
}

func floatToPCM16(v float32) int16 {
	x := float64(v)
	switch {
	case math.IsNaN(x):
		return 0
	case x > 1:
		x = 1
	case x < -1:
		x = -1
	}
	if x < 0 {
		return int16(math.Round(x * 32768))
	}
	return int16(math.Round(x * 32767))
}

// pcmToFloat is the inverse of floatToPCM16 generalized to any signed bit depth.
func pcmToFloat(v, bitDepth int) float32 {
	full := float64(int64(1) << (bitDepth - 1))
	if v < 0 {
		return float32(float64(v) / full)
	}
	return float32(float64(v) / (full - 1))
}
