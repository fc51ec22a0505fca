// Package encoder compresses captured PCM before upload.
package encoder

import (
	"encoding/binary"
	"time"
)

// Captured audio is always 16 kHz mono signed 16-bit little endian.
const (
	SampleRate     = 16000
	Channels       = 1
	BitsPerSample  = 16
	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
	BlockSize      = 4096
)

// Encoder accepts PCM samples and produces a complete audio file.
type Encoder interface {
	Write(samples []int16) error
	Finish() ([]byte, error)
	Samples() uint64
	ContentType() string
	Ext() string
}

// Samples decodes raw PCM16LE. A trailing odd byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Duration returns the playback length of n bytes of captured PCM.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / BytesPerSecond
}

// Encode compresses a whole recording and returns the encoder alongside
// the data so callers can label the upload.
func Encode(pcm []byte) ([]byte, Encoder, error) {
	enc, err := NewFlac()
	if err != nil {
		return nil, nil, err
	}
	if err := enc.Write(Samples(pcm)); err != nil {
		return nil, nil, err
	}
	data, err := enc.Finish()
	if err != nil {
		return nil, nil, err
	}
	return data, enc, nil
}

// EncodePCM compresses a whole recording to FLAC.
func EncodePCM(pcm []byte) ([]byte, error) {
	data, _, err := Encode(pcm)
	return data, err
}
