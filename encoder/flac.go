package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// Flac writes verbatim mono frames of at most BlockSize samples.
type Flac struct {
	buf     bytes.Buffer
	enc     *flac.Encoder
	pending []int16
	total   uint64
	done    bool
}

func NewFlac() (*Flac, error) {
	f := &Flac{}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&f.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	f.enc = enc
	return f, nil
}

func (f *Flac) Write(samples []int16) error {
	if f.done {
		return fmt.Errorf("flac: write after finish")
	}
	f.pending = append(f.pending, samples...)
	for len(f.pending) >= BlockSize {
		if err := f.writeFrame(f.pending[:BlockSize]); err != nil {
			return err
		}
		f.pending = f.pending[BlockSize:]
	}
	return nil
}

func (f *Flac) writeFrame(block []int16) error {
	samples := make([]int32, len(block))
	for i, s := range block {
		samples[i] = int32(s)
	}
	fr := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(block),
		}},
	}
	if err := f.enc.WriteFrame(fr); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	f.total += uint64(len(block))
	return nil
}

// Finish flushes the last partial frame and returns the encoded file.
func (f *Flac) Finish() ([]byte, error) {
	if !f.done {
		f.done = true
		if len(f.pending) > 0 {
			if err := f.writeFrame(f.pending); err != nil {
				return nil, err
			}
			f.pending = nil
		}
		if err := f.enc.Close(); err != nil {
			return nil, fmt.Errorf("closing flac encoder: %w", err)
		}
	}
	return f.buf.Bytes(), nil
}

func (f *Flac) Samples() uint64     { return f.total }
func (f *Flac) ContentType() string { return "audio/flac" }
func (f *Flac) Ext() string         { return "flac" }
