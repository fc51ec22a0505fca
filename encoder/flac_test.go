package encoder

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func tone(seconds float64) []byte {
	n := int(seconds * SampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func TestEncodePCM(t *testing.T) {
	pcm := tone(1.3)
	data, err := EncodePCM(pcm)
	if err != nil {
		t.Fatalf("EncodePCM: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
}

func TestFlacSampleCount(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	samples := Samples(tone(1))
	// Uneven writes must still add up.
	for _, n := range []int{100, BlockSize, 3 * BlockSize / 2} {
		if err := enc.Write(samples[:n]); err != nil {
			t.Fatalf("Write(%d): %v", n, err)
		}
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	want := uint64(100 + BlockSize + 3*BlockSize/2)
	if enc.Samples() != want {
		t.Errorf("Samples = %d, want %d", enc.Samples(), want)
	}
	if err := enc.Write(samples[:10]); err == nil {
		t.Error("expected error writing after Finish")
	}
}

func TestFlacEmpty(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	data, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish on empty encoder: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestSamplesAndDuration(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0xff, 0x07}
	got := Samples(pcm)
	if len(got) != 2 || got[0] != 1 || got[1] != -1 {
		t.Fatalf("Samples = %v", got)
	}
	if d := Duration(2 * BytesPerSecond); d != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", d)
	}
}

func TestEncodeLabels(t *testing.T) {
	data, enc, err := Encode(tone(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if enc.ContentType() != "audio/flac" || enc.Ext() != "flac" {
		t.Errorf("labels = %q, %q", enc.ContentType(), enc.Ext())
	}
	if enc.Samples() != uint64(0.1*SampleRate) || len(data) == 0 {
		t.Errorf("samples = %d, %d bytes", enc.Samples(), len(data))
	}
}
