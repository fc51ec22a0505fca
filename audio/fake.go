package audio

import (
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2
)

// FakeContext replays fixed PCM instead of opening a microphone. Every
// capture it creates delivers the same audio.
type FakeContext struct {
	PCM      []byte
	Realtime bool
}

// NewFakeContextFromWAV loads a 16 kHz mono PCM16 WAV file.
func NewFakeContextFromWAV(path string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{PCM: data, Realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "Fake Microphone"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.PCM, realtime: f.Realtime}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	starts   int
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCapture) deliver(pos int) int {
	end := min(pos+fakeFrameSize*fakeBytesPerFrame, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	}
	return end
}

// Start delivers the PCM. Without Realtime everything arrives before Start
// returns; with it, one frame per frame duration until Stop.
func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.starts++
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	if !f.realtime {
		for pos := 0; pos < len(f.pcm); {
			pos = f.deliver(pos)
		}
		close(done)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / SampleRate
	go func() {
		defer close(done)
		for pos := 0; pos < len(f.pcm); {
			pos = f.deliver(pos)
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stop == nil {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done
}

func (f *FakeCapture) Close() {}
