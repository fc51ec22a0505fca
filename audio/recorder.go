package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrCaptureActive   = errors.New("capture already active")
	ErrCaptureInactive = errors.New("capture not active")
)

// Recorder buffers everything a CaptureDevice delivers between StartCapture
// and StopCapture.
type Recorder struct {
	ctx    Context
	device *DeviceInfo
	config CaptureConfig

	mu      sync.Mutex
	capture CaptureDevice
	active  bool

	bufMu sync.Mutex
	buf   bytes.Buffer
}

func NewRecorder(ctx Context, device *DeviceInfo) *Recorder {
	return &Recorder{ctx: ctx, device: device, config: DefaultConfig()}
}

func (r *Recorder) DeviceName() string {
	if r.device != nil {
		return r.device.Name
	}
	return "system default"
}

func (r *Recorder) StartCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrCaptureActive
	}
	if r.capture == nil {
		c, err := r.ctx.NewCapture(r.device, r.config)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		r.capture = c
	}

	r.bufMu.Lock()
	r.buf.Reset()
	r.bufMu.Unlock()

	r.capture.SetCallback(func(data []byte, _ uint32) {
		r.bufMu.Lock()
		r.buf.Write(data)
		r.bufMu.Unlock()
	})
	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		return fmt.Errorf("start capture: %w", err)
	}
	r.active = true
	return nil
}

// StopCapture ends the capture and returns a copy of the recorded PCM.
func (r *Recorder) StopCapture() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, ErrCaptureInactive
	}
	r.capture.Stop()
	r.capture.ClearCallback()
	r.active = false

	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	r.buf.Reset()
	return out, nil
}

func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture == nil {
		return
	}
	if r.active {
		r.capture.Stop()
		r.active = false
	}
	r.capture.Close()
	r.capture = nil
}
