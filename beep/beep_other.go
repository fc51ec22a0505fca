//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"hark/log"
)

const tailSeconds = 0.05

var (
	initOnce sync.Once
	mctx     *malgo.AllocatedContext
	device   *malgo.Device

	// read from the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

func openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: fill})
	return err
}

func setup() {
	var err error
	mctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: audio context: %v", err)
		return
	}
	if err := openDevice(); err != nil {
		log.Warnf("beep: playback device: %v", err)
		mctx.Uninit()
		mctx = nil
	}
}

func fill(out, _ []byte, frames uint32) {
	clear(out)
	buf := current.Load()
	if buf == nil {
		return
	}
	p := pos.Load()
	n := copy(out[:frames*2], (*buf)[p:])
	if n == 0 {
		current.Store(nil)
		return
	}
	pos.Store(p + uint32(n))
}

func play(samples []int16) {
	initOnce.Do(setup)
	if mctx == nil || len(samples) == 0 {
		return
	}
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}

	playMu.Lock()
	defer playMu.Unlock()
	device.Stop()
	pos.Store(0)
	current.Store(&buf)
	if err := device.Start(); err != nil {
		// the device goes stale across sleep/wake on macOS
		device.Uninit()
		if err := openDevice(); err != nil {
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
