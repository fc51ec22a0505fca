// Package audio captures microphone input as 16 kHz mono PCM16LE.
package audio

import (
	"fmt"
	"strings"
)

const (
	SampleRate = 16000
	Channels   = 1

	WAVHeaderSize = 44
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the name whether a device is a headset with
// reduced capture quality.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

func DefaultConfig() CaptureConfig {
	return CaptureConfig{SampleRate: SampleRate, Channels: Channels}
}

type DeviceInfo struct {
	ID   string // opaque, backend specific
	Name string
}

// Context is an audio backend.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice delivers PCM through its callback between Start and Stop.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// FindDevice returns the first device whose name contains name, ignoring case.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), want) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}
