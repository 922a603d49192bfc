package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatency        time.Duration // input side, or output side for playback-only devices
	HighLatency       time.Duration
}

func newDevice(id int, info *portaudio.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowLatency:        info.DefaultLowInputLatency,
		HighLatency:       info.DefaultHighInputLatency,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	if info.MaxInputChannels == 0 {
		d.LowLatency = info.DefaultLowOutputLatency
		d.HighLatency = info.DefaultHighOutputLatency
	}
	return d
}

// Type reports "Input/Output", "Input", "Output" or "".
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return ""
}

// Duplex reports whether the device can both capture and play.
func (d Device) Duplex() bool {
	return d.MaxInputChannels > 0 && d.MaxOutputChannels > 0
}
