package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeDevices replaces the PortAudio device queries for the test.
func fakeDevices(t *testing.T) []*portaudio.DeviceInfo {
	t.Helper()
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000,
			DefaultLowInputLatency: 5 * time.Millisecond, DefaultHighInputLatency: 20 * time.Millisecond},
		{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000,
			DefaultLowOutputLatency: 10 * time.Millisecond, DefaultHighOutputLatency: 40 * time.Millisecond},
		{Name: "USB Interface", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 44100,
			HostApi: &portaudio.HostApiInfo{Name: "Core Audio"}},
	}

	origDevices, origIn, origOut := paLibDevicesFunc, paLibDefaultInputDeviceFunc, paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc, paLibDefaultInputDeviceFunc, paLibDefaultOutputDeviceFunc = origDevices, origIn, origOut
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[0], nil }
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[1], nil }
	return devices
}

func TestHostDevices(t *testing.T) {
	fakeDevices(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}

	tests := []struct {
		id      int
		typ     string
		duplex  bool
		low     time.Duration
		hostAPI string
	}{
		{0, "Input", false, 5 * time.Millisecond, ""},
		{1, "Output", false, 10 * time.Millisecond, ""},
		{2, "Input/Output", true, 0, "Core Audio"},
	}
	for _, tt := range tests {
		d := devices[tt.id]
		if d.Type() != tt.typ || d.Duplex() != tt.duplex {
			t.Errorf("device %d: type %q duplex %v, want %q %v", tt.id, d.Type(), d.Duplex(), tt.typ, tt.duplex)
		}
		if d.LowLatency != tt.low {
			t.Errorf("device %d: low latency %v, want %v", tt.id, d.LowLatency, tt.low)
		}
		if d.HostAPI != tt.hostAPI {
			t.Errorf("device %d: host API %q, want %q", tt.id, d.HostAPI, tt.hostAPI)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputOutputDevice(t *testing.T) {
	fakeDevices(t)

	if dev, err := InputDevice(-1); err != nil || dev.Name != "Built-in Microphone" {
		t.Errorf("default input = %v, %v", dev, err)
	}
	if dev, err := OutputDevice(-1); err != nil || dev.Name != "Built-in Output" {
		t.Errorf("default output = %v, %v", dev, err)
	}
	if dev, err := InputDevice(2); err != nil || dev.Name != "USB Interface" {
		t.Errorf("InputDevice(2) = %v, %v", dev, err)
	}

	tests := []struct {
		name   string
		get    func(int) (*portaudio.DeviceInfo, error)
		id     int
		substr string
	}{
		{"Negative ID", InputDevice, -2, "invalid device ID"},
		{"Too high ID", InputDevice, 13, "invalid device ID"},
		{"Non-input device", InputDevice, 1, "does not support input"},
		{"Non-output device", OutputDevice, 0, "does not support output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.get(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	fakeDevices(t)
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestListDevices(t *testing.T) {
	fakeDevices(t)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Output (Output)",
		"[2] USB Interface (Input/Output)",
		"Default sample rate: 44100 Hz",
		"Low=5.00ms, High=20.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
