package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"vocalfx/internal/config"
)

// PortAudio entry points, swapped by tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
// Returns an error if the device ID is invalid or the device has no inputs.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return pickDevice(deviceID, paLibDefaultInputDeviceFunc, "input",
		func(d *portaudio.DeviceInfo) int { return d.MaxInputChannels })
}

// OutputDevice is InputDevice for the playback side.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return pickDevice(deviceID, paLibDefaultOutputDeviceFunc, "output",
		func(d *portaudio.DeviceInfo) int { return d.MaxOutputChannels })
}

func pickDevice(
	deviceID int,
	def func() (*portaudio.DeviceInfo, error),
	dir string,
	channels func(*portaudio.DeviceInfo) int,
) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := def()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if channels(device) < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support %s", deviceID, device.Name, dir)
	}
	return device, nil
}

// HostDevices returns every device PortAudio reports, indexed by device ID.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = newDevice(i, info)
	}
	return devices, nil
}

// ListDevices writes information about all available audio devices to w.
// For each device, it shows the ID, name, type, channel counts, default
// sample rate and latency range.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", device.ID, device.Name, device.Type())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.LowLatency.Seconds()*1000,
			device.HighLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
