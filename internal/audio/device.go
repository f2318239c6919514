package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Device is an immutable snapshot of an input-capable audio device.
// Device ids are positions in the host's device table and are not
// guaranteed stable across enumerations on real hardware.
type Device struct {
	ID          int
	RawName     string
	Label       string
	Default     bool
	SampleRates []int
}

// probeRates are the sample rates offered to the host when building a
// device's supported-rate list.
var probeRates = []int{8000, 16000, 22050, 32000, 44100, 48000, 96000}

var (
	paMu      sync.Mutex
	paInit    bool
	paInitErr error
)

// EnsureInitialized initializes PortAudio once per process. Idempotent;
// a failure is sticky and reported on every subsequent call.
func EnsureInitialized() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paInit {
		return paInitErr
	}
	paInit = true
	if err := portaudio.Initialize(); err != nil {
		paInitErr = fmt.Errorf("initialize portaudio: %w", err)
	}
	return paInitErr
}

// Terminate tears down the PortAudio subsystem. Call once at process
// exit, after all streams are stopped.
func Terminate() {
	paMu.Lock()
	defer paMu.Unlock()
	if paInit && paInitErr == nil {
		_ = portaudio.Terminate()
		paInit = false
	}
}

// EnumerateDevices lists every input-capable device with the sample
// rates it accepts. Returns an empty slice, not an error, when the host
// has no input devices.
func EnumerateDevices() ([]Device, error) {
	if err := EnsureInitialized(); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		dev := Device{
			ID:      i,
			RawName: info.Name,
			Label:   info.Name,
			Default: defaultIn != nil && info.Name == defaultIn.Name,
		}
		for _, rate := range probeRates {
			if formatSupported(info, rate) {
				dev.SampleRates = append(dev.SampleRates, rate)
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// CheckDeviceCompatibility reports whether the device exists, accepts
// input, and supports the given sample rate.
func CheckDeviceCompatibility(deviceID, sampleRate int) bool {
	if err := EnsureInitialized(); err != nil {
		return false
	}
	info, err := deviceInfo(deviceID)
	if err != nil || info.MaxInputChannels <= 0 {
		return false
	}
	return formatSupported(info, sampleRate)
}

func deviceInfo(deviceID int) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(infos) {
		return nil, fmt.Errorf("invalid device id %d", deviceID)
	}
	return infos[deviceID], nil
}

func formatSupported(info *portaudio.DeviceInfo, sampleRate int) bool {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate: float64(sampleRate),
	}
	return portaudio.IsFormatSupported(params, func([]float32) {}) == nil
}
