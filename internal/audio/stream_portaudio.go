package audio

import (
	"github.com/gordonklaus/portaudio"
)

// openPortAudioStream opens a mono float32 input stream bound to the
// stream's capture callback.
func openPortAudioStream(s *Stream) (paStream, error) {
	info, err := deviceInfo(s.deviceID)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.sampleRate),
		FramesPerBuffer: s.framesPerBuffer,
	}
	return portaudio.OpenStream(params, s.callback)
}
