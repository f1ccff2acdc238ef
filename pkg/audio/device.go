// Package audio provides microphone input streams and the chunk queue that
// carries captured audio from the device callback to the voice pipeline.
package audio

// StreamConfig describes an input stream
type StreamConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// DefaultStreamConfig returns 16 kHz mono input
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate:      16000,
		Channels:        1,
		FramesPerBuffer: 1024,
	}
}

// Callback receives one block of interleaved samples. The slice is only valid
// for the duration of the call.
type Callback func(in []float32)

// Stream is an opened input stream
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Device opens input streams on a capture device
type Device interface {
	OpenInput(cfg StreamConfig, cb Callback) (Stream, error)
}

// Downmix averages interleaved channels into a newly allocated mono block
func Downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
