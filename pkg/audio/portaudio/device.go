// Package portaudio provides an audio.Device backed by the system's default
// input through PortAudio.
package portaudio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/menta2k/emotion-detector/pkg/audio"
)

// Device opens the default input device. The PortAudio library is
// initialized on the first OpenInput and terminated by Close.
type Device struct {
	mu          sync.Mutex
	initialized bool
}

// NewDevice creates a device handle
func NewDevice() *Device {
	return &Device{}
}

// OpenInput implements audio.Device
func (d *Device) OpenInput(cfg audio.StreamConfig, cb audio.Callback) (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		d.initialized = true
	}

	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(cfg.SampleRate), cfg.FramesPerBuffer, func(in []float32) {
		cb(in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	return stream, nil
}

// Close terminates PortAudio if it was initialized
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}
	d.initialized = false
	return portaudio.Terminate()
}
