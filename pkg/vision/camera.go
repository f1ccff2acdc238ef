package vision

import (
	"fmt"
	"image"

	"github.com/menta2k/emotion-detector/pkg/types"
)

// Camera is an exclusively owned video capture device
type Camera interface {
	Open(device int) error
	// Read grabs the next frame. ok is false when no frame is available.
	Read() (img image.Image, ok bool, err error)
	Close() error
}

// StartVideoCapture acquires the capture device
func (d *Detector) StartVideoCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.camera == nil {
		return ErrCameraUnavailable
	}
	if d.active {
		return nil
	}
	if err := d.camera.Open(d.device); err != nil {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	d.active = true
	d.log.WithField("device", d.device).Info("video capture started")
	return nil
}

// GetVideoFrame reads one frame and runs face detection on it. Without an
// active capture session, or when the device yields no frame, it returns nil
// results rather than an error.
func (d *Detector) GetVideoFrame() (*image.NRGBA, []types.DetectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil, nil, nil
	}

	frame, ok, err := d.camera.Read()
	if err != nil {
		d.log.WithError(err).Debug("frame read failed")
		return nil, nil, nil
	}
	if !ok || frame == nil {
		return nil, nil, nil
	}

	return d.DetectEmotion(frame)
}

// StopVideoCapture releases the capture device. Calling it without an active
// session is a no-op.
func (d *Detector) StopVideoCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}
	d.active = false
	d.log.Info("video capture stopped")
	if err := d.camera.Close(); err != nil {
		return fmt.Errorf("failed to release capture device: %w", err)
	}
	return nil
}

// CaptureActive reports whether a capture session is open
func (d *Detector) CaptureActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Close releases all resources held by the detector
func (d *Detector) Close() error {
	return d.StopVideoCapture()
}
