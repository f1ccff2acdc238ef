package desktop

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Title != "Emotion Detector" || opts.Width != 800 || opts.Height != 600 {
		t.Errorf("unexpected window defaults: %+v", opts)
	}
	if opts.FrameInterval != 10*time.Millisecond {
		t.Errorf("expected 10ms frame interval, got %v", opts.FrameInterval)
	}
}
