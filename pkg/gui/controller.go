// Package gui contains the toolkit-independent Controller of the desktop
// shell. The fyne window lives in gui/desktop.
package gui

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/emotion-detector/pkg/processing"
	"github.com/menta2k/emotion-detector/pkg/types"
)

// FacePipeline is the part of vision.Detector the shell uses
type FacePipeline interface {
	StartVideoCapture() error
	StopVideoCapture() error
	CaptureActive() bool
	GetVideoFrame() (*image.NRGBA, []types.DetectionResult, error)
	DetectEmotion(img image.Image) (*image.NRGBA, []types.DetectionResult, error)
}

// TextPipeline is the part of text.Detector the shell uses
type TextPipeline interface {
	AnalyzeText(ctx context.Context, s string) types.TextEmotionResult
}

// VoicePipeline is the part of voice.Detector the shell uses
type VoicePipeline interface {
	StartRecording() error
	StopRecording() (*types.VoiceResult, error)
	IsRecording() bool
}

// Controller turns user actions into pipeline calls and status text
type Controller struct {
	face      FacePipeline
	text      TextPipeline
	voice     VoicePipeline
	processor *processing.Processor
	log       logrus.FieldLogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	loop    sync.WaitGroup
}

// NewController creates a controller over the three pipelines
func NewController(face FacePipeline, txt TextPipeline, vc VoicePipeline) *Controller {
	return &Controller{
		face:      face,
		text:      txt,
		voice:     vc,
		processor: processing.NewProcessor(),
		log:       logrus.StandardLogger(),
	}
}

// SetLogger sets the logger used by the controller
func (c *Controller) SetLogger(l logrus.FieldLogger) {
	c.log = l
}

// ToggleCamera starts capture when it is stopped and stops it otherwise. It
// returns whether the camera is active afterwards.
func (c *Controller) ToggleCamera() (bool, error) {
	if c.face.CaptureActive() {
		c.StopFrameLoop()
		if err := c.face.StopVideoCapture(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := c.face.StartVideoCapture(); err != nil {
		return false, err
	}
	return true, nil
}

// PollFrame grabs and analyzes one camera frame. ok is false when there is
// nothing to show.
func (c *Controller) PollFrame() (frame *image.NRGBA, status string, ok bool) {
	frame, faces, err := c.face.GetVideoFrame()
	if err != nil {
		c.log.WithError(err).Debug("frame analysis failed")
		return nil, "", false
	}
	if frame == nil {
		return nil, "", false
	}
	return frame, FormatFaces(faces), true
}

// StartFrameLoop polls the camera every interval on its own goroutine and
// hands each analyzed frame to show. The loop ends when the camera stops or
// StopFrameLoop is called. Starting a running loop does nothing.
func (c *Controller) StartFrameLoop(interval time.Duration, show func(*image.NRGBA, string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	c.loop.Add(1)
	go func() {
		defer c.loop.Done()
		defer func() {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !c.face.CaptureActive() {
				return
			}
			if frame, status, ok := c.PollFrame(); ok {
				show(frame, status)
			}
		}
	}()
}

// StopFrameLoop ends the polling goroutine and waits for it to exit
func (c *Controller) StopFrameLoop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.loop.Wait()
}

// UploadImage loads the image at path and runs face detection on it
func (c *Controller) UploadImage(path string) (*image.NRGBA, string, error) {
	img, err := c.processor.LoadImage(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load image: %w", err)
	}
	annotated, faces, err := c.face.DetectEmotion(img)
	if err != nil {
		return nil, "", err
	}
	return annotated, FormatFaces(faces), nil
}

// StartRecording begins a voice capture session
func (c *Controller) StartRecording() (string, error) {
	if c.voice.IsRecording() {
		return "Already recording", nil
	}
	if err := c.voice.StartRecording(); err != nil {
		return "", err
	}
	return "Recording...", nil
}

// StopRecording ends the voice capture session and describes the result
func (c *Controller) StopRecording() (string, error) {
	res, err := c.voice.StopRecording()
	if err != nil {
		return "", err
	}
	return FormatVoice(res), nil
}

// AnalyzeText classifies s and describes the result
func (c *Controller) AnalyzeText(ctx context.Context, s string) string {
	return FormatText(c.text.AnalyzeText(ctx, s))
}

// Close stops the frame loop, the camera and any recording
func (c *Controller) Close() {
	c.StopFrameLoop()
	if err := c.face.StopVideoCapture(); err != nil {
		c.log.WithError(err).Warn("failed to release camera")
	}
	if c.voice.IsRecording() {
		if _, err := c.voice.StopRecording(); err != nil {
			c.log.WithError(err).Warn("failed to stop recording")
		}
	}
}

// FormatFaces describes the detected faces
func FormatFaces(faces []types.DetectionResult) string {
	if len(faces) == 0 {
		return "No faces detected"
	}
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = fmt.Sprintf("Face %d: %s (%.2f)", i+1, f.Emotion, f.Confidence)
	}
	return strings.Join(parts, "\n")
}

// FormatVoice describes a voice result
func FormatVoice(res *types.VoiceResult) string {
	if res == nil {
		return "No audio captured"
	}
	return fmt.Sprintf("Voice emotion: %s (%.2f), %d features", res.Emotion, res.Confidence, len(res.Features))
}

// FormatText describes a text result with its distribution
func FormatText(res types.TextEmotionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Text emotion: %s (%.2f)", res.Emotion, res.Confidence)
	for _, e := range res.AllEmotions {
		fmt.Fprintf(&b, "\n  %s: %.2f", e.Emotion, e.Confidence)
	}
	return b.String()
}

// FrameLoopRunning reports whether the polling goroutine is alive
func (c *Controller) FrameLoopRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
