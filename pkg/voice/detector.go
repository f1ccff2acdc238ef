// Package voice records microphone audio in the background and summarizes it
// with spectral features.
package voice

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/emotion-detector/pkg/audio"
	"github.com/menta2k/emotion-detector/pkg/features"
	"github.com/menta2k/emotion-detector/pkg/types"
)

// ErrNoDevice is returned when recording is requested without an input device
var ErrNoDevice = errors.New("no audio input device")

// Classifier assigns an emotion label to a feature vector
type Classifier interface {
	Classify(features []float64) (string, float64, error)
}

// NeutralClassifier is the placeholder used until a trained model exists
type NeutralClassifier struct{}

// Classify implements Classifier
func (NeutralClassifier) Classify([]float64) (string, float64, error) {
	return types.NeutralVoice, 1.0, nil
}

// Config holds the recording and analysis parameters
type Config struct {
	Stream       audio.StreamConfig
	PollInterval time.Duration
	Features     features.Config
}

// DefaultConfig returns 16 kHz mono recording checked every 100ms
func DefaultConfig() Config {
	return Config{
		Stream:       audio.DefaultStreamConfig(),
		PollInterval: 100 * time.Millisecond,
		Features:     features.DefaultConfig(),
	}
}

// Detector owns the microphone while recording
type Detector struct {
	config     Config
	device     audio.Device
	extractor  *features.Extractor
	classifier Classifier
	queue      *audio.Queue
	log        logrus.FieldLogger

	mu         sync.Mutex
	recording  bool
	stop       chan struct{}
	done       chan struct{}
	captureErr error
}

// New creates a Detector with default configuration
func New(device audio.Device) (*Detector, error) {
	return NewWithConfig(DefaultConfig(), device)
}

// NewWithConfig creates a Detector with custom configuration
func NewWithConfig(config Config, device audio.Device) (*Detector, error) {
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	extractor, err := features.New(config.Features)
	if err != nil {
		return nil, err
	}
	return &Detector{
		config:     config,
		device:     device,
		extractor:  extractor,
		classifier: NeutralClassifier{},
		queue:      audio.NewQueue(),
		log:        logrus.StandardLogger(),
	}, nil
}

// SetClassifier replaces the emotion classifier
func (d *Detector) SetClassifier(c Classifier) {
	d.classifier = c
}

// SetLogger sets the logger used by the detector
func (d *Detector) SetLogger(l logrus.FieldLogger) {
	d.log = l
}

// Config returns the detector parameters
func (d *Detector) Config() Config {
	return d.config
}

// IsRecording reports whether a capture session is running
func (d *Detector) IsRecording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

// StartRecording opens the input stream and starts the capture goroutine.
// It does nothing while a session is already running.
func (d *Detector) StartRecording() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recording {
		return nil
	}
	if d.device == nil {
		return ErrNoDevice
	}

	channels := d.config.Stream.Channels
	stream, err := d.device.OpenInput(d.config.Stream, func(in []float32) {
		d.queue.Put(audio.Downmix(in, channels))
	})
	if err != nil {
		return fmt.Errorf("failed to open audio input: %w", err)
	}

	// chunks left over from a failed session must not leak into this one
	d.queue.Drain()

	d.recording = true
	d.captureErr = nil
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.capture(stream, d.stop, d.done)

	d.log.WithField("sample_rate", d.config.Stream.SampleRate).Info("recording started")
	return nil
}

func (d *Detector) capture(stream audio.Stream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if err := stream.Start(); err != nil {
		d.captureErr = fmt.Errorf("failed to start audio stream: %w", err)
		if err := stream.Close(); err != nil {
			d.log.WithError(err).Debug("closing audio stream failed")
		}
		return
	}

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()
	for running := true; running; {
		select {
		case <-stop:
			running = false
		case <-ticker.C:
		}
	}

	if err := stream.Stop(); err != nil {
		d.log.WithError(err).Warn("stopping audio stream failed")
	}
	if err := stream.Close(); err != nil {
		d.log.WithError(err).Warn("closing audio stream failed")
	}
}

// StopRecording ends the session and analyzes everything captured during it.
// It returns nil when no session was running or no audio arrived.
func (d *Detector) StopRecording() (*types.VoiceResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.recording {
		return nil, nil
	}
	close(d.stop)
	<-d.done
	d.recording = false

	chunks := d.queue.Drain()
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	d.log.WithField("chunks", len(chunks)).Info("recording stopped")
	if len(chunks) == 0 {
		return nil, nil
	}

	return d.AnalyzeAudio(audio.Concat(chunks)), nil
}

// ExtractFeatures computes the feature vector of a mono signal
func (d *Detector) ExtractFeatures(samples []float32) ([]float64, error) {
	return d.extractor.Extract(samples)
}

// AnalyzeAudio extracts features from samples and classifies them. Any
// failure is logged and reported as a nil result.
func (d *Detector) AnalyzeAudio(samples []float32) *types.VoiceResult {
	feats, err := d.ExtractFeatures(samples)
	if err != nil {
		d.log.WithError(err).Warn("error extracting features")
		return nil
	}

	emotion, confidence, err := d.classifier.Classify(feats)
	if err != nil {
		d.log.WithError(err).Warn("error classifying voice")
		return nil
	}

	return &types.VoiceResult{
		Emotion:    emotion,
		Confidence: confidence,
		Features:   feats,
	}
}

// AnalyzeFile runs a WAV recording through the same analysis
func (d *Detector) AnalyzeFile(path string) (*types.VoiceResult, error) {
	samples, err := audio.LoadWAV(path, d.config.Features.SampleRate)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, features.ErrEmptySignal
	}
	return d.AnalyzeAudio(samples), nil
}
