// Package emotiondetector provides multi-modal emotion detection over face
// images, recorded speech and written text.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		emotiondetector "github.com/menta2k/emotion-detector"
//		"github.com/menta2k/emotion-detector/internal/config"
//		"github.com/menta2k/emotion-detector/pkg/vision/cascade"
//	)
//
//	func main() {
//		cfg := config.Default()
//		locator, err := cascade.NewClassifier(cfg.Face.CascadePath, cfg.Face.Detection())
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer locator.Close()
//
//		ed, err := emotiondetector.NewFromConfig(cfg, emotiondetector.Devices{Locator: locator}, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer ed.Close()
//
//		res, err := ed.AnalyzeImageFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, f := range res.Faces {
//			fmt.Printf("%s (%.2f) at %+v\n", f.Emotion, f.Confidence, f.BBox)
//		}
//
//		fmt.Println(ed.AnalyzeText(context.Background(), "What a lovely day").Emotion)
//	}
//
// The package composes three independent pipelines:
//
// 1. Face (pkg/vision): cascade face location, 48x48 tile normalization and annotation
// 2. Text (pkg/text): classification through a Hugging Face, Ollama or llama.cpp backend
// 3. Voice (pkg/voice): background microphone capture and spectral feature extraction
//
// Face and voice classification are placeholders that report Neutral with full
// confidence until trained models are plugged in through SetClassifier.
package emotiondetector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/emotion-detector/internal/config"
	"github.com/menta2k/emotion-detector/internal/utils"
	"github.com/menta2k/emotion-detector/pkg/audio"
	"github.com/menta2k/emotion-detector/pkg/client"
	"github.com/menta2k/emotion-detector/pkg/hf"
	"github.com/menta2k/emotion-detector/pkg/llamacpp"
	"github.com/menta2k/emotion-detector/pkg/ollama"
	"github.com/menta2k/emotion-detector/pkg/processing"
	"github.com/menta2k/emotion-detector/pkg/text"
	"github.com/menta2k/emotion-detector/pkg/types"
	"github.com/menta2k/emotion-detector/pkg/vision"
	"github.com/menta2k/emotion-detector/pkg/voice"
)

// Version of the emotion detector library
const Version = "1.0.0"

// Devices are the hardware-bound collaborators of the pipelines. Any of them
// may be nil when the corresponding feature is not used.
type Devices struct {
	Locator    vision.Locator
	Camera     vision.Camera
	Microphone audio.Device
}

// EmotionDetector provides a high-level interface over the three pipelines
type EmotionDetector struct {
	face      *vision.Detector
	text      *text.Detector
	voice     *voice.Detector
	processor *processing.Processor
	quality   int
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// ImageAnalysis contains the face analysis of one image
type ImageAnalysis struct {
	Info      ImageInfo               `json:"info"`
	Faces     []types.DetectionResult `json:"faces"`
	Annotated *image.NRGBA            `json:"-"`
}

// New composes already constructed detectors
func New(face *vision.Detector, txt *text.Detector, vc *voice.Detector) *EmotionDetector {
	return &EmotionDetector{
		face:      face,
		text:      txt,
		voice:     vc,
		processor: processing.NewProcessor(),
		quality:   config.Default().Face.Quality,
	}
}

// NewFromConfig builds every pipeline from cfg. A nil logger selects the
// logrus standard logger.
func NewFromConfig(cfg *config.Config, dev Devices, log logrus.FieldLogger) (*EmotionDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	locator := dev.Locator
	if locator == nil {
		locator = noLocator{}
	}
	face := vision.NewWithConfig(cfg.Face.Detection(), locator, dev.Camera)
	face.SetDevice(cfg.Face.Device)
	face.SetLogger(log.WithField("pipeline", "face"))

	tcfg := cfg.Text.WithBackendDefaults()
	tc, err := NewTextClassifier(tcfg)
	if err != nil {
		return nil, err
	}
	txt := text.NewDetector(tc, tcfg.Model)
	txt.SetLogger(log.WithField("pipeline", "text"))

	vc, err := voice.NewWithConfig(cfg.Voice.Detector(), dev.Microphone)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice detector: %w", err)
	}
	vc.SetLogger(log.WithField("pipeline", "voice"))

	ed := New(face, txt, vc)
	ed.quality = cfg.Face.Quality
	return ed, nil
}

// NewTextClassifier creates the client of the configured text backend. An
// empty URL selects the backend's default endpoint.
func NewTextClassifier(cfg config.TextConfig) (client.TextClassifier, error) {
	cfg = cfg.WithBackendDefaults()
	switch cfg.Backend {
	case config.BackendHF:
		c, err := hf.NewClient(cfg.URL, cfg.Token, cfg.Timeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create Hugging Face client: %w", err)
		}
		return c, nil
	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.URL, cfg.Timeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL, cfg.Timeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown text backend: %s", cfg.Backend)
	}
}

// Face returns the face pipeline
func (ed *EmotionDetector) Face() *vision.Detector {
	return ed.face
}

// Text returns the text pipeline
func (ed *EmotionDetector) Text() *text.Detector {
	return ed.text
}

// Voice returns the voice pipeline
func (ed *EmotionDetector) Voice() *voice.Detector {
	return ed.voice
}

// AnalyzeImage runs face detection on a decoded image
func (ed *EmotionDetector) AnalyzeImage(img image.Image) (ImageAnalysis, error) {
	annotated, faces, err := ed.face.DetectEmotion(img)
	if err != nil {
		return ImageAnalysis{}, err
	}
	b := img.Bounds()
	return ImageAnalysis{
		Info: ImageInfo{
			Width:       b.Dx(),
			Height:      b.Dy(),
			AspectRatio: float64(b.Dx()) / float64(b.Dy()),
		},
		Faces:     faces,
		Annotated: annotated,
	}, nil
}

// AnalyzeImageFile loads an image from a path or URL and runs face detection on it
func (ed *EmotionDetector) AnalyzeImageFile(source string) (ImageAnalysis, error) {
	img, err := ed.processor.LoadImageSmart(source)
	if err != nil {
		return ImageAnalysis{}, fmt.Errorf("failed to load image: %w", err)
	}
	return ed.AnalyzeImage(img)
}

// ProcessImageFile analyzes an image and writes the annotated copy to
// outputDir, returning the analysis and the written path
func (ed *EmotionDetector) ProcessImageFile(source, outputDir, format string) (ImageAnalysis, string, error) {
	res, err := ed.AnalyzeImageFile(source)
	if err != nil {
		return ImageAnalysis{}, "", err
	}
	if err := utils.EnsureDir(outputDir); err != nil {
		return ImageAnalysis{}, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	out := utils.GenerateOutputFilename(source, outputDir, "", "_emotions", format)
	if err := ed.processor.SaveImage(res.Annotated, out, utils.GetFileExtension(out), ed.quality); err != nil {
		return ImageAnalysis{}, "", fmt.Errorf("failed to save annotated image: %w", err)
	}
	return res, out, nil
}

// AnalyzeText predicts the dominant emotion of s
func (ed *EmotionDetector) AnalyzeText(ctx context.Context, s string) types.TextEmotionResult {
	return ed.text.AnalyzeText(ctx, s)
}

// AnalyzeAudioFile runs a WAV recording through the voice pipeline
func (ed *EmotionDetector) AnalyzeAudioFile(path string) (*types.VoiceResult, error) {
	return ed.voice.AnalyzeFile(path)
}

// Close stops any capture session and releases the camera
func (ed *EmotionDetector) Close() error {
	var errs []error
	if ed.voice != nil && ed.voice.IsRecording() {
		if _, err := ed.voice.StopRecording(); err != nil {
			errs = append(errs, err)
		}
	}
	if ed.face != nil {
		if err := ed.face.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

// noLocator reports no faces; it stands in when no cascade is available
type noLocator struct{}

func (noLocator) Locate(*image.Gray) ([]image.Rectangle, error) {
	return nil, nil
}
