package vision

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/emotion-detector/pkg/processing"
	"github.com/menta2k/emotion-detector/pkg/types"
)

// ErrCameraUnavailable is returned when the capture device cannot be opened
var ErrCameraUnavailable = errors.New("could not open video capture device")

// Locator finds face regions in a grayscale intensity image
type Locator interface {
	Locate(gray *image.Gray) ([]image.Rectangle, error)
}

// FaceClassifier assigns an emotion label to a normalized face tile
type FaceClassifier interface {
	Classify(tile Tile) (string, float64, error)
}

// NeutralClassifier is the placeholder used until a trained model exists.
// It always reports Neutral with full confidence.
type NeutralClassifier struct{}

// Classify implements FaceClassifier
func (NeutralClassifier) Classify(Tile) (string, float64, error) {
	return types.NeutralFace, 1.0, nil
}

// DetectionConfig holds the multi-scale detection and normalization parameters
type DetectionConfig struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
	TileSize     int
}

// DefaultConfig returns the parameters of the frontal face cascade
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      30,
		TileSize:     48,
	}
}

// Tile is a square grayscale face crop with intensities in [0,1]
type Tile struct {
	Size int
	Pix  []float32
}

// At returns the intensity at (x, y)
func (t Tile) At(x, y int) float32 {
	return t.Pix[y*t.Size+x]
}

// Detector runs the face pipeline and owns the capture device
type Detector struct {
	config     DetectionConfig
	locator    Locator
	classifier FaceClassifier
	processor  *processing.Processor
	log        logrus.FieldLogger

	mu     sync.Mutex
	camera Camera
	device int
	active bool
}

// New creates a Detector with default configuration
func New(locator Locator, camera Camera) *Detector {
	return NewWithConfig(DefaultConfig(), locator, camera)
}

// NewWithConfig creates a Detector with custom configuration
func NewWithConfig(config DetectionConfig, locator Locator, camera Camera) *Detector {
	return &Detector{
		config:     config,
		locator:    locator,
		classifier: NeutralClassifier{},
		processor:  processing.NewProcessor(),
		camera:     camera,
		log:        logrus.StandardLogger(),
	}
}

// SetClassifier replaces the emotion classifier
func (d *Detector) SetClassifier(c FaceClassifier) {
	d.classifier = c
}

// SetLogger sets the logger used by the detector
func (d *Detector) SetLogger(l logrus.FieldLogger) {
	d.log = l
}

// SetDevice selects the capture device index used by StartVideoCapture
func (d *Detector) SetDevice(device int) {
	d.device = device
}

// Config returns the detection parameters
func (d *Detector) Config() DetectionConfig {
	return d.config
}

// DetectEmotion locates faces in img, classifies each region and returns an
// annotated copy of the image together with one result per face.
func (d *Detector) DetectEmotion(img image.Image) (*image.NRGBA, []types.DetectionResult, error) {
	if img == nil {
		return nil, nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil, fmt.Errorf("empty image: %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray := processing.ToGray(img)

	rects, err := d.locator.Locate(gray)
	if err != nil {
		return nil, nil, fmt.Errorf("face detection failed: %w", err)
	}

	results := make([]types.DetectionResult, 0, len(rects))
	for _, r := range rects {
		r = r.Intersect(gray.Bounds())
		if r.Dx() < d.config.MinSize || r.Dy() < d.config.MinSize {
			continue
		}

		tile := PreprocessFace(gray, r, d.config.TileSize)

		emotion, confidence, err := d.classifier.Classify(tile)
		if err != nil {
			return nil, nil, fmt.Errorf("emotion classification failed: %w", err)
		}

		results = append(results, types.DetectionResult{
			BBox:       types.BBox{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()},
			Emotion:    emotion,
			Confidence: confidence,
		})
	}

	return d.processor.Annotate(img, results), results, nil
}

// PreprocessFace crops region r of img, converts it to grayscale, resizes it to
// size×size and scales intensities to [0,1].
func PreprocessFace(img image.Image, r image.Rectangle, size int) Tile {
	b := img.Bounds()
	crop := imaging.Crop(img, r.Add(b.Min))
	gray := imaging.Grayscale(crop)
	resized := imaging.Resize(gray, size, size, imaging.Linear)

	tile := Tile{Size: size, Pix: make([]float32, size*size)}
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			tile.Pix[y*size+x] = float32(row[x*4]) / 255.0
		}
	}
	return tile
}
