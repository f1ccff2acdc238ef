// Package cascade binds the face pipeline to OpenCV through gocv: a Haar
// cascade face locator and a webcam capture device.
package cascade

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/emotion-detector/pkg/vision"
)

// DefaultCascadePath is the location of the frontal face cascade shipped with OpenCV
const DefaultCascadePath = "data/haarcascade_frontalface_default.xml"

// Classifier is a vision.Locator backed by an OpenCV cascade classifier
type Classifier struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	config     vision.DetectionConfig
}

// NewClassifier loads the cascade file at path
func NewClassifier(path string, config vision.DetectionConfig) (*Classifier, error) {
	if path == "" {
		path = DefaultCascadePath
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("error reading cascade file: %s", path)
	}
	return &Classifier{classifier: classifier, config: config}, nil
}

// Locate implements vision.Locator
func (c *Classifier) Locate(gray *image.Gray) ([]image.Rectangle, error) {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	minSize := image.Pt(c.config.MinSize, c.config.MinSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.DetectMultiScaleWithParams(mat, c.config.ScaleFactor, c.config.MinNeighbors, 0, minSize, image.Point{}), nil
}

// Close releases the classifier
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}

// Webcam is a vision.Camera backed by an OpenCV video capture
type Webcam struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// NewWebcam creates a closed webcam handle
func NewWebcam() *Webcam {
	return &Webcam{}
}

// Open implements vision.Camera
func (w *Webcam) Open(device int) error {
	if w.capture != nil {
		return nil
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("device %d is not opened", device)
	}
	w.capture = capture
	w.frame = gocv.NewMat()
	return nil
}

// Read implements vision.Camera
func (w *Webcam) Read() (image.Image, bool, error) {
	if w.capture == nil {
		return nil, false, nil
	}
	if ok := w.capture.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, false, nil
	}
	// ToImage converts OpenCV's BGR layout to RGBA
	img, err := w.frame.ToImage()
	if err != nil {
		return nil, false, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, true, nil
}

// Close implements vision.Camera
func (w *Webcam) Close() error {
	if w.capture == nil {
		return nil
	}
	err := w.capture.Close()
	w.frame.Close()
	w.capture = nil
	return err
}
