package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/menta2k/emotion-detector/pkg/types"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func samePixels(t *testing.T, a, b image.Image) bool {
	t.Helper()
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}

func TestAnnotateWithoutDetectionsKeepsPixels(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(120, 80)

	out := p.Annotate(img, nil)

	if !samePixels(t, img, out) {
		t.Error("Annotate with no detections should not change any pixel")
	}
}

func TestAnnotateDrawsBox(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 200)
	det := types.DetectionResult{
		BBox:       types.BBox{X: 50, Y: 60, W: 40, H: 30},
		Emotion:    "Neutral",
		Confidence: 1.0,
	}

	out := p.Annotate(img, []types.DetectionResult{det})

	corners := [][2]int{{50, 60}, {89, 60}, {50, 89}, {89, 89}, {51, 61}}
	for _, c := range corners {
		if got := out.NRGBAAt(c[0], c[1]); got != LabelColor {
			t.Errorf("Expected box color at (%d,%d), got %v", c[0], c[1], got)
		}
	}

	// interior is untouched
	r, g, b, _ := img.At(70, 75).RGBA()
	r2, g2, b2, _ := out.At(70, 75).RGBA()
	if r != r2 || g != g2 || b != b2 {
		t.Error("Expected box interior to stay unchanged")
	}

	// source image is not modified
	if got := color.NRGBAModel.Convert(img.At(50, 60)).(color.NRGBA); got == LabelColor {
		t.Error("Annotate should draw on a copy")
	}
}

func TestAnnotateClipsAtImageEdges(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(40, 40)
	det := types.DetectionResult{BBox: types.BBox{X: -10, Y: -10, W: 100, H: 100}, Emotion: "Neutral"}

	// must not panic
	out := p.Annotate(img, []types.DetectionResult{det})
	if out.Bounds().Dx() != 40 {
		t.Errorf("Expected width 40, got %d", out.Bounds().Dx())
	}
}

func TestToGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 20, 30))
	for y := 10; y < 30; y++ {
		for x := 10; x < 20; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	gray := ToGray(img)

	if gray.Bounds() != image.Rect(0, 0, 10, 20) {
		t.Fatalf("Expected bounds rebased to origin, got %v", gray.Bounds())
	}
	if v := gray.GrayAt(5, 5).Y; v != 255 {
		t.Errorf("Expected white pixel, got %d", v)
	}
}

func TestDecodeImage(t *testing.T) {
	p := NewProcessor()

	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(16, 16)); err != nil {
		t.Fatal(err)
	}

	img, err := p.DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("Expected width 16, got %d", img.Bounds().Dx())
	}

	if _, err := p.DecodeImage([]byte("not an image")); err == nil {
		t.Error("Expected error for garbage input")
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	if err := p.SaveImage(createTestImage(32, 24), path, "png", 90); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	img, err := p.LoadImageSmart(path)
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("Expected 32x24, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadImageFromURLRejectsScheme(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImageFromURL("ftp://example.com/a.png"); err == nil {
		t.Error("Expected error for ftp scheme")
	}
}
