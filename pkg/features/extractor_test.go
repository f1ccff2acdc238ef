package features

import (
	"errors"
	"math"
	"testing"
)

// sine returns a mono sine wave of the given frequency and duration
func sine(freq float64, sampleRate int, seconds float64) []float32 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func newTestExtractor(t testing.TB) *Extractor {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestExtractSize(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(sine(440, 16000, 1))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(vec) != 26 {
		t.Fatalf("Expected 26 features, got %d", len(vec))
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("Feature %d is not finite: %f", i, v)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor(t)
	signal := sine(440, 16000, 1)

	first, err := e.Extract(signal)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, err := e.Extract(signal)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	other := newTestExtractor(t)
	third, err := other.Extract(signal)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for i := range first {
		if first[i] != second[i] || first[i] != third[i] {
			t.Fatalf("Feature %d differs between runs: %v %v %v", i, first[i], second[i], third[i])
		}
	}
}

func TestExtractChromaPeaksAtA(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(sine(440, 16000, 1))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	chroma := vec[13:25]
	best := 0
	for i, v := range chroma {
		if v > chroma[best] {
			best = i
		}
	}
	if best != 9 {
		t.Errorf("Expected pitch class A (9) to dominate, got %d: %v", best, chroma)
	}
	if chroma[9] < 0.9 || chroma[9] > 1.0+1e-9 {
		t.Errorf("Expected normalized chroma near 1 for A, got %f", chroma[9])
	}
}

func TestExtractShortSignal(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(sine(440, 16000, 0.01))
	if err != nil {
		t.Fatalf("Extract failed on short signal: %v", err)
	}
	if len(vec) != 26 {
		t.Errorf("Expected 26 features, got %d", len(vec))
	}
}

func TestExtractSilence(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(make([]float32, 16000))
	if err != nil {
		t.Fatalf("Extract failed on silence: %v", err)
	}
	for i, v := range vec[13:25] {
		if v != 0 {
			t.Errorf("Expected zero chroma for silence at %d, got %f", i, v)
		}
	}
}

func TestExtractErrors(t *testing.T) {
	e := newTestExtractor(t)

	if _, err := e.Extract(nil); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("Expected ErrEmptySignal, got %v", err)
	}

	bad := sine(440, 16000, 0.1)
	bad[10] = float32(math.NaN())
	if _, err := e.Extract(bad); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Expected ErrNonFinite, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	bad := DefaultConfig()
	bad.NFFT = 1023
	if _, err := New(bad); err == nil {
		t.Error("Expected error for odd n_fft")
	}

	bad = DefaultConfig()
	bad.NMFCC = 200
	if err := bad.Validate(); err == nil {
		t.Error("Expected error when n_mfcc exceeds n_mels")
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	if got := HzToMel(1000); math.Abs(got-15) > 1e-9 {
		t.Errorf("Expected 1000 Hz = 15 mel, got %f", got)
	}
	for _, hz := range []float64{0, 200, 999, 1000, 4000, 8000} {
		if got := MelToHz(HzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("Round trip of %f Hz gave %f", hz, got)
		}
	}
}

func TestMelFilterBank(t *testing.T) {
	fb := MelFilterBank(16000, 2048, 128)

	rows, cols := fb.Dims()
	if rows != 128 || cols != 1025 {
		t.Fatalf("Expected 128x1025 filterbank, got %dx%d", rows, cols)
	}
	for i := 0; i < rows; i++ {
		nonZero := false
		for k := 0; k < cols; k++ {
			v := fb.At(i, k)
			if v < 0 {
				t.Fatalf("Negative weight at (%d,%d)", i, k)
			}
			if v > 0 {
				nonZero = true
			}
		}
		if !nonZero && i > 10 {
			t.Errorf("Filter %d has no support", i)
		}
	}
}

// goldenSine440 is the feature vector of sine(440, 16000, 0.25) computed by
// testdata/reference.py
var goldenSine440 = []float64{
	// mfcc means
	-389.3628757, 99.89695053, 29.79625346, 11.38978559, -8.739857309, -23.66719787,
	-31.67761429, -33.45118723, -28.10070245, -18.41423877, -5.862964142, 6.686510533,
	17.07811627,
	// chroma means, C..B
	0.001476492134, 0.0009029217281, 0.0007091204652, 0.0006788613552, 0.0007694631975,
	0.001036950998, 0.001710687332, 0.005218709968, 0.1910089605, 1, 0.1898734166,
	0.004727527174,
	// mel mean
	30.31102446,
}

func TestExtractGolden(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(sine(440, 16000, 0.25))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(vec) != len(goldenSine440) {
		t.Fatalf("Expected %d features, got %d", len(goldenSine440), len(vec))
	}
	for i, want := range goldenSine440 {
		tol := 1e-6 * math.Max(1, math.Abs(want))
		if math.Abs(vec[i]-want) > tol {
			t.Errorf("Feature %d: want %.10g, got %.10g", i, want, vec[i])
		}
	}
}

func TestExtractSilenceGolden(t *testing.T) {
	e := newTestExtractor(t)

	vec, err := e.Extract(make([]float32, 8000))
	if err != nil {
		t.Fatalf("Extract failed on silence: %v", err)
	}
	// every mel band sits at the -100 dB floor
	if want := -100 * math.Sqrt(128); math.Abs(vec[0]-want) > 1e-9 {
		t.Errorf("MFCC 0: want %f, got %f", want, vec[0])
	}
	for i := 1; i < 13; i++ {
		if math.Abs(vec[i]) > 1e-9 {
			t.Errorf("MFCC %d: want 0, got %g", i, vec[i])
		}
	}
	if vec[25] != 0 {
		t.Errorf("Mel mean: want 0, got %g", vec[25])
	}
}

func TestHzToMelSlaney(t *testing.T) {
	tests := []struct {
		hz, mel float64
	}{
		{60, 0.9},
		{110, 1.65},
		{220, 3.3},
		{440, 6.6},
		{1000, 15},
	}
	for _, tt := range tests {
		if got := HzToMel(tt.hz); math.Abs(got-tt.mel) > 1e-9 {
			t.Errorf("HzToMel(%v): want %v, got %v", tt.hz, tt.mel, got)
		}
	}
	if got := MelToHz(3); math.Abs(got-200) > 1e-9 {
		t.Errorf("MelToHz(3): want 200, got %v", got)
	}
	// 2000 Hz is log-spaced: 15 + ln(2)/(ln(6.4)/27)
	if got, want := HzToMel(2000), 15+math.Log(2)*27/math.Log(6.4); math.Abs(got-want) > 1e-9 {
		t.Errorf("HzToMel(2000): want %v, got %v", want, got)
	}
}

func TestMelFilterBankSlaneyArea(t *testing.T) {
	const sr, nfft = 16000, 2048
	fb := MelFilterBank(sr, nfft, 128)
	binHz := float64(sr) / nfft

	// upper filters are many bins wide, so their area approximates 1
	for _, i := range []int{80, 100, 120} {
		area := 0.0
		for k := 0; k < nfft/2+1; k++ {
			area += fb.At(i, k) * binHz
		}
		if math.Abs(area-1) > 0.05 {
			t.Errorf("Filter %d: area %f, expected about 1", i, area)
		}
	}
}

func BenchmarkExtract(b *testing.B) {
	e := newTestExtractor(b)
	signal := sine(440, 16000, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Extract(signal)
	}
}
