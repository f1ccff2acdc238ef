// Package features computes the spectral summary of an audio signal used by
// the voice pipeline: mean-pooled MFCC, chroma and mel-spectrogram statistics.
//
// The transforms follow the usual short-time analysis conventions: centered
// frames with zero padding, a periodic Hann window, a power spectrogram, a
// Slaney-normalized mel filterbank, orthonormal DCT-II cepstra over decibel
// mel energies and a 12-bin chroma filterbank with octave weighting.
package features

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptySignal is returned for zero-length input
	ErrEmptySignal = errors.New("empty audio signal")
	// ErrNonFinite is returned when the signal contains NaN or Inf samples
	ErrNonFinite = errors.New("audio signal is not finite everywhere")
)

// Config holds the analysis parameters
type Config struct {
	SampleRate int
	NFFT       int
	HopLength  int
	NMels      int
	NMFCC      int
	NChroma    int
	TopDB      float64
}

// DefaultConfig returns the parameters used for 16 kHz voice input
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		NFFT:       2048,
		HopLength:  512,
		NMels:      128,
		NMFCC:      13,
		NChroma:    12,
		TopDB:      80,
	}
}

// Validate checks that the parameters describe a usable analysis
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if c.NFFT < 2 || c.NFFT%2 != 0 {
		return fmt.Errorf("n_fft must be an even number >= 2")
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("hop length must be positive")
	}
	if c.NMels <= 0 || c.NMFCC <= 0 || c.NChroma <= 0 {
		return fmt.Errorf("band counts must be positive")
	}
	if c.NMFCC > c.NMels {
		return fmt.Errorf("n_mfcc (%d) cannot exceed n_mels (%d)", c.NMFCC, c.NMels)
	}
	return nil
}

// Size returns the length of the feature vector
func (c Config) Size() int {
	return c.NMFCC + c.NChroma + 1
}

// Extractor computes feature vectors. It is safe for concurrent use.
type Extractor struct {
	config Config

	mu     sync.Mutex
	fft    *fourier.FFT
	window []float64
	frame  []float64
	coeffs []complex128

	melBasis    *mat.Dense
	chromaBasis *mat.Dense
	dctBasis    *mat.Dense
}

// New creates an Extractor with precomputed filterbanks
func New(config Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}

	return &Extractor{
		config:      config,
		fft:         fourier.NewFFT(config.NFFT),
		window:      hann(config.NFFT),
		frame:       make([]float64, config.NFFT),
		coeffs:      make([]complex128, config.NFFT/2+1),
		melBasis:    MelFilterBank(config.SampleRate, config.NFFT, config.NMels),
		chromaBasis: ChromaFilterBank(config.SampleRate, config.NFFT, config.NChroma),
		dctBasis:    dctII(config.NMFCC, config.NMels),
	}, nil
}

// Config returns the analysis parameters
func (e *Extractor) Config() Config {
	return e.config
}

// Extract returns the concatenation of the per-coefficient MFCC means, the
// per-bin chroma means and the overall mean of the mel spectrogram.
func (e *Extractor) Extract(samples []float32) ([]float64, error) {
	y, err := toFloat64(samples)
	if err != nil {
		return nil, err
	}

	power := e.PowerSpectrogram(y)

	var mel mat.Dense
	mel.Mul(e.melBasis, power)

	mfcc := e.mfcc(&mel)
	chroma := e.chroma(power)

	out := make([]float64, 0, e.config.Size())
	out = append(out, MeanFrames(mfcc)...)
	out = append(out, MeanFrames(chroma)...)
	out = append(out, floats.Sum(MeanFrames(&mel))/float64(e.config.NMels))
	return out, nil
}

// PowerSpectrogram returns |STFT(y)|² with one row per frequency bin and one
// column per frame
func (e *Extractor) PowerSpectrogram(y []float64) *mat.Dense {
	nfft, hop := e.config.NFFT, e.config.HopLength
	bins := nfft/2 + 1
	frames := 1 + len(y)/hop
	pad := nfft / 2

	e.mu.Lock()
	defer e.mu.Unlock()

	power := mat.NewDense(bins, frames, nil)
	for t := 0; t < frames; t++ {
		start := t*hop - pad
		for n := 0; n < nfft; n++ {
			i := start + n
			if i < 0 || i >= len(y) {
				e.frame[n] = 0
				continue
			}
			e.frame[n] = y[i] * e.window[n]
		}
		e.coeffs = e.fft.Coefficients(e.coeffs, e.frame)
		for k, c := range e.coeffs {
			re, im := real(c), imag(c)
			power.Set(k, t, re*re+im*im)
		}
	}
	return power
}

func (e *Extractor) mfcc(mel *mat.Dense) *mat.Dense {
	r, c := mel.Dims()
	db := mat.NewDense(r, c, nil)
	db.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(1e-10, v))
	}, mel)

	if e.config.TopDB > 0 {
		floor := mat.Max(db) - e.config.TopDB
		db.Apply(func(_, _ int, v float64) float64 {
			return math.Max(v, floor)
		}, db)
	}

	var out mat.Dense
	out.Mul(e.dctBasis, db)
	return &out
}

func (e *Extractor) chroma(power *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(e.chromaBasis, power)

	// per-frame max normalization
	rows, cols := out.Dims()
	col := make([]float64, rows)
	for t := 0; t < cols; t++ {
		mat.Col(col, t, &out)
		norm := 0.0
		for _, v := range col {
			norm = math.Max(norm, math.Abs(v))
		}
		if norm < math.SmallestNonzeroFloat64 {
			continue
		}
		floats.Scale(1/norm, col)
		out.SetCol(t, col)
	}
	return &out
}

// MeanFrames averages every row of m over its columns
func MeanFrames(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = floats.Sum(m.RawRowView(i)) / float64(cols)
	}
	return out
}

func toFloat64(samples []float32) ([]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	y := make([]float64, len(samples))
	for i, s := range samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: sample %d", ErrNonFinite, i)
		}
		y[i] = v
	}
	return y, nil
}

// hann returns a periodic Hann window of length n
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// dctII returns the first k rows of the orthonormal DCT-II matrix of size n
func dctII(k, n int) *mat.Dense {
	basis := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		scale := math.Sqrt(2 / float64(n))
		if i == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for j := 0; j < n; j++ {
			basis.Set(i, j, scale*math.Cos(math.Pi/float64(n)*(float64(j)+0.5)*float64(i)))
		}
	}
	return basis
}
