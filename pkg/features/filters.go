package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale constants
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts a frequency to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz converts a Slaney mel value back to Hz
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFilterBank returns an nMels × (nfft/2+1) matrix of triangular filters
// spanning 0 Hz to Nyquist, each normalized to constant energy per band.
func MelFilterBank(sampleRate, nfft, nMels int) *mat.Dense {
	bins := nfft/2 + 1
	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	maxMel := HzToMel(float64(sampleRate) / 2)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = MelToHz(maxMel * float64(i) / float64(nMels+1))
	}

	weights := mat.NewDense(nMels, bins, nil)
	for i := 0; i < nMels; i++ {
		lowerWidth := melF[i+1] - melF[i]
		upperWidth := melF[i+2] - melF[i+1]
		enorm := 2.0 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / lowerWidth
			upper := (melF[i+2] - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			weights.Set(i, k, w*enorm)
		}
	}
	return weights
}

// ChromaFilterBank returns an nChroma × (nfft/2+1) matrix mapping spectrogram
// bins onto pitch classes, starting at C, with A4 tuned to 440 Hz.
func ChromaFilterBank(sampleRate, nfft, nChroma int) *mat.Dense {
	nc := float64(nChroma)

	// fractional chroma bin of every fft bin but DC
	frqbins := make([]float64, nfft)
	for k := 1; k < nfft; k++ {
		f := float64(k) * float64(sampleRate) / float64(nfft)
		frqbins[k] = nc * math.Log2(f/(440.0/16))
	}
	frqbins[0] = frqbins[1] - 1.5*nc

	widths := make([]float64, nfft)
	for k := 0; k < nfft-1; k++ {
		widths[k] = math.Max(frqbins[k+1]-frqbins[k], 1)
	}
	widths[nfft-1] = 1

	half := math.Round(nc / 2)
	wts := make([][]float64, nChroma)
	for c := range wts {
		wts[c] = make([]float64, nfft)
		for k := 0; k < nfft; k++ {
			d := math.Mod(frqbins[k]-float64(c)+half+10*nc, nc)
			if d < 0 {
				d += nc
			}
			d -= half
			x := 2 * d / widths[k]
			wts[c][k] = math.Exp(-0.5 * x * x)
		}
	}

	// unit L2 norm per column, then gaussian octave weighting centred on octave 5
	for k := 0; k < nfft; k++ {
		var norm float64
		for c := range wts {
			norm += wts[c][k] * wts[c][k]
		}
		norm = math.Sqrt(norm)
		oct := (frqbins[k]/nc - 5.0) / 2.0
		octWeight := math.Exp(-0.5 * oct * oct)
		for c := range wts {
			if norm > 0 {
				wts[c][k] /= norm
			}
			wts[c][k] *= octWeight
		}
	}

	// rotate so that row 0 is C instead of A
	shift := 3 * (nChroma / 12)
	bins := nfft/2 + 1
	out := mat.NewDense(nChroma, bins, nil)
	for c := 0; c < nChroma; c++ {
		src := wts[(c+shift)%nChroma]
		out.SetRow(c, src[:bins])
	}
	return out
}
