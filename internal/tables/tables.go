// Package tables holds the fixed data the codec requires: the two VQ
// codebooks, the energy and pitch scalar-quantiser tables, the rate-K
// frequency grid, the post-filter pre-emphasis curve, and the NLP pitch
// detector's window and FIR prototype.
//
// None of this data is trained from a speech corpus here; production
// deployments replace these tables with ones trained offline and shipped as
// fixed binary blobs. What matters for
// correctness is that encoder and decoder agree bit-for-bit on the same
// tables, which holds trivially since both read from this package.
package tables

import (
	"math"

	"github.com/voicewire/codec700c/dsp/window"
)

const (
	FS           = 8000
	NSamp        = 80
	NModels      = 4
	MPitch       = 320
	PMin         = 20
	PMax         = 160
	MaxAmp       = 80
	FFTSize      = 512
	PhaseFFTSize = 128
	NS           = 65
	NW           = 279
	Dec          = 5
	NLPTaps      = 48
	AmpK         = 20
	AmpM         = 512
	MBestStages  = 4
	MBestEntries = 5
	VThreshDB    = 6.0
	WoLevels     = 64
	EnergyLevels = 16

	CoefPitch = 0.9497

	WoMin = 2 * math.Pi / PMax
	WoMax = 2 * math.Pi / PMin
)

// EnergyTable holds the 16-entry scalar quantiser levels for frame energy,
// in dB, spanning a plausible speech dynamic range.
var EnergyTable = generateEnergyTable()

// PitchTable holds the 64-entry scalar quantiser levels for Wo, log-spaced
// from WoMin to WoMax inclusive (a log-domain step of 1/(WoLevels-1)). The
// encoder's quantiser formula scales by WoLevels instead, so the two grids
// differ slightly and re-encoding a table entry does not always return its
// own index.
var PitchTable = generatePitchTable()

// AmpFreqsKHz holds the AmpK=20 fixed resampling frequencies in kHz, monotone
// across [0, 4] kHz, densest near both band edges and sparsest around 2 kHz.
var AmpFreqsKHz = generateAmpFreqsKHz()

// AmpPre holds the fixed pre-emphasis curve added/subtracted around the
// postfilter's formant-enhancement gain normalisation, in dB.
var AmpPre = generateAmpPre()

// NlpCosw holds the 64-tap window applied to the decimated NLP pitch buffer.
var NlpCosw = generateNlpCosw()

// NlpFir holds the 48-tap symmetric FIR low-pass prototype used by the NLP
// pitch detector ahead of decimation.
var NlpFir = generateNlpFir()

// Parzen holds the 160-tap de la Vallee Poussin window used for the
// sinusoidal overlap-add synthesis.
var Parzen = generateParzen()

// Hamming holds an FFTSize-sample Hamming window centred on FFTSize/2, used
// by the MBE voicing estimator as the per-harmonic analysis kernel.
var Hamming = generateHamming(FFTSize)

// Hamming2 holds an MPitch=320-sample buffer carrying a centred NW=279-tap
// Hamming window (zero outside the central span), used by the harmonic
// analyser's centre-symmetric FFT framing.
var Hamming2 = generateHamming2()

// Codebook1 and Codebook2 are the two 512-entry, AmpK-dimensional shape
// codebooks used by the two-stage vector quantiser.
var (
	Codebook1 = generateCodebook(1)
	Codebook2 = generateCodebook(2)
)

func generateEnergyTable() [EnergyLevels]float64 {
	var t [EnergyLevels]float64

	const minDB, maxDB = 10.0, 45.0

	for i := range t {
		t[i] = minDB + (maxDB-minDB)*float64(i)/float64(EnergyLevels-1)
	}

	return t
}

func generatePitchTable() [WoLevels]float64 {
	var t [WoLevels]float64

	logMin := math.Log10(WoMin)
	logMax := math.Log10(WoMax)

	for i := range t {
		frac := float64(i) / float64(WoLevels-1)
		t[i] = math.Pow(10, logMin+frac*(logMax-logMin))
	}

	return t
}

func generateAmpFreqsKHz() [AmpK]float64 {
	var f [AmpK]float64

	for i := range f {
		frac := float64(i) / float64(AmpK-1)
		f[i] = 4.0 * frac * frac * (3 - 2*frac) // smoothstep: dense near 0, sparse near 4kHz
	}

	return f
}

func generateAmpPre() [AmpK]float64 {
	var p [AmpK]float64

	for i, fk := range AmpFreqsKHz {
		p[i] = -6.0 * fk // tilt down at high frequency, flattened back out on decode
	}

	return p
}

func generateNlpCosw() [MPitch / Dec]float64 {
	const n = MPitch / Dec
	var w [n]float64

	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}

	return w
}

func generateNlpFir() [NLPTaps]float64 {
	var h [NLPTaps]float64

	const cutoff = 0.08 // normalised cutoff, low-pass ahead of decimate-by-5

	center := float64(NLPTaps-1) / 2

	sum := 0.0

	for i := range h {
		x := float64(i) - center
		sinc := 1.0

		if x != 0 {
			sinc = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		} else {
			sinc = 2 * cutoff
		}

		win := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(NLPTaps-1))
		h[i] = sinc * win
		sum += h[i]
	}

	for i := range h {
		h[i] /= sum
	}

	return h
}

func generateParzen() [160]float64 {
	var p [160]float64

	coeffs, _ := window.Parzen(160)
	copy(p[:], coeffs)

	return p
}

func generateHamming2() []float64 {
	w := make([]float64, MPitch)

	start := (MPitch - NW) / 2

	copy(w[start:start+NW], generateHamming(NW))

	return w
}

func generateHamming(n int) []float64 {
	coeffs, _ := window.Hamming(n)
	return coeffs
}

// generateCodebook produces a deterministic, seeded pseudo-random codebook of
// AmpM=512 rows by AmpK=20 columns, shaped as smooth low-order basis
// combinations so nearest-neighbour search behaves plausibly on smooth
// spectral envelopes.
func generateCodebook(stage int) [AmpM][AmpK]float64 {
	var cb [AmpM][AmpK]float64

	state := uint64(2166136261) ^ uint64(stage)*1099511628211

	nextRand := func() float64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17

		return (float64(state%100000) / 100000.0) - 0.5
	}

	for row := range cb {
		amp := make([]float64, 4)
		for h := range amp {
			amp[h] = nextRand() * 12.0
		}

		for k := range cb[row] {
			x := float64(k) / float64(AmpK-1)
			v := 0.0

			for h, a := range amp {
				v += a * math.Cos(math.Pi*float64(h)*x)
			}

			cb[row][k] = v
		}
	}

	return cb
}
