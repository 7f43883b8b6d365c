// Package pitch implements the non-linear pitch (NLP) estimator: a
// square-notch-FIR-decimate-FFT pipeline that picks a fundamental period
// from an 8 kHz speech window, with sub-multiple post-processing to avoid
// picking a harmonic of the true pitch.
package pitch

import (
	"fmt"

	"github.com/voicewire/codec700c/dsp/spectrum"
	"github.com/voicewire/codec700c/internal/fft"
	"github.com/voicewire/codec700c/internal/tables"
)

const (
	minBin = tables.FFTSize * tables.Dec / tables.PMax
	maxBin = tables.FFTSize * tables.Dec / tables.PMin

	// cnlp scales the global peak to a threshold sub-multiples must clear.
	cnlp = 0.3

	decimatedLen = tables.MPitch / tables.Dec

	defaultF0 = 150.0
)

// Estimator holds the NLP detector's running state: the sliding squared and
// filtered sample buffer, the notch filter and FIR history, and the
// previous fundamental in Hz used for pitch-tracking continuity.
type Estimator struct {
	sq      [tables.MPitch]float64
	notchX  float64
	notchY  float64
	firHist [tables.NLPTaps]float64
	prevF0  float64

	plan        *fft.Plan
	freqScratch []complex128
	spectrum    []complex128
	power       []float64
}

// New creates a pitch estimator, allocating its FFT plan.
func New() (*Estimator, error) {
	plan, err := fft.NewPlan(tables.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("pitch: %w", err)
	}

	return &Estimator{
		prevF0:      defaultF0,
		plan:        plan,
		freqScratch: make([]complex128, tables.FFTSize),
		spectrum:    make([]complex128, tables.FFTSize),
		power:       make([]float64, tables.FFTSize),
	}, nil
}

// Detect consumes the most recent M_PITCH=320 speech samples (sn), of which
// only the last N_SAMP=80 are new since the previous call, and returns the
// estimated pitch period in samples (FS / f0).
func (e *Estimator) Detect(sn []float64) (float64, error) {
	if len(sn) != tables.MPitch {
		return 0, fmt.Errorf("pitch: expected %d samples, got %d", tables.MPitch, len(sn))
	}

	start := tables.MPitch - tables.NSamp

	for i := start; i < tables.MPitch; i++ {
		e.sq[i] = sn[i] * sn[i]
	}

	for i := start; i < tables.MPitch; i++ {
		notch := (e.sq[i] - e.notchX) + tables.CoefPitch*e.notchY
		e.notchX = e.sq[i]
		e.notchY = notch
		e.sq[i] = notch + 1.0
	}

	for i := start; i < tables.MPitch; i++ {
		copy(e.firHist[:tables.NLPTaps-1], e.firHist[1:])
		e.firHist[tables.NLPTaps-1] = e.sq[i]

		acc := 0.0
		for j, c := range tables.NlpFir {
			acc += e.firHist[j] * c
		}

		e.sq[i] = acc
	}

	for i := range e.freqScratch {
		e.freqScratch[i] = 0
	}

	for i := 0; i < decimatedLen; i++ {
		e.freqScratch[i] = complex(e.sq[tables.Dec*i]*tables.NlpCosw[i], 0)
	}

	if err := e.plan.Forward(e.spectrum, e.freqScratch); err != nil {
		return 0, fmt.Errorf("pitch: %w", err)
	}

	copy(e.power, spectrum.Power(e.spectrum))

	gmax := 0.0
	gmaxBin := minBin

	for i := minBin; i <= maxBin; i++ {
		if e.power[i] > gmax {
			gmax = e.power[i]
			gmaxBin = i
		}
	}

	f0 := postProcessSubMultiples(e.power, gmax, gmaxBin, e.prevF0)
	e.prevF0 = f0

	copy(e.sq[:tables.MPitch-tables.NSamp], e.sq[tables.NSamp:tables.MPitch])

	return tables.FS / f0, nil
}

func binToHz(bin int) float64 {
	return float64(bin) * tables.FS / float64(tables.FFTSize*tables.Dec)
}

func postProcessSubMultiples(power []float64, gmax float64, gmaxBin int, prevF0 float64) float64 {
	cmaxBin := gmaxBin
	prevF0Bin := int(prevF0 * float64(tables.FFTSize*tables.Dec) / tables.FS)

	for mult := 2; gmaxBin/mult >= minBin; mult++ {
		b := gmaxBin / mult

		bmin := int(0.8 * float64(b))
		bmax := int(1.2 * float64(b))

		if bmin < minBin {
			bmin = minBin
		}

		if bmax >= len(power)-1 {
			bmax = len(power) - 2
		}

		thresh := cnlp * gmax
		if prevF0Bin > bmin && prevF0Bin < bmax {
			thresh *= 0.5
		}

		lmax := 0.0
		lmaxBin := bmin

		for i := bmin; i <= bmax; i++ {
			if power[i] > lmax {
				lmax = power[i]
				lmaxBin = i
			}
		}

		if lmax > thresh && lmax > power[lmaxBin-1] && lmax > power[lmaxBin+1] {
			cmaxBin = lmaxBin
		}
	}

	return binToHz(cmaxBin)
}
