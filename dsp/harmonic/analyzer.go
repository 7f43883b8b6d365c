// Package harmonic implements the encoder-side sinusoidal analyser (pitch
// refinement, amplitude estimation, MBE voicing) and the decoder-side
// synthesiser (minimum-phase reconstruction and overlap-add).
package harmonic

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/voicewire/codec700c/dsp/core"
	"github.com/voicewire/codec700c/dsp/pitch"
	"github.com/voicewire/codec700c/dsp/spectrum"
	"github.com/voicewire/codec700c/internal/fft"
	"github.com/voicewire/codec700c/internal/tables"
)

const oneOnR = float64(tables.FFTSize) / (2 * math.Pi)

// Model holds the encoder-side per-sub-frame analysis result.
type Model struct {
	Wo     float64
	L      int
	A      [tables.MaxAmp + 1]float64
	Voiced bool
}

// Analyzer holds the sliding speech history and FFT plan used to turn a
// stream of 80-sample sub-frames into a sequence of harmonic [Model]s.
type Analyzer struct {
	sn       [tables.MPitch]float64
	pitchEst *pitch.Estimator
	plan     *fft.Plan

	windowed []float64
	sw       []complex128
	power    []float64

	voicingThresholdDB float64
}

// NewAnalyzer creates a harmonic analyser, allocating its pitch estimator
// and FFT plan.
func NewAnalyzer() (*Analyzer, error) {
	pe, err := pitch.New()
	if err != nil {
		return nil, fmt.Errorf("harmonic: %w", err)
	}

	plan, err := fft.NewPlan(tables.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("harmonic: %w", err)
	}

	return &Analyzer{
		pitchEst:           pe,
		plan:               plan,
		windowed:           make([]float64, tables.FFTSize),
		sw:                 make([]complex128, plan.HalfSpectrumLen()),
		power:              make([]float64, plan.HalfSpectrumLen()),
		voicingThresholdDB: tables.VThreshDB,
	}, nil
}

// SetVoicingThresholdDB overrides the MBE voicing decision's SNR threshold
// (default tables.VThreshDB).
func (a *Analyzer) SetVoicingThresholdDB(db float64) {
	a.voicingThresholdDB = db
}

// AnalyzeSegment consumes N_SAMP=80 new speech samples and returns the
// harmonic model for the resulting 320-sample analysis window.
func (a *Analyzer) AnalyzeSegment(speech []float64) (Model, error) {
	if len(speech) != tables.NSamp {
		return Model{}, fmt.Errorf("harmonic: expected %d samples, got %d", tables.NSamp, len(speech))
	}

	copy(a.sn[:tables.MPitch-tables.NSamp], a.sn[tables.NSamp:tables.MPitch])
	copy(a.sn[tables.MPitch-tables.NSamp:], speech)

	period, err := a.pitchEst.Detect(a.sn[:])
	if err != nil {
		return Model{}, fmt.Errorf("harmonic: %w", err)
	}

	var m Model
	m.Wo = 2 * math.Pi / period
	m.L = int(math.Pi / m.Wo)

	a.buildWindowedSpectrum()

	if err := a.plan.RealForward(a.sw, a.windowed); err != nil {
		return Model{}, fmt.Errorf("harmonic: %w", err)
	}

	copy(a.power, spectrum.Power(a.sw))

	twoStagePitchRefinement(&m, a.power)
	estimateAmplitudes(&m, a.power)
	estimateVoicingMBE(&m, a.sw, a.voicingThresholdDB)

	return m, nil
}

// buildWindowedSpectrum builds the zero-phase FFT input buffer: the
// Hamming2-windowed second half of the speech window goes to the start of
// the buffer, the windowed first half goes to the end.
func (a *Analyzer) buildWindowedSpectrum() {
	core.Zero(a.windowed)

	const half = tables.NW / 2

	vecmath.MulBlock(a.windowed[:half],
		a.sn[tables.MPitch/2:tables.MPitch/2+half],
		tables.Hamming2[tables.MPitch/2:tables.MPitch/2+half])

	vecmath.MulBlock(a.windowed[tables.FFTSize-half:tables.FFTSize],
		a.sn[tables.MPitch/2-half:tables.MPitch/2],
		tables.Hamming2[tables.MPitch/2-half:tables.MPitch/2])
}

func cnorm(c complex128) float64 {
	re, im := real(c), imag(c)
	return re*re + im*im
}

func harmonicSum(power []float64, wo float64, l int) float64 {
	e := 0.0
	tval := wo * oneOnR

	for m := 1; m <= l; m++ {
		b := int(float64(m)*tval + 0.5)
		if b < 0 {
			b = 0
		}

		if b >= len(power) {
			b = len(power) - 1
		}

		e += power[b]
	}

	return e
}

func hsPitchRefinement(m *Model, power []float64, pmin, pmax, pstep float64) {
	m.L = int(math.Pi / m.Wo)

	wom := m.Wo
	em := 0.0

	for p := pmin; p <= pmax; p += pstep {
		wo := 2 * math.Pi / p

		e := harmonicSum(power, wo, m.L)
		if e > em {
			em = e
			wom = wo
		}
	}

	m.Wo = wom
}

func twoStagePitchRefinement(m *Model, power []float64) {
	period := 2 * math.Pi / m.Wo

	hsPitchRefinement(m, power, period-5, period+5, 1.0)

	period = 2 * math.Pi / m.Wo
	hsPitchRefinement(m, power, period-1, period+1, 0.25)

	m.Wo = core.Clamp(m.Wo, tables.WoMin, tables.WoMax)

	m.L = int(math.Floor(math.Pi / m.Wo))

	if m.Wo*float64(m.L) >= tables.CoefPitch*math.Pi {
		m.L--
	}
}

func estimateAmplitudes(m *Model, power []float64) {
	amp := m.Wo * oneOnR

	for i := range m.A {
		m.A[i] = 0
	}

	for h := 1; h <= m.L; h++ {
		am := int((float64(h) - 0.5) * amp + 0.5)
		bm := int((float64(h) + 0.5) * amp + 0.5)

		if am < 0 {
			am = 0
		}

		if bm > len(power) {
			bm = len(power)
		}

		den := 0.0
		for i := am; i < bm; i++ {
			den += power[i]
		}

		m.A[h] = mathSqrt(den)
	}
}

func estimateVoicingMBE(m *Model, sw []complex128, thresholdDB float64) {
	sig := 1e-4

	quarter := m.L / 4
	for l := 1; l <= quarter; l++ {
		sig += m.A[l] * m.A[l]
	}

	wo := m.Wo * oneOnR
	errAcc := 1e-4

	for l := 1; l <= quarter; l++ {
		al := int(math.Ceil((float64(l) - 0.5) * wo))
		bl := int(math.Ceil((float64(l) + 0.5) * wo))

		offset := int(float64(tables.FFTSize)/2 - float64(l)*wo + 0.5)

		var am complex128

		den := 0.0

		for mi := al; mi < bl; mi++ {
			idx := offset + mi
			if idx < 0 || idx >= len(tables.Hamming) || mi < 0 || mi >= len(sw) {
				continue
			}

			am += sw[mi] * complex(tables.Hamming[idx], 0)
			den += tables.Hamming[idx] * tables.Hamming[idx]
		}

		if den > 0 {
			am /= complex(den, 0)
		}

		for mi := al; mi < bl; mi++ {
			idx := offset + mi
			if idx < 0 || idx >= len(tables.Hamming) || mi < 0 || mi >= len(sw) {
				continue
			}

			diff := sw[mi] - am*complex(tables.Hamming[idx], 0)
			errAcc += cnorm(diff)
		}
	}

	snr := 10 * mathLog10(sig/errAcc)
	voiced := snr > thresholdDB

	half := m.L / 2

	elow := 1e-4
	for l := 1; l <= half; l++ {
		elow += m.A[l] * m.A[l]
	}

	ehigh := 1e-4
	for l := half; l <= m.L; l++ {
		ehigh += m.A[l] * m.A[l]
	}

	eratio := 10 * mathLog10(elow/ehigh)

	if !voiced && eratio > 10 {
		voiced = true
	}

	if voiced && eratio < -10 {
		voiced = false
	}

	sixty := 2 * math.Pi * 60 / tables.FS

	if voiced && eratio < -4 && m.Wo <= sixty {
		voiced = false
	}

	m.Voiced = voiced
}
