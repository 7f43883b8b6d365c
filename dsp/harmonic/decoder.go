package harmonic

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/voicewire/codec700c/dsp/buffer"
	"github.com/voicewire/codec700c/dsp/core"
	"github.com/voicewire/codec700c/dsp/interp"
	"github.com/voicewire/codec700c/internal/fft"
	"github.com/voicewire/codec700c/internal/tables"
)

const (
	cepstralScale = 20 / math.Ln10
	bgThreshDB    = 40.0
	bgBeta        = 0.1
	bgMarginDB    = 6.0
	rndMax        = 32767.0
)

// prng is the 32-bit linear congruential generator used to jitter unvoiced
// excitation phase and post-filter phase randomisation. Seeded at 1, it
// never resets for the life of a DecoderState.
type prng struct {
	state uint32
}

func (p *prng) next() uint32 {
	p.state = p.state*1103515245 + 12345
	return (p.state / 65536) % 32768
}

// DecoderState holds everything the decoder carries across superframes: the
// previous superframe's rate-K vector and Wo for interpolation, the
// excitation phase accumulator and post-filter background-noise estimate for
// synthesis, the overlap-add history, the PRNG, and the two FFT plans
// (512-point real for frequency-domain synthesis, 128-point complex for
// minimum-phase reconstruction).
type DecoderState struct {
	prevVec    [tables.AmpK]float64
	prevWo     float64
	prevVoiced bool

	exPhase            float64
	bgEst              float64
	rng                prng
	postFilterMarginDB float64

	overlapBuf [2 * tables.NSamp]float64

	synthPlan *fft.Plan
	cepPlan   *fft.Plan

	spectrum []complex128
	sw       [tables.FFTSize]float64

	freqGrid [tables.NS]float64
	scratch  *buffer.Pool
}

// NewDecoderState allocates a DecoderState, including its two FFT plans.
func NewDecoderState() (*DecoderState, error) {
	synthPlan, err := fft.NewPlan(tables.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("harmonic: decoder synth plan: %w", err)
	}

	cepPlan, err := fft.NewPlan(tables.PhaseFFTSize)
	if err != nil {
		return nil, fmt.Errorf("harmonic: decoder cepstrum plan: %w", err)
	}

	d := &DecoderState{
		prevWo:             tables.WoMin,
		rng:                prng{state: 1},
		postFilterMarginDB: bgMarginDB,
		synthPlan:          synthPlan,
		cepPlan:            cepPlan,
		spectrum:           make([]complex128, synthPlan.HalfSpectrumLen()),
		scratch:            buffer.NewPool(),
	}

	for k := range d.freqGrid {
		d.freqGrid[k] = float64(k) / float64(tables.NS-1) * 4.0
	}

	return d, nil
}

// SetPostFilterMarginDB overrides the post-filter's margin above the
// background-noise estimate (default bgMarginDB=6dB).
func (d *DecoderState) SetPostFilterMarginDB(db float64) {
	d.postFilterMarginDB = db
}

// Interpolate expands one superframe's decoded rate-K vector, Wo, and
// voicing flag into the NModels=4 sub-frame Models, linearly interpolating
// the rate-K vector against the previous superframe's final state in steps
// of 1/NModels (c = 1.0, 0.75, 0.5, 0.25). Wo and voicing depend on the
// (previous, current) voicing pair: both voiced blends Wo linearly; both
// unvoiced passes the current Wo through; a mixed pair carries the previous
// Wo and voicing while c > 0.5 and the current ones after, following the
// reference decoder's handling of mixed voicing across a superframe boundary.
func (d *DecoderState) Interpolate(vec [tables.AmpK]float64, wo float64, voiced bool) [tables.NModels]Model {
	var out [tables.NModels]Model

	c := 1.0

	for i := 0; i < tables.NModels; i++ {
		var (
			wofrac    float64
			vecfrac   [tables.AmpK]float64
			subVoiced bool
		)

		for k := range vecfrac {
			vecfrac[k] = c*d.prevVec[k] + (1-c)*vec[k]
		}

		switch {
		case d.prevVoiced && voiced:
			wofrac = c*d.prevWo + (1-c)*wo
			subVoiced = true

		case !d.prevVoiced && !voiced:
			wofrac = wo
			subVoiced = false

		case d.prevVoiced && !voiced:
			if c > 0.5 {
				wofrac, subVoiced = d.prevWo, true
			} else {
				wofrac, subVoiced = wo, false
			}

		default: // !prevVoiced && voiced
			if c > 0.5 {
				wofrac, subVoiced = d.prevWo, false
			} else {
				wofrac, subVoiced = wo, true
			}
		}

		var m Model
		m.Wo = wofrac
		m.Voiced = subVoiced
		m.L = int(math.Floor(math.Pi / m.Wo))
		d.resampleRateL(&m, vecfrac)

		out[i] = m
		c -= 1.0 / tables.NModels
	}

	d.prevVec = vec
	d.prevWo = wo
	d.prevVoiced = voiced

	return out
}

// resampleRateL is the inverse of the encoder's rate-K resampler: it maps
// the fixed AmpFreqsKHz log-magnitude grid back onto the model's L
// harmonics via the same three-point parabolic interpolation. The freqs
// scratch slice is borrowed from the decoder's buffer pool since its length
// tracks the model's harmonic count and would otherwise allocate fresh on
// every sub-frame.
func (d *DecoderState) resampleRateL(m *Model, vec [tables.AmpK]float64) {
	if m.L < 1 {
		return
	}

	tval := m.Wo * 4 / math.Pi

	fb := d.scratch.Get(m.L)
	defer d.scratch.Put(fb)

	freqs := fb.Samples()
	for i := 1; i <= m.L; i++ {
		freqs[i-1] = float64(i) * tval
	}

	ampdB := interp.Parabolic(tables.AmpFreqsKHz[:], vec[:], freqs)

	for i := 1; i <= m.L && i-1 < len(ampdB); i++ {
		m.A[i] = mathPow10(ampdB[i-1] / 20)
	}
}

// SynthesizeSubframe advances the decoder by one NSamp=80-sample sub-frame:
// minimum-phase reconstruction, zero-order phase synthesis, post-filter
// phase randomisation, frequency-domain sinusoidal synthesis, and
// Parzen-windowed overlap-add.
func (d *DecoderState) SynthesizeSubframe(m Model) ([tables.NSamp]int16, error) {
	var out [tables.NSamp]int16

	H := d.computeMinimumPhaseH(m)

	var phi [tables.MaxAmp + 1]float64

	for l := 1; l <= m.L && l <= tables.MaxAmp; l++ {
		var ex complex128

		if m.Voiced {
			psi := float64(l) * d.exPhase
			ex = complex(math.Cos(psi), math.Sin(psi))
		} else {
			r := 2 * math.Pi * float64(d.rng.next()) / rndMax
			ex = complex(math.Cos(r), math.Sin(r))
		}

		a := ex * H[l]
		phi[l] = math.Atan2(imag(a), real(a)+1e-12)
	}

	d.exPhase += m.Wo * tables.NSamp
	d.exPhase -= 2 * math.Pi * math.Floor(d.exPhase/(2*math.Pi)+0.5)

	d.applyPostfilter(m, phi[:])

	if err := d.synthesizeSpectrum(m, phi); err != nil {
		return out, fmt.Errorf("harmonic: %w", err)
	}

	return d.overlapAdd(), nil
}

// applyPostfilter tracks a slowly-adapting background-noise estimate during
// quiet unvoiced frames, then, on voiced frames, randomises the phase of any
// harmonic weak enough to sit below that estimate plus a margin — this keeps
// weak harmonics from sounding unnaturally tonal. The mean harmonic energy
// e = 10*log10((sum A^2)/L) is computed fresh from this sub-frame's own
// model, not carried over from the superframe's quantised energy code.
func (d *DecoderState) applyPostfilter(m Model, phi []float64) {
	if m.L < 1 {
		return
	}

	sumSq := 0.0
	for l := 1; l <= m.L && l <= tables.MaxAmp; l++ {
		sumSq += m.A[l] * m.A[l]
	}

	e := 10 * mathLog10(sumSq/float64(m.L))

	if e < bgThreshDB && !m.Voiced {
		d.bgEst = (1-bgBeta)*d.bgEst + bgBeta*e
	}

	if !m.Voiced {
		return
	}

	thresh := mathPow10((d.bgEst + d.postFilterMarginDB) / 20)

	for l := 1; l <= m.L && l <= tables.MaxAmp; l++ {
		if m.A[l] < thresh {
			phi[l] = 2 * math.Pi * float64(d.rng.next()) / rndMax
		}
	}
}

// computeMinimumPhaseH samples the model's harmonic amplitudes onto the
// fixed NS=65-bin log-magnitude grid, reconstructs a minimum-phase spectral
// envelope from it via a real-cepstrum fold, and returns that envelope's
// phase at each harmonic's bin as a unit-magnitude complex filter response.
func (d *DecoderState) computeMinimumPhaseH(m Model) [tables.MaxAmp + 1]complex128 {
	var H [tables.MaxAmp + 1]complex128

	if m.L < 1 {
		return H
	}

	mag := d.sampleLogMagnitude(m)
	phase := d.magToPhase(mag)

	for l := 1; l <= m.L && l <= tables.MaxAmp; l++ {
		idx := int(float64(l)*m.Wo/math.Pi*float64(tables.NS-1) + 0.5)
		if idx < 0 {
			idx = 0
		} else if idx > tables.NS-1 {
			idx = tables.NS - 1
		}

		H[l] = complex(math.Cos(phase[idx]), math.Sin(phase[idx]))
	}

	return H
}

// sampleLogMagnitude interpolates the model's per-harmonic log-magnitude
// onto the fixed NS=65-bin grid. freqs and ampdB are borrowed from the
// decoder's buffer pool since their length tracks the model's harmonic
// count.
func (d *DecoderState) sampleLogMagnitude(m Model) [tables.NS]float64 {
	var mag [tables.NS]float64

	if m.L < 1 {
		return mag
	}

	fb := d.scratch.Get(m.L)
	defer d.scratch.Put(fb)

	ab := d.scratch.Get(m.L)
	defer d.scratch.Put(ab)

	freqs := fb.Samples()
	ampdB := ab.Samples()

	tval := m.Wo * 4 / math.Pi
	peak := -100.0

	for i := 1; i <= m.L; i++ {
		a := 20 * mathLog10(m.A[i]+1e-16)
		freqs[i-1] = float64(i) * tval
		ampdB[i-1] = a

		if a > peak {
			peak = a
		}
	}

	for i := range ampdB {
		ampdB[i] = core.Clamp(ampdB[i], peak-50, peak)
	}

	out := interp.Parabolic(freqs, ampdB, d.freqGrid[:])
	copy(mag[:], out)

	return mag
}

// magToPhase runs the real-cepstrum minimum-phase reconstruction: mirror the
// NS=65-bin log-magnitude spectrum into a PhaseFFTSize=128 symmetric
// spectrum, inverse-transform to the cepstrum, fold it back down to NS bins,
// forward-transform, and read off phase from the imaginary part.
func (d *DecoderState) magToPhase(mag [tables.NS]float64) [tables.NS]float64 {
	var zero [tables.NS]float64

	var sdb [tables.PhaseFFTSize]complex128

	sdb[0] = complex(mag[0], 0)
	for i := 1; i < tables.NS; i++ {
		sdb[i] = complex(mag[i], 0)
		sdb[tables.PhaseFFTSize-i] = complex(mag[i], 0)
	}

	c := make([]complex128, tables.PhaseFFTSize)
	if err := d.cepPlan.Inverse(c, sdb[:]); err != nil {
		return zero
	}

	var cf [tables.PhaseFFTSize]complex128
	cf[0] = c[0]

	for i := 1; i < tables.NS-1; i++ {
		cf[i] = c[i] + c[tables.PhaseFFTSize-i]
	}

	cf[tables.NS-1] = c[tables.NS-1]

	r := make([]complex128, tables.PhaseFFTSize)
	if err := d.cepPlan.Forward(r, cf[:]); err != nil {
		return zero
	}

	var phase [tables.NS]float64
	for i := range phase {
		phase[i] = imag(r[i]) / cepstralScale
	}

	return phase
}

// synthesizeSpectrum places each harmonic at its nearest FFT bin as a
// magnitude/phase pair and inverse-transforms the resulting half spectrum
// into the time-domain buffer the overlap-add stage reads from.
func (d *DecoderState) synthesizeSpectrum(m Model, phi [tables.MaxAmp + 1]float64) error {
	for i := range d.spectrum {
		d.spectrum[i] = 0
	}

	maxBin := tables.FFTSize/2 - 1

	for l := 1; l <= m.L && l <= tables.MaxAmp; l++ {
		b := int(float64(l)*m.Wo*float64(tables.FFTSize)/(2*math.Pi) + 0.5)

		if b < 0 {
			b = 0
		} else if b > maxBin {
			b = maxBin
		}

		d.spectrum[b] = complex(m.A[l]*math.Cos(phi[l]), m.A[l]*math.Sin(phi[l]))
	}

	return d.synthPlan.RealInverse(d.sw[:], d.spectrum)
}

// overlapAdd shifts the NSamp*2-sample history left by one sample N-1 times,
// blends in the Parzen-windowed tail of the previous block's spectrum, lays
// down the new block, then limits and saturates the first NSamp output
// samples. The single-sample shift loop (not a bulk NSamp shift) and the
// split at N-1 rather than N are both load-bearing: getting either off by
// one desyncs the overlap with the synthesised spectrum.
func (d *DecoderState) overlapAdd() [tables.NSamp]int16 {
	const n = tables.NSamp

	for i := 0; i < n-1; i++ {
		d.overlapBuf[i] = d.overlapBuf[i+1]
	}

	d.overlapBuf[n-1] = 0

	for i := 0; i < n-1; i++ {
		d.overlapBuf[i] += d.sw[tables.FFTSize-n+1+i] * tables.Parzen[i]
	}

	vecmath.MulBlock(d.overlapBuf[n-1:2*n], d.sw[:n], tables.Parzen[n-1:2*n])

	maxSample := 0.0
	for i := 0; i < n; i++ {
		if d.overlapBuf[i] > maxSample {
			maxSample = d.overlapBuf[i]
		}
	}

	scale := 1.0
	if over := maxSample / 30000; over > 1 {
		scale = 1 / (over * over)
	}

	var out [tables.NSamp]int16

	for i := 0; i < n; i++ {
		v := core.Clamp(d.overlapBuf[i]*scale*1.5, -32760, 32760)

		out[i] = int16(v)
	}

	return out
}
