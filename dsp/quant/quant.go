// Package quant implements the energy, pitch, and two-stage vector
// quantisers that turn a rate-K amplitude vector, a mean, and a fundamental
// frequency into the four wire code-words, and their inverses.
package quant

import (
	"math"

	"github.com/voicewire/codec700c/dsp/harmonic"
	"github.com/voicewire/codec700c/dsp/interp"
	"github.com/voicewire/codec700c/internal/tables"
)

// Indexes holds the four code-words of a 40ms superframe, as defined by the
// wire layout: word0 = VQ stage-2 code, word1 = VQ stage-1 code, word2 =
// energy code, word3 = pitch code (0 = unvoiced).
type Indexes [4]uint16

// MeanExtract splits a rate-K vector into its mean and the mean-removed
// residual.
func MeanExtract(vec [tables.AmpK]float64) (mean float64, noMean [tables.AmpK]float64) {
	sum := 0.0
	for _, v := range vec {
		sum += v
	}

	mean = sum / tables.AmpK

	for k, v := range vec {
		noMean[k] = v - mean
	}

	return mean, noMean
}

// EncodeEnergy nearest-neighbour quantises mean (frame energy in dB) against
// EnergyTable, returning a 4-bit index.
func EncodeEnergy(mean float64) uint16 {
	best := 0
	bestErr := math.Inf(1)

	for i, v := range tables.EnergyTable {
		diff := v - mean
		err := diff * diff

		if err < bestErr {
			bestErr = err
			best = i
		}
	}

	return uint16(best) & 0x0F
}

// DecodeEnergy looks up the energy table entry for a 4-bit index.
func DecodeEnergy(index uint16) float64 {
	return tables.EnergyTable[index&0x0F]
}

// EncodePitch quantises Wo logarithmically against [WoMin, WoMax] into a
// 6-bit index.
func EncodePitch(wo float64) uint16 {
	idx := int(math.Floor(tables.WoLevels*
		(math.Log10(wo)-math.Log10(tables.WoMin))/
		(math.Log10(tables.WoMax)-math.Log10(tables.WoMin)) + 0.5))

	if idx < 0 {
		idx = 0
	} else if idx > tables.WoLevels-1 {
		idx = tables.WoLevels - 1
	}

	return uint16(idx) & 0x3F
}

// DecodePitch looks up Wo for a 6-bit pitch index.
func DecodePitch(index uint16) float64 {
	return tables.PitchTable[index&0x3F]
}

type vqCandidate struct {
	n1, n2 int
	err    float64
}

// TwoStageVQEncode runs an MBest beam search: a full search of Codebook1
// keeps the best MBestEntries stage-1 rows, then for each retained row the
// residual is fully searched against Codebook2, merging into a single best
// list over the joint (n1, n2) pair.
func TwoStageVQEncode(vecNoMean [tables.AmpK]float64) (n1, n2 int) {
	stage1 := mbestSearch(&tables.Codebook1, vecNoMean)

	var best [tables.MBestEntries]vqCandidate

	for i := range best {
		best[i].err = math.Inf(1)
	}

	for _, c1 := range stage1 {
		var target [tables.AmpK]float64
		for k := range target {
			target[k] = vecNoMean[k] - tables.Codebook1[c1.idx][k]
		}

		for j := range tables.Codebook2 {
			err := squaredDistance(target, tables.Codebook2[j])
			insertCandidate(&best, vqCandidate{n1: c1.idx, n2: j, err: err})
		}
	}

	return best[0].n1, best[0].n2
}

// DecodeVQ reconstructs the mean-removed rate-K vector from the two VQ
// codes.
func DecodeVQ(n1, n2 int) [tables.AmpK]float64 {
	var vec [tables.AmpK]float64
	for k := range vec {
		vec[k] = tables.Codebook1[n1][k] + tables.Codebook2[n2][k]
	}

	return vec
}

// DecodeIndexesToVector undoes EncodeModelToIndexes' quantisation: VQ
// lookup, mean restore, post-filter, and pitch/voicing decode. idx[0] holds
// the VQ stage-2 code and idx[1] the stage-1 code, mirroring the encoder's
// wire-order convention; idx[3] == 0 means unvoiced, in which case Wo is
// reported as WoMin, the Wo at which the decoder then synthesises the
// unvoiced sub-frames.
func DecodeIndexesToVector(idx Indexes) (vec [tables.AmpK]float64, wo float64, voiced bool) {
	n2 := int(idx[0])
	n1 := int(idx[1])

	noMean := DecodeVQ(n1, n2)
	mean := DecodeEnergy(idx[2])

	for k := range vec {
		vec[k] = noMean[k] + mean
	}

	PostFilterAmp(&vec)

	voiced = idx[3] != 0
	if voiced {
		wo = DecodePitch(idx[3])
	} else {
		wo = tables.WoMin
	}

	return vec, wo, voiced
}

// PostFilterAmp enhances formants at equal frame energy: it adds the fixed
// pre-emphasis curve, scales up by 1.5x, then gain-normalises so total
// energy (summed as 10^(x/10)) is unchanged, and finally removes the
// pre-emphasis curve.
func PostFilterAmp(vec *[tables.AmpK]float64) {
	eBefore := 0.0
	eAfter := 0.0

	for k := range vec {
		vec[k] += tables.AmpPre[k]
		eBefore += mathPow10(vec[k] / 10)

		vec[k] *= 1.5
		eAfter += mathPow10(vec[k] / 10)
	}

	gainDB := 10 * mathLog10(eAfter/eBefore)

	for k := range vec {
		vec[k] -= gainDB
		vec[k] -= tables.AmpPre[k]
	}
}

// EncodeModelToIndexes runs the full encode-side quantisation pipeline:
// rate-K resampling, mean extraction, energy quantisation, two-stage VQ, and
// pitch quantisation, producing the four wire code-words per the spec's
// §4.4 convention (index[0] = VQ stage-2 code, index[1] = VQ stage-1 code).
func EncodeModelToIndexes(m harmonic.Model) Indexes {
	vec := resampleConstRateK(m)

	mean, noMean := MeanExtract(vec)

	var idx Indexes

	idx[2] = EncodeEnergy(mean)

	n1, n2 := TwoStageVQEncode(noMean)
	idx[0] = uint16(n2)
	idx[1] = uint16(n1)

	if m.Voiced {
		p := EncodePitch(m.Wo)
		if p == 0 {
			p = 1
		}

		idx[3] = p
	} else {
		idx[3] = 0
	}

	return idx
}

// resampleConstRateK converts the model's variable-rate (L harmonics)
// log-amplitudes to the fixed AmpK=20 frequency grid via three-point
// parabolic interpolation.
func resampleConstRateK(m harmonic.Model) [tables.AmpK]float64 {
	if m.L < 1 {
		var zero [tables.AmpK]float64
		return zero
	}

	amdB := make([]float64, m.L)
	freqs := make([]float64, m.L)

	tval := m.Wo * 4 / math.Pi

	peak := -100.0

	for i := 1; i <= m.L; i++ {
		a := 20 * mathLog10(m.A[i]+1e-16)
		amdB[i-1] = a
		freqs[i-1] = float64(i) * tval

		if a > peak {
			peak = a
		}
	}

	for i := range amdB {
		if amdB[i] < peak-50 {
			amdB[i] = peak - 50
		}
	}

	out := interp.Parabolic(freqs, amdB, tables.AmpFreqsKHz[:])

	var vec [tables.AmpK]float64
	copy(vec[:], out)

	return vec
}

func squaredDistance(a, b [tables.AmpK]float64) float64 {
	sum := 0.0

	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}

	return sum
}

type idxCandidate struct {
	idx int
	err float64
}

func mbestSearch(cb *[tables.AmpM][tables.AmpK]float64, vec [tables.AmpK]float64) []idxCandidate {
	var best [tables.MBestEntries]idxCandidate

	for i := range best {
		best[i].err = math.Inf(1)
	}

	for j := range cb {
		err := squaredDistance(cb[j], vec)
		insertIdx(&best, idxCandidate{idx: j, err: err})
	}

	return best[:]
}

func insertIdx(list *[tables.MBestEntries]idxCandidate, c idxCandidate) {
	for i := range list {
		if c.err < list[i].err {
			copy(list[i+1:], list[i:len(list)-1])
			list[i] = c

			return
		}
	}
}

func insertCandidate(list *[tables.MBestEntries]vqCandidate, c vqCandidate) {
	for i := range list {
		if c.err < list[i].err {
			copy(list[i+1:], list[i:len(list)-1])
			list[i] = c

			return
		}
	}
}
