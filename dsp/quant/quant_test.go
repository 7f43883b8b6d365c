package quant

import (
	"math"
	"testing"

	"github.com/voicewire/codec700c/internal/tables"
)

func TestMeanExtractRoundTrip(t *testing.T) {
	var vec [tables.AmpK]float64
	for i := range vec {
		vec[i] = float64(i) * 2.5
	}

	mean, noMean := MeanExtract(vec)

	for k := range vec {
		if math.Abs((noMean[k]+mean)-vec[k]) > 1e-9 {
			t.Fatalf("round trip mismatch at %d", k)
		}
	}
}

func TestEnergyQuantRoundTripNearest(t *testing.T) {
	for _, v := range tables.EnergyTable {
		idx := EncodeEnergy(v)
		if DecodeEnergy(idx) != v {
			t.Fatalf("energy %v: got %v", v, DecodeEnergy(idx))
		}
	}
}

func TestPitchQuantBounds(t *testing.T) {
	idx := EncodePitch(tables.WoMin)
	if idx != 0 {
		t.Fatalf("EncodePitch(WoMin)=%d want 0", idx)
	}

	idx = EncodePitch(tables.WoMax)
	if idx != tables.WoLevels-1 {
		t.Fatalf("EncodePitch(WoMax)=%d want %d", idx, tables.WoLevels-1)
	}
}

func TestTwoStageVQExactCodebookRow(t *testing.T) {
	row := tables.Codebook1[37]

	n1, n2 := TwoStageVQEncode(row)
	if n1 != 37 {
		t.Fatalf("n1=%d want 37", n1)
	}

	_ = n2
}

func TestVQRoundTripReducesResidual(t *testing.T) {
	var vec [tables.AmpK]float64
	for i := range vec {
		vec[i] = 5*math.Sin(float64(i)) + 2
	}

	n1, n2 := TwoStageVQEncode(vec)
	recon := DecodeVQ(n1, n2)

	stage1Only := tables.Codebook1[n1]

	errFull := squaredDistance(vec, recon)
	errStage1 := squaredDistance(vec, stage1Only)

	if errFull > errStage1 {
		t.Fatalf("two-stage VQ error=%v should not exceed stage-1-only error=%v", errFull, errStage1)
	}
}

func TestIndexesWithinBitWidths(t *testing.T) {
	if got := EncodeEnergy(1000); got > 0x0F {
		t.Fatalf("energy index exceeds 4 bits: %d", got)
	}

	if got := EncodePitch(100); got > 0x3F {
		t.Fatalf("pitch index exceeds 6 bits: %d", got)
	}
}
