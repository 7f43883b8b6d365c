package harmonic

import (
	"math"
	"testing"

	"github.com/voicewire/codec700c/internal/tables"
	"github.com/voicewire/codec700c/internal/testutil"
)

func TestPRNGFirstSixteenOutputs(t *testing.T) {
	want := []uint32{
		16838, 5758, 10113, 17515, 31051, 5627, 23010, 7419,
		16212, 4086, 2749, 12767, 9084, 12060, 32225, 17543,
	}

	p := prng{state: 1}

	for i, w := range want {
		if got := p.next(); got != w {
			t.Fatalf("output %d: got %d want %d", i, got, w)
		}
	}
}

func newTestModel(wo float64, voiced bool) (out Model) {
	out.Wo = wo
	out.Voiced = voiced
	out.L = int(math.Floor(math.Pi / wo))

	for i := range out.A {
		out.A[i] = 1.0
	}

	return out
}

func TestInterpolateBothVoicedBlendsLinearly(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	d.prevVec = [tables.AmpK]float64{}
	d.prevWo = tables.WoMin
	d.prevVoiced = true

	var vec [tables.AmpK]float64
	for i := range vec {
		vec[i] = 40.0
	}

	models := d.Interpolate(vec, tables.WoMax, true)

	for i, m := range models {
		if !m.Voiced {
			t.Fatalf("sub-frame %d: want voiced", i)
		}
	}

	if models[0].Wo >= models[3].Wo {
		t.Fatalf("expected Wo to move monotonically from prevWo toward wo across sub-frames: got %v", []float64{models[0].Wo, models[1].Wo, models[2].Wo, models[3].Wo})
	}
}

func TestInterpolateBothUnvoicedPassesCurrentThrough(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	d.prevVoiced = false

	var vec [tables.AmpK]float64

	models := d.Interpolate(vec, tables.WoMin, false)

	for i, m := range models {
		if m.Voiced {
			t.Fatalf("sub-frame %d: want unvoiced", i)
		}

		if m.Wo != tables.WoMin {
			t.Fatalf("sub-frame %d: Wo=%v want %v", i, m.Wo, tables.WoMin)
		}
	}
}

func TestInterpolatePrevVoicedToUnvoicedSwitchesAtMidpoint(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	d.prevVoiced = true
	d.prevWo = tables.WoMax

	models := d.Interpolate([tables.AmpK]float64{}, tables.WoMin, false)

	if !models[0].Voiced {
		t.Fatalf("sub-frame 0: want voiced (c=1.0 > 0.5, carries previous)")
	}

	if models[3].Voiced {
		t.Fatalf("sub-frame 3: want unvoiced (c<=0.5, carries current)")
	}
}

func TestInterpolatePrevUnvoicedToVoicedSwitchesAtMidpoint(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	d.prevVoiced = false
	d.prevWo = tables.WoMin

	models := d.Interpolate([tables.AmpK]float64{}, tables.WoMax, true)

	if models[0].Voiced {
		t.Fatalf("sub-frame 0: want unvoiced (c=1.0 > 0.5, carries previous)")
	}

	if !models[3].Voiced {
		t.Fatalf("sub-frame 3: want voiced (c<=0.5, carries current)")
	}
}

func TestSynthesizeSubframeProducesFiniteBoundedOutput(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	m := newTestModel(2*math.Pi/100, true)

	samples, err := d.SynthesizeSubframe(m)
	if err != nil {
		t.Fatalf("SynthesizeSubframe: %v", err)
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s)

		if s > 32760 || s < -32760 {
			t.Fatalf("sample %d: %d outside saturation bound", i, s)
		}
	}

	testutil.RequireFinite(t, floats)
}

func TestApplyPostfilterTracksPerSubframeEnergy(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	loud := newTestModel(2*math.Pi/100, false)
	for i := range loud.A {
		loud.A[i] = 20.0
	}

	var phi [tables.MaxAmp + 1]float64
	d.applyPostfilter(loud, phi[:])

	afterLoud := d.bgEst

	quiet := newTestModel(2*math.Pi/100, false)
	for i := range quiet.A {
		quiet.A[i] = 0.01
	}

	d.applyPostfilter(quiet, phi[:])

	afterQuiet := d.bgEst

	if afterQuiet >= afterLoud {
		t.Fatalf("bgEst should track each sub-frame's own harmonic energy: after loud=%v after quiet=%v", afterLoud, afterQuiet)
	}
}

func TestMagToPhaseIsFiniteForFlatEnvelope(t *testing.T) {
	d, err := NewDecoderState()
	if err != nil {
		t.Fatalf("NewDecoderState: %v", err)
	}

	var mag [tables.NS]float64
	for i := range mag {
		mag[i] = -10
	}

	phase := d.magToPhase(mag)

	testutil.RequireFinite(t, phase[:])
}
