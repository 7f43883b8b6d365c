package pitch

import (
	"math"
	"testing"

	"github.com/voicewire/codec700c/internal/tables"
)

func sawtooth(freqHz, amp float64, n int) []float64 {
	s := make([]float64, n)
	period := tables.FS / freqHz

	for i := range s {
		phase := math.Mod(float64(i), period) / period
		s[i] = amp * (2*phase - 1)
	}

	return s
}

func TestDetectSawtoothNearExpectedPeriod(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sn := sawtooth(150, 8000, tables.MPitch)

	var period float64
	for i := 0; i < 6; i++ {
		period, err = e.Detect(sn)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
	}

	want := tables.FS / 150.0
	if math.Abs(period-want) > 8 {
		t.Fatalf("period=%v, want approx %v", period, want)
	}
}

func TestDetectRejectsWrongLength(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.Detect(make([]float64, 10)); err == nil {
		t.Fatal("expected error for wrong-length input")
	}
}

func TestDetectSilenceStaysBounded(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sn := make([]float64, tables.MPitch)

	period, err := e.Detect(sn)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if period < tables.PMin || period > tables.PMax {
		t.Fatalf("period=%v out of [%v,%v]", period, tables.PMin, tables.PMax)
	}
}
