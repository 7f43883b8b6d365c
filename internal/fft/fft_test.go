package fft

import (
	"math"
	"testing"
)

func TestRealForwardInverseRoundTrip(t *testing.T) {
	const n = 64

	p, err := NewPlan(n)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	src := make([]float64, n)
	for i := range src {
		src[i] = math.Sin(2 * math.Pi * 5 * float64(i) / n)
	}

	half := make([]complex128, p.HalfSpectrumLen())
	if err := p.RealForward(half, src); err != nil {
		t.Fatalf("RealForward: %v", err)
	}

	recon := make([]float64, n)
	if err := p.RealInverse(recon, half); err != nil {
		t.Fatalf("RealInverse: %v", err)
	}

	for i := range src {
		if math.Abs(recon[i]-src[i]) > 1e-9 {
			t.Fatalf("sample %d: got=%v want=%v", i, recon[i], src[i])
		}
	}
}

func TestComplexForwardInverseRoundTrip(t *testing.T) {
	const n = 128

	p, err := NewPlan(n)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	src := make([]complex128, n)
	for i := range src {
		src[i] = complex(math.Cos(2*math.Pi*3*float64(i)/n), 0)
	}

	freq := make([]complex128, n)
	if err := p.Forward(freq, src); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	recon := make([]complex128, n)
	if err := p.Inverse(recon, freq); err != nil {
		t.Fatalf("Inverse: %v", err)
	}

	for i := range src {
		if math.Abs(real(recon[i])-real(src[i])) > 1e-9 {
			t.Fatalf("sample %d: got=%v want=%v", i, real(recon[i]), real(src[i]))
		}
	}
}

func TestHalfSpectrumLen(t *testing.T) {
	p, err := NewPlan(512)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	if got := p.HalfSpectrumLen(); got != 257 {
		t.Fatalf("HalfSpectrumLen()=%d want 257", got)
	}
}

func TestLengthMismatchErrors(t *testing.T) {
	p, err := NewPlan(32)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	if err := p.RealForward(make([]complex128, 3), make([]float64, 32)); err == nil {
		t.Fatal("expected error for wrong dst length")
	}

	if err := p.RealInverse(make([]float64, 31), make([]complex128, 17)); err == nil {
		t.Fatal("expected error for wrong dst length")
	}

	if err := p.Forward(make([]complex128, 31), make([]complex128, 32)); err == nil {
		t.Fatal("expected error for mismatched complex forward lengths")
	}
}
