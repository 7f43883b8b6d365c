// Package fft wraps algo-fft's complex128 transform with the real-signal
// conventions the harmonic analyzer and pitch estimator need: a real forward
// transform that returns only the non-redundant half spectrum, and its
// inverse that reconstructs the implied Hermitian-symmetric full spectrum
// before transforming back.
package fft

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Plan wraps a fixed-size complex128 FFT plan and the scratch buffers needed
// to adapt it to real-valued signals.
type Plan struct {
	size int
	plan *algofft.Plan[complex128]

	timeScratch []complex128
	freqScratch []complex128
}

// NewPlan creates an FFT plan for transforms of the given size. size must be
// a power of two, as required by the underlying algo-fft backend.
func NewPlan(size int) (*Plan, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fft: size must be > 0: %d", size)
	}

	p, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("fft: failed to create plan: %w", err)
	}

	return &Plan{
		size:        size,
		plan:        p,
		timeScratch: make([]complex128, size),
		freqScratch: make([]complex128, size),
	}, nil
}

// Size returns the transform length.
func (p *Plan) Size() int {
	return p.size
}

// HalfSpectrumLen returns the number of non-redundant bins a real forward
// transform of this plan's size produces: size/2 + 1.
func (p *Plan) HalfSpectrumLen() int {
	return p.size/2 + 1
}

// Forward computes the complex forward FFT of src into dst. Both must have
// length Size().
func (p *Plan) Forward(dst, src []complex128) error {
	if len(src) != p.size || len(dst) != p.size {
		return fmt.Errorf("fft: length mismatch: size=%d src=%d dst=%d", p.size, len(src), len(dst))
	}

	if err := p.plan.Forward(dst, src); err != nil {
		return fmt.Errorf("fft: forward failed: %w", err)
	}

	return nil
}

// Inverse computes the complex inverse FFT of src into dst. Both must have
// length Size().
func (p *Plan) Inverse(dst, src []complex128) error {
	if len(src) != p.size || len(dst) != p.size {
		return fmt.Errorf("fft: length mismatch: size=%d src=%d dst=%d", p.size, len(src), len(dst))
	}

	if err := p.plan.Inverse(dst, src); err != nil {
		return fmt.Errorf("fft: inverse failed: %w", err)
	}

	return nil
}

// RealForward computes the FFT of a real-valued signal and writes the
// non-redundant half spectrum (bins 0..size/2 inclusive) into dst. src must
// have length <= Size(); it is zero-padded to the transform size. dst must
// have length HalfSpectrumLen().
func (p *Plan) RealForward(dst []complex128, src []float64) error {
	if len(src) > p.size {
		return fmt.Errorf("fft: src longer than plan size: %d > %d", len(src), p.size)
	}

	if len(dst) != p.HalfSpectrumLen() {
		return fmt.Errorf("fft: dst length must be %d, got %d", p.HalfSpectrumLen(), len(dst))
	}

	for i := range p.timeScratch {
		p.timeScratch[i] = 0
	}

	for i, v := range src {
		p.timeScratch[i] = complex(v, 0)
	}

	if err := p.plan.Forward(p.freqScratch, p.timeScratch); err != nil {
		return fmt.Errorf("fft: real forward failed: %w", err)
	}

	copy(dst, p.freqScratch[:len(dst)])

	return nil
}

// RealInverse reconstructs the full Hermitian-symmetric spectrum from the
// half spectrum in src (length HalfSpectrumLen()), runs the inverse
// transform, and writes the real part of the result into dst (length
// Size()).
func (p *Plan) RealInverse(dst []float64, src []complex128) error {
	if len(src) != p.HalfSpectrumLen() {
		return fmt.Errorf("fft: src length must be %d, got %d", p.HalfSpectrumLen(), len(src))
	}

	if len(dst) != p.size {
		return fmt.Errorf("fft: dst length must be %d, got %d", p.size, len(dst))
	}

	copy(p.freqScratch[:len(src)], src)

	for k := len(src); k < p.size; k++ {
		p.freqScratch[k] = complexConj(p.freqScratch[p.size-k])
	}

	if err := p.plan.Inverse(p.timeScratch, p.freqScratch); err != nil {
		return fmt.Errorf("fft: real inverse failed: %w", err)
	}

	for i := range dst {
		dst[i] = real(p.timeScratch[i])
	}

	return nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
