//go:build fastmath

package harmonic

import approx "github.com/meko-christian/algo-approx"

const ln10 = 2.302585092994046

// mathSqrt computes sqrt(x) using a fast approximation. Called once per
// harmonic per sub-frame in the amplitude estimator, a hot loop for
// high-pitched voices with many harmonics.
func mathSqrt(x float64) float64 {
	return approx.FastSqrt(x)
}

// mathLog10 computes log10(x) using a fast polynomial approximation.
func mathLog10(x float64) float64 {
	return approx.FastLog(x) / ln10
}

// mathPow10 computes 10^x using a fast polynomial approximation.
func mathPow10(x float64) float64 {
	return approx.FastExp(x * ln10)
}
