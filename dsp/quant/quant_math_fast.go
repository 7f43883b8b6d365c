//go:build fastmath

package quant

import approx "github.com/meko-christian/algo-approx"

const ln10 = 2.302585092994046

// mathLog10 computes log10(x) using a fast polynomial approximation. Quant
// calls this once per amplitude bin per frame; the approximation error is
// well inside the quantiser's step size.
func mathLog10(x float64) float64 {
	return approx.FastLog(x) / ln10
}

// mathPow10 computes 10^x using a fast polynomial approximation.
func mathPow10(x float64) float64 {
	return approx.FastExp(x * ln10)
}
