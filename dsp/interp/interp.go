package interp

// LagrangeInterpolator provides configurable fractional interpolation.
type LagrangeInterpolator struct {
	order int
}

// NewLagrangeInterpolator creates an interpolator.
// order: 1 = linear, 3 = cubic (Hermite-style 4-point interpolation).
func NewLagrangeInterpolator(order int) *LagrangeInterpolator {
	return &LagrangeInterpolator{order: order}
}

// Interpolate interpolates around frac in [0,1].
// For order 1, samples must contain at least 2 values.
// For order 3, samples must contain at least 4 values and interpolates between samples[1] and samples[2].
func (l *LagrangeInterpolator) Interpolate(samples []float64, frac float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if l.order == 1 {
		if len(samples) < 2 {
			return samples[0]
		}
		return samples[0] + frac*(samples[1]-samples[0])
	}
	if l.order == 3 {
		if len(samples) < 4 {
			if len(samples) < 2 {
				return samples[0]
			}
			return samples[0] + frac*(samples[1]-samples[0])
		}
		return Hermite4(frac, samples[0], samples[1], samples[2], samples[3])
	}
	if len(samples) < 2 {
		return samples[0]
	}
	return samples[0] + frac*(samples[1]-samples[0])
}

// Parabolic resamples the curve defined by (xp, yp) onto the query points x,
// fitting a local 3-point parabola around each query and evaluating it
// there. xp and x must both be sorted ascending; len(xp) must be >= 3.
//
// This is the interpolation primitive shared by the encoder's rate-K
// resampler and the decoder's rate-L resampler and minimum-phase
// reconstruction: both resample a small, fixed set of control points onto a
// denser query grid using the same local-parabola fit.
func Parabolic(xp, yp, x []float64) []float64 {
	np := len(xp)
	if np < 3 || len(yp) != np {
		return nil
	}

	out := make([]float64, len(x))

	k := 0

	for i, xi := range x {
		for k+1 < np-1 && xp[k+1] < xi && k < np-3 {
			k++
		}

		x1, y1 := xp[k], yp[k]
		x2, y2 := xp[k+1], yp[k+1]
		x3, y3 := xp[k+2], yp[k+2]

		d1 := (y2 - y1) / (x2 - x1)
		d2 := (y3 - y2) / (x3 - x2)

		a := (d2 - d1) / (x3 - x1)
		b := (d2*(x2-x1) + d1*(x3-x2)) / (x3 - x1)

		dx := xi - x2
		out[i] = a*dx*dx + b*dx + y2
	}

	return out
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}
