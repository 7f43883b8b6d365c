// Package interp provides interpolation primitives shared across the DSP
// packages.
//
// Available methods:
//
//   - [LagrangeInterpolator]: configurable linear/cubic fractional interpolation
//   - [Hermite4]:             4-point cubic Hermite interpolation
//   - [Parabolic]:            3-point local-parabola resampling onto arbitrary query points
package interp
