// Package stats provides the standard normal density and cumulative
// distribution used by the pricing kernel.
//
// NormCDF is the Zelen & Severo rational approximation (Abramowitz & Stegun
// 26.2.17) with its coefficients rounded to seven digits. Its absolute error
// stays below 3e-7, enough for display-grade Greeks. It is a known
// approximation: risk systems that need more digits should use an erf-based
// CDF instead.
package stats

import "math"

// invSqrt2Pi is 1/sqrt(2π).
var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// Coefficients of the A&S 26.2.17 polynomial.
const (
	p  = 0.2316419
	b1 = 0.3193815
	b2 = -0.3565638
	b3 = 1.781478
	b4 = -1.821256
	b5 = 1.330274
)

// NormPDF returns the standard normal density exp(-x²/2)/sqrt(2π).
// The result lies in (0, 0.3989] for finite x and underflows to 0 in the
// far tails.
func NormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) * invSqrt2Pi
}

// NormCDF returns Φ(x), the standard normal cumulative probability.
//
// Large |x| saturates to 0 or 1 on its own because the density term
// underflows, so there is no special-casing of the tails.
func NormCDF(x float64) float64 {
	t := 1 / (1 + p*math.Abs(x))
	d := NormPDF(x)
	prob := d * t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	if x > 0 {
		return 1 - prob
	}
	return prob
}
