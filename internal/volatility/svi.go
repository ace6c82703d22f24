// Package volatility models implied volatility across strikes and maturities
// with SVI (stochastic volatility inspired) slices.
//
// A slice gives total implied variance w(k) as a function of log-moneyness
// k = ln(K/S):
//
//	w(k) = a + b·(ρ·(k-m) + sqrt((k-m)² + σ²))
//
// Implied volatility at maturity T is sqrt(w(k)/T). Values are plain float64;
// nothing in this package is stateful.
package volatility

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptySurface is returned when a surface with no slices is queried.
	ErrEmptySurface = errors.New("volatility: surface has no slices")

	// ErrInvalidSlice is returned for a slice with a non-positive maturity or
	// non-finite parameters.
	ErrInvalidSlice = errors.New("volatility: invalid slice")

	// ErrNegativeVariance is returned when a slice evaluates to negative
	// total variance, which has no volatility.
	ErrNegativeVariance = errors.New("volatility: negative total variance")
)

// SVI holds the raw parameters of one maturity slice.
type SVI struct {
	A     float64 `json:"a" toml:"a"`         // vertical shift
	B     float64 `json:"b" toml:"b"`         // wing slope
	Rho   float64 `json:"rho" toml:"rho"`     // skew, in (-1, 1)
	M     float64 `json:"m" toml:"m"`         // horizontal shift
	Sigma float64 `json:"sigma" toml:"sigma"` // curvature, > 0
}

// TotalVariance returns w(k) for log-moneyness k.
func (s SVI) TotalVariance(k float64) float64 {
	km := k - s.M
	return s.A + s.B*(s.Rho*km+math.Sqrt(km*km+s.Sigma*s.Sigma))
}

// ImpliedVol returns sqrt(w(k)/T).
func (s SVI) ImpliedVol(k, maturity float64) (float64, error) {
	if !(maturity > 0) || math.IsInf(maturity, 0) {
		return 0, fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidSlice, maturity)
	}
	return volFromVariance(s.TotalVariance(k), maturity)
}

func volFromVariance(w, maturity float64) (float64, error) {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("%w: total variance %v", ErrInvalidSlice, w)
	}
	if w < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegativeVariance, w)
	}
	return math.Sqrt(w / maturity), nil
}

// ArbitrageFree checks the static constraints on raw SVI parameters:
// b >= 0, |ρ| < 1, σ > 0 and a non-negative variance minimum
// a + b·σ·sqrt(1-ρ²).
func (s SVI) ArbitrageFree() bool {
	if !s.finite() {
		return false
	}
	if s.B < 0 || s.Rho <= -1 || s.Rho >= 1 || s.Sigma <= 0 {
		return false
	}
	return s.A+s.B*s.Sigma*math.Sqrt(1-s.Rho*s.Rho) >= 0
}

// ButterflyFree is a local density check at log-moneyness k: the smile must
// be convex and its slope bounded by 4 (Lee's moment bound).
func (s SVI) ButterflyFree(k float64) bool {
	km := k - s.M
	sig2 := s.Sigma * s.Sigma
	root := math.Sqrt(km*km + sig2)

	slope := s.B * (s.Rho + km/root)
	convexity := s.B * sig2 / (root * root * root)
	return convexity >= 0 && math.Abs(slope) < 4
}

func (s SVI) finite() bool {
	for _, v := range []float64{s.A, s.B, s.Rho, s.M, s.Sigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SVIJW is the jump-wings form of a slice, expressed in quantities traders
// read off a smile.
type SVIJW struct {
	VT     float64 `json:"vt" toml:"vt"`           // ATM total variance
	Psi    float64 `json:"psi" toml:"psi"`         // ATM skew
	P      float64 `json:"p" toml:"p"`             // put wing slope
	C      float64 `json:"c" toml:"c"`             // call wing slope
	VTilde float64 `json:"v_tilde" toml:"v_tilde"` // minimum total variance
}

// SVI converts jump-wings parameters to raw SVI. Wings whose slopes do not
// sum to a positive b, or whose skew leaves no valid curvature, are rejected
// with ErrInvalidSlice.
func (j SVIJW) SVI() (SVI, error) {
	if !(j.VT > 0) || !(j.VTilde >= 0) || math.IsInf(j.VT, 0) || math.IsInf(j.VTilde, 0) {
		return SVI{}, fmt.Errorf("%w: jump-wings variances vt=%v v_tilde=%v", ErrInvalidSlice, j.VT, j.VTilde)
	}
	b := 0.5 * (j.C + j.P)
	if !(b > 0) || math.IsInf(b, 0) {
		return SVI{}, fmt.Errorf("%w: jump-wings slopes p=%v c=%v give b=%v", ErrInvalidSlice, j.P, j.C, b)
	}
	rho := 1 - j.P/b
	beta := rho - 2*j.Psi*math.Sqrt(j.VT)/b
	if !(math.Abs(beta) < 1) || rho+beta == 0 {
		return SVI{}, fmt.Errorf("%w: jump-wings skew psi=%v gives beta=%v", ErrInvalidSlice, j.Psi, beta)
	}
	alpha := math.Sqrt(j.VTilde) * math.Sqrt(1-beta*beta)
	m := (j.VT - alpha*alpha) / (2 * b * (rho + beta))
	sigma := alpha / (b * math.Sqrt(1-beta*beta))
	a := j.VTilde - b*sigma*math.Sqrt(1-rho*rho)

	s := SVI{A: a, B: b, Rho: rho, M: m, Sigma: sigma}
	if !s.finite() {
		return SVI{}, fmt.Errorf("%w: jump-wings conversion is not finite: %+v", ErrInvalidSlice, s)
	}
	return s, nil
}
