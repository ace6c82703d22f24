package curve

import (
	"fmt"
	"math"

	"github.com/atmx/greeks-engine/internal/pricing"
	"github.com/atmx/greeks-engine/internal/volatility"
)

// StrikePoint is one row of an option chain.
type StrikePoint struct {
	Strike float64 `json:"strike"`
	pricing.Greeks
}

// SmilePoint is one sample of a volatility smile.
type SmilePoint struct {
	Strike        float64 `json:"strike"`
	LogMoneyness  float64 `json:"log_moneyness"`
	Volatility    float64 `json:"volatility"`
	TotalVariance float64 `json:"total_variance"`
}

// SweepStrike prices base at each strike, in the order given.
func SweepStrike(base pricing.Params, strikes []float64) ([]StrikePoint, error) {
	if len(strikes) == 0 {
		return nil, fmt.Errorf("%w: no strikes", ErrInvalidRange)
	}
	points := make([]StrikePoint, 0, len(strikes))
	for _, k := range strikes {
		p := base
		p.Strike = k
		g, err := pricing.Compute(p)
		if err != nil {
			return nil, fmt.Errorf("strike %v: %w", k, err)
		}
		points = append(points, StrikePoint{Strike: k, Greeks: g})
	}
	return points, nil
}

// StrikeLadder returns strikes from lo to hi inclusive in fixed steps. A
// ladder longer than maxPoints is rejected before anything is allocated.
func StrikeLadder(lo, hi, step float64, maxPoints int) ([]float64, error) {
	if !finite(lo) || !finite(hi) || !finite(step) || lo <= 0 || step <= 0 || lo > hi {
		return nil, fmt.Errorf("%w: ladder %v..%v step %v", ErrInvalidRange, lo, hi, step)
	}
	count := math.Floor((hi-lo)/step+1e-9) + 1
	if !finite(count) || count > float64(maxPoints) {
		return nil, fmt.Errorf("%w: ladder %v..%v step %v has %v strikes, limit is %d",
			ErrInvalidRange, lo, hi, step, count, maxPoints)
	}
	out := make([]float64, int(count))
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out, nil
}

// SweepSmile reads the surface's implied volatility across strikes at one
// maturity.
func SweepSmile(surface *volatility.Surface, spot, maturity float64, strikes []float64) ([]SmilePoint, error) {
	if len(strikes) == 0 {
		return nil, fmt.Errorf("%w: no strikes", ErrInvalidRange)
	}
	points := make([]SmilePoint, 0, len(strikes))
	for _, k := range strikes {
		vol, err := surface.ImpliedVol(k, spot, maturity)
		if err != nil {
			return nil, fmt.Errorf("strike %v: %w", k, err)
		}
		points = append(points, SmilePoint{
			Strike:        k,
			LogMoneyness:  math.Log(k / spot),
			Volatility:    vol,
			TotalVariance: vol * vol * maturity,
		})
	}
	return points, nil
}

// SpotBounds returns the spot window [low·strike, high·strike]. The
// calculator defaults to 0.7 and 1.3.
func SpotBounds(strike, low, high float64) (float64, float64) {
	return strike * low, strike * high
}
