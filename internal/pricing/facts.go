package pricing

import "math"

// Intrinsic is the exercise value right now: max(S-K, 0) for calls,
// max(K-S, 0) for puts.
func Intrinsic(p Params) float64 {
	if p.Kind == Call {
		return math.Max(p.Spot-p.Strike, 0)
	}
	return math.Max(p.Strike-p.Spot, 0)
}

// Moneyness is spot/strike. Above 1 favours calls.
func Moneyness(p Params) float64 {
	return p.Spot / p.Strike
}

// DaysToExpiry converts the maturity to calendar days.
func DaysToExpiry(p Params) float64 {
	return p.Maturity * DaysPerYear
}

// TimeValue is the part of the price not explained by intrinsic value.
func (g Greeks) TimeValue(intrinsic float64) float64 {
	return g.Price - intrinsic
}

// YearsFromDays converts a calendar day count to a maturity in years.
func YearsFromDays(days int) float64 {
	return float64(days) / DaysPerYear
}
