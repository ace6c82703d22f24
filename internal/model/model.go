// Package model defines the wire snapshots returned by the calculator API.
// Kernel results are float64; everything shown to a user is rounded here to
// fixed-scale decimals so the same inputs always serialize the same way.
package model

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/atmx/greeks-engine/internal/advisory"
	"github.com/atmx/greeks-engine/internal/pricing"
)

var (
	// PriceScale is the number of decimal places for prices and dollar values.
	PriceScale int32 = 4

	// GreekScale is the number of decimal places for sensitivities.
	GreekScale int32 = 6

	// PercentScale is the number of decimal places for percentages.
	PercentScale int32 = 2

	hundred = decimal.NewFromInt(100)
)

func round(v float64, scale int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(scale)
}

// Greeks is the rounded price and sensitivities.
type Greeks struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Vega  decimal.Decimal `json:"vega"`  // per 1% vol
	Theta decimal.Decimal `json:"theta"` // per day
	Rho   decimal.Decimal `json:"rho"`   // per 1% rate
}

// NewGreeks rounds a kernel result for display.
func NewGreeks(g pricing.Greeks) Greeks {
	return Greeks{
		Price: round(g.Price, PriceScale),
		Delta: round(g.Delta, GreekScale),
		Gamma: round(g.Gamma, GreekScale),
		Vega:  round(g.Vega, GreekScale),
		Theta: round(g.Theta, GreekScale),
		Rho:   round(g.Rho, GreekScale),
	}
}

// Inputs echoes the request in calculator units: percentages for volatility,
// rate and dividend.
type Inputs struct {
	Kind          pricing.Kind    `json:"kind"`
	Spot          decimal.Decimal `json:"spot"`
	Strike        decimal.Decimal `json:"strike"`
	Maturity      decimal.Decimal `json:"maturity"` // years
	VolatilityPct decimal.Decimal `json:"volatility"`
	RatePct       decimal.Decimal `json:"rate"`
	DividendPct   decimal.Decimal `json:"dividend"`
}

// NewInputs converts kernel params back to calculator units.
func NewInputs(p pricing.Params) Inputs {
	return Inputs{
		Kind:          p.Kind,
		Spot:          round(p.Spot, PriceScale),
		Strike:        round(p.Strike, PriceScale),
		Maturity:      round(p.Maturity, GreekScale),
		VolatilityPct: round(p.Volatility*100, PercentScale),
		RatePct:       round(p.Rate*100, PercentScale),
		DividendPct:   round(p.Dividend*100, PercentScale),
	}
}

// Facts is the calculator's quick-facts panel.
type Facts struct {
	Intrinsic    decimal.Decimal `json:"intrinsic_value"`
	TimeValue    decimal.Decimal `json:"time_value"`
	MoneynessPct decimal.Decimal `json:"moneyness_pct"`
	Moneyness    string          `json:"moneyness"` // ITM/ATM/OTM label
	DaysToExpiry int64           `json:"days_to_expiry"`
}

// NewFacts derives the quick facts for a priced option.
func NewFacts(p pricing.Params, g pricing.Greeks) Facts {
	intrinsic := pricing.Intrinsic(p)
	m := pricing.Moneyness(p)
	return Facts{
		Intrinsic:    round(intrinsic, PriceScale),
		TimeValue:    round(g.TimeValue(intrinsic), PriceScale),
		MoneynessPct: decimal.NewFromFloat(m).Mul(hundred).Round(PercentScale),
		Moneyness:    advisory.MoneynessLabel(m),
		DaysToExpiry: int64(math.Round(pricing.DaysToExpiry(p))),
	}
}

// Quote is the full calculator response for one option.
type Quote struct {
	Inputs   Inputs             `json:"inputs"`
	Greeks   Greeks             `json:"greeks"`
	Facts    Facts              `json:"facts"`
	Advice   []advisory.Message `json:"advice"`
	Insights []advisory.Insight `json:"insights"`
}

// NewQuote assembles a quote from a priced option and its advice.
func NewQuote(p pricing.Params, g pricing.Greeks, advice []advisory.Message) Quote {
	return Quote{
		Inputs:   NewInputs(p),
		Greeks:   NewGreeks(g),
		Facts:    NewFacts(p, g),
		Advice:   advice,
		Insights: advisory.Insights(p, g),
	}
}
