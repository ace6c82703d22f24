package advisory

import (
	"fmt"
	"math"
)

var standardExposure = Message{
	Severity: Neutral,
	Title:    "Standard Exposure",
	Text:     "Balanced profile. Monitor price action and volatility changes.",
}

func fixed(m Message) func(State) Message {
	return func(State) Message { return m }
}

// DefaultRules returns the advisory table in priority order. The slice is
// fresh on every call.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "extreme-volatility",
			Match: func(s State) bool { return s.Params.Volatility > 1.0 },
			Build: fixed(Message{Danger, "Extreme Volatility",
				"IV > 100%. Premiums are extremely expensive. Consider selling strategies (Credit Spreads)."}),
		},
		{
			Name:  "high-gamma",
			Match: func(s State) bool { return s.Greeks.Gamma > 0.05 && s.Days < 30 },
			Build: fixed(Message{Danger, "High Gamma Risk",
				"Position is explosive. Small moves will flip your Delta and P&L rapidly."}),
		},
		{
			// Threshold is roughly $5/day per 100-share contract.
			Name:  "theta-acceleration",
			Match: func(s State) bool { return s.Days < 21 && math.Abs(s.Greeks.Theta) > 0.05 },
			Build: func(s State) Message {
				return Message{Warning, "Theta Acceleration", fmt.Sprintf(
					`You are entering the "Theta Cliff". Time decay is accelerating. You are paying ~$%.2f per day per contract.`,
					math.Abs(s.Greeks.Theta*100))}
			},
		},
		{
			Name:  "otm-call",
			Match: func(s State) bool { return s.IsCall() && s.Moneyness < 0.85 },
			Build: fixed(Message{Warning, "Lotto Ticket (OTM)",
				"Low probability of profit. High leverage but highly likely to expire worthless. Manage size."}),
		},
		{
			Name:  "otm-put",
			Match: func(s State) bool { return !s.IsCall() && s.Moneyness > 1.15 },
			Build: fixed(Message{Warning, "Deep OTM Put",
				"Low probability hedge. Often overpriced due to skew in equity markets."}),
		},
		{
			Name:  "high-vega",
			Match: func(s State) bool { return s.Greeks.Vega > 0.15 },
			Build: fixed(Message{Info, "High Vega Exposure",
				"Sensitive to IV changes. A 1% drop in Volatility hurts as much as a price move."}),
		},
		{
			Name: "stock-replacement",
			Match: func(s State) bool {
				return (s.IsCall() && s.Moneyness > 1.10) || (!s.IsCall() && s.Moneyness < 0.90)
			},
			Build: fixed(Message{Success, "Stock Replacement",
				"High Delta (~1.0). Mimics stock ownership with less capital outlay."}),
		},
	}
}
