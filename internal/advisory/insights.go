package advisory

import (
	"math"

	"github.com/atmx/greeks-engine/internal/pricing"
)

// Insight is a short explanatory note for the calculator panel.
type Insight struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Moneyness labels.
const (
	InTheMoney    = "In-the-Money"
	AtTheMoney    = "At-the-Money"
	OutOfTheMoney = "Out-of-the-Money"
)

// MoneynessLabel buckets spot/strike with a ±5% band around the money.
func MoneynessLabel(moneyness float64) string {
	switch {
	case moneyness > 1.05:
		return InTheMoney
	case moneyness < 0.95:
		return OutOfTheMoney
	default:
		return AtTheMoney
	}
}

// Insights explains the position in plain terms: where it sits relative to
// the strike, how strongly it tracks the underlying and whether expiry is
// close. The moneyness note is always present.
func Insights(p pricing.Params, g pricing.Greeks) []Insight {
	var out []Insight

	switch MoneynessLabel(pricing.Moneyness(p)) {
	case InTheMoney:
		out = append(out, Insight{InTheMoney, "This option has intrinsic value and would be profitable if exercised now."})
	case OutOfTheMoney:
		out = append(out, Insight{OutOfTheMoney, "This option has no intrinsic value, only time value."})
	default:
		out = append(out, Insight{AtTheMoney, "This option has maximum time value and gamma."})
	}

	switch delta := math.Abs(g.Delta); {
	case delta > 0.7:
		out = append(out, Insight{"High Delta", "This option moves almost 1-to-1 with the underlying."})
	case delta < 0.3:
		out = append(out, Insight{"Low Delta", "This option has low sensitivity to price changes."})
	}

	if g.Gamma > 0.02 {
		out = append(out, Insight{"High Gamma", "Delta will change rapidly. Frequent rehedging needed."})
	}
	if p.Maturity < 0.25 {
		out = append(out, Insight{"Near Expiration", "Time decay is accelerating rapidly."})
	}
	return out
}
