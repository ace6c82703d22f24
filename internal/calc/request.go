package calc

import (
	"fmt"
	"math"

	"github.com/atmx/greeks-engine/internal/pricing"
	"github.com/atmx/greeks-engine/internal/strategy"
)

// OptionRequest is one option in calculator units: volatility, rate and
// dividend are percentages (25 = 25%). Maturity is in years; Days, when set,
// takes precedence and is converted at 365 days per year.
type OptionRequest struct {
	Kind       string  `json:"kind"` // "call" (default) or "put"
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Maturity   float64 `json:"maturity,omitempty"`
	Days       int     `json:"days,omitempty"`
	Volatility float64 `json:"volatility"`
	Rate       float64 `json:"rate"`
	Dividend   float64 `json:"dividend"`
}

// Params converts the request to kernel units and validates it.
func (o OptionRequest) Params() (pricing.Params, error) {
	kind := pricing.Call
	if o.Kind != "" {
		k, err := pricing.ParseKind(o.Kind)
		if err != nil {
			return pricing.Params{}, err
		}
		kind = k
	}
	p := pricing.Params{
		Spot:       o.Spot,
		Strike:     o.Strike,
		Maturity:   maturity(o.Maturity, o.Days),
		Volatility: o.Volatility / 100,
		Rate:       o.Rate / 100,
		Dividend:   o.Dividend / 100,
		Kind:       kind,
	}
	return p, p.Validate()
}

func maturity(years float64, days int) float64 {
	if days != 0 {
		return pricing.YearsFromDays(days)
	}
	return years
}

// MarketRequest is the shared market for a multi-leg position, in calculator
// units.
type MarketRequest struct {
	Spot       float64 `json:"spot"`
	Volatility float64 `json:"volatility"`
	Rate       float64 `json:"rate"`
	Dividend   float64 `json:"dividend"`
}

func (m MarketRequest) params() pricing.Params {
	return pricing.Params{
		Spot:       m.Spot,
		Volatility: m.Volatility / 100,
		Rate:       m.Rate / 100,
		Dividend:   m.Dividend / 100,
	}
}

// LegRequest is one strategy leg. Expiry is in years, or Days when set.
type LegRequest struct {
	Kind     string  `json:"kind"`
	Action   string  `json:"action"` // "buy" (default) or "sell"
	Strike   float64 `json:"strike"`
	Quantity float64 `json:"quantity"`
	Expiry   float64 `json:"expiry,omitempty"`
	Days     int     `json:"days,omitempty"`
}

func (l LegRequest) leg(i int) (strategy.Leg, error) {
	kind := pricing.Call
	if l.Kind != "" {
		k, err := pricing.ParseKind(l.Kind)
		if err != nil {
			return strategy.Leg{}, fmt.Errorf("leg %d: %w", i, err)
		}
		kind = k
	}
	action := strategy.Buy
	if l.Action != "" {
		action = strategy.Action(l.Action)
	}
	qty := l.Quantity
	if qty == 0 {
		qty = 1
	}
	return strategy.Leg{
		Kind:     kind,
		Action:   action,
		Strike:   l.Strike,
		Quantity: qty,
		Expiry:   maturity(l.Expiry, l.Days),
	}, nil
}

// maturity checks the inputs the surface does not own and returns the
// maturity in years.
func (r SmileRequest) maturity() (float64, error) {
	t := maturity(r.Maturity, r.Days)
	if err := positive("spot", r.Spot); err != nil {
		return 0, err
	}
	if err := positive("maturity", t); err != nil {
		return 0, err
	}
	for _, k := range r.Strikes {
		if err := positive("strike", k); err != nil {
			return 0, err
		}
	}
	return t, nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive, got %v", pricing.ErrInvalidParameter, name, v)
	}
	return nil
}
