// Package strategy combines option legs into a position: its payoff at
// expiration across a spot window, and its aggregate Greeks today.
package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmx/greeks-engine/internal/pricing"
)

var (
	// ErrNoLegs is returned for an empty position.
	ErrNoLegs = errors.New("strategy: position has no legs")

	// ErrInvalidLeg is returned for a leg with a bad action, kind, strike,
	// quantity or expiry.
	ErrInvalidLeg = errors.New("strategy: invalid leg")
)

// DefaultSteps is the payoff curve resolution (DefaultSteps+1 points).
const DefaultSteps = 50

// Action is the side of a leg.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// Direction is +1 for buys and -1 for sells.
func (a Action) Direction() float64 {
	if a == Sell {
		return -1
	}
	return 1
}

// Leg is one option line of a position.
type Leg struct {
	Kind     pricing.Kind `json:"kind"`
	Action   Action       `json:"action"`
	Strike   float64      `json:"strike"`
	Quantity float64      `json:"quantity"`
	Expiry   float64      `json:"expiry"` // years; used only for Greeks
}

// Validate checks the leg in isolation.
func (l Leg) Validate() error {
	if l.Action != Buy && l.Action != Sell {
		return fmt.Errorf("%w: action %q", ErrInvalidLeg, l.Action)
	}
	if l.Kind != pricing.Call && l.Kind != pricing.Put {
		return fmt.Errorf("%w: kind %q", ErrInvalidLeg, l.Kind)
	}
	if !(l.Strike > 0) || math.IsInf(l.Strike, 0) {
		return fmt.Errorf("%w: strike %v", ErrInvalidLeg, l.Strike)
	}
	if !(l.Quantity > 0) || math.IsInf(l.Quantity, 0) {
		return fmt.Errorf("%w: quantity %v", ErrInvalidLeg, l.Quantity)
	}
	return nil
}

// Payoff is the leg's value at expiration for the given spot:
// direction × quantity × intrinsic. Premium is not included.
func Payoff(spot float64, l Leg) float64 {
	intrinsic := pricing.Intrinsic(pricing.Params{Spot: spot, Strike: l.Strike, Kind: l.Kind})
	return l.Action.Direction() * l.Quantity * intrinsic
}

// PayoffPoint is one sample of a position payoff diagram.
type PayoffPoint struct {
	Spot   float64 `json:"spot"`
	Payoff float64 `json:"payoff"`
}

// Window returns the spot range a payoff diagram covers: the strike span
// padded by half of itself on each side, or ±10% of the strike for a single
// strike. The lower end never goes below zero.
func Window(legs []Leg) (start, end float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range legs {
		lo = math.Min(lo, l.Strike)
		hi = math.Max(hi, l.Strike)
	}
	span := hi - lo
	if span == 0 {
		span = lo * 0.2
	}
	return math.Max(0, lo-span*0.5), hi + span*0.5
}

// PayoffCurve samples the summed payoff across Window(legs) at steps+1 evenly
// spaced spots. steps <= 0 selects DefaultSteps.
func PayoffCurve(legs []Leg, steps int) ([]PayoffPoint, error) {
	if err := validate(legs); err != nil {
		return nil, err
	}
	if steps <= 0 {
		steps = DefaultSteps
	}

	start, end := Window(legs)
	size := (end - start) / float64(steps)
	points := make([]PayoffPoint, 0, steps+1)
	for i := 0; i <= steps; i++ {
		spot := start + float64(i)*size
		if i == steps {
			spot = end
		}
		var total float64
		for _, l := range legs {
			total += Payoff(spot, l)
		}
		points = append(points, PayoffPoint{Spot: spot, Payoff: total})
	}
	return points, nil
}

// PositionGreeks prices every leg on the shared market and returns the
// signed, quantity-weighted sum. market supplies spot, volatility, rate and
// dividend; each leg brings its own kind, strike and expiry.
func PositionGreeks(legs []Leg, market pricing.Params) (pricing.Greeks, error) {
	if err := validate(legs); err != nil {
		return pricing.Greeks{}, err
	}

	var sum pricing.Greeks
	for i, l := range legs {
		p := market
		p.Kind, p.Strike, p.Maturity = l.Kind, l.Strike, l.Expiry
		g, err := pricing.Compute(p)
		if err != nil {
			return pricing.Greeks{}, fmt.Errorf("leg %d: %w", i, err)
		}
		w := l.Action.Direction() * l.Quantity
		sum.Price += w * g.Price
		sum.Delta += w * g.Delta
		sum.Gamma += w * g.Gamma
		sum.Vega += w * g.Vega
		sum.Theta += w * g.Theta
		sum.Rho += w * g.Rho
	}
	return sum, nil
}

func validate(legs []Leg) error {
	if len(legs) == 0 {
		return ErrNoLegs
	}
	for i, l := range legs {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return nil
}
