// Package pricing implements the Black-Scholes-Merton model with a continuous
// dividend (carry) yield for European calls and puts.
//
// The package is stateless: market inputs are passed in as a Params value and
// every call returns a fresh snapshot. d1, d2, the two discount factors, Φ(d1),
// Φ(d2) and φ(d1) are evaluated once per call and shared by the price and all
// five Greeks.
//
// Conventions: rates, volatility and dividend yield are decimals (0.25 = 25%),
// maturity is in years. Vega and rho are scaled to a 1% move, theta to one
// calendar day (annual figure / 365).
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/atmx/greeks-engine/internal/stats"
)

var (
	// ErrInvalidParameter is returned for inputs outside the model's domain:
	// non-positive spot, strike, maturity or volatility, negative dividend
	// yield, or any non-finite value.
	ErrInvalidParameter = errors.New("pricing: invalid parameter")

	// ErrInvalidKind is returned when the option kind is neither call nor put.
	ErrInvalidKind = errors.New("pricing: option kind must be call or put")

	// ErrNonFinite is returned when valid inputs still overflow float64
	// somewhere in the formula.
	ErrNonFinite = errors.New("pricing: result is not finite")
)

// DaysPerYear converts between calendar days and year fractions.
const DaysPerYear = 365.0

// Kind is the option payoff type.
type Kind string

const (
	Call Kind = "call"
	Put  Kind = "put"
)

// ParseKind accepts "call"/"put" in any case, plus the single-letter forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// IsCall reports whether k is a call.
func (k Kind) IsCall() bool { return k == Call }

// Params are the market inputs for one option.
type Params struct {
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Maturity   float64 `json:"maturity"`   // years
	Volatility float64 `json:"volatility"` // annualized, decimal
	Rate       float64 `json:"rate"`       // continuously compounded, decimal
	Dividend   float64 `json:"dividend"`   // continuous yield, decimal
	Kind       Kind    `json:"kind"`
}

// Greeks is the price plus its five sensitivities.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`  // per 1% volatility
	Theta float64 `json:"theta"` // per calendar day
	Rho   float64 `json:"rho"`   // per 1% rate
}

// Validate checks p against the model's domain. It never touches the
// formulas, so a nil result guarantees no division by zero or log of a
// non-positive number later on.
func (p Params) Validate() error {
	if err := positive("spot", p.Spot); err != nil {
		return err
	}
	if err := positive("strike", p.Strike); err != nil {
		return err
	}
	if err := positive("maturity", p.Maturity); err != nil {
		return err
	}
	if err := positive("volatility", p.Volatility); err != nil {
		return err
	}
	if !finite(p.Rate) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidParameter, p.Rate)
	}
	if !finite(p.Dividend) || p.Dividend < 0 {
		return fmt.Errorf("%w: dividend must be finite and >= 0, got %v", ErrInvalidParameter, p.Dividend)
	}
	if p.Kind != Call && p.Kind != Put {
		return fmt.Errorf("%w: %q", ErrInvalidKind, p.Kind)
	}
	return nil
}

func positive(name string, v float64) error {
	if !finite(v) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParameter, name, v)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// terms holds the intermediate values shared by price and Greeks.
type terms struct {
	sqrtT    float64
	d1, d2   float64
	discount float64 // e^{-rT}
	carry    float64 // e^{-qT}
	nd1, nd2 float64 // Φ(d1), Φ(d2)
	pdf1     float64 // φ(d1)
}

func newTerms(p Params) terms {
	sqrtT := math.Sqrt(p.Maturity)
	volSqrtT := p.Volatility * sqrtT
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+0.5*p.Volatility*p.Volatility)*p.Maturity) / volSqrtT
	d2 := d1 - volSqrtT
	return terms{
		sqrtT:    sqrtT,
		d1:       d1,
		d2:       d2,
		discount: math.Exp(-p.Rate * p.Maturity),
		carry:    math.Exp(-p.Dividend * p.Maturity),
		nd1:      stats.NormCDF(d1),
		nd2:      stats.NormCDF(d2),
		pdf1:     stats.NormPDF(d1),
	}
}

// price uses Φ(-x) = 1 - Φ(x), which holds exactly for the CDF approximation
// away from x = 0.
func (t terms) price(p Params) float64 {
	if p.Kind == Call {
		return p.Spot*t.carry*t.nd1 - p.Strike*t.discount*t.nd2
	}
	return p.Strike*t.discount*(1-t.nd2) - p.Spot*t.carry*(1-t.nd1)
}

// Price returns the option's model value.
func Price(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	v := newTerms(p).price(p)
	if !finite(v) {
		return 0, ErrNonFinite
	}
	return clean(v), nil
}

// Compute returns the price and all five Greeks for p.
func Compute(p Params) (Greeks, error) {
	if err := p.Validate(); err != nil {
		return Greeks{}, err
	}
	t := newTerms(p)

	S, K, T := p.Spot, p.Strike, p.Maturity
	sigma, r, q := p.Volatility, p.Rate, p.Dividend

	// Shared by call and put theta.
	decay := -(S * t.carry * t.pdf1 * sigma) / (2 * t.sqrtT)

	g := Greeks{
		Price: t.price(p),
		Gamma: t.carry * t.pdf1 / (S * sigma * t.sqrtT),
		Vega:  S * t.carry * t.sqrtT * t.pdf1 / 100,
	}
	if p.Kind == Call {
		g.Delta = t.carry * t.nd1
		g.Theta = (decay - r*K*t.discount*t.nd2 + q*S*t.carry*t.nd1) / DaysPerYear
		g.Rho = K * T * t.discount * t.nd2 / 100
	} else {
		g.Delta = t.carry * (t.nd1 - 1)
		g.Theta = (decay + r*K*t.discount*(1-t.nd2) - q*S*t.carry*(1-t.nd1)) / DaysPerYear
		g.Rho = -K * T * t.discount * (1 - t.nd2) / 100
	}

	for _, v := range []float64{g.Price, g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho} {
		if !finite(v) {
			return Greeks{}, ErrNonFinite
		}
	}
	g.Price = clean(g.Price)
	g.Delta = clean(g.Delta)
	g.Gamma = clean(g.Gamma)
	g.Vega = clean(g.Vega)
	g.Theta = clean(g.Theta)
	g.Rho = clean(g.Rho)
	return g, nil
}

// clean turns negative zero into positive zero.
func clean(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
