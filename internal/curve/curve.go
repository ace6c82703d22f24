// Package curve sweeps one input of the pricing model while holding the
// others fixed, producing ordered series for charting.
//
// Order is part of the contract: spot and strike series come out in
// ascending (or caller) order, time-decay series in descending day count.
package curve

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmx/greeks-engine/internal/pricing"
)

const (
	// DefaultPoints is the spot sweep resolution when the caller has no
	// preference.
	DefaultPoints = 50

	// DefaultMaxDays is the time-decay horizon when the caller has no
	// preference.
	DefaultMaxDays = 90
)

// ErrInvalidRange is returned for a degenerate sweep configuration.
var ErrInvalidRange = errors.New("curve: invalid sweep range")

// SpotPoint is one sample of a spot sweep.
type SpotPoint struct {
	Spot float64 `json:"spot"`
	pricing.Greeks
}

// DecayPoint is one sample of a time-decay sweep.
type DecayPoint struct {
	Days     int     `json:"days"`
	Maturity float64 `json:"maturity"`
	pricing.Greeks
}

// SweepSpot prices n evenly spaced spots from spotMin to spotMax inclusive.
// base.Spot is ignored.
func SweepSpot(base pricing.Params, spotMin, spotMax float64, n int) ([]SpotPoint, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidRange, n)
	}
	if !finite(spotMin) || !finite(spotMax) || spotMin >= spotMax {
		return nil, fmt.Errorf("%w: spot range [%v, %v]", ErrInvalidRange, spotMin, spotMax)
	}

	step := (spotMax - spotMin) / float64(n-1)
	points := make([]SpotPoint, 0, n)
	for i := 0; i < n; i++ {
		p := base
		p.Spot = spotMin + float64(i)*step
		if i == n-1 {
			p.Spot = spotMax
		}
		g, err := pricing.Compute(p)
		if err != nil {
			return nil, fmt.Errorf("spot %v: %w", p.Spot, err)
		}
		points = append(points, SpotPoint{Spot: p.Spot, Greeks: g})
	}
	return points, nil
}

// SweepTimeDecay prices one point per whole day from maxDays down to 1.
// base.Maturity is ignored.
func SweepTimeDecay(base pricing.Params, maxDays int) ([]DecayPoint, error) {
	if maxDays < 1 {
		return nil, fmt.Errorf("%w: max days must be at least 1, got %d", ErrInvalidRange, maxDays)
	}

	points := make([]DecayPoint, 0, maxDays)
	for days := maxDays; days >= 1; days-- {
		p := base
		p.Maturity = pricing.YearsFromDays(days)
		g, err := pricing.Compute(p)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", days, err)
		}
		points = append(points, DecayPoint{Days: days, Maturity: p.Maturity, Greeks: g})
	}
	return points, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
