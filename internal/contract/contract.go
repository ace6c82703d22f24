// Package contract parses OCC-style listed option symbols and turns them into
// pricing inputs.
package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/greeks-engine/internal/pricing"
)

// symbolRegex matches: {root}{YYMMDD}{C|P}{strike × 1000, 8 digits}
// Example: AAPL250815C00100000 (AAPL 2025-08-15 100 call)
var symbolRegex = regexp.MustCompile(`^([A-Z]{1,6})(\d{6})([CP])(\d{8})$`)

var (
	ErrInvalidSymbol = errors.New("contract: invalid option symbol")
	ErrExpired       = errors.New("contract: option has expired")
)

var strikeScale = decimal.NewFromInt(1000)

// Contract is a parsed option symbol.
type Contract struct {
	Symbol     string          `json:"symbol"`
	Underlying string          `json:"underlying"`
	Expiry     time.Time       `json:"expiry"`
	Kind       pricing.Kind    `json:"kind"`
	Strike     decimal.Decimal `json:"strike"`
}

// ParseSymbol parses and validates an option symbol. Padding spaces between
// the root and the date, as printed by some brokers, are accepted.
func ParseSymbol(symbol string) (*Contract, error) {
	compact := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), " ", "")
	matches := symbolRegex.FindStringSubmatch(compact)
	if matches == nil {
		return nil, fmt.Errorf("%w: %q (expected {root}{YYMMDD}{C|P}{strike×1000, 8 digits})",
			ErrInvalidSymbol, symbol)
	}

	root, dateStr, side, strikeStr := matches[1], matches[2], matches[3], matches[4]

	expiry, err := time.Parse("060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidSymbol, dateStr)
	}

	milli, err := decimal.NewFromString(strikeStr)
	if err != nil || milli.IsZero() {
		return nil, fmt.Errorf("%w: invalid strike %s", ErrInvalidSymbol, strikeStr)
	}

	kind := pricing.Call
	if side == "P" {
		kind = pricing.Put
	}

	return &Contract{
		Symbol:     compact,
		Underlying: root,
		Expiry:     expiry,
		Kind:       kind,
		Strike:     milli.Div(strikeScale),
	}, nil
}

// Maturity is the calendar time from asOf to expiry in years (hours / 24 /
// 365). The contract expires at 00:00 UTC on its expiry date.
func (c *Contract) Maturity(asOf time.Time) (float64, error) {
	left := c.Expiry.Sub(asOf)
	if left <= 0 {
		return 0, fmt.Errorf("%w: %s expired %s", ErrExpired, c.Symbol, c.Expiry.Format("2006-01-02"))
	}
	return left.Hours() / 24 / pricing.DaysPerYear, nil
}

// Params builds pricing inputs for the contract given market conditions in
// decimal units (0.25 = 25%).
func (c *Contract) Params(spot, vol, rate, dividend float64, asOf time.Time) (pricing.Params, error) {
	t, err := c.Maturity(asOf)
	if err != nil {
		return pricing.Params{}, err
	}
	return pricing.Params{
		Spot:       spot,
		Strike:     c.Strike.InexactFloat64(),
		Maturity:   t,
		Volatility: vol,
		Rate:       rate,
		Dividend:   dividend,
		Kind:       c.Kind,
	}, nil
}
