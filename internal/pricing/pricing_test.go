package pricing

import (
	"errors"
	"math"
	"testing"
)

func atm(kind Kind) Params {
	return Params{Spot: 100, Strike: 100, Maturity: 1, Volatility: 0.25, Rate: 0.05, Dividend: 0, Kind: kind}
}

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %.8f, want %.8f (±%g)", name, got, want, tol)
	}
}

// --- Reference values ---

func TestCompute_ATMCallReference(t *testing.T) {
	g, err := Compute(atm(Call))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	near(t, "price", g.Price, 12.336, 1e-3)
	near(t, "delta", g.Delta, 0.62741, 1e-4)
	near(t, "gamma", g.Gamma, 0.015137, 1e-5)
	near(t, "vega", g.Vega, 0.37842, 1e-4)
	near(t, "theta", g.Theta, -0.019864, 1e-5)
	near(t, "rho", g.Rho, 0.50405, 1e-4)
}

func TestCompute_ATMPutReference(t *testing.T) {
	g, err := Compute(atm(Put))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	near(t, "price", g.Price, 7.4589, 1e-3)
	near(t, "delta", g.Delta, -0.37259, 1e-4)
	near(t, "gamma", g.Gamma, 0.015137, 1e-5)
	near(t, "vega", g.Vega, 0.37842, 1e-4)
	near(t, "theta", g.Theta, -0.0068338, 1e-5)
	near(t, "rho", g.Rho, -0.44718, 1e-4)
}

func TestCompute_WithDividend(t *testing.T) {
	p := atm(Call)
	p.Dividend = 0.02
	g, err := Compute(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	near(t, "price", g.Price, 11.1238, 1e-3)
	near(t, "delta", g.Delta, 0.58495, 1e-4)
	near(t, "theta", g.Theta, -0.016280, 1e-5)
}

func TestPrice_MatchesCompute(t *testing.T) {
	for _, kind := range []Kind{Call, Put} {
		p := atm(kind)
		price, err := Price(p)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		g, _ := Compute(p)
		if price != g.Price {
			t.Errorf("%s: Price=%v Compute.Price=%v", kind, price, g.Price)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	p := atm(Put)
	a, _ := Compute(p)
	b, _ := Compute(p)
	if a != b {
		t.Errorf("identical inputs gave different results: %+v vs %+v", a, b)
	}
}

// --- Properties ---

var grid = func() []Params {
	var out []Params
	for _, s := range []float64{50, 80, 100, 120, 200} {
		for _, T := range []float64{1.0 / 365, 0.1, 1, 5} {
			for _, sigma := range []float64{0.05, 0.25, 1.2} {
				for _, q := range []float64{0, 0.03} {
					for _, r := range []float64{-0.01, 0, 0.05} {
						out = append(out, Params{Spot: s, Strike: 100, Maturity: T, Volatility: sigma, Rate: r, Dividend: q})
					}
				}
			}
		}
	}
	return out
}()

func TestCompute_DeltaBounds(t *testing.T) {
	for _, base := range grid {
		bound := math.Exp(-base.Dividend * base.Maturity)

		call := base
		call.Kind = Call
		gc, err := Compute(call)
		if err != nil {
			t.Fatalf("call %+v: %v", call, err)
		}
		if gc.Delta < 0 || gc.Delta > bound+1e-12 {
			t.Errorf("call delta %v outside [0, %v] for %+v", gc.Delta, bound, call)
		}

		put := base
		put.Kind = Put
		gp, err := Compute(put)
		if err != nil {
			t.Fatalf("put %+v: %v", put, err)
		}
		if gp.Delta > 0 || gp.Delta < -bound-1e-12 {
			t.Errorf("put delta %v outside [-%v, 0] for %+v", gp.Delta, bound, put)
		}
	}
}

func TestCompute_GammaVegaNonNegativeAndShared(t *testing.T) {
	for _, base := range grid {
		call, put := base, base
		call.Kind, put.Kind = Call, Put
		gc, _ := Compute(call)
		gp, _ := Compute(put)
		if gc.Gamma < 0 || gc.Vega < 0 {
			t.Errorf("negative gamma/vega %+v for %+v", gc, call)
		}
		if gc.Gamma != gp.Gamma || gc.Vega != gp.Vega {
			t.Errorf("call/put gamma or vega differ: %+v vs %+v", gc, gp)
		}
	}
}

func TestCompute_PutCallParity(t *testing.T) {
	for _, base := range grid {
		call, put := base, base
		call.Kind, put.Kind = Call, Put
		c, _ := Price(call)
		p, _ := Price(put)
		want := base.Spot*math.Exp(-base.Dividend*base.Maturity) - base.Strike*math.Exp(-base.Rate*base.Maturity)
		if math.Abs((c-p)-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Errorf("parity broken for %+v: C-P=%v want %v", base, c-p, want)
		}
	}
}

func TestPrice_ConvergesToIntrinsic(t *testing.T) {
	tenthOfDay := 1.0 / 3650
	tests := []struct {
		name string
		p    Params
	}{
		{"itm call", Params{Spot: 110, Strike: 100, Maturity: tenthOfDay, Volatility: 0.25, Rate: 0.05, Kind: Call}},
		{"otm call", Params{Spot: 90, Strike: 100, Maturity: tenthOfDay, Volatility: 0.25, Rate: 0.05, Kind: Call}},
		{"itm put", Params{Spot: 90, Strike: 100, Maturity: tenthOfDay, Volatility: 0.25, Rate: 0.05, Kind: Put}},
		{"otm put", Params{Spot: 110, Strike: 100, Maturity: tenthOfDay, Volatility: 0.25, Rate: 0.05, Kind: Put}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := Price(tt.p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := math.Abs(price - Intrinsic(tt.p)); diff > 0.01 {
				t.Errorf("price %v not within 0.01 of intrinsic %v", price, Intrinsic(tt.p))
			}
		})
	}
}

func TestCompute_NoNegativeZero(t *testing.T) {
	// Deep OTM put: Φ(-d2) underflows and rho/price collapse to zero.
	p := Params{Spot: 1000, Strike: 1, Maturity: 0.01, Volatility: 0.05, Rate: 0.01, Kind: Put}
	g, err := Compute(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, v := range map[string]float64{
		"price": g.Price, "delta": g.Delta, "gamma": g.Gamma,
		"vega": g.Vega, "theta": g.Theta, "rho": g.Rho,
	} {
		if v == 0 && math.Signbit(v) {
			t.Errorf("%s is negative zero", name)
		}
	}
}

// --- Domain errors ---

func TestValidate_RejectsOutOfDomain(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero maturity", func(p *Params) { p.Maturity = 0 }},
		{"negative maturity", func(p *Params) { p.Maturity = -0.5 }},
		{"zero volatility", func(p *Params) { p.Volatility = 0 }},
		{"negative volatility", func(p *Params) { p.Volatility = -0.2 }},
		{"zero spot", func(p *Params) { p.Spot = 0 }},
		{"negative spot", func(p *Params) { p.Spot = -100 }},
		{"zero strike", func(p *Params) { p.Strike = 0 }},
		{"negative strike", func(p *Params) { p.Strike = -1 }},
		{"nan spot", func(p *Params) { p.Spot = math.NaN() }},
		{"inf volatility", func(p *Params) { p.Volatility = math.Inf(1) }},
		{"nan rate", func(p *Params) { p.Rate = math.NaN() }},
		{"negative dividend", func(p *Params) { p.Dividend = -0.01 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := atm(Call)
			tt.mutate(&p)

			if _, err := Compute(p); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Compute: expected ErrInvalidParameter, got %v", err)
			}
			if _, err := Price(p); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Price: expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestValidate_RejectsUnknownKind(t *testing.T) {
	p := atm("straddle")
	if _, err := Compute(p); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestValidate_NegativeRateAllowed(t *testing.T) {
	p := atm(Call)
	p.Rate = -0.02
	if _, err := Compute(p); err != nil {
		t.Errorf("negative rate should be accepted, got %v", err)
	}
}

func TestCompute_Overflow(t *testing.T) {
	p := Params{Spot: 1e300, Strike: 1e-300, Maturity: 1e6, Volatility: 10, Rate: -1e3, Kind: Call}
	if _, err := Compute(p); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"call", Call, true},
		{"CALL", Call, true},
		{" c ", Call, true},
		{"Put", Put, true},
		{"p", Put, true},
		{"future", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidKind) {
			t.Errorf("ParseKind(%q): expected ErrInvalidKind, got %v", tt.in, err)
		}
	}
}

func TestFacts(t *testing.T) {
	p := Params{Spot: 110, Strike: 100, Maturity: 0.5, Volatility: 0.2, Rate: 0.01, Kind: Call}
	if got := Intrinsic(p); got != 10 {
		t.Errorf("call intrinsic = %v, want 10", got)
	}
	p.Kind = Put
	if got := Intrinsic(p); got != 0 {
		t.Errorf("put intrinsic = %v, want 0", got)
	}
	near(t, "moneyness", Moneyness(p), 1.1, 1e-12)
	near(t, "days", DaysToExpiry(p), 182.5, 1e-12)
	near(t, "years", YearsFromDays(73), 0.2, 1e-12)

	g := Greeks{Price: 12.5}
	near(t, "time value", g.TimeValue(10), 2.5, 1e-12)
}
