package advisory

import (
	"strings"
	"testing"

	"github.com/atmx/greeks-engine/internal/pricing"
)

func params(spot, maturity, vol float64, kind pricing.Kind) pricing.Params {
	return pricing.Params{Spot: spot, Strike: 100, Maturity: maturity, Volatility: vol, Rate: 0.05, Kind: kind}
}

func priced(t *testing.T, p pricing.Params) pricing.Greeks {
	t.Helper()
	g, err := pricing.Compute(p)
	if err != nil {
		t.Fatalf("Compute(%+v): %v", p, err)
	}
	return g
}

func titles(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Title
	}
	return out
}

// --- First-match mode ---

func TestClassify_PricedScenarios(t *testing.T) {
	tests := []struct {
		name     string
		p        pricing.Params
		title    string
		severity Severity
	}{
		{"extreme volatility", params(100, 1, 1.2, pricing.Call), "Extreme Volatility", Danger},
		{"extreme volatility put", params(60, 0.01, 1.5, pricing.Put), "Extreme Volatility", Danger},
		{"gamma ten days out", params(100, 10.0/365, 0.2, pricing.Call), "High Gamma Risk", Danger},
		{"theta cliff", params(100, 20.0/365, 0.6, pricing.Call), "Theta Acceleration", Warning},
		{"lotto call", params(80, 0.5, 0.2, pricing.Call), "Lotto Ticket (OTM)", Warning},
		{"deep otm put", params(120, 0.5, 0.2, pricing.Put), "Deep OTM Put", Warning},
		{"vega", params(100, 1, 0.25, pricing.Call), "High Vega Exposure", Info},
		{"deep itm call", params(130, 0.5, 0.2, pricing.Call), "Stock Replacement", Success},
		{"deep itm put", params(80, 0.5, 0.2, pricing.Put), "Stock Replacement", Success},
		{"standard", params(100, 45.0/365, 0.2, pricing.Call), "Standard Exposure", Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Classify(tt.p, priced(t, tt.p))
			if msg.Title != tt.title || msg.Severity != tt.severity {
				t.Errorf("got %s/%q, want %s/%q", msg.Severity, msg.Title, tt.severity, tt.title)
			}
			if msg.Text == "" {
				t.Error("message text is empty")
			}
		})
	}
}

func TestClassify_ExtremeVolatilityBeatsEverything(t *testing.T) {
	p := params(50, 5.0/365, 1.2, pricing.Call)
	g := pricing.Greeks{Gamma: 0.5, Theta: -2, Vega: 3}
	if msg := Classify(p, g); msg.Title != "Extreme Volatility" {
		t.Errorf("expected Extreme Volatility, got %q", msg.Title)
	}
}

func TestClassify_ThetaTextEmbedsDollarDecay(t *testing.T) {
	p := params(100, 14.0/365, 0.3, pricing.Call)
	g := pricing.Greeks{Gamma: 0.01, Theta: -0.0731}
	msg := Classify(p, g)
	if msg.Title != "Theta Acceleration" {
		t.Fatalf("expected Theta Acceleration, got %q", msg.Title)
	}
	if !strings.Contains(msg.Text, "~$7.31 per day per contract") {
		t.Errorf("text missing dollar decay: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, `"Theta Cliff"`) {
		t.Errorf("text missing quoted phrase: %q", msg.Text)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		p     pricing.Params
		g     pricing.Greeks
		title string
	}{
		{"vol exactly 100%", params(100, 1, 1.0, pricing.Call), pricing.Greeks{}, "Standard Exposure"},
		{"gamma at 30 days", params(100, 30.0/365, 0.2, pricing.Call), pricing.Greeks{Gamma: 0.06}, "Standard Exposure"},
		{"gamma at threshold", params(100, 10.0/365, 0.2, pricing.Call), pricing.Greeks{Gamma: 0.05}, "Standard Exposure"},
		{"theta at 21 days", params(100, 21.0/365, 0.2, pricing.Call), pricing.Greeks{Theta: -0.5}, "Standard Exposure"},
		{"call at 0.85", params(85, 1, 0.2, pricing.Call), pricing.Greeks{}, "Standard Exposure"},
		{"put at 1.15", params(115, 1, 0.2, pricing.Put), pricing.Greeks{}, "Standard Exposure"},
		{"otm call is not a put rule", params(120, 1, 0.2, pricing.Call), pricing.Greeks{}, "Stock Replacement"},
		{"vega at threshold", params(100, 1, 0.2, pricing.Call), pricing.Greeks{Vega: 0.15}, "Standard Exposure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := Classify(tt.p, tt.g); msg.Title != tt.title {
				t.Errorf("got %q, want %q", msg.Title, tt.title)
			}
		})
	}
}

// --- All-matches mode ---

func TestEvaluate_AllMatchesInTableOrder(t *testing.T) {
	c := Classifier{ReturnAllMatches: true}
	p := params(100, 10.0/365, 1.2, pricing.Call)
	g := pricing.Greeks{Gamma: 0.08, Theta: -0.2, Vega: 0.2}

	got := titles(c.Evaluate(p, g))
	want := []string{"Extreme Volatility", "High Gamma Risk", "Theta Acceleration", "High Vega Exposure"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEvaluate_AllMatchesReportsVegaWithExtremeVolatility(t *testing.T) {
	p := params(100, 1, 1.2, pricing.Call)
	got := titles(Classifier{ReturnAllMatches: true}.Evaluate(p, priced(t, p)))
	want := []string{"Extreme Volatility", "High Vega Exposure"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEvaluate_AllMatchesNoneFallsBack(t *testing.T) {
	p := params(100, 45.0/365, 0.2, pricing.Call)
	msgs := Classifier{ReturnAllMatches: true}.Evaluate(p, priced(t, p))
	if len(msgs) != 1 || msgs[0] != standardExposure {
		t.Errorf("expected only Standard Exposure, got %v", titles(msgs))
	}
}

func TestEvaluate_FirstMatchReturnsOne(t *testing.T) {
	p := params(100, 10.0/365, 1.2, pricing.Call)
	g := pricing.Greeks{Gamma: 0.08, Theta: -0.2, Vega: 0.2}
	if msgs := (Classifier{}).Evaluate(p, g); len(msgs) != 1 {
		t.Errorf("expected one message, got %v", titles(msgs))
	}
}

func TestEvaluate_CustomTable(t *testing.T) {
	c := Classifier{
		Rules: []Rule{{
			Name:  "short-dated",
			Match: func(s State) bool { return s.Days < 7 },
			Build: func(s State) Message { return Message{Warning, "Weekly", "Expires this week."} },
		}},
		Fallback: &Message{Neutral, "Fine", "Nothing to report."},
	}
	if msg := c.Evaluate(params(100, 3.0/365, 0.2, pricing.Call), pricing.Greeks{})[0]; msg.Title != "Weekly" {
		t.Errorf("got %q, want Weekly", msg.Title)
	}
	if msg := c.Evaluate(params(100, 1, 0.2, pricing.Call), pricing.Greeks{})[0]; msg.Title != "Fine" {
		t.Errorf("got %q, want Fine", msg.Title)
	}
}

func TestDefaultRules_FreshCopy(t *testing.T) {
	a := DefaultRules()
	a[0] = Rule{Name: "mutated"}
	if b := DefaultRules(); b[0].Name != "extreme-volatility" {
		t.Errorf("DefaultRules shares state between calls: %q", b[0].Name)
	}
	if n := len(DefaultRules()); n != 7 {
		t.Errorf("expected 7 rules, got %d", n)
	}
}

// --- Insights ---

func TestInsights(t *testing.T) {
	tests := []struct {
		name string
		p    pricing.Params
		want []string
	}{
		{"itm call long dated", params(130, 0.5, 0.2, pricing.Call), []string{InTheMoney, "High Delta"}},
		{"otm call", params(80, 0.5, 0.2, pricing.Call), []string{OutOfTheMoney, "Low Delta"}},
		{"atm short dated", params(100, 10.0/365, 0.2, pricing.Call), []string{AtTheMoney, "High Gamma", "Near Expiration"}},
		{"atm one year", params(100, 1, 0.25, pricing.Call), []string{AtTheMoney}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, in := range Insights(tt.p, priced(t, tt.p)) {
				got = append(got, in.Title)
				if in.Text == "" {
					t.Errorf("%s has no text", in.Title)
				}
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneynessLabel(t *testing.T) {
	for m, want := range map[float64]string{1.06: InTheMoney, 1.05: AtTheMoney, 1.0: AtTheMoney, 0.95: AtTheMoney, 0.94: OutOfTheMoney} {
		if got := MoneynessLabel(m); got != want {
			t.Errorf("MoneynessLabel(%v) = %q, want %q", m, got, want)
		}
	}
}
