// Package advisory turns a priced option into trader-facing risk messages.
//
// Rules are an ordered table of predicate/message pairs. In the default mode
// the first matching rule wins; a Classifier can instead report every match
// in table order.
package advisory

import (
	"github.com/atmx/greeks-engine/internal/pricing"
)

// Severity ranks a message for display.
type Severity string

const (
	Danger  Severity = "danger"
	Warning Severity = "warning"
	Info    Severity = "info"
	Success Severity = "success"
	Neutral Severity = "neutral"
)

// Message is one piece of advice.
type Message struct {
	Severity Severity `json:"type"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
}

// State is what a rule sees: the inputs, their Greeks and the derived
// moneyness and calendar days to expiry.
type State struct {
	Params    pricing.Params
	Greeks    pricing.Greeks
	Moneyness float64
	Days      float64
}

// NewState derives moneyness and days from p.
func NewState(p pricing.Params, g pricing.Greeks) State {
	return State{
		Params:    p,
		Greeks:    g,
		Moneyness: pricing.Moneyness(p),
		Days:      pricing.DaysToExpiry(p),
	}
}

// IsCall reports whether the state describes a call.
func (s State) IsCall() bool { return s.Params.Kind.IsCall() }

// Rule pairs a predicate with the message it produces.
type Rule struct {
	Name  string
	Match func(State) bool
	Build func(State) Message
}

// Classifier evaluates a rule table.
type Classifier struct {
	// Rules defaults to DefaultRules when nil.
	Rules []Rule

	// Fallback is returned when no rule matches. Defaults to Standard Exposure.
	Fallback *Message

	// ReturnAllMatches reports every matching rule instead of the first.
	ReturnAllMatches bool
}

// Evaluate runs the table against p and g. It always returns at least one
// message; in first-match mode exactly one.
func (c Classifier) Evaluate(p pricing.Params, g pricing.Greeks) []Message {
	s := NewState(p, g)
	rules := c.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	var out []Message
	for _, r := range rules {
		if !r.Match(s) {
			continue
		}
		out = append(out, r.Build(s))
		if !c.ReturnAllMatches {
			return out
		}
	}
	if len(out) == 0 {
		out = append(out, c.fallback())
	}
	return out
}

func (c Classifier) fallback() Message {
	if c.Fallback != nil {
		return *c.Fallback
	}
	return standardExposure
}

// Classify returns the highest-priority message from the default table.
func Classify(p pricing.Params, g pricing.Greeks) Message {
	return Classifier{}.Evaluate(p, g)[0]
}
