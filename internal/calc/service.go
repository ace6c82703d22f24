// Package calc provides the HTTP and WebSocket surface of the options
// calculator. Handlers map calculator units to the pricing kernel, call it,
// and return rounded snapshots; nothing is stored between requests.
package calc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/greeks-engine/internal/advisory"
	"github.com/atmx/greeks-engine/internal/config"
	"github.com/atmx/greeks-engine/internal/contract"
	"github.com/atmx/greeks-engine/internal/curve"
	"github.com/atmx/greeks-engine/internal/metrics"
	"github.com/atmx/greeks-engine/internal/model"
	"github.com/atmx/greeks-engine/internal/pricing"
	"github.com/atmx/greeks-engine/internal/strategy"
	"github.com/atmx/greeks-engine/internal/volatility"
)

// Options are the request defaults and limits the handlers apply.
type Options struct {
	Curves   config.CurvesConfig
	Advisory config.AdvisoryConfig
	Batch    config.BatchConfig
}

// OptionsFrom picks the calculator settings out of a loaded config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{Curves: cfg.Curves, Advisory: cfg.Advisory, Batch: cfg.Batch}
}

// Service handles calculator requests. It is safe for concurrent use: every
// field is read-only after construction.
type Service struct {
	opts       Options
	surface    *volatility.Surface
	classifier advisory.Classifier
}

// NewService creates a calculator service. surface backs the smile endpoint
// and may be empty.
func NewService(opts Options, surface *volatility.Surface) *Service {
	if surface == nil {
		surface = &volatility.Surface{}
	}
	return &Service{
		opts:       opts,
		surface:    surface,
		classifier: advisory.Classifier{ReturnAllMatches: opts.Advisory.ReturnAllMatches},
	}
}

// --- Request/Response types ---

// PriceResponse is the JSON body returned from POST /price.
type PriceResponse struct {
	Inputs model.Inputs    `json:"inputs"`
	Price  decimal.Decimal `json:"price"`
}

// AdviceResponse is the JSON body returned from POST /advice.
type AdviceResponse struct {
	Mode   string             `json:"mode"` // "first" or "all"
	Advice []advisory.Message `json:"advice"`
}

// SpotCurveRequest is the JSON body for POST /curves/spot. Omitted bounds
// default to the configured window around the strike.
type SpotCurveRequest struct {
	OptionRequest
	SpotMin *float64 `json:"spot_min,omitempty"`
	SpotMax *float64 `json:"spot_max,omitempty"`
	Points  int      `json:"points,omitempty"`
}

// DecayCurveRequest is the JSON body for POST /curves/decay.
type DecayCurveRequest struct {
	OptionRequest
	MaxDays int `json:"max_days,omitempty"`
}

// StrikeCurveRequest is the JSON body for POST /curves/strikes. Either list
// the strikes or give a ladder.
type StrikeCurveRequest struct {
	OptionRequest
	Strikes    []float64 `json:"strikes,omitempty"`
	StrikeMin  float64   `json:"strike_min,omitempty"`
	StrikeMax  float64   `json:"strike_max,omitempty"`
	StrikeStep float64   `json:"strike_step,omitempty"`
}

// SmileRequest is the JSON body for POST /curves/smile. Params, when set,
// is laid over the configured surface at the requested maturity.
type SmileRequest struct {
	Spot     float64         `json:"spot"`
	Maturity float64         `json:"maturity,omitempty"`
	Days     int             `json:"days,omitempty"`
	Strikes  []float64       `json:"strikes,omitempty"`
	Params   *volatility.SVI `json:"params,omitempty"`
}

// SurfaceResponse is the JSON body returned from GET /surface.
type SurfaceResponse struct {
	Count         int                `json:"count"`
	ArbitrageFree bool               `json:"arbitrage_free"`
	Slices        []volatility.Slice `json:"slices"`
}

// CurveResponse wraps any generated series.
type CurveResponse[T any] struct {
	Count  int `json:"count"`
	Points []T `json:"points"`
}

// PayoffRequest is the JSON body for POST /strategy/payoff. Market is
// optional; without it only the expiration payoff is returned.
type PayoffRequest struct {
	Legs   []LegRequest   `json:"legs"`
	Steps  int            `json:"steps,omitempty"`
	Market *MarketRequest `json:"market,omitempty"`
}

// PayoffResponse is the JSON body returned from POST /strategy/payoff.
type PayoffResponse struct {
	Start  float64                `json:"start"`
	End    float64                `json:"end"`
	Points []strategy.PayoffPoint `json:"points"`
	Greeks *model.Greeks          `json:"greeks,omitempty"`
}

// ContractQuoteRequest is the JSON body for POST /contracts/{symbol}/quote.
type ContractQuoteRequest struct {
	MarketRequest
	AsOf *time.Time `json:"as_of,omitempty"` // defaults to now
}

// ContractQuoteResponse is the JSON body returned from the contract quote.
type ContractQuoteResponse struct {
	Contract *contract.Contract `json:"contract"`
	Quote    model.Quote        `json:"quote"`
}

// --- HTTP Handlers ---

// Price handles POST /api/v1/price
func (s *Service) Price(w http.ResponseWriter, r *http.Request) {
	const op = "price"
	var req OptionRequest
	if !decode(w, r, &req) {
		return
	}
	start := time.Now()
	p, err := req.Params()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	price, err := pricing.Price(p)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	metrics.ObserveCalculation(op, start)

	writeJSON(w, http.StatusOK, PriceResponse{
		Inputs: model.NewInputs(p),
		Price:  decimal.NewFromFloat(price).Round(model.PriceScale),
	})
}

// Greeks handles POST /api/v1/greeks
// Returns price, Greeks, quick facts, insights and advice in one snapshot.
func (s *Service) Greeks(w http.ResponseWriter, r *http.Request) {
	const op = "greeks"
	var req OptionRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := s.quote(op, req, s.classifier)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Advice handles POST /api/v1/advice
// ?all=true (or false) overrides the configured classifier mode.
func (s *Service) Advice(w http.ResponseWriter, r *http.Request) {
	const op = "advice"
	var req OptionRequest
	if !decode(w, r, &req) {
		return
	}

	c := s.classifier
	if v := r.URL.Query().Get("all"); v != "" {
		c.ReturnAllMatches = v == "true" || v == "1"
	}

	start := time.Now()
	p, g, err := compute(req)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	msgs := c.Evaluate(p, g)
	countAdvice(msgs)
	metrics.ObserveCalculation(op, start)

	mode := "first"
	if c.ReturnAllMatches {
		mode = "all"
	}
	writeJSON(w, http.StatusOK, AdviceResponse{Mode: mode, Advice: msgs})
}

// SpotCurve handles POST /api/v1/curves/spot
func (s *Service) SpotCurve(w http.ResponseWriter, r *http.Request) {
	const op = "spot_curve"
	var req SpotCurveRequest
	if !decode(w, r, &req) {
		return
	}
	// Spot is swept; default it so validation only sees the fixed inputs.
	if req.Spot == 0 {
		req.Spot = req.Strike
	}
	p, err := req.Params()
	if err != nil {
		s.fail(w, op, err)
		return
	}

	lo, hi := curve.SpotBounds(p.Strike, s.opts.Curves.SpotLow, s.opts.Curves.SpotHigh)
	if req.SpotMin != nil {
		lo = *req.SpotMin
	}
	if req.SpotMax != nil {
		hi = *req.SpotMax
	}
	n := req.Points
	if n == 0 {
		n = s.opts.Curves.Points
	}
	if n > s.opts.Curves.MaxPoints {
		s.fail(w, op, tooManyPoints(n, s.opts.Curves.MaxPoints))
		return
	}

	start := time.Now()
	points, err := curve.SweepSpot(p, lo, hi, n)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.observeCurve(op, start, len(points))
	writeJSON(w, http.StatusOK, CurveResponse[curve.SpotPoint]{Count: len(points), Points: points})
}

// DecayCurve handles POST /api/v1/curves/decay
func (s *Service) DecayCurve(w http.ResponseWriter, r *http.Request) {
	const op = "decay_curve"
	var req DecayCurveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Maturity == 0 && req.Days == 0 {
		req.Days = 1
	}
	p, err := req.Params()
	if err != nil {
		s.fail(w, op, err)
		return
	}

	days := req.MaxDays
	if days == 0 {
		days = s.opts.Curves.MaxDays
	}
	if days > s.opts.Curves.MaxPoints {
		s.fail(w, op, tooManyPoints(days, s.opts.Curves.MaxPoints))
		return
	}

	start := time.Now()
	points, err := curve.SweepTimeDecay(p, days)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.observeCurve(op, start, len(points))
	writeJSON(w, http.StatusOK, CurveResponse[curve.DecayPoint]{Count: len(points), Points: points})
}

// StrikeCurve handles POST /api/v1/curves/strikes
func (s *Service) StrikeCurve(w http.ResponseWriter, r *http.Request) {
	const op = "strike_curve"
	var req StrikeCurveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Strike == 0 {
		req.Strike = req.Spot
	}
	p, err := req.Params()
	if err != nil {
		s.fail(w, op, err)
		return
	}

	strikes := req.Strikes
	if len(strikes) == 0 && req.StrikeStep != 0 {
		if strikes, err = curve.StrikeLadder(req.StrikeMin, req.StrikeMax, req.StrikeStep, s.opts.Curves.MaxPoints); err != nil {
			s.fail(w, op, err)
			return
		}
	}
	if len(strikes) > s.opts.Curves.MaxPoints {
		s.fail(w, op, tooManyPoints(len(strikes), s.opts.Curves.MaxPoints))
		return
	}

	start := time.Now()
	points, err := curve.SweepStrike(p, strikes)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.observeCurve(op, start, len(points))
	writeJSON(w, http.StatusOK, CurveResponse[curve.StrikePoint]{Count: len(points), Points: points})
}

// Smile handles POST /api/v1/curves/smile
// Without strikes, samples the configured spot window at the configured
// resolution.
func (s *Service) Smile(w http.ResponseWriter, r *http.Request) {
	const op = "smile"
	var req SmileRequest
	if !decode(w, r, &req) {
		return
	}
	T, err := req.maturity()
	if err != nil {
		s.fail(w, op, err)
		return
	}

	strikes := req.Strikes
	if len(strikes) == 0 {
		strikes = evenly(req.Spot*s.opts.Curves.SpotLow, req.Spot*s.opts.Curves.SpotHigh, s.opts.Curves.Points)
	}
	if len(strikes) > s.opts.Curves.MaxPoints {
		s.fail(w, op, tooManyPoints(len(strikes), s.opts.Curves.MaxPoints))
		return
	}

	surface := s.surface
	if req.Params != nil {
		if surface, err = surface.With(T, *req.Params); err != nil {
			s.fail(w, op, err)
			return
		}
	}

	start := time.Now()
	points, err := curve.SweepSmile(surface, req.Spot, T, strikes)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.observeCurve(op, start, len(points))
	writeJSON(w, http.StatusOK, CurveResponse[curve.SmilePoint]{Count: len(points), Points: points})
}

// Surface handles GET /api/v1/surface
func (s *Service) Surface(w http.ResponseWriter, _ *http.Request) {
	slices := s.surface.Slices()
	writeJSON(w, http.StatusOK, SurfaceResponse{
		Count:         len(slices),
		ArbitrageFree: s.surface.ArbitrageFree(),
		Slices:        slices,
	})
}

// Payoff handles POST /api/v1/strategy/payoff
func (s *Service) Payoff(w http.ResponseWriter, r *http.Request) {
	const op = "payoff"
	var req PayoffRequest
	if !decode(w, r, &req) {
		return
	}

	legs := make([]strategy.Leg, 0, len(req.Legs))
	for i, lr := range req.Legs {
		l, err := lr.leg(i)
		if err != nil {
			s.fail(w, op, err)
			return
		}
		legs = append(legs, l)
	}
	if req.Steps > s.opts.Curves.MaxPoints {
		s.fail(w, op, tooManyPoints(req.Steps, s.opts.Curves.MaxPoints))
		return
	}

	start := time.Now()
	points, err := strategy.PayoffCurve(legs, req.Steps)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	resp := PayoffResponse{Points: points}
	resp.Start, resp.End = strategy.Window(legs)

	if req.Market != nil {
		g, err := strategy.PositionGreeks(legs, req.Market.params())
		if err != nil {
			s.fail(w, op, err)
			return
		}
		mg := model.NewGreeks(g)
		resp.Greeks = &mg
	}
	s.observeCurve(op, start, len(points))
	writeJSON(w, http.StatusOK, resp)
}

// ContractQuote handles POST /api/v1/contracts/{symbol}/quote
func (s *Service) ContractQuote(w http.ResponseWriter, r *http.Request) {
	const op = "contract_quote"
	c, err := contract.ParseSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		s.fail(w, op, err)
		return
	}

	var req ContractQuoteRequest
	if !decode(w, r, &req) {
		return
	}
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	start := time.Now()
	m := req.params()
	p, err := c.Params(m.Spot, m.Volatility, m.Rate, m.Dividend, asOf)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	g, err := pricing.Compute(p)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	msgs := s.classifier.Evaluate(p, g)
	countAdvice(msgs)
	metrics.ObserveCalculation(op, start)

	slog.Debug("contract quoted",
		"symbol", c.Symbol,
		"maturity", p.Maturity,
		"price", g.Price,
	)
	writeJSON(w, http.StatusOK, ContractQuoteResponse{Contract: c, Quote: model.NewQuote(p, g, msgs)})
}

// --- helpers ---

// quote prices one request and assembles the full snapshot.
func (s *Service) quote(op string, req OptionRequest, c advisory.Classifier) (model.Quote, error) {
	start := time.Now()
	p, g, err := compute(req)
	if err != nil {
		return model.Quote{}, err
	}
	msgs := c.Evaluate(p, g)
	countAdvice(msgs)
	metrics.ObserveCalculation(op, start)

	slog.Debug("option priced",
		"op", op,
		"kind", p.Kind,
		"spot", p.Spot,
		"strike", p.Strike,
		"maturity", p.Maturity,
		"price", g.Price,
	)
	return model.NewQuote(p, g, msgs), nil
}

func compute(req OptionRequest) (pricing.Params, pricing.Greeks, error) {
	p, err := req.Params()
	if err != nil {
		return p, pricing.Greeks{}, err
	}
	g, err := pricing.Compute(p)
	return p, g, err
}

func countAdvice(msgs []advisory.Message) {
	for _, m := range msgs {
		metrics.AdviceIssued.WithLabelValues(string(m.Severity)).Inc()
	}
}

func (s *Service) observeCurve(op string, start time.Time, n int) {
	metrics.ObserveCalculation(op, start)
	metrics.CurvePoints.WithLabelValues(op).Observe(float64(n))
}

// evenly returns n evenly spaced values from lo to hi inclusive.
func evenly(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// fail logs and writes an error, choosing the status from the error class.
func (s *Service) fail(w http.ResponseWriter, op string, err error) {
	status, class := classify(err)
	metrics.CalculationErrors.WithLabelValues(op, class).Inc()
	if status >= http.StatusInternalServerError {
		slog.Error("calculation failed", "op", op, "err", err)
	} else {
		slog.Debug("calculation rejected", "op", op, "class", class, "err", err)
	}
	writeError(w, err.Error(), status)
}

// classify maps kernel sentinels to an HTTP status and a metrics label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pricing.ErrInvalidParameter),
		errors.Is(err, pricing.ErrInvalidKind):
		return http.StatusBadRequest, "domain"
	case errors.Is(err, curve.ErrInvalidRange),
		errors.Is(err, errTooManyItems):
		return http.StatusBadRequest, "range"
	case errors.Is(err, strategy.ErrNoLegs),
		errors.Is(err, strategy.ErrInvalidLeg):
		return http.StatusBadRequest, "strategy"
	case errors.Is(err, contract.ErrInvalidSymbol):
		return http.StatusBadRequest, "symbol"
	case errors.Is(err, contract.ErrExpired):
		return http.StatusUnprocessableEntity, "expired"
	case errors.Is(err, volatility.ErrInvalidSlice),
		errors.Is(err, volatility.ErrEmptySurface),
		errors.Is(err, volatility.ErrNegativeVariance):
		return http.StatusUnprocessableEntity, "surface"
	case errors.Is(err, pricing.ErrNonFinite):
		return http.StatusUnprocessableEntity, "overflow"
	}
	return http.StatusInternalServerError, "internal"
}

// decode reads a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
