package volatility

import (
	"fmt"
	"math"
	"sort"
)

// Slice is one maturity of a surface. When JW is set it takes precedence
// over Params and is converted when the surface is built.
type Slice struct {
	Maturity float64 `json:"maturity" toml:"maturity"` // years
	Params   SVI     `json:"params" toml:"params"`
	JW       *SVIJW  `json:"jw,omitempty" toml:"jw"`
}

// Surface is an immutable set of SVI slices sorted by maturity. Build one
// with NewSurface and derive variants with With; the zero value is an empty
// surface.
type Surface struct {
	slices []Slice
}

// NewSurface sorts and validates the slices. A later slice with the same
// maturity replaces an earlier one.
func NewSurface(slices ...Slice) (*Surface, error) {
	s := &Surface{}
	for _, sl := range slices {
		resolved, err := resolve(sl)
		if err != nil {
			return nil, err
		}
		s.slices = upsert(s.slices, resolved)
	}
	return s, nil
}

// resolve converts a jump-wings slice to raw form and validates it.
func resolve(sl Slice) (Slice, error) {
	if sl.JW != nil {
		params, err := sl.JW.SVI()
		if err != nil {
			return Slice{}, fmt.Errorf("slice T=%v: %w", sl.Maturity, err)
		}
		sl.Params, sl.JW = params, nil
	}
	return sl, validSlice(sl)
}

func validSlice(sl Slice) error {
	if !(sl.Maturity > 0) || math.IsInf(sl.Maturity, 0) {
		return fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidSlice, sl.Maturity)
	}
	if !sl.Params.finite() {
		return fmt.Errorf("%w: non-finite parameters at T=%v", ErrInvalidSlice, sl.Maturity)
	}
	return nil
}

// upsert inserts sl into the sorted slice, replacing an equal maturity.
func upsert(slices []Slice, sl Slice) []Slice {
	i := sort.Search(len(slices), func(i int) bool { return slices[i].Maturity >= sl.Maturity })
	if i < len(slices) && slices[i].Maturity == sl.Maturity {
		slices[i] = sl
		return slices
	}
	slices = append(slices, Slice{})
	copy(slices[i+1:], slices[i:])
	slices[i] = sl
	return slices
}

// With returns a new surface with the slice added. s is left unchanged.
func (s *Surface) With(maturity float64, params SVI) (*Surface, error) {
	sl := Slice{Maturity: maturity, Params: params}
	if err := validSlice(sl); err != nil {
		return nil, err
	}
	out := &Surface{slices: make([]Slice, len(s.slices), len(s.slices)+1)}
	copy(out.slices, s.slices)
	out.slices = upsert(out.slices, sl)
	return out, nil
}

// Len returns the number of maturity slices.
func (s *Surface) Len() int { return len(s.slices) }

// Slices returns a copy of the slices in ascending maturity order.
func (s *Surface) Slices() []Slice {
	out := make([]Slice, len(s.slices))
	copy(out, s.slices)
	return out
}

// ImpliedVol returns the implied volatility at strike for the given spot and
// maturity. An exact maturity uses its slice; between two slices total
// variance is interpolated linearly in time; outside the covered range the
// nearest slice's volatility is held flat.
func (s *Surface) ImpliedVol(strike, spot, maturity float64) (float64, error) {
	if len(s.slices) == 0 {
		return 0, ErrEmptySurface
	}
	for _, in := range []struct {
		name string
		v    float64
	}{{"strike", strike}, {"spot", spot}, {"maturity", maturity}} {
		if !(in.v > 0) || math.IsInf(in.v, 0) {
			return 0, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidSlice, in.name, in.v)
		}
	}
	k := math.Log(strike / spot)

	i := sort.Search(len(s.slices), func(i int) bool { return s.slices[i].Maturity >= maturity })
	switch {
	case i < len(s.slices) && s.slices[i].Maturity == maturity:
		return s.slices[i].Params.ImpliedVol(k, maturity)
	case i == 0:
		first := s.slices[0]
		return first.Params.ImpliedVol(k, first.Maturity)
	case i == len(s.slices):
		last := s.slices[len(s.slices)-1]
		return last.Params.ImpliedVol(k, last.Maturity)
	}

	lo, hi := s.slices[i-1], s.slices[i]
	w1 := lo.Params.TotalVariance(k)
	w2 := hi.Params.TotalVariance(k)
	weight := (maturity - lo.Maturity) / (hi.Maturity - lo.Maturity)
	return volFromVariance(w1+weight*(w2-w1), maturity)
}

// butterflyGrid is the log-moneyness range checked for butterfly arbitrage.
var butterflyGrid = func() []float64 {
	var ks []float64
	for k := -2.0; k <= 2.0; k += 0.25 {
		ks = append(ks, k)
	}
	return ks
}()

// ArbitrageFree reports whether every slice passes SVI.ArbitrageFree and
// SVI.ButterflyFree across |k| <= 2, and ATM total variance does not
// decrease with maturity.
func (s *Surface) ArbitrageFree() bool {
	prev := math.Inf(-1)
	for _, sl := range s.slices {
		if !sl.Params.ArbitrageFree() {
			return false
		}
		for _, k := range butterflyGrid {
			if !sl.Params.ButterflyFree(k) {
				return false
			}
		}
		w := sl.Params.TotalVariance(0)
		if w < prev {
			return false
		}
		prev = w
	}
	return true
}
