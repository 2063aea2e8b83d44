// Package strategy implements the BUE estimator and signal generation.
package strategy

import (
	"math"
	"math/rand"
	"sync"
)

// Action enumerates the trading bias emitted for a scan.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Params groups the tunable estimator knobs.
type Params struct {
	HistoryWindow    int     // rolling prices kept per symbol
	BuyThresholdPct  float64 // delta above which a BUY is emitted
	SellThresholdPct float64 // delta below which a SELL is emitted
	EntryDeltaPct    float64 // |delta| a signal must clear before a trade fires
	MomentumWeight   float64
	VolatilityWeight float64
	NoisePct         float64 // magnitude of the random component
}

// DefaultParams mirrors the long-standing simulator tuning.
func DefaultParams() Params {
	return Params{
		HistoryWindow:    20,
		BuyThresholdPct:  1.2,
		SellThresholdPct: -1.2,
		EntryDeltaPct:    1.5,
		MomentumWeight:   0.15,
		VolatilityWeight: 0.08,
		NoisePct:         0.008,
	}
}

// Estimator computes the BUE (bot's understanding of expected) value per symbol
// from a rolling price history: a momentum factor, a clamped volatility factor,
// and a small random component.
type Estimator struct {
	params Params
	rand   func() float64 // uniform [0,1)
	mu     sync.Mutex
	series map[string][]float64
}

// Signal is one scan verdict for a symbol.
type Signal struct {
	Action   Action
	DeltaPct float64 // (bue - price) / price * 100
}

// NewEstimator constructs an estimator; zero-valued params fall back to defaults.
func NewEstimator(params Params) *Estimator {
	defaults := DefaultParams()
	if params.HistoryWindow <= 0 {
		params.HistoryWindow = defaults.HistoryWindow
	}
	if params.BuyThresholdPct <= 0 {
		params.BuyThresholdPct = defaults.BuyThresholdPct
	}
	if params.SellThresholdPct >= 0 {
		params.SellThresholdPct = defaults.SellThresholdPct
	}
	if params.EntryDeltaPct <= 0 {
		params.EntryDeltaPct = defaults.EntryDeltaPct
	}
	if params.MomentumWeight == 0 {
		params.MomentumWeight = defaults.MomentumWeight
	}
	if params.VolatilityWeight == 0 {
		params.VolatilityWeight = defaults.VolatilityWeight
	}
	return &Estimator{
		params: params,
		rand:   rand.Float64,
		series: make(map[string][]float64),
	}
}

// Observe records the latest price and returns the BUE value for the symbol.
// With fewer than five observations the current price is returned unchanged.
func (e *Estimator) Observe(symbol string, price float64) float64 {
	if price <= 0 {
		return price
	}

	e.mu.Lock()
	history := append(e.series[symbol], price)
	if len(history) > e.params.HistoryWindow {
		history = history[len(history)-e.params.HistoryWindow:]
	}
	e.series[symbol] = history
	e.mu.Unlock()

	if len(history) < 5 {
		return price
	}

	var momentum float64
	if len(history) >= 10 {
		recent := mean(history[len(history)-5:])
		older := mean(history[len(history)-10 : len(history)-5])
		if older > 0 {
			momentum = (recent - older) / older * e.params.MomentumWeight
		}
	}

	var volatility float64
	if len(history) >= 10 {
		window := history[len(history)-10:]
		spread := maxOf(window) - minOf(window)
		raw := spread / price * e.params.VolatilityWeight
		volatility = clamp(raw, -0.03, 0.03)
	}

	noise := (e.rand()*2 - 1) * e.params.NoisePct

	bue := price * (1 + momentum + volatility + noise)
	return math.Round(bue*1e8) / 1e8
}

// Evaluate turns a price/BUE pair into a signal.
func (e *Estimator) Evaluate(price, bue float64) Signal {
	if price <= 0 {
		return Signal{Action: Hold}
	}
	delta := (bue - price) / price * 100
	switch {
	case delta > e.params.BuyThresholdPct:
		return Signal{Action: Buy, DeltaPct: delta}
	case delta < e.params.SellThresholdPct:
		return Signal{Action: Sell, DeltaPct: delta}
	default:
		return Signal{Action: Hold, DeltaPct: delta}
	}
}

// ShouldTrade reports whether a signal is strong enough to open a position.
func (e *Estimator) ShouldTrade(sig Signal) bool {
	if sig.Action == Hold {
		return false
	}
	return math.Abs(sig.DeltaPct) > e.params.EntryDeltaPct
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
