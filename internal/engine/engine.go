// Package engine drives the simulation cycle: fetch prices, score symbols,
// open and manage positions, and record every event to the trade log.
package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/CBoon99/spiralbot-v2/internal/metrics"
	"github.com/CBoon99/spiralbot-v2/internal/sim"
	"github.com/CBoon99/spiralbot-v2/internal/strategy"
	"github.com/CBoon99/spiralbot-v2/internal/tradelog"
)

// PriceSource supplies a symbol→price snapshot per cycle.
type PriceSource interface {
	FetchPrices(ctx context.Context) (map[string]float64, error)
}

// Engine owns one simulation run.
type Engine struct {
	source       PriceSource
	estimator    *strategy.Estimator
	portfolio    *sim.Portfolio
	book         *tradelog.Writer
	log          zerolog.Logger
	sessionID    string
	scanInterval time.Duration
	now          func() time.Time
}

// New wires an engine from its collaborators.
func New(source PriceSource, estimator *strategy.Estimator, portfolio *sim.Portfolio, book *tradelog.Writer, sessionID string, scanInterval time.Duration, log zerolog.Logger) *Engine {
	if scanInterval <= 0 {
		scanInterval = 30 * time.Second
	}
	return &Engine{
		source:       source,
		estimator:    estimator,
		portfolio:    portfolio,
		book:         book,
		log:          log,
		sessionID:    sessionID,
		scanInterval: scanInterval,
		now:          time.Now,
	}
}

// Run executes scan cycles until the context is canceled, then records a
// graceful shutdown row. Always returns nil after a clean teardown.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Str("session", e.sessionID).Dur("interval", e.scanInterval).Msg("simulation started")

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		default:
		}

		start := e.now()
		cycle++
		e.runCycle(ctx, cycle)

		elapsed := e.now().Sub(start)
		wait := e.scanInterval - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-time.After(wait):
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, cycle int) {
	prices, err := e.source.FetchPrices(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		e.log.Warn().Err(err).Int("cycle", cycle).Msg("no price data, skipping cycle")
		return
	}
	if len(prices) == 0 {
		e.log.Warn().Int("cycle", cycle).Msg("empty price snapshot, skipping cycle")
		return
	}

	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		price := prices[symbol]
		bue := e.estimator.Observe(symbol, price)
		sig := e.estimator.Evaluate(price, bue)

		if e.estimator.ShouldTrade(sig) {
			e.tryOpen(symbol, sig, price, prices)
		}

		valueEstimate := e.portfolio.Cash() / float64(len(prices)) * (1 + sig.DeltaPct/100)
		e.append(tradelog.Record{
			Symbol:        symbol,
			Price:         price,
			BUE:           bue,
			Delta:         sig.DeltaPct,
			Signal:        string(sig.Action),
			ValueEstimate: valueEstimate,
			Action:        tradelog.ActionScan,
			CloseReason:   "N/A",
			Equity:        e.portfolio.Equity(prices),
		})
	}

	for _, closed := range e.portfolio.ManagePositions(prices) {
		action := tradelog.CloseAction(string(closed.Side))
		e.log.Info().Str("sym", closed.Symbol).Str("reason", closed.Reason).Float64("pnl", closed.NetPnL).Msg("position closed")
		e.append(tradelog.Record{
			Symbol:        closed.Symbol,
			Price:         closed.Price,
			Signal:        action,
			ValueEstimate: closed.Proceeds,
			Action:        action,
			PnL:           closed.NetPnL,
			CloseReason:   closed.Reason,
			Equity:        e.portfolio.Equity(prices),
		})
	}

	equity := e.portfolio.Equity(prices)
	metrics.CyclesTotal.Inc()
	metrics.PositionsOpen.Set(float64(e.portfolio.OpenCount()))
	metrics.Equity.Set(equity)

	e.log.Info().
		Int("cycle", cycle).
		Int("positions", e.portfolio.OpenCount()).
		Float64("cash", e.portfolio.Cash()).
		Float64("equity", equity).
		Msg("cycle complete")
}

func (e *Engine) tryOpen(symbol string, sig strategy.Signal, price float64, prices map[string]float64) {
	fill, err := e.portfolio.Open(symbol, sim.Side(sig.Action), price)
	if err != nil {
		e.log.Debug().Err(err).Str("sym", symbol).Msg("trade skipped")
		return
	}
	metrics.TradesTotal.WithLabelValues(symbol, string(fill.Side)).Inc()
	e.log.Info().
		Str("sym", symbol).
		Str("side", string(fill.Side)).
		Float64("px", price).
		Float64("qty", fill.Qty).
		Float64("fee", fill.Fee).
		Msg("simulated entry")
	e.append(tradelog.Record{
		Symbol:        symbol,
		Price:         price,
		Delta:         sig.DeltaPct,
		Signal:        string(sig.Action),
		ValueEstimate: fill.NetValue,
		Action:        tradelog.ActionOpen,
		CloseReason:   "N/A",
		Equity:        e.portfolio.Equity(prices),
	})
}

func (e *Engine) shutdown() {
	equity := e.portfolio.Equity(nil)
	e.append(tradelog.Record{
		Symbol:      "SYSTEM",
		Signal:      "SHUTDOWN",
		Action:      tradelog.ActionShutdown,
		CloseReason: "GRACEFUL",
		Equity:      equity,
	})
	e.log.Info().Float64("equity", equity).Msg("simulation shut down")
}

func (e *Engine) append(rec tradelog.Record) {
	rec.SessionID = e.sessionID
	rec.Timestamp = e.now()
	if err := e.book.Append(rec); err != nil {
		e.log.Error().Err(err).Str("action", rec.Action).Msg("trade log write failed")
	}
}
